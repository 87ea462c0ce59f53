package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalAddEntry(t *testing.T) {
	dir := t.TempDir()
	j, err := NewJournal(filepath.Join(dir, "recstore.journal"), 0)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.AddEntry("WRITE", "shop", "users", "u1"))
	require.NoError(t, j.AddEntry("UPDATE", "shop", "users", "u1"))

	matches, err := filepath.Glob(filepath.Join(dir, "recstore_*.journal"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "| WRITE | shop | users | u1")
	assert.Contains(t, lines[1], "| UPDATE | shop | users | u1")
	assert.Equal(t, int64(len(data)), j.Size())
}

func TestJournalRollsOverAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	j, err := NewJournal(filepath.Join(dir, "ops_2024-01-01.journal"), 2)
	require.NoError(t, err)
	defer j.Close()
	j.now = func() time.Time { return day }

	require.NoError(t, j.AddEntry("CREATE DATABASE", "shop", "", ""))
	day = day.AddDate(0, 0, 3)
	require.NoError(t, j.AddEntry("CREATE COLLECTION", "shop", "users", ""))

	assert.FileExists(t, filepath.Join(dir, "ops_2024-03-10.journal"))
	assert.FileExists(t, filepath.Join(dir, "ops_2024-03-13.journal"))

	require.NoError(t, j.CleanupOldJournals())
	assert.NoFileExists(t, filepath.Join(dir, "ops_2024-03-10.journal"))
	assert.FileExists(t, filepath.Join(dir, "ops_2024-03-13.journal"))
}
