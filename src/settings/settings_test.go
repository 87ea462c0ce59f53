package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileOverlaysValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recstore.toml")
	config := `
datadir = "/var/lib/recstore"
port = 4000
noscripttags = false
`
	require.NoError(t, os.WriteFile(path, []byte(config), 0644))

	args := Defaults()
	require.NoError(t, LoadConfigFile(path, args))

	assert.Equal(t, "/var/lib/recstore", args.DataDir)
	assert.Equal(t, 4000, args.Port)
	assert.False(t, args.NoScriptTags)
	// untouched keys keep their defaults
	assert.Equal(t, "127.0.0.1", args.Host)
	assert.True(t, args.PrintToScreen)
}

func TestLoadConfigFileErrors(t *testing.T) {
	args := Defaults()
	require.Error(t, LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml"), args))

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = = 3"), 0644))
	require.Error(t, LoadConfigFile(path, args))
}

func TestLoadConfigFileRejectsWrongTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typed.toml")
	require.NoError(t, os.WriteFile(path, []byte(`port = "eighty"`), 0644))

	err := LoadConfigFile(path, Defaults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}
