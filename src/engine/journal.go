package engine

// The journal records every mutation accepted by the manager, one line per
// operation, in a file that rolls over daily.

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// JournalEntry represents a single entry in the journal.
type JournalEntry struct {
	Timestamp  time.Time
	Command    string
	Database   string
	Collection string
	Details    string
}

func (e JournalEntry) String() string {
	return fmt.Sprintf("%s | %s | %s | %s | %s",
		e.Timestamp.Format(time.RFC3339), e.Command, e.Database, e.Collection, e.Details)
}

// Journal represents the journal for the database engine.
type Journal struct {
	mu            sync.Mutex
	file          *os.File  // File handle for the journal file
	baseFilePath  string    // Base path for journal files (without date)
	currentDate   time.Time // The date of the current journal file
	currentSize   int64
	retentionDays int
	now           func() time.Time
}

var datePattern = regexp.MustCompile(`_\d{4}-\d{2}-\d{2}$`)

// NewJournal creates a new journal instance. Files older than retentionDays
// are removed by CleanupOldJournals; zero keeps everything.
func NewJournal(journalFilePath string, retentionDays int) (*Journal, error) {
	journal := &Journal{
		baseFilePath:  getBaseFilePath(journalFilePath),
		retentionDays: retentionDays,
		now:           time.Now,
	}

	journal.mu.Lock()
	defer journal.mu.Unlock()
	if err := journal.ensureCorrectFileOpen(); err != nil {
		return nil, err
	}

	return journal, nil
}

// getBaseFilePath extracts the base path without date component
func getBaseFilePath(journalFilePath string) string {
	dir := filepath.Dir(journalFilePath)
	base := filepath.Base(journalFilePath)
	ext := filepath.Ext(journalFilePath)

	baseName := strings.TrimSuffix(base, ext)
	baseName = datePattern.ReplaceAllString(baseName, "")

	return filepath.Join(dir, baseName)
}

func (j *Journal) fileNameFor(day time.Time) string {
	return fmt.Sprintf("%s_%s.journal", j.baseFilePath, day.Format("2006-01-02"))
}

// ensureCorrectFileOpen ensures the correct journal file is open based on current date
func (j *Journal) ensureCorrectFileOpen() error {
	today := j.now().Truncate(24 * time.Hour)

	if j.file != nil && j.currentDate.Equal(today) {
		return nil
	}

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return fmt.Errorf("failed to close previous journal file: %w", err)
		}
		j.file = nil
	}

	fileName := j.fileNameFor(today)
	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal file %s: %w", fileName, err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat journal file %s: %w", fileName, err)
	}

	j.file = file
	j.currentDate = today
	j.currentSize = stat.Size()
	return nil
}

// AddEntry adds a new entry to the journal.
func (j *Journal) AddEntry(command, database, collection, details string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.ensureCorrectFileOpen(); err != nil {
		return err
	}

	entry := JournalEntry{
		Timestamp:  j.now(),
		Command:    command,
		Database:   database,
		Collection: collection,
		Details:    details,
	}

	line := entry.String() + "\n"
	if _, err := j.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write to journal file: %w", err)
	}
	j.currentSize += int64(len(line))

	return nil
}

// Size returns the number of bytes in today's journal file.
func (j *Journal) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.currentSize
}

// CleanupOldJournals removes journal files dated before the retention window.
func (j *Journal) CleanupOldJournals() error {
	if j.retentionDays <= 0 {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := j.now().Truncate(24*time.Hour).AddDate(0, 0, -j.retentionDays)
	matches, err := filepath.Glob(j.baseFilePath + "_*.journal")
	if err != nil {
		return fmt.Errorf("failed to list journal files: %w", err)
	}

	prefix := filepath.Base(j.baseFilePath) + "_"
	for _, path := range matches {
		dateStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), prefix), ".journal")
		day, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove old journal %s: %w", path, err)
			}
		}
	}
	return nil
}

// Close closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return fmt.Errorf("failed to close journal file: %w", err)
		}
		j.file = nil
	}
	return nil
}
