package engine

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"syscall"

	"recstore/src/helpers"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// RecordStore is the append-only line store backing a single table.
type RecordStore interface {
	// Append adds one encoded record line to the end of the store.
	Append(line string) error
	// Scan calls fn for every stored line in write order until fn returns false.
	Scan(fn func(line string) bool) error
	// Rewrite replaces the whole store with lines as a new generation.
	Rewrite(lines []string) error
	Close() error
}

// RecordStorageEngine keeps a table's records in a flat text file, one
// record per line. The file is opened for every append and closed again, so
// no handle outlives a single operation.
type RecordStorageEngine struct {
	FilePath   string
	SyncWrites bool
	logger     *zap.SugaredLogger
}

func NewRecordStore(filePath string, syncWrites bool, logger *zap.SugaredLogger) (*RecordStorageEngine, error) {
	// make sure the file exists so reads of an empty table work
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error creating record file %s: %w", filePath, err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("error closing record file %s: %w", filePath, err)
	}

	return &RecordStorageEngine{
		FilePath:   filePath,
		SyncWrites: syncWrites,
		logger:     logger,
	}, nil
}

func (s *RecordStorageEngine) Append(line string) error {
	file, err := os.OpenFile(s.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error opening record file for append: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("error getting record file stats: %w", err)
	}
	size := stat.Size()

	data := line + "\n"
	n, err := file.WriteString(data)
	if err == nil && n != len(data) {
		err = fmt.Errorf("wrote %d bytes, expected %d", n, len(data))
	}
	if err == nil && s.SyncWrites {
		err = file.Sync()
	}
	if err != nil {
		// drop the partial line so the file stays line-aligned
		if terr := file.Truncate(size); terr != nil && s.logger != nil {
			s.logger.Errorw("Failed to truncate partial record",
				"file", s.FilePath,
				"error", terr)
		}
		return fmt.Errorf("error appending to record file %s: %w", s.FilePath, err)
	}

	return nil
}

func (s *RecordStorageEngine) Scan(fn func(line string) bool) error {
	file, err := os.Open(s.FilePath)
	if err != nil {
		return fmt.Errorf("error opening record file %s: %w", s.FilePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("error getting record file stats: %w", err)
	}
	fileSize := int(stat.Size())
	if fileSize == 0 {
		return nil
	}

	// Memory map the file
	data, err := unix.Mmap(int(file.Fd()), 0, fileSize, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to memory map record file: %w", err)
	}
	defer unix.Munmap(data)

	for len(data) > 0 {
		var line []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			line, data = data, nil
		}
		if len(line) == 0 {
			continue
		}
		// string() copies, so nothing handed to fn points into the mapping
		if !fn(string(line)) {
			break
		}
	}

	return nil
}

func (s *RecordStorageEngine) Rewrite(lines []string) error {
	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	if err := helpers.WriteFileAtomic(s.FilePath, []byte(buf.String()), 0644); err != nil {
		return fmt.Errorf("error rewriting record file: %w", err)
	}

	if s.logger != nil {
		s.logger.Infow("Rewrote record file",
			"file", s.FilePath,
			"records", len(lines))
	}
	return nil
}

// Close is a no-op; the engine holds no open handles between calls.
func (s *RecordStorageEngine) Close() error {
	return nil
}
