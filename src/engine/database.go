package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"recstore/src/helpers"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	tableMetadataExt = ".bnd"
	recordFileExt    = ".csv"
)

// Database owns its collections exclusively and routes collection-scoped
// operations to them.
type Database struct {
	// DatabaseID is the unique identifier for the database.
	DatabaseID string

	// Name is the name of the database.
	Name string

	// Description is the description of the database.
	Description string

	CreatedAt time.Time

	// DataDirectory holds the metadata and record files of every collection.
	DataDirectory string

	// SyncWrites fsyncs record files after each append.
	SyncWrites bool

	mu     sync.RWMutex
	tables map[string]*Table
	logger *zap.SugaredLogger
}

func (db *Database) tablePaths(collection string) (metaPath, recordPath string) {
	return filepath.Join(db.DataDirectory, collection+tableMetadataExt),
		filepath.Join(db.DataDirectory, collection+recordFileExt)
}

// CreateCollection adds a new table with the given schema. Collection names
// are unique within a database; a second create with the same name fails
// instead of replacing the existing table.
func (db *Database) CreateCollection(name string, schema Schema, opts TableOptions) (*Table, error) {
	if !helpers.IsValidName(name) {
		return nil, fmt.Errorf("%w: collection '%s'", ErrInvalidName, name)
	}
	if err := ValidateSchema(schema); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	metaPath, recordPath := db.tablePaths(name)
	if _, exists := db.tables[name]; exists || helpers.FileExists(metaPath, db.logger) {
		return nil, &ConflictError{Reason: "collection exists", Name: name}
	}

	if err := os.MkdirAll(db.DataDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", db.DataDirectory, err)
	}
	// a record file without metadata is left over from a failed create
	if err := os.Remove(recordPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error removing stale record file %s: %w", recordPath, err)
	}

	store, err := NewRecordStore(recordPath, db.SyncWrites, db.logger)
	if err != nil {
		return nil, err
	}
	table, err := NewTable(name, schema, store, opts, db.logger)
	if err != nil {
		return nil, err
	}
	if err := SaveTableMetadata(metaPath, table.Metadata()); err != nil {
		return nil, err
	}

	db.tables[name] = table
	db.logger.Infow("Created collection",
		"database", db.Name,
		"collection", name,
		"tableID", table.TableID,
		"fields", len(schema.Fields))
	return table, nil
}

// LoadCollections reopens every collection whose metadata file is present in
// the database directory. Collections that fail to load are logged and skipped.
func (db *Database) LoadCollections() error {
	metaFiles, err := filepath.Glob(filepath.Join(db.DataDirectory, "*"+tableMetadataExt))
	if err != nil {
		return fmt.Errorf("error listing collections of %s: %w", db.Name, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, metaPath := range metaFiles {
		meta, err := LoadTableMetadata(metaPath)
		if err != nil {
			db.logger.Warnw("Failed to load collection metadata", "file", metaPath, "error", err)
			continue
		}

		_, recordPath := db.tablePaths(meta.Name)
		store, err := NewRecordStore(recordPath, db.SyncWrites, db.logger)
		if err != nil {
			db.logger.Warnw("Failed to open collection records", "collection", meta.Name, "error", err)
			continue
		}
		table, err := NewTable(meta.Name, meta.Schema, store, TableOptions{
			NoScriptTags: meta.NoScriptTags,
			TableID:      meta.TableID,
			CreatedAt:    meta.CreatedAt,
		}, db.logger)
		if err != nil {
			db.logger.Warnw("Failed to open collection", "collection", meta.Name, "error", err)
			continue
		}

		db.tables[meta.Name] = table
		db.logger.Infow("Loaded collection",
			"database", db.Name,
			"collection", meta.Name,
			"records", table.Len())
	}

	return nil
}

// Table returns the named collection.
func (db *Database) Table(collection string) (*Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	table, exists := db.tables[collection]
	if !exists {
		return nil, &NotFoundError{Kind: "collection", Name: collection}
	}
	return table, nil
}

func (db *Database) GetData(collection, identity string) (Record, error) {
	table, err := db.Table(collection)
	if err != nil {
		return nil, err
	}
	return table.Read(identity)
}

func (db *Database) AddData(collection string, record Record) (string, error) {
	table, err := db.Table(collection)
	if err != nil {
		return "", err
	}
	return table.Write(record)
}

func (db *Database) UpdateData(collection, identity string, record Record) (Record, error) {
	table, err := db.Table(collection)
	if err != nil {
		return nil, err
	}
	return table.Update(identity, record)
}

func (db *Database) AllData(collection string) ([]Record, error) {
	table, err := db.Table(collection)
	if err != nil {
		return nil, err
	}
	return table.All()
}

// Collections returns the collection names in sorted order.
func (db *Database) Collections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var err error
	for name, table := range db.tables {
		if cerr := table.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("closing collection %s: %w", name, cerr))
		}
	}
	return err
}
