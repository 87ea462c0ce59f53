package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recstore/src/helpers"

	"go.uber.org/zap"
)

const databaseFileExt = ".db"

// DatabaseStore defines the interface for database storage operations
type DatabaseStore interface {
	NewDatabase(name, description string) *Database
	CreateDatabaseDataFile(database *Database) error
	LoadAllDatabaseDataFiles() (map[string]*Database, error)
}

// DatabaseMetadata is the BSON document describing one database on disk.
type DatabaseMetadata struct {
	DatabaseID  string    `bson:"database_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	CreatedAt   time.Time `bson:"created_at"`
}

// DatabaseStorageEngine lays databases out as one directory each under
// DataDirectory:
//
//	<data>/<db>/<db>.db      database metadata (BSON)
//	<data>/<db>/<coll>.bnd   collection metadata (BSON)
//	<data>/<db>/<coll>.csv   collection records
type DatabaseStorageEngine struct {
	DataDirectory string
	SyncWrites    bool
	logger        *zap.SugaredLogger
}

func NewDatabaseStore(dataDir string, syncWrites bool, logger *zap.SugaredLogger) (*DatabaseStorageEngine, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	store := &DatabaseStorageEngine{
		DataDirectory: dataDir,
		SyncWrites:    syncWrites,
		logger:        logger,
	}

	// Ensure the data directory exists
	if err := os.MkdirAll(store.DataDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", store.DataDirectory, err)
	}

	return store, nil
}

// NewDatabase creates an empty in-memory database rooted in the store's data
// directory. Nothing is written until CreateDatabaseDataFile.
func (d *DatabaseStorageEngine) NewDatabase(name, description string) *Database {
	return &Database{
		DatabaseID:    helpers.GenerateUUID(),
		Name:          name,
		Description:   description,
		CreatedAt:     time.Now(),
		DataDirectory: filepath.Join(d.DataDirectory, name),
		SyncWrites:    d.SyncWrites,
		tables:        make(map[string]*Table),
		logger:        d.logger,
	}
}

func (d *DatabaseStorageEngine) CreateDatabaseDataFile(database *Database) error {
	if err := os.MkdirAll(database.DataDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", database.DataDirectory, err)
	}

	data, err := helpers.EncodeBSON(DatabaseMetadata{
		DatabaseID:  database.DatabaseID,
		Name:        database.Name,
		Description: database.Description,
		CreatedAt:   database.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("error encoding database data: %w", err)
	}

	filePath := filepath.Join(database.DataDirectory, database.Name+databaseFileExt)
	if err := helpers.WriteFileAtomic(filePath, data, 0644); err != nil {
		return fmt.Errorf("error writing database file %s: %w", filePath, err)
	}

	d.logger.Infow("Created database data file",
		"database", database.Name,
		"databaseID", database.DatabaseID,
		"file", filePath)
	return nil
}

// LoadAllDatabaseDataFiles scans the data directory and reopens every database
// found there together with its collections, keyed by database name.
// Directories without a readable database file are logged and skipped.
func (d *DatabaseStorageEngine) LoadAllDatabaseDataFiles() (map[string]*Database, error) {
	databases := make(map[string]*Database)

	entries, err := os.ReadDir(d.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("error reading data directory %s: %w", d.DataDirectory, err)
	}

	for _, entry := range entries {
		// Skip files and hidden directories
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		db, err := d.loadDatabaseDataFile(entry.Name())
		if err != nil {
			d.logger.Warnw("Failed to load database", "directory", entry.Name(), "error", err)
			continue
		}
		if err := db.LoadCollections(); err != nil {
			d.logger.Warnw("Failed to load collections", "database", db.Name, "error", err)
			continue
		}

		databases[db.Name] = db
		d.logger.Infof("Loaded database: %s (ID: %s)", db.Name, db.DatabaseID)
	}

	return databases, nil
}

func (d *DatabaseStorageEngine) loadDatabaseDataFile(dirName string) (*Database, error) {
	filePath := filepath.Join(d.DataDirectory, dirName, dirName+databaseFileExt)

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading database file %s: %w", filePath, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("database file %s is empty", filePath)
	}

	var meta DatabaseMetadata
	if err := helpers.DecodeBSON(data, &meta); err != nil {
		return nil, fmt.Errorf("error decoding database data: %w", err)
	}
	if meta.Name != dirName {
		return nil, fmt.Errorf("database file %s names database '%s'", filePath, meta.Name)
	}

	db := d.NewDatabase(meta.Name, meta.Description)
	db.DatabaseID = meta.DatabaseID
	db.CreatedAt = meta.CreatedAt
	return db, nil
}
