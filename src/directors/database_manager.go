package directors

import (
	"fmt"
	"sort"
	"sync"

	"recstore/src/engine"
	"recstore/src/helpers"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DatabaseManager owns every database by name and routes database-scoped
// operations to it. Unknown names are rejected before delegating.
type DatabaseManager struct {
	mu        sync.RWMutex
	store     engine.DatabaseStore
	databases map[string]*engine.Database
	journal   *engine.Journal
	logger    *zap.SugaredLogger
}

// NewDatabaseManager creates a manager over store. journal may be nil.
func NewDatabaseManager(store engine.DatabaseStore, journal *engine.Journal, logger *zap.SugaredLogger) *DatabaseManager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &DatabaseManager{
		store:     store,
		databases: make(map[string]*engine.Database),
		journal:   journal,
		logger:    logger,
	}
}

// Load reopens the databases already present in the store.
func (m *DatabaseManager) Load() error {
	databases, err := m.store.LoadAllDatabaseDataFiles()
	if err != nil {
		return fmt.Errorf("failed to load databases: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, db := range databases {
		m.databases[name] = db
	}
	m.logger.Infof("Database manager loaded %d databases", len(databases))
	return nil
}

func (m *DatabaseManager) record(command, database, collection, details string) {
	if m.journal == nil {
		return
	}
	if err := m.journal.AddEntry(command, database, collection, details); err != nil {
		m.logger.Warnw("Failed to journal operation", "command", command, "error", err)
	}
}

func (m *DatabaseManager) database(name string) (*engine.Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	db, exists := m.databases[name]
	if !exists {
		return nil, &engine.NotFoundError{Kind: "database", Name: name}
	}
	return db, nil
}

func (m *DatabaseManager) CreateDatabase(name string) error {
	if !helpers.IsValidName(name) {
		return fmt.Errorf("%w: database '%s'. Database names must start with a letter, can be alphanumeric, with underscores and hyphens", engine.ErrInvalidName, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.databases[name]; exists {
		return &engine.ConflictError{Reason: "database exists", Name: name}
	}

	db := m.store.NewDatabase(name, "")
	if err := m.store.CreateDatabaseDataFile(db); err != nil {
		return fmt.Errorf("error creating database: %w", err)
	}
	m.databases[name] = db

	m.logger.Infof("Created database %s (ID: %s)", db.Name, db.DatabaseID)
	m.record("CREATE DATABASE", name, "", db.DatabaseID)
	return nil
}

func (m *DatabaseManager) CreateCollection(databaseName, collectionName string, schema engine.Schema, opts engine.TableOptions) error {
	db, err := m.database(databaseName)
	if err != nil {
		return err
	}

	table, err := db.CreateCollection(collectionName, schema, opts)
	if err != nil {
		return err
	}

	m.record("CREATE COLLECTION", databaseName, collectionName, table.TableID)
	return nil
}

// WriteRecord stores record and returns its identity value.
func (m *DatabaseManager) WriteRecord(databaseName, collectionName string, record engine.Record) (string, error) {
	db, err := m.database(databaseName)
	if err != nil {
		return "", err
	}

	identity, err := db.AddData(collectionName, record)
	if err != nil {
		return "", err
	}

	m.record("WRITE", databaseName, collectionName, engine.EncodeRecord(record))
	return identity, nil
}

// ReadRecord returns the record stored under identity, or an empty record.
func (m *DatabaseManager) ReadRecord(databaseName, collectionName, identity string) (engine.Record, error) {
	db, err := m.database(databaseName)
	if err != nil {
		return nil, err
	}
	return db.GetData(collectionName, identity)
}

func (m *DatabaseManager) UpdateRecord(databaseName, collectionName, identity string, record engine.Record) (engine.Record, error) {
	db, err := m.database(databaseName)
	if err != nil {
		return nil, err
	}

	updated, err := db.UpdateData(collectionName, identity, record)
	if err != nil {
		return nil, err
	}

	m.record("UPDATE", databaseName, collectionName, engine.EncodeRecord(updated))
	return updated, nil
}

// ListDatabases returns the database names in sorted order.
func (m *DatabaseManager) ListDatabases() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.databases))
	for name := range m.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *DatabaseManager) ListCollections(databaseName string) ([]string, error) {
	db, err := m.database(databaseName)
	if err != nil {
		return nil, err
	}
	return db.Collections(), nil
}

func (m *DatabaseManager) ListAllRecords(databaseName, collectionName string) ([]engine.Record, error) {
	db, err := m.database(databaseName)
	if err != nil {
		return nil, err
	}
	return db.AllData(collectionName)
}

// Close closes every database and the journal.
func (m *DatabaseManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for _, db := range m.databases {
		err = multierr.Append(err, db.Close())
	}
	if m.journal != nil {
		err = multierr.Append(err, m.journal.Close())
	}
	return err
}
