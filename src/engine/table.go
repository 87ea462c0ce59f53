package engine

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"recstore/src/helpers"

	"go.uber.org/zap"
)

var scriptTags = []string{"<script>", "</script>"}

type TableOptions struct {
	// NoScriptTags rejects values containing <script> or </script>.
	NoScriptTags bool
	// TableID is generated when empty.
	TableID   string
	CreatedAt time.Time
}

// DefaultTableOptions has sanitization enabled.
func DefaultTableOptions() TableOptions {
	return TableOptions{NoScriptTags: true}
}

// Table enforces a fixed schema and identity uniqueness over an append-only
// record store. Validation and append happen under one lock, and an identity
// only joins the key set once its record is durably appended.
type Table struct {
	TableID      string
	Name         string
	Schema       Schema
	NoScriptTags bool
	CreatedAt    time.Time

	mu          sync.Mutex
	store       RecordStore
	identities  map[string]struct{}
	identityPos int
	closed      bool
	logger      *zap.SugaredLogger
}

// NewTable validates the schema and wraps store. Records already present in
// store are scanned to rebuild the identity key set.
func NewTable(name string, schema Schema, store RecordStore, opts TableOptions, logger *zap.SugaredLogger) (*Table, error) {
	if err := ValidateSchema(schema); err != nil {
		return nil, err
	}

	if opts.TableID == "" {
		opts.TableID = helpers.GenerateUUID()
	}
	if opts.CreatedAt.IsZero() {
		opts.CreatedAt = time.Now()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	t := &Table{
		TableID:      opts.TableID,
		Name:         name,
		Schema:       schema,
		NoScriptTags: opts.NoScriptTags,
		CreatedAt:    opts.CreatedAt,
		store:        store,
		identities:   make(map[string]struct{}),
		identityPos:  schema.IdentityPosition(),
		logger:       logger,
	}

	if err := t.loadIdentities(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) loadIdentities() error {
	width := len(t.Schema.Fields)
	return t.store.Scan(func(line string) bool {
		record := DecodeRecord(line)
		if len(record) != width {
			t.logger.Warnw("Skipping malformed stored record",
				"table", t.Name,
				"fields", len(record),
				"expected", width)
			return true
		}
		key := record[t.identityPos]
		if _, dup := t.identities[key]; dup {
			t.logger.Warnw("Stored records share an identity",
				"table", t.Name,
				"identity", key)
		}
		t.identities[key] = struct{}{}
		return true
	})
}

// Metadata describes the table for persistence.
func (t *Table) Metadata() TableMetadata {
	return TableMetadata{
		TableID:      t.TableID,
		Name:         t.Name,
		Schema:       t.Schema,
		NoScriptTags: t.NoScriptTags,
		CreatedAt:    t.CreatedAt,
	}
}

// Len returns the number of records written to the table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.identities)
}

// ValidateRecord reports whether candidate could be written right now,
// without writing it.
func (t *Table) ValidateRecord(candidate Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validate(candidate, "")
}

// validate runs the record checks in a fixed order: later checks index into
// the schema by position and rely on the shape check having passed. When
// replacing is non-empty the candidate must carry that identity instead of a
// fresh one.
func (t *Table) validate(candidate Record, replacing string) error {
	if len(candidate) != len(t.Schema.Fields) {
		return recordErr(ReasonShapeMismatch)
	}

	key := candidate[t.identityPos]
	if key == "" {
		return fieldErr(ReasonEmptyIdentity, t.Schema.IdentityField, t.identityPos)
	}
	if replacing == "" {
		if _, dup := t.identities[key]; dup {
			return fieldErr(ReasonDuplicateIdentity, t.Schema.IdentityField, t.identityPos)
		}
	} else if key != replacing {
		return fieldErr(ReasonIdentityMismatch, t.Schema.IdentityField, t.identityPos)
	}

	for i, value := range candidate {
		field := t.Schema.Fields[i]
		if t.NoScriptTags && containsScriptTag(value) {
			return fieldErr(ReasonForbiddenContent, field.Name, i)
		}
		if !checkType(field.Type, value) {
			return fieldErr(ReasonTypeMismatch, field.Name, i)
		}
		if value == "" {
			return fieldErr(ReasonEmptyField, field.Name, i)
		}
	}

	for i, value := range candidate {
		if strings.ContainsAny(value, reservedChars) {
			return fieldErr(ReasonDelimiterConflict, t.Schema.Fields[i].Name, i)
		}
	}

	return nil
}

func containsScriptTag(value string) bool {
	for _, tag := range scriptTags {
		if strings.Contains(value, tag) {
			return true
		}
	}
	return false
}

func checkType(ft FieldType, value string) bool {
	switch ft {
	case Integer:
		_, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
		return err == nil
	case Boolean:
		v := strings.TrimSpace(value)
		return strings.EqualFold(v, "true") || strings.EqualFold(v, "false")
	case String:
		return true
	}
	return false
}

// Write validates candidate and appends it. The identity is registered only
// after the append succeeds, so a failed append leaves the table unchanged.
// Callers choose identities; the returned value is the candidate's own key.
func (t *Table) Write(candidate Record) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return "", ErrTableClosed
	}
	if err := t.validate(candidate, ""); err != nil {
		return "", err
	}

	if err := t.store.Append(EncodeRecord(candidate)); err != nil {
		t.logger.Errorw("Failed to append record",
			"table", t.Name,
			"error", err)
		return "", err
	}

	key := candidate[t.identityPos]
	t.identities[key] = struct{}{}
	return key, nil
}

// Read returns the record stored under identity, or a nil record if the
// identity was never written. Lookup is a linear scan of the store.
func (t *Table) Read(identity string) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTableClosed
	}
	if _, ok := t.identities[identity]; !ok {
		return nil, nil
	}

	var found Record
	err := t.store.Scan(func(line string) bool {
		record := DecodeRecord(line)
		if len(record) > t.identityPos && record[t.identityPos] == identity {
			found = record
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Update replaces the record stored under identity with candidate. The
// candidate must keep the same identity and pass every other record check.
// The store is rewritten as a whole, never edited in place.
func (t *Table) Update(identity string, candidate Record) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTableClosed
	}
	if _, ok := t.identities[identity]; !ok {
		return nil, &NotFoundError{Kind: "record", Name: identity}
	}
	if err := t.validate(candidate, identity); err != nil {
		return nil, err
	}

	var lines []string
	replaced := false
	err := t.store.Scan(func(line string) bool {
		record := DecodeRecord(line)
		if !replaced && len(record) > t.identityPos && record[t.identityPos] == identity {
			line = EncodeRecord(candidate)
			replaced = true
		}
		lines = append(lines, line)
		return true
	})
	if err != nil {
		return nil, err
	}
	if !replaced {
		return nil, &NotFoundError{Kind: "record", Name: identity}
	}

	if err := t.store.Rewrite(lines); err != nil {
		return nil, err
	}

	updated := make(Record, len(candidate))
	copy(updated, candidate)
	return updated, nil
}

// All returns every stored record in write order.
func (t *Table) All() ([]Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTableClosed
	}

	records := make([]Record, 0, len(t.identities))
	err := t.store.Scan(func(line string) bool {
		records = append(records, DecodeRecord(line))
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.store.Close()
}
