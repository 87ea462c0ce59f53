package engine

import (
	"errors"
	"fmt"
)

var (
	ErrSchema      = errors.New("schema error")
	ErrData        = errors.New("data error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrInvalidName = errors.New("invalid name")
	ErrTableClosed = errors.New("table is closed")
)

// Schema failure reasons.
const (
	ReasonTooFewFields     = "too few fields"
	ReasonIdentityMissing  = "identity field missing"
	ReasonDuplicateField   = "duplicate field name"
	ReasonInvalidFieldName = "invalid field name"
	ReasonInvalidFieldType = "invalid field type"
)

// Record failure reasons.
const (
	ReasonShapeMismatch     = "shape mismatch"
	ReasonEmptyIdentity     = "empty identity"
	ReasonDuplicateIdentity = "duplicate identity"
	ReasonTypeMismatch      = "type mismatch"
	ReasonForbiddenContent  = "forbidden content"
	ReasonEmptyField        = "empty field"
	ReasonDelimiterConflict = "delimiter conflict"
	ReasonIdentityMismatch  = "identity mismatch"
)

// SchemaError is returned when a table schema is malformed. It is only ever
// produced at table construction.
type SchemaError struct {
	Reason string
	Field  string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid schema: %s", e.Reason)
	}
	return fmt.Sprintf("invalid schema: %s %q", e.Reason, e.Field)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// DataError is returned when a record is rejected. Position is the index of
// the offending value, or -1 when the record as a whole is at fault.
type DataError struct {
	Reason   string
	Field    string
	Position int
}

func recordErr(reason string) error {
	return &DataError{Reason: reason, Position: -1}
}

func fieldErr(reason string, field string, pos int) error {
	return &DataError{Reason: reason, Field: field, Position: pos}
}

func (e *DataError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("invalid record: %s", e.Reason)
	}
	return fmt.Sprintf("invalid record: %s in field %q (position %d)", e.Reason, e.Field, e.Position)
}

func (e *DataError) Unwrap() error {
	return ErrData
}

// NotFoundError reports an unknown database, collection or record.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError reports an attempt to create something that already exists.
type ConflictError struct {
	Reason string
	Name   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: '%s'", e.Reason, e.Name)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ReasonOf returns the failure reason carried by a SchemaError or DataError
// anywhere in err's chain, or "" if there is none.
func ReasonOf(err error) string {
	var se *SchemaError
	if errors.As(err, &se) {
		return se.Reason
	}
	var de *DataError
	if errors.As(err, &de) {
		return de.Reason
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}
