package engine

import (
	"fmt"
	"strings"
	"unicode"
)

type FieldType string

const (
	Integer FieldType = "integer"
	String  FieldType = "string"
	Boolean FieldType = "boolean"
)

// ParseFieldType accepts the type names used in commands, case-insensitively.
func ParseFieldType(s string) (FieldType, error) {
	switch FieldType(strings.ToLower(strings.TrimSpace(s))) {
	case Integer:
		return Integer, nil
	case String:
		return String, nil
	case Boolean:
		return Boolean, nil
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

type FieldDefinition struct {
	Name string    `bson:"name"`
	Type FieldType `bson:"type"`
}

// Schema is an ordered list of typed fields. Records are positionally aligned
// to Fields; the value at the IdentityField position is the record's key.
type Schema struct {
	Fields        []FieldDefinition `bson:"fields"`
	IdentityField string            `bson:"identity_field"`
}

// NewSchema builds a schema from name/type pairs.
func NewSchema(identityField string, fields ...FieldDefinition) Schema {
	return Schema{Fields: fields, IdentityField: identityField}
}

// FieldNames returns the field names in record order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// IdentityPosition returns the index of the identity field, or -1.
func (s Schema) IdentityPosition() int {
	for i, f := range s.Fields {
		if f.Name == s.IdentityField {
			return i
		}
	}
	return -1
}

// ValidateSchema checks the schema once, before a table accepts any records.
func ValidateSchema(s Schema) error {
	if len(s.Fields) <= 1 {
		return &SchemaError{Reason: ReasonTooFewFields}
	}
	if s.IdentityPosition() < 0 {
		return &SchemaError{Reason: ReasonIdentityMissing, Field: s.IdentityField}
	}

	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if _, dup := seen[f.Name]; dup {
			return &SchemaError{Reason: ReasonDuplicateField, Field: f.Name}
		}
		seen[f.Name] = struct{}{}
	}

	for _, f := range s.Fields {
		if !isAlphabetic(f.Name) {
			return &SchemaError{Reason: ReasonInvalidFieldName, Field: f.Name}
		}
		switch f.Type {
		case Integer, String, Boolean:
		default:
			return &SchemaError{Reason: ReasonInvalidFieldType, Field: f.Name}
		}
	}

	return nil
}

func isAlphabetic(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
