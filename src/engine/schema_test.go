package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userSchema() Schema {
	return NewSchema("id",
		FieldDefinition{Name: "id", Type: String},
		FieldDefinition{Name: "age", Type: Integer},
		FieldDefinition{Name: "active", Type: Boolean},
	)
}

func TestValidateSchemaAccepts(t *testing.T) {
	require.NoError(t, ValidateSchema(userSchema()))

	// identity need not be the first field
	s := NewSchema("key",
		FieldDefinition{Name: "value", Type: String},
		FieldDefinition{Name: "key", Type: Integer},
	)
	require.NoError(t, ValidateSchema(s))
	assert.Equal(t, 1, s.IdentityPosition())

	// letters outside ASCII are still letters
	require.NoError(t, ValidateSchema(NewSchema("näme",
		FieldDefinition{Name: "näme", Type: String},
		FieldDefinition{Name: "größe", Type: Integer},
	)))
}

func TestValidateSchemaRejects(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
		reason string
		field  string
	}{
		{
			name:   "no fields",
			schema: NewSchema("id"),
			reason: ReasonTooFewFields,
		},
		{
			name:   "single field",
			schema: NewSchema("id", FieldDefinition{Name: "id", Type: String}),
			reason: ReasonTooFewFields,
		},
		{
			name: "identity missing",
			schema: NewSchema("id",
				FieldDefinition{Name: "name", Type: String},
				FieldDefinition{Name: "age", Type: Integer}),
			reason: ReasonIdentityMissing,
			field:  "id",
		},
		{
			name: "duplicate field",
			schema: NewSchema("id",
				FieldDefinition{Name: "id", Type: String},
				FieldDefinition{Name: "age", Type: Integer},
				FieldDefinition{Name: "age", Type: String}),
			reason: ReasonDuplicateField,
			field:  "age",
		},
		{
			name: "digit in name",
			schema: NewSchema("id",
				FieldDefinition{Name: "id", Type: String},
				FieldDefinition{Name: "age2", Type: Integer}),
			reason: ReasonInvalidFieldName,
			field:  "age2",
		},
		{
			name: "underscore in name",
			schema: NewSchema("id",
				FieldDefinition{Name: "id", Type: String},
				FieldDefinition{Name: "first_name", Type: String}),
			reason: ReasonInvalidFieldName,
			field:  "first_name",
		},
		{
			name: "empty name",
			schema: NewSchema("id",
				FieldDefinition{Name: "id", Type: String},
				FieldDefinition{Name: "", Type: String}),
			reason: ReasonInvalidFieldName,
		},
		{
			name: "unknown type",
			schema: NewSchema("id",
				FieldDefinition{Name: "id", Type: String},
				FieldDefinition{Name: "score", Type: FieldType("float")}),
			reason: ReasonInvalidFieldType,
			field:  "score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchema(tt.schema)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchema))

			var se *SchemaError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.reason, se.Reason)
			assert.Equal(t, tt.field, se.Field)
		})
	}
}

func TestParseFieldType(t *testing.T) {
	for in, want := range map[string]FieldType{
		"integer":  Integer,
		"STRING":   String,
		" Boolean": Boolean,
	} {
		got, err := ParseFieldType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFieldType("float")
	assert.Error(t, err)
}
