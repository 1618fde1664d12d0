package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	type input struct {
		raw map[string]any
	}

	type expected struct {
		isNil  bool
		hasErr bool
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "nil schema returns nil",
			input:    input{raw: nil},
			expected: expected{isNil: true},
		},
		{
			name: "valid schema compiles",
			input: input{
				raw: Object(map[string]*Property{"name": String("name")}, "name"),
			},
		},
		{
			name: "invalid type fails",
			input: input{
				raw: map[string]any{"type": 42},
			},
			expected: expected{isNil: true, hasErr: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compile(tt.input.raw)

			if tt.expected.hasErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.expected.isNil {
				assert.Nil(t, s)
			} else {
				require.NotNil(t, s)
				assert.NotNil(t, s.Raw())
			}
		})
	}
}

func TestSchema_ValidateJSON(t *testing.T) {
	queries := MustCompile(Object(map[string]*Property{
		"queries": Array("Search queries", String("").Build()).MinItems(1),
		"limit":   Integer("Max results").Min(1).Max(10),
	}, "queries"))

	type input struct {
		doc string
	}

	type expected struct {
		valid bool
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "valid payload",
			input:    input{doc: `{"queries": ["a", "b"]}`},
			expected: expected{valid: true},
		},
		{
			name:     "valid with optional field",
			input:    input{doc: `{"queries": ["a"], "limit": 3}`},
			expected: expected{valid: true},
		},
		{
			name:  "missing required field",
			input: input{doc: `{"limit": 3}`},
		},
		{
			name:  "wrong item type",
			input: input{doc: `{"queries": [1, 2]}`},
		},
		{
			name:  "empty array",
			input: input{doc: `{"queries": []}`},
		},
		{
			name:  "integer out of range",
			input: input{doc: `{"queries": ["a"], "limit": 11}`},
		},
		{
			name:  "syntax error",
			input: input{doc: `{"queries": [`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := queries.ValidateJSON([]byte(tt.input.doc))

			if tt.expected.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestSchema_NilIsPermissive(t *testing.T) {
	var s *Schema

	assert.NoError(t, s.Validate(map[string]any{"anything": true}))
	assert.Nil(t, s.Raw())
	assert.Empty(t, s.String())
}

func TestProperty_Build(t *testing.T) {
	tests := []struct {
		name     string
		property *Property
		expected map[string]any
	}{
		{
			name:     "string with min length",
			property: String("Task").MinLength(1),
			expected: map[string]any{"type": "string", "description": "Task", "minLength": 1},
		},
		{
			name:     "integer bounds",
			property: Integer("Turns").Min(1).Max(50),
			expected: map[string]any{
				"type": "integer", "description": "Turns", "minimum": float64(1), "maximum": float64(50),
			},
		},
		{
			name:     "array bounds",
			property: Array("Queries", map[string]any{"type": "string"}).MinItems(1).MaxItems(3),
			expected: map[string]any{
				"type":        "array",
				"description": "Queries",
				"items":       map[string]any{"type": "string"},
				"minItems":    1,
				"maxItems":    3,
			},
		},
		{
			name:     "enum",
			property: String("").Enum("json", "console"),
			expected: map[string]any{"type": "string", "enum": []any{"json", "console"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.property.Build())
		})
	}
}
