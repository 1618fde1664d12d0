// Package schema builds and validates the JSON payloads exchanged with models and API clients.
//
// # Quick Start
//
//	queries := schema.MustCompile(schema.Object(map[string]*schema.Property{
//	    "queries": schema.Array("Search queries", schema.String("").Build()).MinItems(1),
//	}, "queries"))
//
//	if err := queries.ValidateJSON([]byte(`{"queries": ["go generics"]}`)); err != nil {
//	    // err is a *schema.ValidationError
//	}
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a JSON Schema definition: the raw map (for prompts and serialization) and the
// compiled validator.
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Raw returns the underlying map[string]any representation.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// String returns the schema as indented JSON, for inclusion in prompts.
func (s *Schema) String() string {
	if s == nil {
		return ""
	}
	b, err := json.MarshalIndent(s.raw, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// Validate validates decoded JSON data (as produced by jsonschema.UnmarshalJSON or
// encoding/json into any) against the schema.
func (s *Schema) Validate(data any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	if err := s.compiled.Validate(data); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidateJSON decodes a JSON document and validates it. Syntax errors are reported as
// *ValidationError as well.
func (s *Schema) ValidateJSON(doc []byte) error {
	data, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return s.Validate(data)
}

// ValidationError wraps a JSON Schema validation error with a cleaner message.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Compile compiles a raw schema map into a Schema with a compiled validator.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}

	schemaJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	schemaData, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Schema{
		raw:      raw,
		compiled: compiled,
	}, nil
}

// MustCompile is like Compile but panics on error.
// Use this for schemas defined at init time.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// -----------------------------------------------------------------------------
// Schema Builders
// -----------------------------------------------------------------------------

// Object creates an object schema with the given properties. Pass property names as variadic
// arguments to mark them as required.
func Object(properties map[string]*Property, required ...string) map[string]any {
	props := make(map[string]any, len(properties))
	for name, prop := range properties {
		props[name] = prop.Build()
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Property represents a property in an object schema.
type Property struct {
	typ         string
	description string
	enum        []any
	minimum     *float64
	maximum     *float64
	minLength   *int
	minItems    *int
	maxItems    *int
	items       map[string]any
}

// Build returns the property as a schema map.
func (p *Property) Build() map[string]any {
	m := map[string]any{}

	if p.typ != "" {
		m["type"] = p.typ
	}
	if p.description != "" {
		m["description"] = p.description
	}
	if len(p.enum) > 0 {
		m["enum"] = p.enum
	}
	if p.minimum != nil {
		m["minimum"] = *p.minimum
	}
	if p.maximum != nil {
		m["maximum"] = *p.maximum
	}
	if p.minLength != nil {
		m["minLength"] = *p.minLength
	}
	if p.minItems != nil {
		m["minItems"] = *p.minItems
	}
	if p.maxItems != nil {
		m["maxItems"] = *p.maxItems
	}
	if p.items != nil {
		m["items"] = p.items
	}
	return m
}

// String creates a string property.
func String(description string) *Property {
	return &Property{typ: "string", description: description}
}

// Integer creates an integer property.
//
//	schema.Integer("Turn limit").Min(1).Max(50)
func Integer(description string) *Property {
	return &Property{typ: "integer", description: description}
}

// Array creates an array property with the given item schema.
//
//	schema.Array("Search queries", schema.String("").Build())
func Array(description string, items map[string]any) *Property {
	return &Property{typ: "array", description: description, items: items}
}

// Enum sets allowed values for the property.
func (p *Property) Enum(values ...any) *Property {
	p.enum = values
	return p
}

// Min sets the minimum value for integer properties.
func (p *Property) Min(min float64) *Property {
	p.minimum = &min
	return p
}

// Max sets the maximum value for integer properties.
func (p *Property) Max(max float64) *Property {
	p.maximum = &max
	return p
}

// MinLength sets the minimum length for string properties.
func (p *Property) MinLength(min int) *Property {
	p.minLength = &min
	return p
}

// MinItems sets the minimum length of an array property.
func (p *Property) MinItems(n int) *Property {
	p.minItems = &n
	return p
}

// MaxItems sets the maximum length of an array property.
func (p *Property) MaxItems(n int) *Property {
	p.maxItems = &n
	return p
}
