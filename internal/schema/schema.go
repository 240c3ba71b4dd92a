// Package schema implements the Schema Registry (C1): a static,
// process-wide map from schema key to field descriptors plus output
// shape, grounded on original_source/config/document_schemas.py's two
// authoring patterns (flat single-record, nested wrapper-with-`item`)
// reimplemented as a tagged value tree per spec.md §9's "dynamic
// schemas in a static language" guidance rather than via struct
// reflection or an interface hierarchy.
package schema

import "fmt"

// Kind is a field's type tag.
type Kind string

const (
	KindString   Kind = "string"
	KindInteger  Kind = "integer"
	KindNumber   Kind = "number"
	KindBoolean  Kind = "boolean"
	KindDate     Kind = "date"
	KindDatetime Kind = "datetime"
	KindEnum     Kind = "enum"
	KindList     Kind = "list"     // list-of(field-set)
	KindOptional Kind = "optional" // optional(inner)
)

// Field describes one named, typed attribute of a schema.
type Field struct {
	Name        string
	Kind        Kind
	Description string
	Required    bool

	// EnumValues is populated when Kind == KindEnum.
	EnumValues []string

	// Inner is populated when Kind == KindList (the field-set each list
	// entry must satisfy) or Kind == KindOptional (the wrapped field).
	Inner *Schema

	// InnerKind is populated when Kind == KindOptional and the
	// wrapped type is itself a primitive, not a field-set.
	InnerKind Kind
}

// Shape is a schema's top-level output shape.
type Shape string

const (
	ShapeFlat   Shape = "flat"
	ShapeNested Shape = "nested"
)

// Schema is a named, typed shape describing fields to extract.
type Schema struct {
	Key         string
	Name        string
	Description string
	Fields      []Field
}

// Shape determines whether this schema is flat or nested. A schema is
// nested iff it has exactly one field, named "item", of kind list.
func (s *Schema) Shape() Shape {
	if len(s.Fields) == 1 && s.Fields[0].Name == "item" && s.Fields[0].Kind == KindList {
		return ShapeNested
	}
	return ShapeFlat
}

// ItemFields returns the field-set each list entry must satisfy, for a
// nested schema. Panics if called on a flat schema — callers must
// check Shape() first, matching the registry contract that shape is
// queried before extraction proceeds.
func (s *Schema) ItemFields() []Field {
	if s.Shape() != ShapeNested {
		panic(fmt.Sprintf("schema %q is not nested", s.Key))
	}
	return s.Fields[0].Inner.Fields
}

// Descriptor is the wire-shape projection list_schemas() returns.
type Descriptor struct {
	Key         string                    `json:"key"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Fields      map[string]FieldDescriptor `json:"fields"`
}

// FieldDescriptor is one field's projection inside a Descriptor.
type FieldDescriptor struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Constraints []string `json:"constraints,omitempty"`
}
