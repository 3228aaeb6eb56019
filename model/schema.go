// Package model defines the shared data model for the request-intent
// pipeline: resource type schemas, property trees, intents, validation
// outcomes, and the standard error envelope.
package model

// PropertyKind enumerates the value kinds a property definition can take.
type PropertyKind string

const (
	KindString  PropertyKind = "string"
	KindInteger PropertyKind = "integer"
	KindNumber  PropertyKind = "number"
	KindBoolean PropertyKind = "boolean"
	KindObject  PropertyKind = "object"
	KindArray   PropertyKind = "array"
)

// PropertyDef describes a single property in a resource type schema. It is
// an owned recursive tree: array definitions own their Items, object
// definitions own their Nested map. Schemas are trees, never graphs, so no
// definition is shared between schema instances.
type PropertyDef struct {
	Kind PropertyKind `json:"kind"`

	// EnumValues, when non-empty, restricts the property to these literals.
	EnumValues []any `json:"enum_values,omitempty"`

	// Pattern, when non-empty, is a regular expression a string value must
	// match. Only meaningful for KindString.
	Pattern string `json:"pattern,omitempty"`

	// Items is the element definition for KindArray. Always non-nil for
	// arrays, nil otherwise.
	Items *PropertyDef `json:"items,omitempty"`

	// Nested holds the child definitions for KindObject, possibly empty
	// but always non-nil for objects. NestedOrder preserves declaration
	// order of the keys; NestedRequired lists required child names.
	Nested         map[string]PropertyDef `json:"nested_properties,omitempty"`
	NestedOrder    []string               `json:"nested_order,omitempty"`
	NestedRequired []string               `json:"nested_required,omitempty"`
}

// ResourceSchema is the parsed schema for one resource type. Immutable once
// loaded; a re-download replaces the entry wholesale in the store.
type ResourceSchema struct {
	// TypeName is the namespaced type identifier, e.g. "AWS::S3::Bucket".
	TypeName    string `json:"type_name"`
	Description string `json:"description,omitempty"`

	// Properties maps property name to definition. PropertyOrder preserves
	// the document's declaration order of the top-level properties.
	Properties    map[string]PropertyDef `json:"properties"`
	PropertyOrder []string               `json:"property_order"`

	// RequiredProperties is always a subset of the Properties keys, in
	// document order.
	RequiredProperties []string `json:"required_properties"`

	// PrimaryIdentifier is the ordered sequence of property names forming
	// the resource's natural key.
	PrimaryIdentifier []string `json:"primary_identifier,omitempty"`
}

// HasProperty reports whether the schema declares the named top-level
// property.
func (s ResourceSchema) HasProperty(name string) bool {
	_, ok := s.Properties[name]
	return ok
}

// IsRequired reports whether the named property is required.
func (s ResourceSchema) IsRequired(name string) bool {
	for _, r := range s.RequiredProperties {
		if r == name {
			return true
		}
	}
	return false
}
