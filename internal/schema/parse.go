// Package schema holds the resource type schema store: parsing of registry
// schema documents into owned property trees, an atomically-swapped
// in-memory index with flat-file persistence, phrase aliases, template
// generation, and the schema source contract.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/averto-io/stratus/model"
)

// rawDocument is the subset of a registry schema document this core reads.
type rawDocument struct {
	TypeName          string          `json:"typeName"`
	Description       string          `json:"description"`
	Properties        json.RawMessage `json:"properties"`
	Required          []string        `json:"required"`
	PrimaryIdentifier []string        `json:"primaryIdentifier"`
}

// rawPropertyDef is one property definition as it appears in a document.
type rawPropertyDef struct {
	Type       json.RawMessage `json:"type"`
	Enum       []any           `json:"enum"`
	Pattern    string          `json:"pattern"`
	Items      json.RawMessage `json:"items"`
	Properties json.RawMessage `json:"properties"`
	Required   []string        `json:"required"`
}

// ParseDocument parses a raw schema document for the given type name into a
// ResourceSchema. The document's property declaration order is preserved.
// Malformed documents fail with a *model.SchemaParseError identifying the
// offending path; the failure is scoped to this one type.
func ParseDocument(typeName string, raw []byte) (model.ResourceSchema, error) {
	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.ResourceSchema{}, &model.SchemaParseError{
			TypeName: typeName,
			Message:  fmt.Sprintf("invalid JSON: %v", err),
		}
	}

	props, order, err := parseProperties(typeName, "properties", doc.Properties)
	if err != nil {
		return model.ResourceSchema{}, err
	}

	for _, req := range doc.Required {
		if _, ok := props[req]; !ok {
			return model.ResourceSchema{}, &model.SchemaParseError{
				TypeName: typeName,
				Path:     "required",
				Message:  fmt.Sprintf("required property %q is not declared", req),
			}
		}
	}

	s := model.ResourceSchema{
		TypeName:           typeName,
		Description:        doc.Description,
		Properties:         props,
		PropertyOrder:      order,
		RequiredProperties: append([]string(nil), doc.Required...),
	}
	for _, id := range doc.PrimaryIdentifier {
		s.PrimaryIdentifier = append(s.PrimaryIdentifier, strings.TrimPrefix(id, "/properties/"))
	}
	return s, nil
}

// parseProperties parses a "properties" object into definitions plus the
// declaration order of its keys. A nil raw message yields an empty map.
func parseProperties(typeName, path string, raw json.RawMessage) (map[string]model.PropertyDef, []string, error) {
	if len(raw) == 0 {
		return map[string]model.PropertyDef{}, nil, nil
	}

	order, err := objectKeys(raw)
	if err != nil {
		return nil, nil, &model.SchemaParseError{
			TypeName: typeName,
			Path:     path,
			Message:  err.Error(),
		}
	}

	var rawProps map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rawProps); err != nil {
		return nil, nil, &model.SchemaParseError{
			TypeName: typeName,
			Path:     path,
			Message:  fmt.Sprintf("not an object: %v", err),
		}
	}

	props := make(map[string]model.PropertyDef, len(order))
	for _, name := range order {
		def, err := parsePropertyDef(typeName, path+"."+name, rawProps[name])
		if err != nil {
			return nil, nil, err
		}
		props[name] = def
	}
	return props, order, nil
}

// parsePropertyDef parses a single property definition, recursing into
// array items and object children.
func parsePropertyDef(typeName, path string, raw json.RawMessage) (model.PropertyDef, error) {
	var rp rawPropertyDef
	if err := json.Unmarshal(raw, &rp); err != nil {
		return model.PropertyDef{}, &model.SchemaParseError{
			TypeName: typeName,
			Path:     path,
			Message:  fmt.Sprintf("invalid property definition: %v", err),
		}
	}

	kind, err := parseKind(typeName, path, rp.Type)
	if err != nil {
		return model.PropertyDef{}, err
	}

	def := model.PropertyDef{
		Kind:       kind,
		EnumValues: rp.Enum,
		Pattern:    rp.Pattern,
	}

	if rp.Pattern != "" {
		if _, err := regexp.Compile(rp.Pattern); err != nil {
			return model.PropertyDef{}, &model.SchemaParseError{
				TypeName: typeName,
				Path:     path,
				Message:  fmt.Sprintf("invalid pattern %q: %v", rp.Pattern, err),
			}
		}
	}

	switch kind {
	case model.KindArray:
		if len(rp.Items) == 0 {
			return model.PropertyDef{}, &model.SchemaParseError{
				TypeName: typeName,
				Path:     path,
				Message:  "array definition missing items",
			}
		}
		items, err := parsePropertyDef(typeName, path+".items", rp.Items)
		if err != nil {
			return model.PropertyDef{}, err
		}
		def.Items = &items

	case model.KindObject:
		nested, order, err := parseProperties(typeName, path+".properties", rp.Properties)
		if err != nil {
			return model.PropertyDef{}, err
		}
		for _, req := range rp.Required {
			if _, ok := nested[req]; !ok {
				return model.PropertyDef{}, &model.SchemaParseError{
					TypeName: typeName,
					Path:     path + ".required",
					Message:  fmt.Sprintf("required property %q is not declared", req),
				}
			}
		}
		def.Nested = nested
		def.NestedOrder = order
		def.NestedRequired = append([]string(nil), rp.Required...)
	}

	return def, nil
}

// parseKind maps a document "type" field to a PropertyKind. A definition
// with no type (typically a $ref) is treated as an object with no declared
// children; $ref resolution is out of scope.
func parseKind(typeName, path string, raw json.RawMessage) (model.PropertyKind, error) {
	if len(raw) == 0 {
		return model.KindObject, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &model.SchemaParseError{
			TypeName: typeName,
			Path:     path,
			Message:  "type must be a string",
		}
	}

	switch model.PropertyKind(s) {
	case model.KindString, model.KindInteger, model.KindNumber,
		model.KindBoolean, model.KindObject, model.KindArray:
		return model.PropertyKind(s), nil
	default:
		return "", &model.SchemaParseError{
			TypeName: typeName,
			Path:     path,
			Message:  fmt.Sprintf("unsupported type %q", s),
		}
	}
}

// objectKeys returns the keys of a JSON object in declaration order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid object: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid object key: %v", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", tok)
		}
		keys = append(keys, key)

		if err := skipValue(dec); err != nil {
			return nil, fmt.Errorf("invalid value for key %q: %v", key, err)
		}
	}
	return keys, nil
}

// skipValue consumes one complete JSON value from the decoder.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
