// Package validate checks property trees against resource type schemas.
// Validation is pure: it never mutates the input tree, accumulates every
// violation instead of short-circuiting, and reports each violation with
// the path of the offending property.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/averto-io/stratus/model"
)

// Validate checks a property tree against a schema, depth first. Required
// properties must be present; present values must satisfy their
// definition's kind, enum, and pattern; objects and arrays recurse. Any
// property present in the input but absent from the schema is an error,
// not a silent pass-through.
func Validate(s model.ResourceSchema, tree map[string]any) model.ValidationOutcome {
	var errs []model.PropertyError

	for _, name := range s.RequiredProperties {
		if _, ok := tree[name]; !ok {
			errs = append(errs, model.PropertyError{
				PropertyPath: name,
				Message:      "required property is missing",
			})
		}
	}

	// Declared properties in schema order, then unknown keys sorted, so
	// the error list is deterministic.
	for _, name := range s.PropertyOrder {
		value, ok := tree[name]
		if !ok {
			continue
		}
		errs = append(errs, checkValue(name, s.Properties[name], value)...)
	}
	for _, name := range unknownKeys(tree, s.Properties) {
		errs = append(errs, model.PropertyError{
			PropertyPath: name,
			Message:      "unknown property",
		})
	}

	return model.ValidationOutcome{Valid: len(errs) == 0, Errors: errs}
}

// checkValue validates one value against its definition, recursing into
// object children and array elements.
func checkValue(path string, def model.PropertyDef, value any) []model.PropertyError {
	var errs []model.PropertyError

	switch def.Kind {
	case model.KindString:
		sv, ok := value.(string)
		if !ok {
			return []model.PropertyError{{
				PropertyPath: path,
				Message:      fmt.Sprintf("expected string, got %s", typeName(value)),
			}}
		}
		errs = append(errs, checkEnum(path, def, value)...)
		if def.Pattern != "" {
			re, err := regexp.Compile(def.Pattern)
			if err == nil && !re.MatchString(sv) {
				errs = append(errs, model.PropertyError{
					PropertyPath: path,
					Message:      fmt.Sprintf("value %q does not match pattern %q", sv, def.Pattern),
				})
			}
		}

	case model.KindBoolean:
		if _, ok := value.(bool); !ok {
			return []model.PropertyError{{
				PropertyPath: path,
				Message:      fmt.Sprintf("expected boolean, got %s", typeName(value)),
			}}
		}

	case model.KindInteger:
		n, ok := asNumber(value)
		if !ok {
			return []model.PropertyError{{
				PropertyPath: path,
				Message:      fmt.Sprintf("expected integer, got %s", typeName(value)),
			}}
		}
		if math.Trunc(n) != n {
			return []model.PropertyError{{
				PropertyPath: path,
				Message:      fmt.Sprintf("expected integer, got fractional number %v", value),
			}}
		}
		errs = append(errs, checkEnum(path, def, value)...)

	case model.KindNumber:
		if _, ok := asNumber(value); !ok {
			return []model.PropertyError{{
				PropertyPath: path,
				Message:      fmt.Sprintf("expected number, got %s", typeName(value)),
			}}
		}
		errs = append(errs, checkEnum(path, def, value)...)

	case model.KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return []model.PropertyError{{
				PropertyPath: path,
				Message:      fmt.Sprintf("expected object, got %s", typeName(value)),
			}}
		}
		for _, req := range def.NestedRequired {
			if _, present := obj[req]; !present {
				errs = append(errs, model.PropertyError{
					PropertyPath: path + "." + req,
					Message:      "required property is missing",
				})
			}
		}
		for _, name := range def.NestedOrder {
			child, present := obj[name]
			if !present {
				continue
			}
			errs = append(errs, checkValue(path+"."+name, def.Nested[name], child)...)
		}
		for _, name := range unknownKeys(obj, def.Nested) {
			errs = append(errs, model.PropertyError{
				PropertyPath: path + "." + name,
				Message:      "unknown property",
			})
		}

	case model.KindArray:
		arr, ok := value.([]any)
		if !ok {
			return []model.PropertyError{{
				PropertyPath: path,
				Message:      fmt.Sprintf("expected array, got %s", typeName(value)),
			}}
		}
		if def.Items != nil {
			for i, elem := range arr {
				errs = append(errs, checkValue(fmt.Sprintf("%s[%d]", path, i), *def.Items, elem)...)
			}
		}
	}

	return errs
}

// checkEnum records an error when an enum is declared and the value is not
// a member. The allowed set is listed in the message.
func checkEnum(path string, def model.PropertyDef, value any) []model.PropertyError {
	if len(def.EnumValues) == 0 {
		return nil
	}
	for _, allowed := range def.EnumValues {
		if valueEqual(value, allowed) {
			return nil
		}
	}
	allowed := make([]string, len(def.EnumValues))
	for i, v := range def.EnumValues {
		allowed[i] = fmt.Sprintf("%v", v)
	}
	return []model.PropertyError{{
		PropertyPath: path,
		Message: fmt.Sprintf("value %v is not one of the allowed values [%s]",
			value, strings.Join(allowed, ", ")),
	}}
}

// valueEqual compares scalars with numeric coercion, so 1 and 1.0 are
// equal regardless of how the JSON decoder produced them.
func valueEqual(a, b any) bool {
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if aok && bok {
		return an == bn
	}
	return a == b
}

// asNumber normalizes the numeric representations JSON decoding and Go
// literals produce.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// unknownKeys returns the keys of tree that are not declared in defs,
// sorted for determinism.
func unknownKeys(tree map[string]any, defs map[string]model.PropertyDef) []string {
	var out []string
	for k := range tree {
		if _, ok := defs[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// typeName names a decoded JSON value's type for error messages.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
