package schema

import "github.com/averto-io/stratus/model"

// Generate synthesizes a skeleton property tree from a schema. With
// includeOptional false it emits exactly the required properties; with
// true it also emits every optional top-level property. Nested optional
// properties are never auto-expanded: inside objects only required
// children materialize. Output is deterministic: field order follows the
// schema's declaration order.
func Generate(s model.ResourceSchema, includeOptional bool) *model.Properties {
	out := model.NewProperties()
	for _, name := range s.PropertyOrder {
		if !includeOptional && !s.IsRequired(name) {
			continue
		}
		out.Set(name, placeholder(s.Properties[name]))
	}
	return out
}

// placeholder produces a kind-appropriate placeholder value for a property
// definition. The first enum value wins over the generic placeholder when
// an enum is declared.
func placeholder(def model.PropertyDef) any {
	if len(def.EnumValues) > 0 {
		return def.EnumValues[0]
	}

	switch def.Kind {
	case model.KindString:
		return ""
	case model.KindInteger, model.KindNumber:
		return 0
	case model.KindBoolean:
		return false
	case model.KindArray:
		return []any{}
	case model.KindObject:
		// Required children expand recursively so the skeleton validates
		// without missing-required errors.
		obj := model.NewProperties()
		for _, name := range def.NestedOrder {
			if !nestedRequired(def, name) {
				continue
			}
			obj.Set(name, placeholder(def.Nested[name]))
		}
		return obj
	default:
		return nil
	}
}

func nestedRequired(def model.PropertyDef, name string) bool {
	for _, r := range def.NestedRequired {
		if r == name {
			return true
		}
	}
	return false
}
