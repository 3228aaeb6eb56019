package policy

import (
	"fmt"
	"strings"

	"github.com/averto-io/stratus/model"
)

// Evaluator runs stored rules against property trees. Rules are parsed
// on every evaluation; the store's files stay the single source of
// truth and edits take effect immediately.
type Evaluator struct {
	store *Store
}

func NewEvaluator(store *Store) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate checks a property tree against stored rules. When names is
// empty, every stored rule applicable to the type name runs; files with
// no matching scope are left out of the result. Explicitly named rules
// always appear in PerRule, passing vacuously when nothing applies.
// Each rule file is evaluated independently: a file that fails to parse
// reports itself as failed with the parse error as its message instead
// of aborting the rest. Overall validity is the conjunction of the
// evaluated rules; zero rules is a vacuous pass.
func (e *Evaluator) Evaluate(tree map[string]any, typeName string, names []string) (model.PolicyResult, error) {
	explicit := len(names) > 0
	if !explicit {
		all, err := e.store.List()
		if err != nil {
			return model.PolicyResult{}, err
		}
		names = all
	}

	result := model.PolicyResult{
		Valid:   true,
		PerRule: make(map[string]model.RuleResult, len(names)),
	}

	for _, name := range names {
		normalized, err := normalizeName(name)
		if err != nil {
			result.PerRule[name] = model.RuleResult{Passed: false, Messages: []string{err.Error()}}
			result.Valid = false
			continue
		}

		content, err := e.store.Get(normalized)
		if err != nil {
			// An explicitly named rule that is not stored is reported
			// but does not fail the evaluation.
			result.PerRule[normalized] = model.RuleResult{
				Passed:   true,
				Messages: []string{"rule not found"},
			}
			continue
		}

		res, applicable := evaluateFile(normalized, content, tree, typeName)
		if !applicable && !explicit {
			continue
		}
		result.PerRule[normalized] = res
		if !res.Passed {
			result.Valid = false
		}
	}

	return result, nil
}

// evaluateFile parses one rule file and runs every block scoped to the
// given type name. The second return reports whether any scope applied;
// a parse failure counts as applicable so it is never silently skipped.
func evaluateFile(name, content string, tree map[string]any, typeName string) (model.RuleResult, bool) {
	rules, err := ParseRules(name, content)
	if err != nil {
		return model.RuleResult{Passed: false, Messages: []string{err.Error()}}, true
	}

	applicable := false
	out := model.RuleResult{Passed: true}
	for _, rule := range rules {
		for _, scope := range rule.Scopes {
			if scope.TypeName != typeName {
				continue
			}
			applicable = true
			for _, check := range scope.Checks {
				if ok, reason := evalCheck(tree, check); !ok {
					out.Passed = false
					out.Messages = append(out.Messages,
						fmt.Sprintf("%s: %s", rule.Name, reason))
				}
			}
		}
	}
	if !applicable {
		out.Messages = append(out.Messages,
			fmt.Sprintf("no applicable checks for %s", typeName))
	}
	return out, applicable
}

// evalCheck resolves the check's path and applies its operator. A [*]
// segment fans out over list elements; every element must satisfy the
// check, and an empty list passes vacuously.
func evalCheck(tree map[string]any, c Check) (bool, string) {
	values, found := resolve(tree, strings.Split(c.Path, "."))

	if c.Op == opExists {
		if !found {
			return false, fmt.Sprintf("check failed: %s", c)
		}
		return true, ""
	}
	if !found {
		return false, fmt.Sprintf("check failed: %s (path does not exist)", c)
	}

	for _, v := range values {
		if !satisfies(v, c) {
			return false, fmt.Sprintf("check failed: %s (got %v)", c, v)
		}
	}
	return true, ""
}

func satisfies(v any, c Check) bool {
	switch c.Op {
	case opIsStruct:
		_, ok := v.(map[string]any)
		return ok
	case opIsList:
		_, ok := v.([]any)
		return ok
	case opIsString:
		_, ok := v.(string)
		return ok
	case opIsBool:
		_, ok := v.(bool)
		return ok
	case opIsNumber:
		_, ok := asFloat(v)
		return ok
	case opEqual:
		return literalEqual(v, c.Literal)
	case opNotEqual:
		return !literalEqual(v, c.Literal)
	default:
		return false
	}
}

// resolve walks a dot-separated path, fanning out at [*] segments. The
// second return reports whether every branch of the path was present.
func resolve(v any, segs []string) ([]any, bool) {
	if len(segs) == 0 {
		return []any{v}, true
	}

	key, star := strings.CutSuffix(segs[0], "[*]")
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	child, ok := m[key]
	if !ok {
		return nil, false
	}

	if star {
		list, ok := child.([]any)
		if !ok {
			return nil, false
		}
		var out []any
		for _, elem := range list {
			vals, found := resolve(elem, segs[1:])
			if !found {
				return nil, false
			}
			out = append(out, vals...)
		}
		return out, true
	}

	return resolve(child, segs[1:])
}

func literalEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
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
