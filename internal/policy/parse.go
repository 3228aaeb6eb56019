// Package policy stores and evaluates declarative guard rules against
// property trees. A rule file holds one or more named rule blocks; each
// block scopes its checks to a resource type and expresses existence,
// shape, and equality constraints over property paths.
package policy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/averto-io/stratus/model"
)

type checkOp int

const (
	opExists checkOp = iota
	opIsStruct
	opIsList
	opIsString
	opIsBool
	opIsNumber
	opEqual
	opNotEqual
)

var opNames = map[checkOp]string{
	opExists:   "exists",
	opIsStruct: "is_struct",
	opIsList:   "is_list",
	opIsString: "is_string",
	opIsBool:   "is_bool",
	opIsNumber: "is_number",
	opEqual:    "==",
	opNotEqual: "!=",
}

// Check is a single constraint on a dot-separated property path. A path
// segment ending in [*] fans the remaining path out over every element
// of a list.
type Check struct {
	Path    string
	Op      checkOp
	Literal any
}

func (c Check) String() string {
	if c.Op == opEqual || c.Op == opNotEqual {
		return fmt.Sprintf("%s %s %v", c.Path, opNames[c.Op], c.Literal)
	}
	return fmt.Sprintf("%s %s", c.Path, opNames[c.Op])
}

// Scope binds a list of checks to one resource type name.
type Scope struct {
	TypeName string
	Checks   []Check
}

// Rule is one parsed rule block.
type Rule struct {
	Name   string
	Scopes []Scope
}

// ParseRules parses guard-style rule text into rule blocks. The name is
// used only for error reporting. Structure:
//
//	rule <name> {
//	    <Type::Name::Here> {
//	        Path exists
//	        Path is_struct
//	        Path { Nested == "literal" }
//	        Path[*] { Nested exists }
//	    }
//	}
//
// Lines starting with # and blank lines are ignored.
func ParseRules(name, content string) ([]Rule, error) {
	p := &parser{name: name}
	lines := strings.Split(content, "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := p.feed(i+1, line); err != nil {
			return nil, err
		}
	}
	if p.depth() != 0 {
		return nil, p.errorf(len(lines), "unexpected end of input, %d unclosed block(s)", p.depth())
	}
	if len(p.rules) == 0 {
		return nil, p.errorf(len(lines), "no rule blocks found")
	}
	return p.rules, nil
}

// parser tracks the open-block stack while consuming lines. The stack
// holds path prefixes for nested property blocks; rule and type scopes
// are tracked separately.
type parser struct {
	name    string
	rules   []Rule
	current *Rule
	scope   *Scope
	prefix  []string
}

func (p *parser) depth() int {
	n := len(p.prefix)
	if p.scope != nil {
		n++
	}
	if p.current != nil {
		n++
	}
	return n
}

func (p *parser) errorf(line int, format string, args ...any) error {
	return &model.RuleParseError{
		Rule:    p.name,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *parser) feed(line int, text string) error {
	if text == "}" {
		return p.closeBlock(line)
	}

	if opener, ok := strings.CutSuffix(text, "{"); ok {
		return p.openBlock(line, strings.TrimSpace(opener))
	}

	// Plain line: must be a check inside a type scope.
	if p.scope == nil {
		return p.errorf(line, "check %q outside a type scope", text)
	}
	check, err := p.parseCheck(line, text)
	if err != nil {
		return err
	}
	p.scope.Checks = append(p.scope.Checks, check)
	return nil
}

func (p *parser) openBlock(line int, header string) error {
	switch {
	case strings.HasPrefix(header, "rule "):
		if p.current != nil {
			return p.errorf(line, "nested rule block")
		}
		name := strings.TrimSpace(strings.TrimPrefix(header, "rule "))
		if name == "" {
			return p.errorf(line, "rule block without a name")
		}
		p.current = &Rule{Name: name}
		return nil

	case strings.Contains(header, "::"):
		if p.current == nil {
			return p.errorf(line, "type scope %q outside a rule block", header)
		}
		if p.scope != nil {
			return p.errorf(line, "nested type scope %q", header)
		}
		p.scope = &Scope{TypeName: header}
		return nil

	default:
		// Property block: its header becomes a path prefix for the
		// checks inside it.
		if p.scope == nil {
			return p.errorf(line, "property block %q outside a type scope", header)
		}
		if header == "" {
			return p.errorf(line, "property block without a path")
		}
		if strings.ContainsAny(header, " \t") {
			return p.errorf(line, "malformed block header %q", header)
		}
		p.prefix = append(p.prefix, header)
		return nil
	}
}

func (p *parser) closeBlock(line int) error {
	switch {
	case len(p.prefix) > 0:
		p.prefix = p.prefix[:len(p.prefix)-1]
	case p.scope != nil:
		p.current.Scopes = append(p.current.Scopes, *p.scope)
		p.scope = nil
	case p.current != nil:
		p.rules = append(p.rules, *p.current)
		p.current = nil
	default:
		return p.errorf(line, "unmatched closing brace")
	}
	return nil
}

func (p *parser) parseCheck(line int, text string) (Check, error) {
	fields := strings.Fields(text)
	path := strings.Join(append(append([]string{}, p.prefix...), fields[0]), ".")

	if len(fields) == 2 {
		var op checkOp
		switch fields[1] {
		case "exists":
			op = opExists
		case "is_struct":
			op = opIsStruct
		case "is_list":
			op = opIsList
		case "is_string":
			op = opIsString
		case "is_bool":
			op = opIsBool
		case "is_number":
			op = opIsNumber
		default:
			return Check{}, p.errorf(line, "unknown check operator %q", fields[1])
		}
		return Check{Path: path, Op: op}, nil
	}

	if len(fields) == 3 && (fields[1] == "==" || fields[1] == "!=") {
		lit, err := parseLiteral(fields[2])
		if err != nil {
			return Check{}, p.errorf(line, "bad literal %q: %v", fields[2], err)
		}
		op := opEqual
		if fields[1] == "!=" {
			op = opNotEqual
		}
		return Check{Path: path, Op: op, Literal: lit}, nil
	}

	return Check{}, p.errorf(line, "malformed check %q", text)
}

func parseLiteral(token string) (any, error) {
	switch {
	case token == "true":
		return true, nil
	case token == "false":
		return false, nil
	case strings.HasPrefix(token, `"`) && strings.HasSuffix(token, `"`) && len(token) >= 2:
		return token[1 : len(token)-1], nil
	default:
		n, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, fmt.Errorf("expected quoted string, boolean, or number")
		}
		return n, nil
	}
}
