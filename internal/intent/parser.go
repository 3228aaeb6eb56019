// Package intent turns free-text operation requests into structured
// intents. The parser is a rule-ordered, best-effort extractor: a fixed
// sequence of matchers runs over the text, each match consumes its span,
// and nothing is ever raised. Determinism and explainability win over
// recall; an input that matches nothing still yields a usable intent.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/averto-io/stratus/internal/schema"
	"github.com/averto-io/stratus/model"
)

// extractionSteps is the number of pipeline stages that feed the
// confidence score: operation, type, identifier, properties.
const extractionSteps = 4

var directTypeMention = regexp.MustCompile(`\b[A-Za-z0-9]+::[A-Za-z0-9]+::[A-Za-z0-9]+\b`)

// stopwords are tokens never accepted as a trailing bare identifier.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "all": {}, "it": {}, "them": {},
	"me": {}, "please": {}, "my": {}, "this": {}, "that": {},
	"resource": {}, "resources": {}, "with": {}, "and": {}, "to": {},
	"for": {}, "of": {}, "in": {}, "on": {}, "using": {},
}

// Parser extracts intents, consulting the schema store to resolve type
// aliases and canonicalize property names.
type Parser struct {
	schemas *schema.Store
}

func NewParser(schemas *schema.Store) *Parser {
	return &Parser{schemas: schemas}
}

// Parse runs the extraction pipeline over the input. It never fails:
// unmatched inputs come back as a LIST of nothing in particular, and
// the orchestrator turns that into a clarifying response.
func (p *Parser) Parse(text string) model.Intent {
	intent := model.Intent{
		RawText:    text,
		Properties: model.NewProperties(),
	}
	matched := 0

	op, opMatched := detectOperation(text)
	intent.Operation = op
	if opMatched {
		matched++
	}

	if typeName, err := p.schemas.AliasResolve(text); err == nil {
		intent.TypeName = typeName
		matched++
	}

	// A resource phrase with no verb reads as a request to make one.
	// Without even a resource phrase, LIST stands.
	if !opMatched && intent.Resolved() {
		intent.Operation = model.OpCreate
	}

	identifier, remaining := explicitIdentifier(text)

	remaining = extractProperties(remaining, intent.Properties)
	if intent.Properties.Len() > 0 {
		matched++
	}

	// The trailing-token fallback runs last, over text with every
	// recognized span consumed, so a property value is never mistaken
	// for an identifier.
	if identifier == "" && targetsOneResource(intent.Operation) {
		identifier, _ = trailingIdentifier(remaining)
	}
	intent.Identifier = identifier
	if intent.Identifier != "" {
		matched++
	}

	p.canonicalize(&intent)
	intent.Confidence = float64(matched) / extractionSteps
	return intent
}

// detectOperation picks the first operation whose verbs appear in the
// text. No verb at all reads as LIST, the safest operation to guess.
func detectOperation(text string) (model.Operation, bool) {
	for _, rule := range operationRules {
		if rule.re.MatchString(text) {
			return rule.op, true
		}
	}
	return model.OpList, false
}

// explicitIdentifier finds a "named X" / "id X" identifier and blanks
// its span out of the returned text.
func explicitIdentifier(text string) (string, string) {
	for _, re := range identifierRules {
		if loc := re.FindStringSubmatchIndex(text); loc != nil {
			id := text[loc[2]:loc[3]]
			return id, blank(text, loc[0], loc[1])
		}
	}
	return "", text
}

// targetsOneResource reports whether the operation addresses a single
// existing resource, which is when a bare trailing token can plausibly
// name it.
func targetsOneResource(op model.Operation) bool {
	return op == model.OpDelete || op == model.OpRead || op == model.OpUpdate
}

// trailingIdentifier scans the unconsumed tokens from the end, skipping
// stopwords, verbs, and type nouns, and accepts the first token that
// could plausibly name a resource. "Delete S3 bucket my-bucket" ends in
// a token naming nothing else, so it must be the target.
func trailingIdentifier(text string) (string, bool) {
	fields := strings.Fields(text)
	for i := len(fields) - 1; i >= 0; i-- {
		token := strings.Trim(fields[i], `.,!?"'`)
		if token == "" {
			continue
		}
		lower := strings.ToLower(token)
		if _, stop := stopwords[lower]; stop {
			continue
		}
		if schema.IsAliasWord(lower) || strings.Contains(token, "::") {
			continue
		}
		if isOperationWord(lower) {
			continue
		}
		return token, true
	}
	return "", false
}

func isOperationWord(token string) bool {
	for _, rule := range operationRules {
		if rule.re.MatchString(token) {
			return true
		}
	}
	return false
}

// extractProperties runs the property rules in declaration order and
// returns the text with every matched span consumed. Rules never
// overlap: once the versioning rule has claimed "versioning enabled",
// the generic key-value rule cannot re-read it.
func extractProperties(text string, props *model.Properties) string {
	// A direct type mention is not configuration.
	if loc := directTypeMention.FindStringIndex(text); loc != nil {
		text = blank(text, loc[0], loc[1])
	}

	for _, rule := range propertyRules {
		for {
			loc := rule.re.FindStringSubmatchIndex(text)
			if loc == nil {
				break
			}
			match := make([]string, 0, len(loc)/2)
			for i := 0; i < len(loc); i += 2 {
				if loc[i] < 0 {
					match = append(match, "")
					continue
				}
				match = append(match, text[loc[i]:loc[i+1]])
			}
			rule.apply(match, props)
			text = blank(text, loc[0], loc[1])
		}
	}
	return text
}

// canonicalize aligns extracted property names with the resolved
// schema's declared names, case-insensitively, and front-loads the
// primary identifier property on a CREATE with a known identifier.
func (p *Parser) canonicalize(intent *model.Intent) {
	if !intent.Resolved() {
		return
	}
	s, err := p.schemas.Get(intent.TypeName)
	if err != nil {
		return
	}

	byLower := make(map[string]string, len(s.PropertyOrder))
	for _, name := range s.PropertyOrder {
		byLower[strings.ToLower(name)] = name
	}

	out := model.NewProperties()
	if intent.Operation == model.OpCreate && intent.Identifier != "" && len(s.PrimaryIdentifier) == 1 {
		out.Set(s.PrimaryIdentifier[0], intent.Identifier)
	}
	for _, key := range intent.Properties.Keys() {
		value, _ := intent.Properties.Get(key)
		if canonical, ok := byLower[strings.ToLower(key)]; ok {
			out.Set(canonical, value)
			continue
		}
		out.Set(key, value)
	}
	intent.Properties = out
}

// blank replaces text[from:to] with spaces, preserving the positions of
// everything around the consumed span.
func blank(text string, from, to int) string {
	return text[:from] + strings.Repeat(" ", to-from) + text[to:]
}

// typedValue converts a raw token to a bool or number when it reads as
// one, otherwise keeps it as a string.
func typedValue(token string) any {
	switch strings.ToLower(token) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if n, err := strconv.ParseFloat(token, 64); err == nil {
		return n
	}
	return token
}
