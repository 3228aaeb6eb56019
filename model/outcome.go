package model

// PropertyError is a single validation violation, identified by the path of
// the offending property ("BucketName", "Tags[2].Key",
// "BucketEncryption.ServerSideEncryptionConfiguration").
type PropertyError struct {
	PropertyPath string `json:"property_path"`
	Message      string `json:"message"`
}

// ValidationOutcome is the result of validating a property tree against a
// schema. Errors accumulate in check order; validation never short-circuits
// on the first failure. Produced fresh per call; immutable.
type ValidationOutcome struct {
	Valid  bool            `json:"valid"`
	Errors []PropertyError `json:"errors,omitempty"`
}

// RuleResult is one rule's verdict within a policy evaluation. A rule whose
// content failed to parse reports Passed=false with the parse error as its
// only message.
type RuleResult struct {
	Passed   bool     `json:"passed"`
	Messages []string `json:"messages,omitempty"`
}

// PolicyResult is the outcome of evaluating a property tree against a set
// of policy rules. Valid is the conjunction of all evaluated rules;
// evaluating zero rules yields Valid=true. Callers that need "at least one
// rule ran" must check PerRule themselves.
type PolicyResult struct {
	Valid   bool                  `json:"valid"`
	PerRule map[string]RuleResult `json:"per_rule"`
}
