package model

// Operation is the kind of resource operation an intent requests.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpRead   Operation = "READ"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
	OpList   Operation = "LIST"
)

// Intent is the structured result of parsing a free-text operation request.
// It is created fresh per request and never mutated after construction. An
// intent with an empty TypeName is a valid state (the parser could not
// resolve the resource type); the orchestrator must handle it explicitly
// rather than treat it as an error.
type Intent struct {
	Operation Operation `json:"operation"`

	// TypeName is the resolved resource type, or "" when no alias or
	// direct type mention matched.
	TypeName string `json:"type_name,omitempty"`

	// Identifier names a specific resource instance, when one was
	// extracted.
	Identifier string `json:"identifier,omitempty"`

	// Properties is the extracted configuration tree, in extraction order.
	// Never nil.
	Properties *Properties `json:"properties"`

	// RawText is the original input, retained for diagnostics.
	RawText string `json:"raw_text"`

	// Confidence is the fraction of extraction steps that produced a
	// non-default result. Advisory only; it never gates execution.
	Confidence float64 `json:"confidence"`
}

// Resolved reports whether the resource type was resolved.
func (i Intent) Resolved() bool {
	return i.TypeName != ""
}
