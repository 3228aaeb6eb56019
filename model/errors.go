package model

import "fmt"

// Standard error codes.
const (
	ErrBadRequest         = "BAD_REQUEST"
	ErrNotFound           = "NOT_FOUND"
	ErrConflict           = "CONFLICT"
	ErrValidationError    = "VALIDATION_ERROR"
	ErrSchemaParse        = "SCHEMA_PARSE_ERROR"
	ErrRuleParse          = "RULE_PARSE_ERROR"
	ErrInternalError      = "INTERNAL_ERROR"
	ErrBackendUnavailable = "BACKEND_UNAVAILABLE"
)

// ErrorEnvelope is the standard error response envelope. It implements the
// error interface.
type ErrorEnvelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details []PropertyError `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with property-level details.
func NewValidationError(details []PropertyError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more properties are invalid",
		Details: details,
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewBackendUnavailableError returns a BACKEND_UNAVAILABLE error.
func NewBackendUnavailableError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendUnavailable,
		Message: "The provisioning service is temporarily unavailable",
	}
}

// SchemaParseError reports a malformed schema document. It is fatal to the
// one type being loaded; other loaded types are unaffected.
type SchemaParseError struct {
	TypeName string
	Path     string
	Message  string
}

func (e *SchemaParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("schema %s: %s", e.TypeName, e.Message)
	}
	return fmt.Sprintf("schema %s: %s: %s", e.TypeName, e.Path, e.Message)
}

// Envelope converts the parse error into an error envelope.
func (e *SchemaParseError) Envelope() *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrSchemaParse, Message: e.Error()}
}

// RuleParseError reports malformed rule content. The rule reports itself
// failed during evaluation; it never aborts evaluation of other rules.
type RuleParseError struct {
	Rule    string
	Line    int
	Message string
}

func (e *RuleParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("rule %s: line %d: %s", e.Rule, e.Line, e.Message)
	}
	return fmt.Sprintf("rule %s: %s", e.Rule, e.Message)
}
