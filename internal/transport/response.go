// Package transport contains the HTTP router, middleware chain, and all
// request handlers for the pipeline API.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/averto-io/stratus/model"
)

// statusForCode maps ErrorEnvelope codes to HTTP status codes.
var statusForCode = map[string]int{
	model.ErrBadRequest:         http.StatusBadRequest,
	model.ErrNotFound:           http.StatusNotFound,
	model.ErrConflict:           http.StatusConflict,
	model.ErrValidationError:    http.StatusUnprocessableEntity,
	model.ErrSchemaParse:        http.StatusUnprocessableEntity,
	model.ErrRuleParse:          http.StatusUnprocessableEntity,
	model.ErrInternalError:      http.StatusInternalServerError,
	model.ErrBackendUnavailable: http.StatusServiceUnavailable,
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// WriteError writes an error as a JSON envelope with the correct HTTP
// status code. Parse errors are converted to their envelope form; any
// other error becomes a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	var ee *model.ErrorEnvelope
	if !errors.As(err, &ee) {
		var spe *model.SchemaParseError
		var rpe *model.RuleParseError
		switch {
		case errors.As(err, &spe):
			ee = spe.Envelope()
		case errors.As(err, &rpe):
			ee = &model.ErrorEnvelope{Code: model.ErrRuleParse, Message: rpe.Error()}
		default:
			ee = model.NewInternalError()
		}
	}

	status := statusForCode[ee.Code]
	if status == 0 {
		status = http.StatusInternalServerError
	}

	type errorResponse struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	WriteJSON(w, status, errorResponse{Error: ee})
}

// WriteNotFound writes a 404 error response.
func WriteNotFound(w http.ResponseWriter, msg string) {
	WriteError(w, model.NewNotFoundError(msg))
}

// WriteValidationError writes a 422 error response with property-level
// details.
func WriteValidationError(w http.ResponseWriter, details []model.PropertyError) {
	WriteError(w, model.NewValidationError(details))
}
