package transport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/averto-io/stratus/internal/observability"
	"github.com/averto-io/stratus/internal/policy"
	"github.com/averto-io/stratus/internal/schema"
	"github.com/averto-io/stratus/internal/validate"
	"github.com/averto-io/stratus/model"
)

func handleValidate(store *schema.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeName := chi.URLParam(r, "typeName")

		var tree map[string]any
		if err := json.NewDecoder(r.Body).Decode(&tree); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		s, err := store.Get(typeName)
		if err != nil {
			WriteError(w, err)
			return
		}

		outcome := validate.Validate(s, tree)
		if metrics != nil {
			metrics.RecordValidation(typeName, outcome.Valid)
		}
		WriteJSON(w, http.StatusOK, outcome)
	}
}

type policyEvaluateRequest struct {
	TypeName string         `json:"type_name"`
	Resource map[string]any `json:"resource"`
	Rules    []string       `json:"rules,omitempty"`
}

func handleEvaluatePolicy(evaluator *policy.Evaluator, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req policyEvaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if req.TypeName == "" {
			WriteError(w, model.NewBadRequestError("type_name is required"))
			return
		}
		if req.Resource == nil {
			WriteError(w, model.NewBadRequestError("resource is required"))
			return
		}

		result, err := evaluator.Evaluate(req.Resource, req.TypeName, req.Rules)
		if err != nil {
			WriteError(w, err)
			return
		}
		if metrics != nil {
			metrics.RecordPolicyEvaluation(result.Valid)
		}
		WriteJSON(w, http.StatusOK, result)
	}
}
