package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/averto-io/stratus/internal/observability"
	"github.com/averto-io/stratus/internal/orchestrator"
	"github.com/averto-io/stratus/internal/policy"
	"github.com/averto-io/stratus/internal/schema"
	"github.com/averto-io/stratus/internal/validate"
	"github.com/averto-io/stratus/model"
)

// The /v1/resources routes accept explicit desired-state documents and
// patch lists, bypassing intent parsing. Creates run the same
// validation and policy gate as the natural-language path.

type createResourceRequest struct {
	DesiredState map[string]any `json:"desired_state"`
}

func handleCreateResource(prov orchestrator.Provisioner, store *schema.Store, evaluator *policy.Evaluator, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if prov == nil {
			WriteError(w, model.NewBackendUnavailableError())
			return
		}
		typeName := chi.URLParam(r, "typeName")

		var req createResourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if req.DesiredState == nil {
			WriteError(w, model.NewBadRequestError("desired_state is required"))
			return
		}

		s, err := store.Get(typeName)
		if err != nil {
			WriteError(w, err)
			return
		}
		outcome := validate.Validate(s, req.DesiredState)
		if !outcome.Valid {
			WriteValidationError(w, outcome.Errors)
			return
		}
		policyResult, err := evaluator.Evaluate(req.DesiredState, typeName, nil)
		if err != nil {
			WriteError(w, err)
			return
		}
		if !policyResult.Valid {
			WriteValidationError(w, policyErrors(policyResult))
			return
		}

		desired, err := json.Marshal(req.DesiredState)
		if err != nil {
			WriteError(w, err)
			return
		}

		start := time.Now()
		event, err := prov.Create(r.Context(), typeName, desired)
		recordDispatch(metrics, model.OpCreate, event, err, start)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, event)
	}
}

func handleReadResource(prov orchestrator.Provisioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if prov == nil {
			WriteError(w, model.NewBackendUnavailableError())
			return
		}
		typeName := chi.URLParam(r, "typeName")
		identifier := chi.URLParam(r, "identifier")

		desc, err := prov.Read(r.Context(), typeName, identifier)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, desc)
	}
}

func handleListResources(prov orchestrator.Provisioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if prov == nil {
			WriteError(w, model.NewBackendUnavailableError())
			return
		}
		typeName := chi.URLParam(r, "typeName")

		descs, err := prov.List(r.Context(), typeName)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"type_name": typeName,
			"resources": descs,
			"count":     len(descs),
		})
	}
}

type patchResourceRequest struct {
	Patch []model.PatchOp `json:"patch"`
}

func handlePatchResource(prov orchestrator.Provisioner, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if prov == nil {
			WriteError(w, model.NewBackendUnavailableError())
			return
		}
		typeName := chi.URLParam(r, "typeName")
		identifier := chi.URLParam(r, "identifier")

		var req patchResourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if len(req.Patch) == 0 {
			WriteError(w, model.NewBadRequestError("patch is required"))
			return
		}

		start := time.Now()
		event, err := prov.Update(r.Context(), typeName, identifier, req.Patch)
		recordDispatch(metrics, model.OpUpdate, event, err, start)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, event)
	}
}

func handleDeleteResource(prov orchestrator.Provisioner, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if prov == nil {
			WriteError(w, model.NewBackendUnavailableError())
			return
		}
		typeName := chi.URLParam(r, "typeName")
		identifier := chi.URLParam(r, "identifier")

		start := time.Now()
		event, err := prov.Delete(r.Context(), typeName, identifier)
		recordDispatch(metrics, model.OpDelete, event, err, start)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, event)
	}
}

// policyErrors flattens a failed policy result into property errors,
// one per rule message, keyed by rule name.
func policyErrors(result model.PolicyResult) []model.PropertyError {
	var errs []model.PropertyError
	for name, rule := range result.PerRule {
		if rule.Passed {
			continue
		}
		for _, msg := range rule.Messages {
			errs = append(errs, model.PropertyError{PropertyPath: name, Message: msg})
		}
	}
	return errs
}

func recordDispatch(metrics *observability.Metrics, op model.Operation, event model.ProgressEvent, err error, start time.Time) {
	if metrics == nil {
		return
	}
	status := event.OperationStatus
	if err != nil {
		status = "FAILED"
	} else if status == "" {
		status = "SUCCESS"
	}
	metrics.RecordDispatch(string(op), status, time.Since(start))
}
