package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/averto-io/stratus/internal/observability"
	"github.com/averto-io/stratus/internal/policy"
	"github.com/averto-io/stratus/model"
)

func handleListRules(store *policy.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := store.List()
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"rules": names,
			"count": len(names),
		})
	}
}

func handleGetRule(store *policy.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		content, err := store.Get(name)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{
			"name":    name,
			"content": content,
		})
	}
}

type putRuleRequest struct {
	Content string `json:"content"`
}

func handlePutRule(store *policy.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		var req putRuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			WriteError(w, model.NewBadRequestError("content is required"))
			return
		}

		// Reject content that does not parse: a stored rule that fails
		// to parse reports itself failed on every evaluation, so catch
		// it at write time.
		if _, err := policy.ParseRules(name, req.Content); err != nil {
			WriteError(w, err)
			return
		}

		if err := store.Put(name, req.Content); err != nil {
			WriteError(w, err)
			return
		}
		recordRuleCount(store, metrics, "put")
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDeleteRule(store *policy.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		if err := store.Delete(name); err != nil {
			WriteError(w, err)
			return
		}
		recordRuleCount(store, metrics, "delete")
		w.WriteHeader(http.StatusNoContent)
	}
}

func recordRuleCount(store *policy.Store, metrics *observability.Metrics, action string) {
	if metrics == nil {
		return
	}
	metrics.RecordRuleWrite(action)
	if names, err := store.List(); err == nil {
		metrics.SetRulesStored(float64(len(names)))
	}
}
