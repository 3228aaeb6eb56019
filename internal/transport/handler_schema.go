package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/averto-io/stratus/internal/observability"
	"github.com/averto-io/stratus/internal/schema"
	"github.com/averto-io/stratus/model"
)

func handleListSchemas(store *schema.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := store.List(r.URL.Query().Get("q"))

		WriteJSON(w, http.StatusOK, map[string]any{
			"schemas": names,
			"count":   len(names),
		})
	}
}

func handleGetSchema(store *schema.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeName := chi.URLParam(r, "typeName")

		s, err := store.Get(typeName)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, s)
	}
}

func handleDownloadSchema(downloader *schema.Downloader, store *schema.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if downloader == nil {
			WriteError(w, model.NewBackendUnavailableError())
			return
		}
		typeName := chi.URLParam(r, "typeName")

		err := downloader.DownloadOne(r.Context(), typeName)
		if metrics != nil {
			if err != nil {
				metrics.RecordSchemaDownload("failure")
			} else {
				metrics.RecordSchemaDownload("success")
				metrics.SetSchemasLoaded(float64(store.Len()))
			}
		}
		if err != nil {
			WriteError(w, err)
			return
		}

		s, err := store.Get(typeName)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, s)
	}
}

func handleTemplate(store *schema.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeName := chi.URLParam(r, "typeName")
		includeOptional := r.URL.Query().Get("include_optional") == "true"

		s, err := store.Get(typeName)
		if err != nil {
			WriteError(w, err)
			return
		}

		tmpl := schema.Generate(s, includeOptional)
		WriteJSON(w, http.StatusOK, map[string]any{
			"type_name": s.TypeName,
			"template":  tmpl,
		})
	}
}
