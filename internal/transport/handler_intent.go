package transport

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/averto-io/stratus/internal/observability"
	"github.com/averto-io/stratus/internal/orchestrator"
	"github.com/averto-io/stratus/model"
)

type intentRequest struct {
	Text    string `json:"text"`
	Execute bool   `json:"execute"`
}

func handleIntent(orch *orchestrator.Orchestrator, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req intentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			WriteError(w, model.NewBadRequestError("text is required"))
			return
		}

		start := time.Now()
		result, err := orch.Process(r.Context(), req.Text, req.Execute)
		if err != nil {
			WriteError(w, err)
			return
		}

		in := result.Intent
		if metrics != nil {
			metrics.RecordIntentParse(string(in.Operation), in.Resolved(), in.Confidence)
			if result.Validation != nil {
				metrics.RecordValidation(in.TypeName, result.Validation.Valid)
			}
			if result.Policy != nil {
				metrics.RecordPolicyEvaluation(result.Policy.Valid)
			}
			if result.Executed {
				status := "SUCCESS"
				if result.Progress != nil && result.Progress.OperationStatus != "" {
					status = result.Progress.OperationStatus
				}
				metrics.RecordDispatch(string(in.Operation), status, time.Since(start))
			}
		}

		log := observability.RequestLogger(r.Context(), logger)
		if in.Properties != nil && in.Properties.Len() > 0 {
			log.Debug("intent parsed",
				zap.String("operation", string(in.Operation)),
				zap.String("type_name", in.TypeName),
				zap.Float64("confidence", in.Confidence),
				zap.Any("properties", observability.RedactBody(in.Properties.Map(), nil)),
			)
		}

		WriteJSON(w, http.StatusOK, result)
	}
}

func handleRequestStatus(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		progress, err := orch.Status(r.Context(), token)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, progress)
	}
}
