package evaluator

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// MaxBatch bounds the number of positions accepted in one request.
const MaxBatch = 4096

// NewRouter serves ev over HTTP: POST /evaluate takes a batch of requests,
// GET /healthz reports liveness.
func NewRouter(ev Evaluator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/evaluate", handleEvaluate(ev))
	return r
}

func handleEvaluate(ev Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in batchRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, batchResponse{Error: "invalid JSON: " + err.Error()})
			return
		}
		if len(in.Requests) > MaxBatch {
			writeJSON(w, http.StatusRequestEntityTooLarge, batchResponse{Error: "batch too large"})
			return
		}

		out, err := ev.Evaluate(r.Context(), in.Requests)
		switch {
		case errors.Is(err, ErrBadRequest):
			writeJSON(w, http.StatusBadRequest, batchResponse{Error: err.Error()})
			return
		case err != nil:
			log.Error().Err(err).Str("request", middleware.GetReqID(r.Context())).Msg("evaluation failed")
			writeJSON(w, http.StatusInternalServerError, batchResponse{Error: "evaluation failed"})
			return
		}

		log.Debug().Int("batch", len(in.Requests)).Str("request", middleware.GetReqID(r.Context())).Msg("evaluated batch")
		writeJSON(w, http.StatusOK, batchResponse{Responses: out})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
