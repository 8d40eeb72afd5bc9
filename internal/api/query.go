// internal/api/query.go
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soya0924/shoe0522/internal/frame"
	"github.com/soya0924/shoe0522/internal/status"
)

// Querier answers the read-only HTTP API.
type Querier interface {
	Status() status.ConnectionStatus
	AllRecords() ([]frame.Record, error)
	TodayRecords() ([]frame.Record, error)
}

// NewRouter serves the query API and, when reg is non-nil, /metrics.
func NewRouter(q Querier, reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, q.Status())
	})
	mux.HandleFunc("GET /api/steps", records(logger, q.AllRecords))
	mux.HandleFunc("GET /api/steps/today", records(logger, q.TodayRecords))

	if reg != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	return cors(mux)
}

func records(logger *slog.Logger, load func() ([]frame.Record, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := load()
		if err != nil {
			logger.Error("load records failed", "path", r.URL.Path, "err", err)
			writeJSON(w, logger, http.StatusInternalServerError, map[string]string{"error": "records unavailable"})
			return
		}
		if recs == nil {
			recs = []frame.Record{}
		}
		writeJSON(w, logger, http.StatusOK, recs)
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response failed", "err", err)
	}
}

// cors allows any origin to read the API.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
