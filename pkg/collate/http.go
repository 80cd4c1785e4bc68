package collate

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/labcollate/pkg/common/logger"
	"github.com/synaptica-ai/labcollate/pkg/observability/metrics"
	"github.com/synaptica-ai/labcollate/pkg/storage"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.handleReady).Methods(http.MethodGet)
	router.HandleFunc("/metrics", h.handleMetrics).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/collate", h.handleCollate).Methods(http.MethodPost)
	api.HandleFunc("/runs/{id}", h.handleRun).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleCollate(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req Inline
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid collate payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec, doc, err := h.service.CollateInline(r.Context(), req)
	if err != nil {
		if IsDataError(err) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"run_id": rec.ID,
				"error":  err.Error(),
			})
			return
		}
		logger.Log.WithError(err).Error("failed to collate inline request")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Run-ID", rec.ID)
	writeJSON(w, http.StatusOK, doc)
}

func (h *HTTPHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.service.Run(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch run")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (h *HTTPHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (h *HTTPHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := storage.Encode(w, v); err != nil {
		logger.Log.WithError(err).Warn("failed to write response")
	}
}
