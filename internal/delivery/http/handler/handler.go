package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/user/catalog-etl/internal/delivery/http/request"
	"github.com/user/catalog-etl/internal/delivery/http/response"
	"github.com/user/catalog-etl/internal/usecase"
	"go.uber.org/zap"
)

const healthCheckTimeout = 3 * time.Second

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	runManager usecase.RunManager
	checks     map[string]HealthCheck
	logger     *zap.Logger
}

// NewHandler creates the ops API handler. checks are run by the health
// endpoint, keyed by the name reported in its response.
func NewHandler(runManager usecase.RunManager, checks map[string]HealthCheck, logger *zap.Logger) *Handler {
	return &Handler{
		runManager: runManager,
		checks:     checks,
		logger:     logger,
	}
}

func (h *Handler) HandleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ListingURL != "" {
		if _, err := url.ParseRequestURI(req.ListingURL); err != nil {
			h.writeJSONError(w, "Invalid URL format", http.StatusBadRequest)
			return
		}
	}

	runID, err := h.runManager.Submit(r.Context(), req.ListingURL, req.Stage)
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownStage) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to submit run", zap.String("url", req.ListingURL), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.SubmitRunResponse{
		Status:  "success",
		Message: "Run submitted",
		RunID:   runID,
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) HandleGetRunStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.runManager.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrRunNotFound) {
			h.writeJSONError(w, "Run not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get run status", zap.String("run_id", id), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, response.NewRunStatusResponse(run))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
