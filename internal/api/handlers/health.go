package handlers

import (
	"net/http"

	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/pkg/utils"
	"github.com/sellerhub/backend/internal/storage"
)

// HealthHandler handles liveness and readiness probes
type HealthHandler struct {
	blobs  storage.BlobStore
	logger *logger.Logger
}

// NewHealthHandler creates a health handler
func NewHealthHandler(blobs storage.BlobStore, log *logger.Logger) *HealthHandler {
	return &HealthHandler{blobs: blobs, logger: log}
}

// Healthz handles the liveness probe
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz handles the readiness probe; ready means storage answers
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.blobs.Get(r.Context(), "healthcheck"); err != nil {
		h.logger.ErrorWithErr(err, "Storage probe failed")
		utils.WriteErrorMessage(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "storage unavailable")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"storage": "connected",
	})
}
