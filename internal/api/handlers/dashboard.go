package handlers

import (
	"net/http"

	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/pkg/utils"
	"github.com/sellerhub/backend/internal/services"
)

// DashboardHandler serves cross-account aggregates
type DashboardHandler struct {
	orchestrator *services.Orchestrator
	logger       *logger.Logger
}

// NewDashboardHandler creates a dashboard handler
func NewDashboardHandler(orch *services.Orchestrator, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{orchestrator: orch, logger: log}
}

// Metrics returns totals across all accounts plus a per-account breakdown
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	agg, err := h.orchestrator.AggregatedMetrics(r.Context())
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to aggregate metrics")
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, agg)
}
