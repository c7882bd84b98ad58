package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hazardmap/hazardmap/internal/api/models"
	"github.com/hazardmap/hazardmap/internal/api/response"
)

// Pinger checks a dependency. Used for readiness probes.
type Pinger func(ctx context.Context) error

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	checks    map[string]Pinger
}

// NewOpsHandler creates a new OpsHandler. checks maps subsystem names to
// their readiness probes; nil is allowed.
func NewOpsHandler(version, buildTime string, checks map[string]Pinger) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		checks:    checks,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Returns
// 503 when any dependency probe fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := models.HealthStatusOK
	subsystems := make([]models.SubsystemStatus, 0, len(h.checks))
	for name, check := range h.checks {
		sub := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := check(ctx); err != nil {
			detail := err.Error()
			sub.Status = models.HealthStatusFail
			sub.Detail = &detail
			status = models.HealthStatusFail
		}
		subsystems = append(subsystems, sub)
	}

	result := models.SystemStatus{
		Status:     status,
		Time:       models.Timestamp(time.Now()),
		Subsystems: subsystems,
	}
	if status != models.HealthStatusOK {
		response.JSON(w, r, http.StatusServiceUnavailable, result)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}
