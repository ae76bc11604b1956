package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/gancio-sync/utils"
	"go.uber.org/zap"
)

// Version is the service version reported by the status endpoint
const Version = "0.1.0"

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// StatusResponse describes the running service
type StatusResponse struct {
	Version     string   `json:"version"`
	Environment string   `json:"environment"`
	Sources     []string `json:"sources"`
}

// HealthHandler serves liveness, readiness and status
type HealthHandler struct {
	db          *sql.DB
	environment string
	sources     func() []string
	logger      *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil.
func NewHealthHandler(db *sql.DB, environment string, sources func() []string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:          db,
		environment: environment,
		sources:     sources,
		logger:      logger,
	}
}

// HandleHealth handles GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	switch {
	case h.db == nil:
		checks["database"] = "not_initialized"
		ready = false
	default:
		if err := h.checkDatabase(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			ready = false
		} else {
			checks["database"] = "healthy"
		}
	}

	if h.sources != nil && len(h.sources()) == 0 {
		checks["sources"] = "none_enabled"
	} else {
		checks["sources"] = "configured"
	}

	response := ReadinessResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	status := http.StatusOK
	if !ready {
		response.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}

	if err := utils.WriteJSON(w, status, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// HandleStatus handles GET /api/v1/status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	sources := []string{}
	if h.sources != nil {
		sources = h.sources()
	}
	_ = utils.WriteJSON(w, http.StatusOK, StatusResponse{
		Version:     Version,
		Environment: h.environment,
		Sources:     sources,
	})
}

// checkDatabase pings the database and runs a trivial query
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}
