package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/learnwell/microlearn-api/internal/api/shared"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/redact"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthHandler reports whether the service and its store are reachable.
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. checks may be empty, in which
// case the handler only reports that the process is up.
func NewHealthHandler(checks map[string]HealthCheck, timeout time.Duration, log *slog.Logger) *HealthHandler {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{
		checks:  checks,
		timeout: timeout,
		logger:  log.With(slog.String("component", "health_handler")),
	}
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok"}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			log.Warn("health check failed",
				slog.String("check", name),
				slog.String("error", redact.Error(err)))
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	shared.RespondWithJSON(w, r, status, resp)
}
