// Package health contiene el controller para health checks.
package health

import (
	"net/http"

	dto "github.com/dropDatabas3/tokenbridge/internal/http/v2/dto/health"
	"github.com/dropDatabas3/tokenbridge/internal/http/v2/helpers"
	svc "github.com/dropDatabas3/tokenbridge/internal/http/v2/services/health"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
)

// HealthController maneja las rutas de health check.
type HealthController struct {
	service svc.HealthService
}

// NewHealthController crea un nuevo controller de health check.
func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

// Healthz maneja GET /healthz. Solo indica que el proceso atiende requests.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, c.service.Live())
}

// Readyz maneja GET /readyz
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	response := c.service.Check(r.Context())

	if response.Version != "" {
		w.Header().Set("X-Service-Version", response.Version)
	}

	statusCode := http.StatusOK
	if response.Status == dto.StatusUnavailable {
		statusCode = http.StatusServiceUnavailable
	}

	logger.From(r.Context()).Debug("health check completed",
		logger.Layer("controller"),
		logger.Op("HealthController.Readyz"),
		logger.Outcome(response.Status),
	)

	helpers.WriteJSON(w, statusCode, response)
}
