package router

import (
	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/tokenbridge/internal/http/v2/controllers/health"
	mw "github.com/dropDatabas3/tokenbridge/internal/http/v2/middlewares"
)

// RegisterHealthRoutes registra /healthz y /readyz. Son públicos y nunca
// llegan al provider (el probe de /readyz sí lo consulta).
func RegisterHealthRoutes(r chi.Router, c *ctrl.HealthController) {
	r.With(mw.WithNoStore()).Get("/healthz", c.Healthz)
	r.With(mw.WithNoStore()).Get("/readyz", c.Readyz)
}
