// Package router arma el router chi del gateway.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	healthctrl "github.com/dropDatabas3/tokenbridge/internal/http/v2/controllers/health"
	httperrors "github.com/dropDatabas3/tokenbridge/internal/http/v2/errors"
	mw "github.com/dropDatabas3/tokenbridge/internal/http/v2/middlewares"
	"github.com/dropDatabas3/tokenbridge/internal/metrics"
)

// Deps contiene todo lo que el router necesita.
type Deps struct {
	Health *healthctrl.HealthController
	// Proxy atiende todo lo que no es una ruta propia del gateway.
	Proxy http.Handler

	Metrics     *metrics.Bridge // nil = /metrics deshabilitado
	MetricsPath string

	CORSAllowedOrigins []string
}

// New devuelve el handler raíz.
//
// Orden: request id -> logging -> recover -> metrics -> security headers -> CORS.
// El decoder de bearer se aplica solo a las rutas que van al provider.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithMetrics(deps.Metrics),
		mw.WithSecurityHeaders(),
		mw.WithCORS(deps.CORSAllowedOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if deps.Health != nil {
		RegisterHealthRoutes(r, deps.Health)
	}

	if deps.Metrics != nil && deps.MetricsPath != "" {
		r.Method(http.MethodGet, deps.MetricsPath, deps.Metrics.Handler())
	}

	if deps.Proxy != nil {
		RegisterGatewayRoutes(r, deps.Proxy, deps.Metrics)
	}

	return r
}
