package middlewares

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tokenbridge/internal/metrics"
)

// WithMetrics instrumenta requests HTTP (contador, latencia, inflight).
// La ruta se etiqueta con el patrón de chi para no explotar cardinalidad.
func WithMetrics(m *metrics.Bridge) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := m.RequestStarted()
			rec := recorderFrom(w)
			defer func() {
				done(strings.ToUpper(r.Method), routeLabel(r), rec.status)
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
