package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/tokenbridge/internal/http/v2/middlewares"
	"github.com/dropDatabas3/tokenbridge/internal/metrics"
)

// RegisterGatewayRoutes manda todo el resto al provider, pasando antes por el
// decoder de bearer. El proxy decide por sí mismo qué rutas son emisoras.
func RegisterGatewayRoutes(r chi.Router, proxy http.Handler, m *metrics.Bridge) {
	r.With(mw.WithBearerSplit(m)).Handle("/*", proxy)
}
