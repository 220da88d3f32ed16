package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/tokenbridge/internal/bridge"
	"github.com/dropDatabas3/tokenbridge/internal/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/security/token"
)

// WithBearerSplit traduce "Authorization: Bearer <token>" a los headers
// access-token, client y uid antes de que el request llegue al provider.
//
// Un token malformado no corta el request: se reenvía sin headers de
// credenciales (incluidos los que haya mandado el cliente) y el provider
// responde como a cualquier request no autenticado.
func WithBearerSplit(m *metrics.Bridge) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			patch, err := bridge.DecodeRequest(r.Header)
			log := logger.From(r.Context())

			switch {
			case err != nil:
				stage := token.StageOf(err)
				r = r.Clone(r.Context())
				bridge.StripCredentials(r.Header)
				m.ObserveDecode(metrics.DecodeMalformed, stage)
				// Solo la etapa: el error puede contener fragmentos del token.
				log.Warn("malformed bearer token, forwarding unauthenticated",
					logger.Outcome(metrics.DecodeMalformed),
					logger.Stage(stage),
				)
			case patch.Empty():
				m.ObserveDecode(metrics.DecodeAbsent, "")
			default:
				r = r.Clone(r.Context())
				patch.Apply(r.Header)
				m.ObserveDecode(metrics.DecodeDecoded, "")
				log.Debug("bearer token split", logger.Outcome(metrics.DecodeDecoded))
			}

			next.ServeHTTP(w, r)
		})
	}
}
