package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/tokenbridge/internal/http/v2/errors"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
)

// WithRecover captura panics y devuelve un error 500 en lugar de crashear.
// http.ErrAbortHandler se vuelve a lanzar: es la forma en que el reverse proxy
// corta una respuesta ya iniciada.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.From(r.Context()).Error("panic recovered",
					logger.Op("recover"),
					logger.Any("panic", rec),
				)
				errors.WriteError(w, errors.ErrInternalServerError.WithDetail("panic recovered"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
