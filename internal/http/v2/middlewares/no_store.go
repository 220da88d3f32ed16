package middlewares

import "net/http"

// noStoreHeaders se aplican a respuestas que reflejan estado vivo del
// provider (readiness) y no deben quedar en caches intermedios.
var noStoreHeaders = map[string]string{
	"Cache-Control": "no-store",
	"Pragma":        "no-cache",
	"Expires":       "0",
}

// WithNoStore marca la respuesta como no cacheable. Las respuestas que llevan
// token ya reciben Cache-Control desde el proxy.
func WithNoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range noStoreHeaders {
				h.Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
