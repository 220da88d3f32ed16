package middlewares

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// HeaderRequestID es el header usado para correlacionar requests.
const HeaderRequestID = "X-Request-ID"

// maxRequestIDLen limita IDs propagados desde el cliente.
const maxRequestIDLen = 128

// WithRequestID genera o propaga un Request ID único para cada request.
// Si el cliente envía X-Request-ID válido, lo usa; si no, genera un UUID.
// El ID se expone en la respuesta, se inyecta en el contexto y viaja al
// provider en el mismo header.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get(HeaderRequestID))
			if !validRequestID(rid) {
				rid = uuid.NewString()
				r.Header.Set(HeaderRequestID, rid)
			}

			w.Header().Set(HeaderRequestID, rid)
			next.ServeHTTP(w, r.WithContext(setRequestID(r.Context(), rid)))
		})
	}
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for _, c := range s {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
