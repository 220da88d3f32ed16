// Package bridge contiene los dos filtros puros que traducen entre el
// protocolo multi-header del identity provider y un único bearer token.
//
// Ninguna función de este paquete hace I/O ni guarda estado: reciben una vista
// de headers (y body) y devuelven un parche o una respuesta de reemplazo.
package bridge

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/tokenbridge/internal/security/token"
)

// HeaderAuthorization es el header que trae el bearer token del cliente.
const HeaderAuthorization = "Authorization"

// bearerPrefix se busca literal y case-sensitive; se usa la primera ocurrencia.
const bearerPrefix = "Bearer "

// ErrMissingBearer indica un Authorization presente sin el prefijo "Bearer ".
// Siempre cumple errors.Is(err, token.ErrMalformedToken).
var ErrMissingBearer = &token.DecodeError{Stage: token.StageBearer, Err: errors.New(`authorization header without "Bearer " prefix`)}

// HeaderPatch es el resultado del decoder: o no hay nada que aplicar, o hay un
// CredentialSet completo. Nunca representa un set parcial.
type HeaderPatch struct {
	creds token.CredentialSet
	set   bool
}

// Empty indica que el request debe pasar sin modificaciones.
func (p HeaderPatch) Empty() bool { return !p.set }

// Credentials devuelve el set decodificado, si existe.
func (p HeaderPatch) Credentials() (token.CredentialSet, bool) {
	return p.creds, p.set
}

// Apply escribe los tres headers del provider, pisando valores previos.
// Un patch vacío no toca los headers.
func (p HeaderPatch) Apply(h http.Header) {
	if !p.set {
		return
	}
	values := p.creds.Values()
	for i, name := range token.CredentialHeaders {
		h.Set(name, values[i])
	}
}

// HasAuthorization indica si el request trae el header Authorization,
// aunque sea vacío.
func HasAuthorization(h http.Header) bool {
	return len(h.Values(HeaderAuthorization)) > 0
}

// DecodeRequest inspecciona el header Authorization.
//
//   - Ausente: patch vacío, sin error.
//   - Presente: toma lo que sigue a la primera ocurrencia de "Bearer " y lo
//     decodifica. Cualquier falla devuelve un error que cumple
//     errors.Is(err, token.ErrMalformedToken) y un patch vacío.
func DecodeRequest(h http.Header) (HeaderPatch, error) {
	if !HasAuthorization(h) {
		return HeaderPatch{}, nil
	}

	raw, err := bearerToken(h.Get(HeaderAuthorization))
	if err != nil {
		return HeaderPatch{}, err
	}

	creds, err := token.Decode(raw)
	if err != nil {
		return HeaderPatch{}, fmt.Errorf("bridge: decode bearer: %w", err)
	}
	return HeaderPatch{creds: creds, set: true}, nil
}

// StripCredentials elimina del request cualquier header de credenciales.
// Se usa cuando el token es inválido para que no viaje nada parcial.
func StripCredentials(h http.Header) {
	for _, name := range token.CredentialHeaders {
		h.Del(name)
	}
}

func bearerToken(v string) (string, error) {
	i := strings.Index(v, bearerPrefix)
	if i < 0 {
		return "", ErrMissingBearer
	}
	return v[i+len(bearerPrefix):], nil
}
