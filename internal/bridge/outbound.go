package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	dto "github.com/dropDatabas3/tokenbridge/internal/http/v2/dto/auth"
	"github.com/dropDatabas3/tokenbridge/internal/security/token"
)

// ErrMalformedProviderResponse indica que la respuesta del provider no cumple
// el contrato esperado (body no JSON, sin "data", o set de credenciales
// incompleto). Es un error de integración, no de input del cliente.
var ErrMalformedProviderResponse = errors.New("bridge: malformed provider response")

// providerDataKey es la key del body del provider que trae el registro del usuario.
const providerDataKey = "data"

// Response es una vista de la respuesta del provider: headers + body.
// EncodeResponse nunca muta la vista recibida.
type Response struct {
	Header http.Header
	Body   []byte
}

// CarriesCredentials indica si la respuesta trae credenciales nuevas
// (header access-token presente).
func CarriesCredentials(h http.Header) bool {
	return len(h.Values(token.HeaderAccessToken)) > 0
}

// EncodeResponse pliega las credenciales emitidas por el provider en un único
// token y reescribe el body al schema público.
//
// Si la respuesta no trae access-token devuelve la misma vista y rewritten=false.
// En caso contrario devuelve una respuesta nueva sin los headers access-token,
// client y uid (expiry se conserva) y con body PublicAuthResponse.
func EncodeResponse(in Response) (out Response, rewritten bool, err error) {
	if !CarriesCredentials(in.Header) {
		return in, false, nil
	}

	creds := token.CredentialSet{
		AccessToken: in.Header.Get(token.HeaderAccessToken),
		Client:      in.Header.Get(token.HeaderClient),
		UID:         in.Header.Get(token.HeaderUID),
	}
	encoded, err := token.Encode(creds)
	if err != nil {
		return Response{}, false, fmt.Errorf("%w: %v", ErrMalformedProviderResponse, err)
	}

	user, err := subjectRecord(in.Body)
	if err != nil {
		return Response{}, false, err
	}

	body := dto.PublicAuthResponse{
		User:        user,
		AccessToken: encoded,
	}
	if vs := in.Header.Values(token.HeaderExpiry); len(vs) > 0 {
		expiry := vs[0]
		body.Expiry = &expiry
	}

	raw, err := marshalBody(body)
	if err != nil {
		return Response{}, false, fmt.Errorf("%w: %v", ErrMalformedProviderResponse, err)
	}

	h := in.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	for _, name := range token.CredentialHeaders {
		h.Del(name)
	}
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Del("Content-Length")

	return Response{Header: h, Body: raw}, true, nil
}

// subjectRecord extrae el campo "data" del body del provider sin tocarlo.
// La key se busca exacta: json.Unmarshal sobre un struct aceptaría "Data" o
// "DATA".
func subjectRecord(body []byte) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: body is not a JSON object: %v", ErrMalformedProviderResponse, err)
	}
	data, ok := fields[providerDataKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedProviderResponse, providerDataKey)
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, fmt.Errorf("%w: %q is null", ErrMalformedProviderResponse, providerDataKey)
	}
	return data, nil
}

func marshalBody(v dto.PublicAuthResponse) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
