package token

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"unicode/utf8"
)

var (
	// ErrMalformedToken se devuelve cuando un EncodedToken no se puede revertir
	// en alguna de sus capas o le falta alguno de los tres campos.
	ErrMalformedToken = errors.New("token: malformed token")

	// ErrIncompleteCredentials se devuelve al intentar codificar un set parcial.
	ErrIncompleteCredentials = errors.New("token: incomplete credential set")

	// ErrInvalidCredentialValue se devuelve cuando un valor no es UTF-8 válido.
	// encoding/json lo reemplazaría por U+FFFD y el token ya no decodificaría
	// al mismo set.
	ErrInvalidCredentialValue = errors.New("token: credential value is not valid UTF-8")
)

// Etapas del decode, útiles para logs y métricas.
const (
	StageBearer  = "bearer"
	StagePercent = "percent"
	StageBase64  = "base64"
	StageJSON    = "json"
	StageFields  = "fields"
)

// DecodeError envuelve ErrMalformedToken indicando en qué capa falló.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token: malformed token (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("token: malformed token (%s)", e.Stage)
}

// Is permite errors.Is(err, ErrMalformedToken).
func (e *DecodeError) Is(target error) bool { return target == ErrMalformedToken }

func (e *DecodeError) Unwrap() error { return e.Err }

// StageOf devuelve la etapa de un error de decode, o "" si no es un DecodeError.
func StageOf(err error) string {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Stage
	}
	return ""
}

// Encode serializa el set: JSON compacto con orden de keys fijo
// (access-token, client, uid) -> base64 estándar -> percent-encoding.
// Es determinista: el mismo set produce siempre el mismo string.
func Encode(c CredentialSet) (string, error) {
	if !c.Complete() {
		return "", ErrIncompleteCredentials
	}
	for i, v := range c.Values() {
		if !utf8.ValidString(v) {
			return "", fmt.Errorf("%w: %s", ErrInvalidCredentialValue, CredentialHeaders[i])
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// El provider compara los valores tal cual; no escapamos <, > ni &.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("token: encode json: %w", err)
	}
	raw := bytes.TrimRight(buf.Bytes(), "\n")

	return url.QueryEscape(base64.StdEncoding.EncodeToString(raw)), nil
}

// MustEncode es como Encode pero hace panic si el set está incompleto.
// Pensado para tests y fixtures.
func MustEncode(c CredentialSet) string {
	s, err := Encode(c)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode revierte Encode capa por capa. Rechaza (no coacciona) cualquier
// entrada inválida en cualquier etapa. Acepta las keys en cualquier orden y
// tolera saltos de línea dentro del base64.
func Decode(s string) (CredentialSet, error) {
	unescaped, err := url.QueryUnescape(s)
	if err != nil {
		return CredentialSet{}, &DecodeError{Stage: StagePercent, Err: err}
	}

	raw, err := base64.StdEncoding.DecodeString(unescaped)
	if err != nil {
		return CredentialSet{}, &DecodeError{Stage: StageBase64, Err: err}
	}

	fields, err := decodeObject(raw)
	if err != nil {
		return CredentialSet{}, &DecodeError{Stage: StageJSON, Err: err}
	}

	var c CredentialSet
	for _, key := range CredentialHeaders {
		v, err := stringField(fields, key)
		if err != nil {
			return CredentialSet{}, &DecodeError{Stage: StageFields, Err: err}
		}
		switch key {
		case HeaderAccessToken:
			c.AccessToken = v
		case HeaderClient:
			c.Client = v
		case HeaderUID:
			c.UID = v
		}
	}
	return c, nil
}

// decodeObject parsea exactamente un objeto JSON, sin datos sobrantes.
func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("expected a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON object")
	}
	return fields, nil
}

// stringField exige que la key exista, sea un string JSON en UTF-8 válido y no
// esté vacía.
func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("missing %q", key)
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || v[0] != '"' {
		return "", fmt.Errorf("%q must be a string", key)
	}
	if !utf8.Valid(v) {
		return "", fmt.Errorf("%q is not valid UTF-8", key)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%q: %w", key, err)
	}
	if s == "" {
		return "", fmt.Errorf("%q is empty", key)
	}
	return s, nil
}
