package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tokenbridge/internal/metrics"
	"github.com/dropDatabas3/tokenbridge/internal/security/token"
)

// captureHeaders devuelve un handler que guarda los headers que le llegan.
func captureHeaders(dst *http.Header) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*dst = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	})
}

func newBridgeMetrics(t *testing.T) *metrics.Bridge {
	t.Helper()
	m, err := metrics.NewBridge(nil)
	require.NoError(t, err)
	return m
}

func scrapeMetrics(t *testing.T, m *metrics.Bridge) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestWithBearerSplit_Decodes(t *testing.T) {
	m := newBridgeMetrics(t)
	var got http.Header
	h := WithBearerSplit(m)(captureHeaders(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token.MustEncode(token.CredentialSet{AccessToken: "AT1", Client: "C1", UID: "U1"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "AT1", got.Get("access-token"))
	require.Equal(t, "C1", got.Get("client"))
	require.Equal(t, "U1", got.Get("uid"))
	require.NotEmpty(t, got.Get("Authorization"))
	// el request original no se muta
	require.Empty(t, req.Header.Get("access-token"))

	require.Contains(t, scrapeMetrics(t, m), `tokenbridge_bearer_decodes_total{outcome="decoded",stage=""} 1`)
}

func TestWithBearerSplit_AbsentIsNoop(t *testing.T) {
	m := newBridgeMetrics(t)
	var got http.Header
	h := WithBearerSplit(m)(captureHeaders(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public", nil)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("client", "legacy-client")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, req.Header, got)
	require.Contains(t, scrapeMetrics(t, m), `tokenbridge_bearer_decodes_total{outcome="absent",stage=""} 1`)
}

func TestWithBearerSplit_MalformedForwardsWithoutCredentials(t *testing.T) {
	m := newBridgeMetrics(t)
	var got http.Header
	called := false
	h := WithBearerSplit(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		got = r.Header.Clone()
		w.WriteHeader(http.StatusUnauthorized)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer not-valid-base64")
	req.Header.Set("access-token", "smuggled")
	req.Header.Set("uid", "someone-else")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, called, "request must reach the provider")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	for _, name := range token.CredentialHeaders {
		require.Empty(t, got.Values(name), "header %s must not be forwarded", name)
	}
	require.Contains(t, scrapeMetrics(t, m), `tokenbridge_bearer_decodes_total{outcome="malformed",stage="base64"} 1`)
}

func TestWithBearerSplit_NonBearerScheme(t *testing.T) {
	var got http.Header
	h := WithBearerSplit(nil)(captureHeaders(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Empty(t, got.Get("access-token"))
	require.Equal(t, "Basic dXNlcjpwYXNz", got.Get("Authorization"))
}
