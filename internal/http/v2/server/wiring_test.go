package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tokenbridge/internal/config"
	authdto "github.com/dropDatabas3/tokenbridge/internal/http/v2/dto/auth"
	"github.com/dropDatabas3/tokenbridge/internal/security/token"
)

func testConfig(t *testing.T, upstreamURL string) *config.Config {
	t.Helper()
	t.Setenv("UPSTREAM_BASE_URL", upstreamURL)
	t.Setenv("BRIDGE_ISSUING_ROUTES", "POST /auth/sign_in")
	cfg, err := config.Load(t.TempDir() + "/none.yaml")
	require.NoError(t, err)
	return cfg
}

// Flujo completo: sign-in -> token opaco -> request autenticado con Bearer.
func TestBuildHandler_SignInThenAuthenticatedRequest(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/sign_in":
			w.Header().Set("access-token", "tok-123")
			w.Header().Set("client", "cli-456")
			w.Header().Set("uid", "jane@example.com")
			w.Header().Set("expiry", "1893456000")
			_, _ = io.WriteString(w, `{"data":{"id":1,"email":"jane@example.com","provider":"email"}}`)
		case "/api/v1/me":
			if r.Header.Get("access-token") != "tok-123" || r.Header.Get("client") != "cli-456" || r.Header.Get("uid") != "jane@example.com" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, `{"id":1}`)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer provider.Close()

	h, err := BuildHandler(testConfig(t, provider.URL), Options{Version: "test"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/sign_in", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var signIn struct {
		User        authdto.SubjectRecord `json:"user"`
		AccessToken string                `json:"access_token"`
		Expiry      string                `json:"expiry"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signIn))
	require.NotEmpty(t, signIn.AccessToken)
	require.Equal(t, authdto.SubjectRecord{ID: 1, Email: "jane@example.com", Provider: "email"}, signIn.User)
	require.Equal(t, "1893456000", signIn.Expiry)
	require.Empty(t, rec.Header().Get("access-token"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+signIn.AccessToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{"id":1}`, rec.Body.String())

	// /readyz consulta al provider
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get("X-Service-Version"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), `tokenbridge_credential_encodes_total{outcome="encoded"} 1`)
	require.Contains(t, rec.Body.String(), `tokenbridge_bearer_decodes_total{outcome="decoded",stage=""} 1`)
}

func TestBuildHandler_ReadyzUnavailable(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer provider.Close()

	h, err := BuildHandler(testConfig(t, provider.URL), Options{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBuildHandler_MetricsDisabled(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer provider.Close()

	t.Setenv("METRICS_ENABLED", "false")
	h, err := BuildHandler(testConfig(t, provider.URL), Options{})
	require.NoError(t, err)

	// sin ruta propia, /metrics va al provider
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestBuildHandler_RejectsBadIssuingRoute(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Bridge.IssuingRoutes = []string{"FETCH /x"}

	_, err := BuildHandler(cfg, Options{})
	require.Error(t, err)
}

func TestBuildHandler_MalformedBearerStillReachesProvider(t *testing.T) {
	var sawCreds atomic.Bool
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, name := range token.CredentialHeaders {
			if r.Header.Get(name) != "" {
				sawCreds.Store(true)
			}
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer provider.Close()

	h, err := BuildHandler(testConfig(t, provider.URL), Options{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer %%%")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, sawCreds.Load())
}
