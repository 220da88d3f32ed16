package bridge

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tokenbridge/internal/security/token"
)

func TestDecodeRequest_ValidBearerSetsHeaders(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderAuthorization, "Bearer "+token.MustEncode(token.CredentialSet{AccessToken: "AT1", Client: "C1", UID: "U1"}))

	patch, err := DecodeRequest(h)
	require.NoError(t, err)
	require.False(t, patch.Empty())

	patch.Apply(h)
	require.Equal(t, "AT1", h.Get("access-token"))
	require.Equal(t, "C1", h.Get("client"))
	require.Equal(t, "U1", h.Get("uid"))
	// Authorization queda intacto
	require.Contains(t, h.Get(HeaderAuthorization), "Bearer ")
}

func TestDecodeRequest_NoAuthorizationIsNoop(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-Request-ID", "abc")
	before := h.Clone()

	patch, err := DecodeRequest(h)
	require.NoError(t, err)
	require.True(t, patch.Empty())

	patch.Apply(h)
	require.Equal(t, before, h)
}

func TestDecodeRequest_InvalidBase64LeavesRequestClean(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderAuthorization, "Bearer not-valid-base64")

	patch, err := DecodeRequest(h)
	require.Error(t, err)
	require.True(t, errors.Is(err, token.ErrMalformedToken))
	require.True(t, patch.Empty())

	patch.Apply(h)
	for _, name := range token.CredentialHeaders {
		require.Empty(t, h.Values(name), "header %s must not be set", name)
	}
}

func TestDecodeRequest_MissingBearerPrefix(t *testing.T) {
	valid := token.MustEncode(token.CredentialSet{AccessToken: "a", Client: "c", UID: "u"})
	cases := []string{
		"",
		valid,
		"bearer " + valid, // el prefijo es case-sensitive
		"Basic dXNlcjpwYXNz",
		"Bearer",
	}
	for _, v := range cases {
		h := http.Header{}
		h.Set(HeaderAuthorization, v)

		patch, err := DecodeRequest(h)
		require.Error(t, err, "value %q", v)
		require.True(t, errors.Is(err, token.ErrMalformedToken))
		require.Equal(t, token.StageBearer, token.StageOf(err))
		require.True(t, patch.Empty())
	}
}

func TestDecodeRequest_UsesFirstBearerOccurrence(t *testing.T) {
	valid := token.MustEncode(token.CredentialSet{AccessToken: "a", Client: "c", UID: "u"})

	h := http.Header{}
	h.Set(HeaderAuthorization, "Token Bearer "+valid)
	patch, err := DecodeRequest(h)
	require.NoError(t, err)
	creds, ok := patch.Credentials()
	require.True(t, ok)
	require.Equal(t, "u", creds.UID)

	h.Set(HeaderAuthorization, "Bearer Bearer "+valid)
	_, err = DecodeRequest(h)
	require.ErrorIs(t, err, token.ErrMalformedToken)
}

func TestDecodeRequest_EmptyTokenAfterPrefix(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderAuthorization, "Bearer ")

	_, err := DecodeRequest(h)
	require.ErrorIs(t, err, token.ErrMalformedToken)
}

func TestHeaderPatch_OverwritesExistingValues(t *testing.T) {
	h := http.Header{}
	h.Add("access-token", "stale-1")
	h.Add("access-token", "stale-2")
	h.Set("client", "stale")
	h.Set(HeaderAuthorization, "Bearer "+token.MustEncode(token.CredentialSet{AccessToken: "AT", Client: "CL", UID: "UI"}))

	patch, err := DecodeRequest(h)
	require.NoError(t, err)
	patch.Apply(h)

	require.Equal(t, []string{"AT"}, h.Values("access-token"))
	require.Equal(t, []string{"CL"}, h.Values("client"))
	require.Equal(t, []string{"UI"}, h.Values("uid"))
}

func TestHeaderPatch_FieldIsolation(t *testing.T) {
	creds := token.CredentialSet{AccessToken: "value-A", Client: "value-C", UID: "value-U"}
	h := http.Header{}
	h.Set(HeaderAuthorization, "Bearer "+token.MustEncode(creds))

	patch, err := DecodeRequest(h)
	require.NoError(t, err)
	patch.Apply(h)

	require.NotEqual(t, creds.UID, h.Get("client"))
	require.NotEqual(t, creds.Client, h.Get("uid"))
	require.NotEqual(t, creds.AccessToken, h.Get("uid"))
	require.Equal(t, creds.AccessToken, h.Get("access-token"))
}

func TestStripCredentials(t *testing.T) {
	h := http.Header{}
	h.Set("access-token", "a")
	h.Set("client", "c")
	h.Set("uid", "u")
	h.Set("Accept", "application/json")

	StripCredentials(h)

	require.Empty(t, h.Get("access-token"))
	require.Empty(t, h.Get("client"))
	require.Empty(t, h.Get("uid"))
	require.Equal(t, "application/json", h.Get("Accept"))
}
