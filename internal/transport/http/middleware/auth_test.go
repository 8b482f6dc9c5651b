package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtinfra "github.com/credential-api/internal/infrastructure/jwt"
	"github.com/credential-api/internal/infrastructure/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProvider(t *testing.T, expiry time.Duration) *jwtinfra.Provider {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	material := &keys.Material{Private: priv, Public: &priv.PublicKey}
	return jwtinfra.NewProvider(material, "credential-api", "credential-api-clients", expiry)
}

func protected(t *testing.T, provider *jwtinfra.Provider) http.Handler {
	t.Helper()
	return Auth(provider)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-Account-ID", claims.AccountID)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuth_ValidToken_InjectsClaims(t *testing.T) {
	provider := testProvider(t, 15*time.Minute)
	tok, err := provider.Sign("acc-1", "alice@example.com", "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()

	protected(t, provider).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-1", rec.Header().Get("X-Account-ID"))
}

func TestAuth_MissingHeader_Unauthorized(t *testing.T) {
	provider := testProvider(t, 15*time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	protected(t, provider).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_ExpiredToken_Unauthorized(t *testing.T) {
	provider := testProvider(t, -time.Minute)
	tok, err := provider.Sign("acc-1", "alice@example.com", "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()

	protected(t, provider).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_TokenFromOtherKeyPair_Unauthorized(t *testing.T) {
	signer := testProvider(t, 15*time.Minute)
	verifier := testProvider(t, 15*time.Minute)

	tok, err := signer.Sign("acc-1", "alice@example.com", "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()

	protected(t, verifier).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
