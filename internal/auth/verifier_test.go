package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/isastore/backend/internal/common"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestVerifier(t *testing.T, apiKeyHash string) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{
		JWTSecret:  "test-secret",
		APIKeyHash: apiKeyHash,
		TokenTTL:   time.Hour,
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return v
}

func TestIssueAndVerify(t *testing.T) {
	v := newTestVerifier(t, "")
	token, expires, err := v.Issue("admin-1")
	require.NoError(t, err)
	require.Equal(t, fixedNow.Add(time.Hour), expires)

	id, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "admin-1", id)
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	v := newTestVerifier(t, "")
	token, _, err := v.Issue("admin-1")
	require.NoError(t, err)

	later := newTestVerifier(t, "")
	later.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	_, err = later.Verify(token)
	require.Error(t, err)

	other, err := NewVerifier(Config{JWTSecret: "other-secret", Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	_, err = other.Verify(token)
	require.Error(t, err)

	wrongAud, err := jwt.NewBuilder().Subject("x").Issuer(defaultIssuer).Audience([]string{"shop"}).
		IssuedAt(fixedNow).Expiration(fixedNow.Add(time.Minute)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(wrongAud, jwt.WithKey(jwa.HS256, []byte("test-secret")))
	require.NoError(t, err)
	_, err = v.Verify(string(signed))
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	v := newTestVerifier(t, "")
	tok, err := jwt.NewBuilder().Subject("x").Issuer(defaultIssuer).Audience([]string{defaultAudience}).
		IssuedAt(fixedNow).Expiration(fixedNow.Add(time.Minute)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS512, []byte("test-secret")))
	require.NoError(t, err)
	_, err = v.Verify(string(signed))
	require.ErrorContains(t, err, "unexpected token algorithm")
}

func TestVerifyAPIKey(t *testing.T) {
	hash, err := argon2id.CreateHash("s3cret-key", &argon2id.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	v := newTestVerifier(t, hash)

	id, err := v.Verify("s3cret-key")
	require.NoError(t, err)
	require.Equal(t, APIKeyAdminID, id)

	_, err = v.Verify("wrong-key")
	require.Error(t, err)
	_, err = v.Verify("")
	require.Error(t, err)
}

func TestNewVerifierConfig(t *testing.T) {
	_, err := NewVerifier(Config{})
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewVerifier(Config{APIKeyHash: "plain"})
	require.Error(t, err)
}

func TestRequireAdmin(t *testing.T) {
	v := newTestVerifier(t, "")
	token, _, err := v.Issue("admin-7")
	require.NoError(t, err)

	var seen string
	h := Middleware{Verifier: v}.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.AdminID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "admin-7", seen)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}
