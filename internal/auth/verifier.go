// Package auth verifies the admin bearer credential: an HS256 JWT or a
// static API key checked against its argon2id hash.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/isastore/backend/internal/common"
)

const (
	// APIKeyAdminID identifies requests authenticated with the static key.
	APIKeyAdminID = "api-key"

	defaultIssuer   = "isa-store"
	defaultAudience = "isa-store-admin"
)

// ErrNotConfigured is returned when neither a JWT secret nor an API key hash is set.
var ErrNotConfigured = errors.New("auth: no admin credential configured")

// Config configures a Verifier.
type Config struct {
	JWTSecret  string
	APIKeyHash string
	Issuer     string
	Audience   string
	TokenTTL   time.Duration
	ClockSkew  time.Duration
	Now        func() time.Time
}

// Verifier checks admin bearer credentials.
type Verifier struct {
	secret     []byte
	apiKeyHash string
	issuer     string
	audience   string
	ttl        time.Duration
	skew       time.Duration
	now        func() time.Time
}

// NewVerifier builds a Verifier from cfg.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.JWTSecret == "" && cfg.APIKeyHash == "" {
		return nil, ErrNotConfigured
	}
	if cfg.APIKeyHash != "" {
		if _, _, _, err := argon2id.DecodeHash(cfg.APIKeyHash); err != nil {
			return nil, fmt.Errorf("auth: invalid api key hash: %w", err)
		}
	}
	v := &Verifier{
		secret:     []byte(cfg.JWTSecret),
		apiKeyHash: cfg.APIKeyHash,
		issuer:     valueOr(cfg.Issuer, defaultIssuer),
		audience:   valueOr(cfg.Audience, defaultAudience),
		ttl:        cfg.TokenTTL,
		skew:       cfg.ClockSkew,
		now:        cfg.Now,
	}
	if v.ttl <= 0 {
		v.ttl = 24 * time.Hour
	}
	if v.skew <= 0 {
		v.skew = 30 * time.Second
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v, nil
}

func unauthorized(err error) error {
	return common.NewAppError("UNAUTHORIZED", "missing or invalid credential", http.StatusUnauthorized, err)
}

// Verify returns the admin id carried by credential.
func (v *Verifier) Verify(credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", unauthorized(errors.New("auth: credential missing"))
	}
	if strings.Count(credential, ".") == 2 && len(v.secret) > 0 {
		return v.verifyJWT(credential)
	}
	if v.apiKeyHash == "" {
		return "", unauthorized(errors.New("auth: api keys disabled"))
	}
	ok, err := argon2id.ComparePasswordAndHash(credential, v.apiKeyHash)
	if err != nil {
		return "", unauthorized(err)
	}
	if !ok {
		return "", unauthorized(errors.New("auth: api key mismatch"))
	}
	return APIKeyAdminID, nil
}

func (v *Verifier) verifyJWT(token string) (string, error) {
	alg, err := tokenAlgorithm(token)
	if err != nil {
		return "", unauthorized(err)
	}
	if alg != jwa.HS256 {
		return "", unauthorized(fmt.Errorf("auth: unexpected token algorithm %s", alg))
	}
	parsed, err := jwt.ParseString(token,
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(v.now)),
		jwt.WithAcceptableSkew(v.skew),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		return "", unauthorized(err)
	}
	if parsed.Subject() == "" {
		return "", unauthorized(errors.New("auth: token has no subject"))
	}
	return parsed.Subject(), nil
}

func tokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	msg, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return "", errors.New("auth: expected exactly one signature")
	}
	headers := sigs[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	if alg == "" || alg == jwa.NoSignature {
		return "", errors.New("auth: token has no usable algorithm")
	}
	return alg, nil
}

// Issue signs an admin token for adminID.
func (v *Verifier) Issue(adminID string) (string, time.Time, error) {
	if len(v.secret) == 0 {
		return "", time.Time{}, errors.New("auth: jwt secret not configured")
	}
	now := v.now()
	expires := now.Add(v.ttl)
	tok, err := jwt.NewBuilder().
		Subject(adminID).
		Issuer(v.issuer).
		Audience([]string{v.audience}).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expires).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, v.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expires, nil
}

// HashAPIKey returns the argon2id hash to put in ADMIN_API_KEY_HASH.
func HashAPIKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("auth: empty api key")
	}
	return argon2id.CreateHash(key, argon2id.DefaultParams)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
