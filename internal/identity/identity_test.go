package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventportal/internal/config"
	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

var fixedNow = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

func rsaFixture(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, string(block)
}

func idToken(t *testing.T, method jwt.SigningMethod, key any, mutate func(c *idTokenClaims)) string {
	t.Helper()
	c := idTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://idp.example.com",
			Audience:  jwt.ClaimStrings{"portal"},
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(fixedNow.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
		},
		Name:    "Alice",
		Email:   "alice@example.com",
		Picture: "https://cdn.example.com/alice.png",
	}
	if mutate != nil {
		mutate(&c)
	}
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifierRS256(t *testing.T) {
	priv, pub := rsaFixture(t)
	v, err := NewVerifier(config.Auth{
		Issuer:       "https://idp.example.com",
		Audience:     "portal",
		Algorithm:    "RS256",
		PublicKeyPEM: pub,
	})
	require.NoError(t, err)
	v.Now = func() time.Time { return fixedNow }

	id, err := v.Verify(t.Context(), idToken(t, jwt.SigningMethodRS256, priv, nil))
	require.NoError(t, err)
	assert.Equal(t, model.Identity{
		ID:     "user-123",
		Name:   "Alice",
		Email:  "alice@example.com",
		Avatar: "https://cdn.example.com/alice.png",
	}, id)

	other, _ := rsaFixture(t)
	_, err = v.Verify(t.Context(), idToken(t, jwt.SigningMethodRS256, other, nil))
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestVerifierRejections(t *testing.T) {
	secret := []byte("shared-secret")
	v, err := NewVerifier(config.Auth{
		Issuer:       "https://idp.example.com",
		Audience:     "portal",
		Algorithm:    "HS256",
		SharedSecret: string(secret),
	})
	require.NoError(t, err)
	v.Now = func() time.Time { return fixedNow }

	tests := []struct {
		name   string
		token  string
		reason string
	}{
		{"empty", "", "required"},
		{"garbage", "not-a-jwt", "invalid"},
		{"expired", idToken(t, jwt.SigningMethodHS256, secret, func(c *idTokenClaims) {
			c.ExpiresAt = jwt.NewNumericDate(fixedNow.Add(-time.Minute))
		}), "expired"},
		{"wrong issuer", idToken(t, jwt.SigningMethodHS256, secret, func(c *idTokenClaims) {
			c.Issuer = "https://evil.example.com"
		}), "issuer"},
		{"wrong audience", idToken(t, jwt.SigningMethodHS256, secret, func(c *idTokenClaims) {
			c.Audience = jwt.ClaimStrings{"someone-else"}
		}), "audience"},
		{"foreign client", idToken(t, jwt.SigningMethodHS256, secret, func(c *idTokenClaims) {
			c.Issuer = "https://evil.example"
			c.Audience = jwt.ClaimStrings{"some-other-app"}
		}), "mismatch"},
		{"no audience", idToken(t, jwt.SigningMethodHS256, secret, func(c *idTokenClaims) {
			c.Audience = nil
		}), "audience"},
		{"missing subject", idToken(t, jwt.SigningMethodHS256, secret, func(c *idTokenClaims) {
			c.Subject = ""
		}), "sub"},
		{"wrong secret", idToken(t, jwt.SigningMethodHS256, []byte("other"), nil), "signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(t.Context(), tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrUnauthenticated)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestNewVerifierConfigErrors(t *testing.T) {
	auth := func(alg, pem string) config.Auth {
		return config.Auth{Issuer: "https://idp.example.com", Audience: "portal", Algorithm: alg, PublicKeyPEM: pem}
	}
	_, err := NewVerifier(auth("RS256", ""))
	assert.ErrorContains(t, err, "public key is required")
	_, err = NewVerifier(auth("RS256", "garbage"))
	assert.ErrorContains(t, err, "parse public key")
	_, err = NewVerifier(auth("HS256", ""))
	assert.ErrorContains(t, err, "shared secret is required")
	_, err = NewVerifier(auth("none", ""))
	assert.ErrorContains(t, err, "unsupported algorithm")
}

func TestNewVerifierRequiresIssuerAndAudience(t *testing.T) {
	base := config.Auth{
		Issuer:       "https://idp.example.com",
		Audience:     "portal",
		Algorithm:    "HS256",
		SharedSecret: "shared-secret",
	}

	noIssuer := base
	noIssuer.Issuer = " "
	_, err := NewVerifier(noIssuer)
	assert.ErrorContains(t, err, "issuer is required")

	noAudience := base
	noAudience.Audience = ""
	_, err = NewVerifier(noAudience)
	assert.ErrorContains(t, err, "audience is required")

	_, err = NewVerifier(base)
	assert.NoError(t, err)
}

func TestSessionsRoundTrip(t *testing.T) {
	s, err := NewSessions("session-secret", time.Hour)
	require.NoError(t, err)
	s.Now = func() time.Time { return fixedNow }

	alice := model.Identity{ID: "alice", Name: "Alice", Email: "alice@example.com"}
	token, exp, err := s.Issue(alice)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(time.Hour), exp)

	got, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	s.Now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	_, err = s.Parse(token)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestSessionsRejectForeignTokens(t *testing.T) {
	s, err := NewSessions("session-secret", time.Hour)
	require.NoError(t, err)
	other, err := NewSessions("different", time.Hour)
	require.NoError(t, err)

	token, _, err := other.Issue(model.Identity{ID: "mallory"})
	require.NoError(t, err)
	_, err = s.Parse(token)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	_, err = NewSessions("", time.Hour)
	assert.Error(t, err)
}
