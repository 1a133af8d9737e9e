// Package identity verifies identity-provider tokens and issues the portal's
// own session tokens.
package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Shivanand-hulikatti/eventportal/internal/config"
	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

// idTokenClaims is the subset of OIDC claims the portal reads.
type idTokenClaims struct {
	jwt.RegisteredClaims
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// Verifier checks ID tokens minted by the identity provider.
type Verifier struct {
	issuer   string
	audience string
	method   string
	key      any
	Now      func() time.Time
}

// NewVerifier builds a Verifier from auth configuration. Issuer and audience
// are mandatory. RS256 needs a PEM public key; HS256 needs a shared secret.
func NewVerifier(cfg config.Auth) (*Verifier, error) {
	v := &Verifier{
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		method:   cfg.Algorithm,
		Now:      time.Now,
	}
	if v.issuer == "" {
		return nil, errors.New("identity: issuer is required")
	}
	if v.audience == "" {
		return nil, errors.New("identity: audience is required")
	}
	switch cfg.Algorithm {
	case jwt.SigningMethodRS256.Alg():
		key, err := parseRSAPublicKey(cfg.PublicKeyPEM)
		if err != nil {
			return nil, err
		}
		v.key = key
	case jwt.SigningMethodHS256.Alg():
		if cfg.SharedSecret == "" {
			return nil, errors.New("identity: shared secret is required for HS256")
		}
		v.key = []byte(cfg.SharedSecret)
	default:
		return nil, fmt.Errorf("identity: unsupported algorithm %q", cfg.Algorithm)
	}
	return v, nil
}

func parseRSAPublicKey(pem string) (*rsa.PublicKey, error) {
	pem = strings.TrimSpace(strings.ReplaceAll(pem, `\n`, "\n"))
	if pem == "" {
		return nil, errors.New("identity: public key is required for RS256")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("identity: parse public key: %w", err)
	}
	return key, nil
}

// Verify validates the token signature, expiry, issuer and audience and maps
// its claims onto an Identity. Any failure wraps model.ErrUnauthenticated.
func (v *Verifier) Verify(_ context.Context, idToken string) (model.Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return model.Identity{}, fmt.Errorf("%w: id token is required", model.ErrUnauthenticated)
	}

	var claims idTokenClaims
	_, err := jwt.ParseWithClaims(idToken, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	},
		jwt.WithValidMethods([]string{v.method}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.Now),
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %s", model.ErrUnauthenticated, describeJWTError(err))
	}

	if claims.Issuer != v.issuer {
		return model.Identity{}, fmt.Errorf("%w: issuer mismatch", model.ErrUnauthenticated)
	}
	if !slices.Contains(claims.Audience, v.audience) {
		return model.Identity{}, fmt.Errorf("%w: audience mismatch", model.ErrUnauthenticated)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return model.Identity{}, fmt.Errorf("%w: sub is required", model.ErrUnauthenticated)
	}

	return model.Identity{
		ID:     claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Avatar: claims.Picture,
	}, nil
}

func describeJWTError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token is expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature is invalid"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "alg is invalid"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "exp is required"
	}
	return "token is invalid"
}
