package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

const sessionIssuer = "eventportal"

type sessionClaims struct {
	jwt.RegisteredClaims
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Sessions issues and parses the signed session token stored in the portal
// cookie. Tokens are HS256 with a fixed lifetime.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	Now    func() time.Time
}

// NewSessions returns a session codec. secret must not be empty.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	if secret == "" {
		return nil, errors.New("identity: session secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("identity: session ttl must be positive")
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, Now: time.Now}, nil
}

// TTL is the lifetime of issued sessions.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs a session token for id. It returns the token and its expiry.
func (s *Sessions) Issue(id model.Identity) (string, time.Time, error) {
	now := s.Now().UTC()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    sessionIssuer,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Name:   id.Name,
		Email:  id.Email,
		Avatar: id.Avatar,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, exp, nil
}

// Parse validates a session token and returns the identity it carries.
func (s *Sessions) Parse(token string) (model.Identity, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.Now),
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %s", model.ErrUnauthenticated, describeJWTError(err))
	}
	if claims.Subject == "" {
		return model.Identity{}, fmt.Errorf("%w: session has no subject", model.ErrUnauthenticated)
	}
	return model.Identity{
		ID:     claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Avatar: claims.Avatar,
	}, nil
}
