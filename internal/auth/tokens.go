package auth

import (
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"time"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 15 * 24 * time.Hour

	RoleAdmin = "ADMIN"
)

var (
	ErrMissingToken = apperr.Unauthorized("authentication required")
	ErrInvalidToken = apperr.Unauthorized("token is invalid or expired")
)

// Profile is the user snapshot carried inside an access token.
type Profile struct {
	ID     uuid.UUID  `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Avatar string     `json:"avatar"`
	Role   string     `json:"role"`
	CartID *uuid.UUID `json:"cart_id,omitempty"`
}

func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

type accessClaims struct {
	User Profile `json:"user"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 access/refresh tokens with separate secrets.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

func NewTokens(accessSecret, refreshSecret string) *Tokens {
	return &Tokens{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}
}

func (t *Tokens) IssueAccess(p Profile) (string, error) {
	now := t.now()
	claims := accessClaims{
		User: p,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
}

// IssueRefresh gives every token a fresh jti so two tokens minted in the
// same second still differ.
func (t *Tokens) IssueRefresh(userID uuid.UUID) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
}

func (t *Tokens) ParseAccess(raw string) (*Profile, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}
	var c accessClaims
	if _, err := jwt.ParseWithClaims(raw, &c, keyFunc(t.accessSecret), t.options()...); err != nil {
		return nil, ErrInvalidToken
	}
	return &c.User, nil
}

func (t *Tokens) ParseRefresh(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, ErrMissingToken
	}
	var c jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(raw, &c, keyFunc(t.refreshSecret), t.options()...); err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

func (t *Tokens) options() []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
}

func keyFunc(secret []byte) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) { return secret, nil }
}
