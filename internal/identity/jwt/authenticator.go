// Package jwt implements identity.Authenticator with HS256-signed access tokens.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/identity"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/golang-jwt/jwt/v5"
)

// Config configures token issuing.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims are the access token claims. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string      `json:"company_id"`
	Role      domain.Role `json:"role"`
}

// Authenticator issues and validates access tokens.
type Authenticator struct {
	cfg Config
	now func() time.Time
}

// NewAuthenticator creates a new JWT authenticator.
func NewAuthenticator(cfg Config) (*Authenticator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Authenticator{cfg: cfg, now: time.Now}, nil
}

// IssueToken signs an access token for the user.
func (a *Authenticator) IssueToken(user *domain.User) (*identity.AccessToken, error) {
	now := a.now()
	expiresAt := now.Add(a.cfg.TTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		CompanyID: user.CompanyID,
		Role:      user.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &identity.AccessToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// ValidateToken parses a token and returns the principal it carries.
func (a *Authenticator) ValidateToken(_ context.Context, token string) (*httputil.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(a.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.CompanyID == "" || !claims.Role.HasPermission(domain.RoleMember) {
		return nil, identity.ErrInvalidToken
	}

	return &httputil.Principal{
		UserID:    claims.Subject,
		CompanyID: claims.CompanyID,
		Role:      claims.Role,
	}, nil
}
