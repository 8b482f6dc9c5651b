package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/credential-api/internal/domain"
	"github.com/credential-api/internal/infrastructure/keys"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT payload fields.
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 access tokens. Verification is fully
// offline: it never consults storage, so any holder of the public key can
// validate tokens.
type Provider struct {
	material *keys.Material
	issuer   string
	audience string
	expiry   time.Duration
}

func NewProvider(material *keys.Material, issuer, audience string, expiry time.Duration) *Provider {
	return &Provider{material: material, issuer: issuer, audience: audience, expiry: expiry}
}

// Expiry returns the configured access-token lifetime.
func (p *Provider) Expiry() time.Duration { return p.expiry }

func (p *Provider) Sign(accountID, email, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		AccountID: accountID,
		Email:     email,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.material.Private)
}

// Verify checks signature, issuer, audience and expiry. Expired tokens map to
// domain.ErrTokenExpired; every other failure (malformed, wrong key, wrong
// issuer/audience) collapses to domain.ErrUnauthorized.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.material.Public, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("access token expired: %w", domain.ErrTokenExpired)
		}
		return nil, fmt.Errorf("access token rejected: %w", domain.ErrUnauthorized)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}
