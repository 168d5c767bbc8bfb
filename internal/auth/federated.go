package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/models"
)

// Identity is what an external identity broker asserts about a user.
type Identity struct {
	Email    string
	Name     string
	Provider string
	Picture  string
}

type assertionClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Picture  string `json:"picture"`
	jwt.RegisteredClaims
}

// AssertionVerifier checks HS256 assertions minted by the identity broker that
// fronts the OAuth providers.
type AssertionVerifier struct {
	secret []byte
	maxAge time.Duration
}

func NewAssertionVerifier(secret string) *AssertionVerifier {
	return &AssertionVerifier{secret: []byte(secret), maxAge: 5 * time.Minute}
}

var ErrAssertionDisabled = errors.New("federated login is not configured")

func (v *AssertionVerifier) Verify(raw string) (Identity, error) {
	if len(v.secret) == 0 {
		return Identity{}, ErrAssertionDisabled
	}
	parsed, err := jwt.ParseWithClaims(raw, &assertionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuedAt(), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("parse assertion: %w", err)
	}
	claims, ok := parsed.Claims.(*assertionClaims)
	if !ok || !parsed.Valid {
		return Identity{}, errors.New("invalid assertion")
	}
	if claims.IssuedAt != nil && time.Since(claims.IssuedAt.Time) > v.maxAge {
		return Identity{}, errors.New("assertion too old")
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return Identity{}, errors.New("assertion has no email")
	}
	provider := strings.TrimSpace(claims.Provider)
	if provider == "" {
		provider = models.ProviderGoogle
	}
	return Identity{
		Email:    email,
		Name:     strings.TrimSpace(claims.Name),
		Provider: provider,
		Picture:  claims.Picture,
	}, nil
}
