package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

const (
	// OrganizationIDKey is the context key for the token's sub claim,
	// the authenticated organization (spec.md §6 "sub: organizationId").
	OrganizationIDKey contextKey = "organization_id"
	// ScopesKey is the context key for the token's granted permissions.
	ScopesKey contextKey = "scopes"
)

// Permission is one of the scope strings a token may carry (spec.md
// §6): "ledger:transaction:{read,write,delete}",
// "ledger:account:{read,write,delete}",
// "ledger:account:settlement:{read,write,delete}".
type Permission string

// Claims are the bearer-token claims this service expects. Tokens are
// issued by an external identity provider; this service only verifies
// signatures and reads claims (token issuance is explicitly out of
// scope per the governing specification's Non-goals).
type Claims struct {
	Scope []string `json:"scope"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens signed with a shared HMAC secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

var ErrMissingOrganization = errors.New("token is missing a subject (organizationId)")

// Verify parses and validates tokenString, returning its claims. The
// signing method is pinned to HMAC to prevent algorithm-confusion
// attacks against a verifier that only ever expects HS256/HS384/HS512.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, ErrMissingOrganization
	}
	return claims, nil
}

// HasScope reports whether c's scope list grants permission p.
func (c *Claims) HasScope(p Permission) bool {
	for _, s := range c.Scope {
		if s == string(p) {
			return true
		}
	}
	return false
}

// OrganizationIDFromContext extracts the authenticated organization ID
// placed by the auth middleware.
func OrganizationIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(OrganizationIDKey).(string)
	return v, ok
}

// ScopesFromContext extracts the granted scope list placed by the auth
// middleware.
func ScopesFromContext(ctx context.Context) ([]string, bool) {
	v, ok := ctx.Value(ScopesKey).([]string)
	return v, ok
}

func WithOrganizationID(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, OrganizationIDKey, organizationID)
}

func WithScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, ScopesKey, scopes)
}
