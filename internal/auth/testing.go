package auth

import (
	"context"
	"crypto/rsa"
)

// ContextWithPrincipal adds a principal to the context for testing purposes
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// NewTestJWKS returns a key set holding a single key under kid.
func NewTestJWKS(kid string, key *rsa.PublicKey) *JWKS {
	return NewStaticJWKS(map[string]*rsa.PublicKey{kid: key})
}
