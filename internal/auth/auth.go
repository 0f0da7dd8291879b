// Package auth authenticates bearer credentials and carries the resulting
// identity through request contexts. One Gateway is active per process.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/librarian/apiserver/types"
)

// Provider names.
const (
	ProviderLocal    = "local"
	ProviderFirebase = "firebase"
)

var (
	// ErrMissingCredential is returned when no bearer token was sent.
	ErrMissingCredential = errors.New("missing authorization")
	// ErrInvalidCredential is returned when a token fails verification.
	ErrInvalidCredential = errors.New("invalid token")
)

// Gateway turns a bearer credential into an Identity.
type Gateway interface {
	Provider() string
	Authenticate(ctx context.Context, credential string) (types.Identity, error)
}

// TokenIssuer signs credentials for an account subject. Only gateways that
// own their tokens implement it.
type TokenIssuer interface {
	IssueToken(subject string) (string, error)
}

type contextKey string

const contextIdentityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (types.Identity, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(types.Identity)
	if !ok || identity.Subject == "" {
		return types.Identity{}, false
	}
	return identity, true
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrMissingCredential
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidCredential
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrInvalidCredential
	}
	return token, nil
}
