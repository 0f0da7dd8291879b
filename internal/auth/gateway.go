package auth

import (
	"context"
	"fmt"

	"github.com/librarian/apiserver/config"
)

// NewGateway builds the gateway selected by cfg.Provider.
func NewGateway(ctx context.Context, cfg config.AuthConfig) (Gateway, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewJWTGateway(cfg.JWTSecret, cfg.TokenTTL)
	case ProviderFirebase:
		return NewFirebaseGateway(ctx, cfg.Firebase)
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Provider)
	}
}
