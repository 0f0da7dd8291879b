package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/librarian/apiserver/config"
	"github.com/librarian/apiserver/types"
	"google.golang.org/api/option"
)

// idTokenVerifier is the subset of the Firebase auth client we use.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseGateway verifies Firebase ID tokens. The identity subject is the
// Firebase uid.
type FirebaseGateway struct {
	verifier idTokenVerifier
}

func NewFirebaseGateway(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseGateway, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseGateway{verifier: client}, nil
}

func newFirebaseGatewayWithVerifier(verifier idTokenVerifier) *FirebaseGateway {
	return &FirebaseGateway{verifier: verifier}
}

func (g *FirebaseGateway) Provider() string { return ProviderFirebase }

func (g *FirebaseGateway) Authenticate(ctx context.Context, credential string) (types.Identity, error) {
	token, err := g.verifier.VerifyIDToken(ctx, credential)
	if err != nil {
		return types.Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if token == nil || token.UID == "" {
		return types.Identity{}, ErrInvalidCredential
	}

	identity := types.Identity{Subject: token.UID, Provider: ProviderFirebase}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		identity.Name = name
	}
	return identity, nil
}
