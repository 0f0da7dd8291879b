package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/librarian/apiserver/types"
)

// ProviderGoogle names identities verified from Google Sign-In ID tokens.
const ProviderGoogle = "google"

type googleTokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// GoogleGateway verifies Google Sign-In ID tokens issued for one OAuth
// client. It backs google-login when accounts hold self-issued tokens.
type GoogleGateway struct {
	validator googleTokenValidator
	clientID  string
}

func NewGoogleGateway(ctx context.Context, clientID string, opts ...option.ClientOption) (*GoogleGateway, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, errors.New("google client id is empty")
	}
	validator, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init google token validator: %w", err)
	}
	return &GoogleGateway{validator: validator, clientID: clientID}, nil
}

func newGoogleGatewayWithValidator(validator googleTokenValidator, clientID string) *GoogleGateway {
	return &GoogleGateway{validator: validator, clientID: clientID}
}

func (g *GoogleGateway) Provider() string { return ProviderGoogle }

func (g *GoogleGateway) Authenticate(ctx context.Context, credential string) (types.Identity, error) {
	payload, err := g.validator.Validate(ctx, credential, g.clientID)
	if err != nil {
		return types.Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if payload == nil || payload.Subject == "" {
		return types.Identity{}, ErrInvalidCredential
	}

	identity := types.Identity{Subject: payload.Subject, Provider: ProviderGoogle}
	if email, ok := payload.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		identity.Name = name
	}
	return identity, nil
}
