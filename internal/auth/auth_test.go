package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/librarian/apiserver/config"
	"github.com/librarian/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func TestJWTGateway(t *testing.T) {
	ctx := context.Background()
	gateway, err := NewJWTGateway("secret", time.Hour)
	require.NoError(t, err)

	token, err := gateway.IssueToken("account-1")
	require.NoError(t, err)

	identity, err := gateway.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "account-1", identity.Subject)
	assert.Equal(t, ProviderLocal, identity.Provider)

	t.Run("expired", func(t *testing.T) {
		expired := *gateway
		expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := expired.Authenticate(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWTGateway("another-secret", time.Hour)
		require.NoError(t, err)
		_, err = other.Authenticate(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := gateway.Authenticate(ctx, "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("empty subject", func(t *testing.T) {
		token, err := gateway.IssueToken("")
		require.NoError(t, err)
		_, err = gateway.Authenticate(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})
}

func TestNewJWTGateway(t *testing.T) {
	_, err := NewJWTGateway(" ", time.Hour)
	assert.Error(t, err)

	gateway, err := NewJWTGateway("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultTokenTTL, gateway.ttl)
}

type stubVerifier struct {
	token *fbauth.Token
	err   error
}

func (s stubVerifier) VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error) {
	return s.token, s.err
}

func TestFirebaseGateway(t *testing.T) {
	ctx := context.Background()

	gateway := newFirebaseGatewayWithVerifier(stubVerifier{token: &fbauth.Token{
		UID:    "uid-1",
		Claims: map[string]interface{}{"email": "carla@example.com", "name": "Carla"},
	}})
	identity, err := gateway.Authenticate(ctx, "id-token")
	require.NoError(t, err)
	assert.Equal(t, types.Identity{
		Subject:  "uid-1",
		Email:    "carla@example.com",
		Name:     "Carla",
		Provider: ProviderFirebase,
	}, identity)

	rejected := newFirebaseGatewayWithVerifier(stubVerifier{err: errors.New("token expired")})
	_, err = rejected.Authenticate(ctx, "id-token")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	anonymous := newFirebaseGatewayWithVerifier(stubVerifier{token: &fbauth.Token{}})
	_, err = anonymous.Authenticate(ctx, "id-token")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

type stubGoogleValidator struct {
	audience string
	payloads map[string]*idtoken.Payload
}

func (s stubGoogleValidator) Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error) {
	if audience != s.audience {
		return nil, errors.New("audience mismatch")
	}
	payload, ok := s.payloads[idToken]
	if !ok {
		return nil, errors.New("bad signature")
	}
	return payload, nil
}

func TestGoogleGateway(t *testing.T) {
	ctx := context.Background()
	validator := stubGoogleValidator{audience: "client-1", payloads: map[string]*idtoken.Payload{
		"good": {Subject: "g-1", Claims: map[string]interface{}{"email": "g@example.com", "name": "Gina"}},
		"anon": {},
	}}
	gateway := newGoogleGatewayWithValidator(validator, "client-1")
	assert.Equal(t, ProviderGoogle, gateway.Provider())

	identity, err := gateway.Authenticate(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, types.Identity{Subject: "g-1", Email: "g@example.com", Name: "Gina", Provider: ProviderGoogle}, identity)

	_, err = gateway.Authenticate(ctx, "forged")
	assert.ErrorIs(t, err, ErrInvalidCredential)
	_, err = gateway.Authenticate(ctx, "anon")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	other := newGoogleGatewayWithValidator(validator, "client-2")
	_, err = other.Authenticate(ctx, "good")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = NewGoogleGateway(ctx, " ")
	assert.Error(t, err)
}

func TestNewGateway(t *testing.T) {
	gateway, err := NewGateway(context.Background(), config.AuthConfig{Provider: ProviderLocal, JWTSecret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, gateway.Provider())
	_, ok := gateway.(TokenIssuer)
	assert.True(t, ok)

	_, err = NewGateway(context.Background(), config.AuthConfig{Provider: "ldap"})
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		err    error
	}{
		"missing":      {header: "", err: ErrMissingCredential},
		"bearer":       {header: "Bearer abc", token: "abc"},
		"lowercase":    {header: "bearer abc", token: "abc"},
		"basic scheme": {header: "Basic abc", err: ErrInvalidCredential},
		"no token":     {header: "Bearer ", err: ErrInvalidCredential},
		"no scheme":    {header: "abc", err: ErrInvalidCredential},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			token, err := BearerToken(r)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), types.Identity{Subject: "s", Provider: ProviderLocal})
	identity, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "s", identity.Subject)

	_, ok = IdentityFromContext(WithIdentity(context.Background(), types.Identity{}))
	assert.False(t, ok)
}
