package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/librarian/apiserver/types"
)

const defaultTokenTTL = 24 * time.Hour

// JWTGateway issues and verifies HS256 tokens whose subject is an account
// id.
type JWTGateway struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTGateway(secret string, ttl time.Duration) (*JWTGateway, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTGateway{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (g *JWTGateway) Provider() string { return ProviderLocal }

// IssueToken signs a token for subject valid for the configured TTL.
func (g *JWTGateway) IssueToken(subject string) (string, error) {
	now := g.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}

func (g *JWTGateway) Authenticate(ctx context.Context, credential string) (types.Identity, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(credential, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil {
		return types.Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid {
		return types.Identity{}, ErrInvalidCredential
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return types.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidCredential)
	}
	return types.Identity{Subject: claims.Subject, Provider: ProviderLocal}, nil
}
