package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/librarian/apiserver/internal/auth"
	"github.com/librarian/apiserver/internal/store"
	"github.com/librarian/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// AccountRepository defines persistence operations for login accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (types.Account, error)
	GetByUsername(ctx context.Context, username string) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	GetByGoogleID(ctx context.Context, googleID string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
}

// RegisterInput is the payload of a local registration.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the payload of a local login.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// GoogleLoginInput is the payload of a Google login. The Google account is
// taken from the verified IDToken only.
type GoogleLoginInput struct {
	IDToken  string `json:"idToken"`
	Username string `json:"username"`
}

// AuthResult is returned by the login operations.
type AuthResult struct {
	Token   string        `json:"token"`
	Account types.Account `json:"user"`
}

// AccountService manages login accounts. With a TokenIssuer it runs the
// local flow; otherwise the gateway's own ID tokens are passed through.
// Google logins always go through verifier.
type AccountService struct {
	repo     AccountRepository
	tokens   auth.TokenIssuer
	verifier auth.Gateway
}

// AccountServiceOption customizes an AccountService.
type AccountServiceOption func(*AccountService)

// WithGoogleVerifier enables google-login for the local flow. verifier
// checks Google ID tokens; nil leaves google-login disabled.
func WithGoogleVerifier(verifier auth.Gateway) AccountServiceOption {
	return func(s *AccountService) {
		if verifier != nil && s.tokens != nil {
			s.verifier = verifier
		}
	}
}

// NewAccountService picks the flow from gateway: gateways that issue
// their own tokens get the local flow.
func NewAccountService(repo AccountRepository, gateway auth.Gateway, opts ...AccountServiceOption) *AccountService {
	s := &AccountService{repo: repo}
	if issuer, ok := gateway.(auth.TokenIssuer); ok {
		s.tokens = issuer
	} else {
		s.verifier = gateway
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a local account and returns a signed token.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	if s.tokens == nil {
		return AuthResult{}, &ValidationError{Message: "local registration is not enabled"}
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return AuthResult{}, err
	}

	if err := s.ensureFree(ctx, in.Username, in.Email); err != nil {
		return AuthResult{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.repo.Create(ctx, types.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		return AuthResult{}, accountConflict(err)
	}
	return s.result(account, "")
}

// Login verifies a username and password.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	if s.tokens == nil {
		return AuthResult{}, &ValidationError{Message: "local login is not enabled"}
	}

	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(in); err != nil {
		return AuthResult{}, err
	}

	account, err := s.repo.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthResult{}, &AuthenticationError{Message: "invalid credentials"}
		}
		return AuthResult{}, err
	}
	if account.PasswordHash == "" {
		return AuthResult{}, &AuthenticationError{Message: "invalid credentials"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(in.Password)); err != nil {
		return AuthResult{}, &AuthenticationError{Message: "invalid credentials"}
	}
	return s.result(account, "")
}

// GoogleLogin verifies a Google ID token and returns the account linked to
// its subject, creating it on first use.
func (s *AccountService) GoogleLogin(ctx context.Context, in GoogleLoginInput) (AuthResult, error) {
	if s.verifier == nil {
		return AuthResult{}, &AuthenticationError{Message: "google login is not enabled"}
	}
	if strings.TrimSpace(in.IDToken) == "" {
		return AuthResult{}, &AuthenticationError{Message: "idToken is required"}
	}

	identity, err := s.verifier.Authenticate(ctx, in.IDToken)
	if err != nil {
		return AuthResult{}, &AuthenticationError{Message: "invalid token"}
	}

	account, err := s.repo.GetByGoogleID(ctx, identity.Subject)
	switch {
	case err == nil:
		return s.result(account, in.IDToken)
	case !errors.Is(err, store.ErrNotFound):
		return AuthResult{}, err
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = "google_" + uuid.NewString()[:8]
	}
	account, err = s.repo.Create(ctx, types.Account{
		Username: username,
		Email:    strings.ToLower(strings.TrimSpace(identity.Email)),
		GoogleID: identity.Subject,
	})
	if err != nil {
		return AuthResult{}, accountConflict(err)
	}
	return s.result(account, in.IDToken)
}

// Me returns the account behind identity.
func (s *AccountService) Me(ctx context.Context, identity types.Identity) (types.Account, error) {
	var (
		account types.Account
		err     error
	)
	if identity.Provider == auth.ProviderFirebase {
		account, err = s.repo.GetByGoogleID(ctx, identity.Subject)
	} else {
		account, err = s.repo.GetByID(ctx, identity.Subject)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, &AuthenticationError{Message: "account not found"}
		}
		return types.Account{}, err
	}
	return account, nil
}

func (s *AccountService) ensureFree(ctx context.Context, username, email string) error {
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return &ConflictError{Field: "username", Value: username, Message: "username or email already exists"}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return &ConflictError{Field: "email", Value: email, Message: "username or email already exists"}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// result signs a token for account, or passes idToken through when the
// credential was issued by an external provider.
func (s *AccountService) result(account types.Account, idToken string) (AuthResult, error) {
	if s.tokens == nil {
		return AuthResult{Token: idToken, Account: account}, nil
	}
	token, err := s.tokens.IssueToken(account.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{Token: token, Account: account}, nil
}

func accountConflict(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return &ConflictError{Field: "username", Message: "username or email already exists"}
	}
	return err
}
