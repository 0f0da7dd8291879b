package services

import (
	"context"
	"strings"

	"github.com/librarian/apiserver/types"
)

// UserRepository defines persistence operations for library users.
type UserRepository interface {
	List(ctx context.Context) ([]types.User, error)
	Get(ctx context.Context, id string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id string) error
}

// UserService encapsulates catalog use-cases for library users.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (types.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.User{}, wrapNotFound(err, "user", id)
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	user = normalizeUser(user)
	if err := validateStruct(user); err != nil {
		return types.User{}, err
	}
	return s.repo.Create(ctx, user)
}

func (s *UserService) Update(ctx context.Context, id string, patch types.UserPatch) (types.User, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	user := normalizeUser(patch.Apply(current))
	if err := validateStruct(user); err != nil {
		return types.User{}, err
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, wrapNotFound(err, "user", id)
	}
	return updated, nil
}

// Delete removes the user and every loan referencing it.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapNotFound(err, "user", id)
	}
	return nil
}

func normalizeUser(user types.User) types.User {
	user.FirstName = strings.TrimSpace(user.FirstName)
	user.LastName = strings.TrimSpace(user.LastName)
	user.FiscalCode = strings.ToUpper(strings.TrimSpace(user.FiscalCode))
	return user
}
