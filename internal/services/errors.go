package services

import (
	"errors"
	"fmt"

	"github.com/librarian/apiserver/internal/store"
)

// ErrUnauthenticated is wrapped by AuthenticationError.
var ErrUnauthenticated = errors.New("unauthenticated")

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports that a referenced record does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Kind)
}

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }

// ConflictError reports a write rejected by a uniqueness or state rule.
type ConflictError struct {
	Field   string
	Value   string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return store.ErrConflict }

// AuthenticationError reports missing or rejected credentials.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

func (e *AuthenticationError) Unwrap() error { return ErrUnauthenticated }

func notFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// wrapNotFound converts store.ErrNotFound into a NotFoundError for kind.
func wrapNotFound(err error, kind, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(kind, id)
	}
	return err
}
