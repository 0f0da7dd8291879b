package services

import (
	"context"
	"errors"
	"strings"

	"github.com/librarian/apiserver/internal/store"
	"github.com/librarian/apiserver/types"
)

// BookRepository defines persistence operations for books.
type BookRepository interface {
	List(ctx context.Context) ([]types.Book, error)
	Get(ctx context.Context, id string) (types.Book, error)
	Create(ctx context.Context, book types.Book) (types.Book, error)
	Update(ctx context.Context, book types.Book) (types.Book, error)
	Delete(ctx context.Context, id string) error
}

// BookService encapsulates catalog use-cases for books.
type BookService struct {
	repo BookRepository
}

func NewBookService(repo BookRepository) *BookService {
	return &BookService{repo: repo}
}

// List returns every book in insertion order.
func (s *BookService) List(ctx context.Context) ([]types.Book, error) {
	return s.repo.List(ctx)
}

func (s *BookService) Get(ctx context.Context, id string) (types.Book, error) {
	book, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Book{}, wrapNotFound(err, "book", id)
	}
	return book, nil
}

// Create validates and stores a new book. A duplicate ISBN yields a
// ConflictError.
func (s *BookService) Create(ctx context.Context, book types.Book) (types.Book, error) {
	book = normalizeBook(book)
	if err := validateStruct(book); err != nil {
		return types.Book{}, err
	}

	created, err := s.repo.Create(ctx, book)
	if err != nil {
		return types.Book{}, isbnConflict(err, book.ISBN)
	}
	return created, nil
}

// Update merges patch into the stored book and saves the result.
func (s *BookService) Update(ctx context.Context, id string, patch types.BookPatch) (types.Book, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return types.Book{}, err
	}

	book := normalizeBook(patch.Apply(current))
	if err := validateStruct(book); err != nil {
		return types.Book{}, err
	}

	updated, err := s.repo.Update(ctx, book)
	if err != nil {
		return types.Book{}, wrapNotFound(isbnConflict(err, book.ISBN), "book", id)
	}
	return updated, nil
}

// Delete removes the book and every loan referencing it.
func (s *BookService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapNotFound(err, "book", id)
	}
	return nil
}

func normalizeBook(book types.Book) types.Book {
	book.Title = strings.TrimSpace(book.Title)
	book.Author = strings.TrimSpace(book.Author)
	book.Genre = strings.TrimSpace(book.Genre)
	book.ISBN = strings.TrimSpace(book.ISBN)
	return book
}

func isbnConflict(err error, isbn string) error {
	if errors.Is(err, store.ErrConflict) {
		return &ConflictError{
			Field:   "isbn",
			Value:   isbn,
			Message: "a book with ISBN " + isbn + " already exists",
		}
	}
	return err
}
