package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/librarian/apiserver/types"
)

// BookRepository handles persistence for books.
type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) List(ctx context.Context) ([]types.Book, error) {
	const query = `
		SELECT id, title, author, year, genre, isbn, created_at, updated_at
		FROM books
		ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]types.Book, 0)
	for rows.Next() {
		var book types.Book
		if err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Author,
			&book.Year,
			&book.Genre,
			&book.ISBN,
			&book.CreatedAt,
			&book.UpdatedAt,
		); err != nil {
			return nil, err
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *BookRepository) Get(ctx context.Context, id string) (types.Book, error) {
	const query = `
		SELECT id, title, author, year, genre, isbn, created_at, updated_at
		FROM books
		WHERE id = $1`
	var book types.Book
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Year,
		&book.Genre,
		&book.ISBN,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return types.Book{}, mapError(err)
	}
	return book, nil
}

func (r *BookRepository) Create(ctx context.Context, book types.Book) (types.Book, error) {
	now := time.Now().UTC()
	book.ID = uuid.NewString()
	book.CreatedAt = now
	book.UpdatedAt = now

	const query = `
		INSERT INTO books (id, title, author, year, genre, isbn, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		book.ID,
		book.Title,
		book.Author,
		book.Year,
		book.Genre,
		book.ISBN,
		book.CreatedAt,
		book.UpdatedAt,
	); err != nil {
		return types.Book{}, mapError(err)
	}
	return book, nil
}

func (r *BookRepository) Update(ctx context.Context, book types.Book) (types.Book, error) {
	book.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE books
		SET title = $1,
			author = $2,
			year = $3,
			genre = $4,
			isbn = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		book.Title,
		book.Author,
		book.Year,
		book.Genre,
		book.ISBN,
		book.UpdatedAt,
		book.ID,
	)
	if err != nil {
		return types.Book{}, mapError(err)
	}
	if err := rowsAffected(result); err != nil {
		return types.Book{}, err
	}
	return book, nil
}

// Delete removes the book. Loans referencing it are removed by the
// ON DELETE CASCADE foreign key.
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM books WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	return rowsAffected(result)
}
