package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/librarian/apiserver/types"
)

// LoanRepository handles persistence for loans. Open-loan uniqueness per
// book is enforced by the loans_open_book_idx partial unique index.
type LoanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanDetailColumns = `
		l.id, l.user_id, l.book_id, l.checked_out_at, l.returned_at, l.created_at, l.updated_at,
		u.id, u.first_name, u.last_name, u.gender, u.age, u.fiscal_code, u.created_at, u.updated_at,
		b.id, b.title, b.author, b.year, b.genre, b.isbn, b.created_at, b.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoanDetail(row rowScanner) (types.LoanDetail, error) {
	var (
		detail     types.LoanDetail
		user       types.User
		book       types.Book
		returnedAt sql.NullTime
	)
	if err := row.Scan(
		&detail.ID,
		&detail.UserID,
		&detail.BookID,
		&detail.CheckedOutAt,
		&returnedAt,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Gender,
		&user.Age,
		&user.FiscalCode,
		&user.CreatedAt,
		&user.UpdatedAt,
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Year,
		&book.Genre,
		&book.ISBN,
		&book.CreatedAt,
		&book.UpdatedAt,
	); err != nil {
		return types.LoanDetail{}, err
	}
	if returnedAt.Valid {
		t := returnedAt.Time
		detail.ReturnedAt = &t
	}
	detail.User = &user
	detail.Book = &book
	return detail, nil
}

// List returns every loan joined with its user and book, in insertion order.
func (r *LoanRepository) List(ctx context.Context) ([]types.LoanDetail, error) {
	query := `
		SELECT` + loanDetailColumns + `
		FROM loans l
		JOIN users u ON u.id = l.user_id
		JOIN books b ON b.id = l.book_id
		ORDER BY l.seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := make([]types.LoanDetail, 0)
	for rows.Next() {
		detail, err := scanLoanDetail(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *LoanRepository) Get(ctx context.Context, id string) (types.LoanDetail, error) {
	query := `
		SELECT` + loanDetailColumns + `
		FROM loans l
		JOIN users u ON u.id = l.user_id
		JOIN books b ON b.id = l.book_id
		WHERE l.id = $1`
	detail, err := scanLoanDetail(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return types.LoanDetail{}, mapError(err)
	}
	return detail, nil
}

// CreateOpen inserts an open loan. It returns ErrConflict when the book
// already has an open loan and ErrNotFound when the user or book is gone.
func (r *LoanRepository) CreateOpen(ctx context.Context, loan types.Loan) (types.Loan, error) {
	now := time.Now().UTC()
	loan.ID = uuid.NewString()
	loan.CheckedOutAt = now
	loan.ReturnedAt = nil
	loan.CreatedAt = now
	loan.UpdatedAt = now

	const query = `
		INSERT INTO loans (id, user_id, book_id, checked_out_at, returned_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULL, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		loan.ID,
		loan.UserID,
		loan.BookID,
		loan.CheckedOutAt,
		loan.CreatedAt,
		loan.UpdatedAt,
	); err != nil {
		return types.Loan{}, mapError(err)
	}
	return loan, nil
}

// MarkReturned closes an open loan. It returns ErrConflict when the loan
// was already returned; the stored timestamp is left untouched.
func (r *LoanRepository) MarkReturned(ctx context.Context, id string, at time.Time) (types.Loan, error) {
	const query = `
		UPDATE loans
		SET returned_at = GREATEST($1, checked_out_at),
			updated_at = $1
		WHERE id = $2 AND returned_at IS NULL
		RETURNING id, user_id, book_id, checked_out_at, returned_at, created_at, updated_at`
	var (
		loan       types.Loan
		returnedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, at, id).Scan(
		&loan.ID,
		&loan.UserID,
		&loan.BookID,
		&loan.CheckedOutAt,
		&returnedAt,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	)
	if err == nil {
		if returnedAt.Valid {
			t := returnedAt.Time
			loan.ReturnedAt = &t
		}
		return loan, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.Loan{}, mapError(err)
	}

	// Nothing updated: either the loan is unknown or already returned.
	const existsQuery = `SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, existsQuery, id).Scan(&exists); err != nil {
		return types.Loan{}, err
	}
	if exists {
		return types.Loan{}, ErrConflict
	}
	return types.Loan{}, ErrNotFound
}

func (r *LoanRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM loans WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	return rowsAffected(result)
}
