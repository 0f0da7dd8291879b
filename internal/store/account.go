package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/librarian/apiserver/types"
)

// AccountRepository handles persistence for login accounts.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, username, email, COALESCE(google_id, ''), password_hash, created_at, updated_at`

func (r *AccountRepository) getBy(ctx context.Context, column, value string) (types.Account, error) {
	if value == "" {
		return types.Account{}, ErrNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = $1`
	var account types.Account
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.GoogleID,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return types.Account{}, mapError(err)
	}
	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (types.Account, error) {
	return r.getBy(ctx, "id", id)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (types.Account, error) {
	return r.getBy(ctx, "username", username)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	return r.getBy(ctx, "email", email)
}

func (r *AccountRepository) GetByGoogleID(ctx context.Context, googleID string) (types.Account, error) {
	return r.getBy(ctx, "google_id", googleID)
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	now := time.Now().UTC()
	account.ID = uuid.NewString()
	account.CreatedAt = now
	account.UpdatedAt = now

	var googleID sql.NullString
	if account.GoogleID != "" {
		googleID = sql.NullString{String: account.GoogleID, Valid: true}
	}

	const query = `
		INSERT INTO accounts (id, username, email, google_id, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Username,
		account.Email,
		googleID,
		account.PasswordHash,
		account.CreatedAt,
		account.UpdatedAt,
	); err != nil {
		return types.Account{}, mapError(err)
	}
	return account, nil
}
