package types

import "time"

// Loan records that a book was checked out by a user.
// A loan with a nil ReturnedAt is open: the book is still out.
type Loan struct {
	// ID is the opaque unique identifier of the loan.
	ID string `json:"id" db:"id"`

	// UserID references the borrowing User.
	UserID string `json:"userId" db:"user_id"`

	// BookID references the borrowed Book.
	BookID string `json:"bookId" db:"book_id"`

	// CheckedOutAt is set when the loan is created and never changes.
	CheckedOutAt time.Time `json:"dataPrestito" db:"checked_out_at"`

	// ReturnedAt is nil while the loan is open. Once set it is never
	// cleared and is never earlier than CheckedOutAt.
	ReturnedAt *time.Time `json:"dataRestituzione" db:"returned_at"`

	// CreatedAt is the timestamp when the loan record was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent change to the loan.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsOpen reports whether the book is still out on this loan.
func (l Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}

// LoanDetail is a Loan with its user and book resolved, as returned by
// the loan endpoints.
type LoanDetail struct {
	Loan

	// User is the borrowing user, when it could be resolved.
	User *User `json:"user,omitempty"`

	// Book is the borrowed book, when it could be resolved.
	Book *Book `json:"book,omitempty"`
}
