package types

import "time"

// LoanEventType identifies what happened to a loan.
type LoanEventType string

// Supported loan event types.
const (
	LoanCheckedOut LoanEventType = "loan.checked_out"
	LoanReturned   LoanEventType = "loan.returned"
	LoanDeleted    LoanEventType = "loan.deleted"
)

// LoanEvent is published to the message broker after a loan changes.
type LoanEvent struct {
	// Type is the kind of change.
	Type LoanEventType `json:"type"`

	// LoanID identifies the loan that changed.
	LoanID string `json:"loanId"`

	// UserID identifies the borrower.
	UserID string `json:"userId"`

	// BookID identifies the borrowed book.
	BookID string `json:"bookId"`

	// OccurredAt is when the change was committed.
	OccurredAt time.Time `json:"occurredAt"`

	// Actor is the identity subject that triggered the change, if any.
	Actor string `json:"actor,omitempty"`
}
