package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/librarian/apiserver/internal/auth"
	"github.com/librarian/apiserver/internal/store"
	"github.com/librarian/apiserver/types"
	"go.uber.org/zap"
)

// LoanRepository defines persistence operations for loans.
type LoanRepository interface {
	List(ctx context.Context) ([]types.LoanDetail, error)
	Get(ctx context.Context, id string) (types.LoanDetail, error)
	CreateOpen(ctx context.Context, loan types.Loan) (types.Loan, error)
	MarkReturned(ctx context.Context, id string, at time.Time) (types.Loan, error)
	Delete(ctx context.Context, id string) error
}

// LoanEventPublisher receives loan changes after they are committed.
type LoanEventPublisher interface {
	PublishLoanEvent(ctx context.Context, event types.LoanEvent) error
}

// LoanService implements the loan ledger: checkout, return and
// administrative removal of loans.
type LoanService struct {
	loans  LoanRepository
	users  UserRepository
	books  BookRepository
	events LoanEventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// LoanServiceOption customizes a LoanService.
type LoanServiceOption func(*LoanService)

// WithLoanEvents publishes loan changes to publisher.
func WithLoanEvents(publisher LoanEventPublisher) LoanServiceOption {
	return func(s *LoanService) {
		if publisher != nil {
			s.events = publisher
		}
	}
}

// WithClock replaces the time source used for return timestamps.
func WithClock(now func() time.Time) LoanServiceOption {
	return func(s *LoanService) {
		s.now = now
	}
}

func NewLoanService(loans LoanRepository, users UserRepository, books BookRepository, logger *zap.Logger, opts ...LoanServiceOption) *LoanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &LoanService{
		loans:  loans,
		users:  users,
		books:  books,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every loan joined with its user and book.
func (s *LoanService) List(ctx context.Context) ([]types.LoanDetail, error) {
	return s.loans.List(ctx)
}

func (s *LoanService) Get(ctx context.Context, id string) (types.LoanDetail, error) {
	detail, err := s.loans.Get(ctx, id)
	if err != nil {
		return types.LoanDetail{}, wrapNotFound(err, "loan", id)
	}
	return detail, nil
}

// Checkout opens a loan of bookID to userID. Both must exist and the book
// must not already be out.
func (s *LoanService) Checkout(ctx context.Context, userID, bookID string) (types.LoanDetail, error) {
	userID = strings.TrimSpace(userID)
	bookID = strings.TrimSpace(bookID)
	if userID == "" {
		return types.LoanDetail{}, &ValidationError{Field: "userId", Message: "is required"}
	}
	if bookID == "" {
		return types.LoanDetail{}, &ValidationError{Field: "bookId", Message: "is required"}
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return types.LoanDetail{}, wrapNotFound(err, "user", userID)
	}
	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return types.LoanDetail{}, wrapNotFound(err, "book", bookID)
	}

	loan, err := s.loans.CreateOpen(ctx, types.Loan{UserID: userID, BookID: bookID})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return types.LoanDetail{}, &ConflictError{
				Field:   "bookId",
				Value:   bookID,
				Message: "book is already on loan",
			}
		case errors.Is(err, store.ErrNotFound):
			return types.LoanDetail{}, s.vanishedReference(ctx, userID, bookID)
		}
		return types.LoanDetail{}, err
	}

	s.publish(ctx, types.LoanCheckedOut, loan, loan.CheckedOutAt)
	return types.LoanDetail{Loan: loan, User: &user, Book: &book}, nil
}

// vanishedReference reports which of userID and bookID was removed between
// the lookup and the insert of a checkout.
func (s *LoanService) vanishedReference(ctx context.Context, userID, bookID string) error {
	if _, err := s.users.Get(ctx, userID); errors.Is(err, store.ErrNotFound) {
		return notFound("user", userID)
	}
	return notFound("book", bookID)
}

// Return closes an open loan. Returning a loan twice yields a
// ConflictError and leaves the stored return timestamp as it was.
func (s *LoanService) Return(ctx context.Context, id string) (types.LoanDetail, error) {
	loan, err := s.loans.MarkReturned(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.LoanDetail{}, &ConflictError{
				Field:   "id",
				Value:   id,
				Message: "loan has already been returned",
			}
		}
		return types.LoanDetail{}, wrapNotFound(err, "loan", id)
	}

	s.publish(ctx, types.LoanReturned, loan, *loan.ReturnedAt)

	detail, err := s.loans.Get(ctx, id)
	if err != nil {
		// Loan deleted right after the return; answer with what was written.
		if errors.Is(err, store.ErrNotFound) {
			return types.LoanDetail{Loan: loan}, nil
		}
		return types.LoanDetail{}, err
	}
	return detail, nil
}

// Delete removes a loan regardless of its state.
func (s *LoanService) Delete(ctx context.Context, id string) error {
	detail, err := s.loans.Get(ctx, id)
	if err != nil {
		return wrapNotFound(err, "loan", id)
	}
	if err := s.loans.Delete(ctx, id); err != nil {
		return wrapNotFound(err, "loan", id)
	}

	s.publish(ctx, types.LoanDeleted, detail.Loan, s.now())
	return nil
}

func (s *LoanService) publish(ctx context.Context, eventType types.LoanEventType, loan types.Loan, at time.Time) {
	if s.events == nil {
		return
	}

	event := types.LoanEvent{
		Type:       eventType,
		LoanID:     loan.ID,
		UserID:     loan.UserID,
		BookID:     loan.BookID,
		OccurredAt: at,
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		event.Actor = identity.Subject
	}

	if err := s.events.PublishLoanEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish loan event",
			zap.String("type", string(eventType)),
			zap.String("loan_id", loan.ID),
			zap.Error(err),
		)
	}
}
