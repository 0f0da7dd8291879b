package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/librarian/apiserver/internal/store"
	"github.com/librarian/apiserver/types"
)

// Store is an in-memory implementation of the catalog, loan and account
// repositories. All collections share one lock so checkout and cascade
// deletes are atomic.
type Store struct {
	mu sync.RWMutex

	books    map[string]types.Book
	bookIDs  []string
	users    map[string]types.User
	userIDs  []string
	loans    map[string]types.Loan
	loanIDs  []string
	accounts map[string]types.Account
	acctIDs  []string

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		books:    make(map[string]types.Book),
		users:    make(map[string]types.User),
		loans:    make(map[string]types.Loan),
		accounts: make(map[string]types.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Books returns the book repository view of the store.
func (s *Store) Books() *BookRepository { return &BookRepository{s: s} }

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Loans returns the loan repository view of the store.
func (s *Store) Loans() *LoanRepository { return &LoanRepository{s: s} }

// Accounts returns the account repository view of the store.
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// deleteLoansWhere removes loans matching match. Caller holds the lock.
func (s *Store) deleteLoansWhere(match func(types.Loan) bool) {
	kept := s.loanIDs[:0]
	for _, id := range s.loanIDs {
		if match(s.loans[id]) {
			delete(s.loans, id)
			continue
		}
		kept = append(kept, id)
	}
	s.loanIDs = kept
}

// BookRepository stores books in memory.
type BookRepository struct {
	s *Store
}

func (r *BookRepository) List(ctx context.Context) ([]types.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	books := make([]types.Book, 0, len(r.s.bookIDs))
	for _, id := range r.s.bookIDs {
		books = append(books, r.s.books[id])
	}
	return books, nil
}

func (r *BookRepository) Get(ctx context.Context, id string) (types.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	book, ok := r.s.books[id]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	return book, nil
}

func (r *BookRepository) isbnTaken(isbn, exceptID string) bool {
	for id, book := range r.s.books {
		if id != exceptID && book.ISBN == isbn {
			return true
		}
	}
	return false
}

func (r *BookRepository) Create(ctx context.Context, book types.Book) (types.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.isbnTaken(book.ISBN, "") {
		return types.Book{}, store.ErrConflict
	}

	now := r.s.now()
	book.ID = uuid.NewString()
	book.CreatedAt = now
	book.UpdatedAt = now
	r.s.books[book.ID] = book
	r.s.bookIDs = append(r.s.bookIDs, book.ID)
	return book, nil
}

func (r *BookRepository) Update(ctx context.Context, book types.Book) (types.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.books[book.ID]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	if r.isbnTaken(book.ISBN, book.ID) {
		return types.Book{}, store.ErrConflict
	}

	book.CreatedAt = current.CreatedAt
	book.UpdatedAt = r.s.now()
	r.s.books[book.ID] = book
	return book, nil
}

func (r *BookRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.books[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.books, id)
	r.s.bookIDs = removeID(r.s.bookIDs, id)
	r.s.deleteLoansWhere(func(loan types.Loan) bool { return loan.BookID == id })
	return nil
}

// UserRepository stores library users in memory.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]types.User, 0, len(r.s.userIDs))
	for _, id := range r.s.userIDs {
		users = append(users, r.s.users[id])
	}
	return users, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = user
	r.s.userIDs = append(r.s.userIDs, user.ID)
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}

	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.users, id)
	r.s.userIDs = removeID(r.s.userIDs, id)
	r.s.deleteLoansWhere(func(loan types.Loan) bool { return loan.UserID == id })
	return nil
}

// LoanRepository stores loans in memory.
type LoanRepository struct {
	s *Store
}

// detail joins a loan with its user and book. Caller holds the lock.
func (r *LoanRepository) detail(loan types.Loan) types.LoanDetail {
	detail := types.LoanDetail{Loan: loan}
	if user, ok := r.s.users[loan.UserID]; ok {
		detail.User = &user
	}
	if book, ok := r.s.books[loan.BookID]; ok {
		detail.Book = &book
	}
	return detail
}

func (r *LoanRepository) List(ctx context.Context) ([]types.LoanDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	loans := make([]types.LoanDetail, 0, len(r.s.loanIDs))
	for _, id := range r.s.loanIDs {
		loans = append(loans, r.detail(r.s.loans[id]))
	}
	return loans, nil
}

func (r *LoanRepository) Get(ctx context.Context, id string) (types.LoanDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	loan, ok := r.s.loans[id]
	if !ok {
		return types.LoanDetail{}, store.ErrNotFound
	}
	return r.detail(loan), nil
}

// CreateOpen checks references and open-loan uniqueness and inserts the
// loan under a single lock.
func (r *LoanRepository) CreateOpen(ctx context.Context, loan types.Loan) (types.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[loan.UserID]; !ok {
		return types.Loan{}, store.ErrNotFound
	}
	if _, ok := r.s.books[loan.BookID]; !ok {
		return types.Loan{}, store.ErrNotFound
	}
	for _, existing := range r.s.loans {
		if existing.BookID == loan.BookID && existing.IsOpen() {
			return types.Loan{}, store.ErrConflict
		}
	}

	now := r.s.now()
	loan.ID = uuid.NewString()
	loan.CheckedOutAt = now
	loan.ReturnedAt = nil
	loan.CreatedAt = now
	loan.UpdatedAt = now
	r.s.loans[loan.ID] = loan
	r.s.loanIDs = append(r.s.loanIDs, loan.ID)
	return loan, nil
}

func (r *LoanRepository) MarkReturned(ctx context.Context, id string, at time.Time) (types.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	loan, ok := r.s.loans[id]
	if !ok {
		return types.Loan{}, store.ErrNotFound
	}
	if !loan.IsOpen() {
		return types.Loan{}, store.ErrConflict
	}

	if at.Before(loan.CheckedOutAt) {
		at = loan.CheckedOutAt
	}
	loan.ReturnedAt = &at
	loan.UpdatedAt = at
	r.s.loans[id] = loan
	return loan, nil
}

func (r *LoanRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.loans[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.loans, id)
	r.s.loanIDs = removeID(r.s.loanIDs, id)
	return nil
}

// AccountRepository stores login accounts in memory.
type AccountRepository struct {
	s *Store
}

func (r *AccountRepository) find(match func(types.Account) bool) (types.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, id := range r.s.acctIDs {
		if account := r.s.accounts[id]; match(account) {
			return account, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (types.Account, error) {
	return r.find(func(a types.Account) bool { return a.ID == id })
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (types.Account, error) {
	return r.find(func(a types.Account) bool { return a.Username == username })
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	if email == "" {
		return types.Account{}, store.ErrNotFound
	}
	return r.find(func(a types.Account) bool { return a.Email == email })
}

func (r *AccountRepository) GetByGoogleID(ctx context.Context, googleID string) (types.Account, error) {
	if googleID == "" {
		return types.Account{}, store.ErrNotFound
	}
	return r.find(func(a types.Account) bool { return a.GoogleID == googleID })
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.accounts {
		if existing.Username == account.Username ||
			(account.Email != "" && existing.Email == account.Email) ||
			(account.GoogleID != "" && existing.GoogleID == account.GoogleID) {
			return types.Account{}, store.ErrConflict
		}
	}

	now := r.s.now()
	account.ID = uuid.NewString()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.s.accounts[account.ID] = account
	r.s.acctIDs = append(r.s.acctIDs, account.ID)
	return account, nil
}
