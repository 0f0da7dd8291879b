package memstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/librarian/apiserver/types"
)

type seedLoan struct {
	user, book         int
	checkedOut, closed string
}

var (
	seedUsers = []types.User{
		{FirstName: "Mario", LastName: "Rossi", Gender: types.GenderMale, Age: 34},
		{FirstName: "Giulia", LastName: "Bianchi", Gender: types.GenderFemale, Age: 28},
		{FirstName: "Luca", LastName: "Verdi", Gender: types.GenderMale, Age: 45},
	}
	seedBooks = []types.Book{
		{Title: "Il Signore degli Anelli", Author: "J.R.R. Tolkien", Year: 1954, Genre: "Fantasy", ISBN: "978-8845279294"},
		{Title: "1984", Author: "George Orwell", Year: 1949, Genre: "Distopico", ISBN: "978-8804668229"},
		{Title: "Cronache del ghiaccio e del fuoco", Author: "George R.R. Martin", Year: 1996, Genre: "Fantasy", ISBN: "978-8804680436"},
		{Title: "Il nome della rosa", Author: "Umberto Eco", Year: 1980, Genre: "Romanzo Storico", ISBN: "978-8845244520"},
	}
	seedLoans = []seedLoan{
		{user: 0, book: 1, checkedOut: "2023-10-15T10:00:00Z", closed: "2023-11-01T12:00:00Z"},
		{user: 1, book: 2, checkedOut: "2023-11-05T15:30:00Z"},
		{user: 0, book: 3, checkedOut: "2023-11-10T09:00:00Z"},
	}
)

// Seed loads the sample catalog into an empty store. It does nothing if
// the store already holds books or users.
func (s *Store) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.books) > 0 || len(s.users) > 0 {
		return
	}

	now := s.now()
	userIDs := make([]string, len(seedUsers))
	for i, user := range seedUsers {
		user.ID = uuid.NewString()
		user.CreatedAt, user.UpdatedAt = now, now
		s.users[user.ID] = user
		s.userIDs = append(s.userIDs, user.ID)
		userIDs[i] = user.ID
	}

	bookIDs := make([]string, len(seedBooks))
	for i, book := range seedBooks {
		book.ID = uuid.NewString()
		book.CreatedAt, book.UpdatedAt = now, now
		s.books[book.ID] = book
		s.bookIDs = append(s.bookIDs, book.ID)
		bookIDs[i] = book.ID
	}

	for _, seed := range seedLoans {
		checkedOut := mustParse(seed.checkedOut)
		loan := types.Loan{
			ID:           uuid.NewString(),
			UserID:       userIDs[seed.user],
			BookID:       bookIDs[seed.book],
			CheckedOutAt: checkedOut,
			CreatedAt:    checkedOut,
			UpdatedAt:    checkedOut,
		}
		if seed.closed != "" {
			closed := mustParse(seed.closed)
			loan.ReturnedAt = &closed
			loan.UpdatedAt = closed
		}
		s.loans[loan.ID] = loan
		s.loanIDs = append(s.loanIDs, loan.ID)
	}
}

func mustParse(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}
