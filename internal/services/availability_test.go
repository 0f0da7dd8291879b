package services_test

import (
	"testing"
	"time"

	"github.com/librarian/apiserver/internal/services"
	"github.com/librarian/apiserver/types"
	"github.com/stretchr/testify/assert"
)

func TestAvailableBooks(t *testing.T) {
	returned := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	books := []types.Book{{ID: "b1"}, {ID: "b2"}, {ID: "b3"}, {ID: "b4"}}

	cases := map[string]struct {
		loans []types.Loan
		want  []string
	}{
		"no loans": {
			want: []string{"b1", "b2", "b3", "b4"},
		},
		"open loan hides the book": {
			loans: []types.Loan{{BookID: "b2"}},
			want:  []string{"b1", "b3", "b4"},
		},
		"returned loan does not": {
			loans: []types.Loan{{BookID: "b2", ReturnedAt: &returned}},
			want:  []string{"b1", "b2", "b3", "b4"},
		},
		"returned then borrowed again": {
			loans: []types.Loan{
				{BookID: "b3", ReturnedAt: &returned},
				{BookID: "b3"},
			},
			want: []string{"b1", "b2", "b4"},
		},
		"loan for unknown book is ignored": {
			loans: []types.Loan{{BookID: "gone"}, {BookID: "b1"}},
			want:  []string{"b2", "b3", "b4"},
		},
		"everything out": {
			loans: []types.Loan{{BookID: "b1"}, {BookID: "b2"}, {BookID: "b3"}, {BookID: "b4"}},
			want:  []string{},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := services.AvailableBooks(books, tc.loans)
			ids := make([]string, 0, len(got))
			for _, book := range got {
				ids = append(ids, book.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestAvailableBooks_EmptyCatalog(t *testing.T) {
	got := services.AvailableBooks(nil, []types.Loan{{BookID: "b1"}})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoansOf(t *testing.T) {
	returned := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	details := []types.LoanDetail{
		{Loan: types.Loan{ID: "l1", BookID: "b1"}, Book: &types.Book{ID: "b1"}},
		{Loan: types.Loan{ID: "l2", BookID: "b2", ReturnedAt: &returned}},
	}

	loans := services.LoansOf(details)
	assert.Equal(t, []types.Loan{details[0].Loan, details[1].Loan}, loans)

	available := services.AvailableBooks([]types.Book{{ID: "b1"}, {ID: "b2"}, {ID: "b3"}}, loans)
	assert.Equal(t, []types.Book{{ID: "b2"}, {ID: "b3"}}, available)
	assert.Empty(t, services.LoansOf(nil))
}
