package services

import (
	"context"
	"sort"

	"github.com/librarian/apiserver/types"
)

// statsMonths is how many of the most recent months with loans are
// reported in Stats.LoansByMonth.
const statsMonths = 6

// StatsService builds the dashboard summary.
type StatsService struct {
	books BookRepository
	users UserRepository
	loans LoanRepository
}

func NewStatsService(books BookRepository, users UserRepository, loans LoanRepository) *StatsService {
	return &StatsService{books: books, users: users, loans: loans}
}

// Stats summarizes the catalog and the loan ledger.
func (s *StatsService) Stats(ctx context.Context) (types.Stats, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	details, err := s.loans.List(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	return BuildStats(books, users, LoansOf(details)), nil
}

// Available returns the books that currently have no open loan.
func (s *StatsService) Available(ctx context.Context) ([]types.Book, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, err
	}
	details, err := s.loans.List(ctx)
	if err != nil {
		return nil, err
	}
	return AvailableBooks(books, LoansOf(details)), nil
}

// BuildStats computes Stats from full listings.
func BuildStats(books []types.Book, users []types.User, loans []types.Loan) types.Stats {
	stats := types.Stats{
		TotalBooks:     len(books),
		TotalUsers:     len(users),
		AvailableBooks: len(AvailableBooks(books, loans)),
		LoansByMonth:   make([]types.MonthCount, 0, statsMonths),
	}

	perMonth := make(map[string]int)
	for _, loan := range loans {
		if loan.IsOpen() {
			stats.ActiveLoans++
		}
		perMonth[loan.CheckedOutAt.UTC().Format("2006-01")]++
	}

	months := make([]string, 0, len(perMonth))
	for month := range perMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	if len(months) > statsMonths {
		months = months[len(months)-statsMonths:]
	}
	for _, month := range months {
		stats.LoansByMonth = append(stats.LoansByMonth, types.MonthCount{Month: month, Count: perMonth[month]})
	}
	return stats
}
