package types

// Stats summarizes the library state for the dashboard.
type Stats struct {
	// TotalBooks is the number of books in the catalog.
	TotalBooks int `json:"totalBooks"`

	// TotalUsers is the number of registered library users.
	TotalUsers int `json:"totalUsers"`

	// ActiveLoans is the number of open loans.
	ActiveLoans int `json:"activeLoans"`

	// AvailableBooks is the number of books without an open loan.
	AvailableBooks int `json:"availableBooks"`

	// LoansByMonth counts checkouts per calendar month, oldest first,
	// limited to the most recent months that have loans.
	LoansByMonth []MonthCount `json:"loansByMonth"`
}

// MonthCount is the number of checkouts in one calendar month.
type MonthCount struct {
	// Month is formatted as YYYY-MM.
	Month string `json:"month"`
	Count int    `json:"prestiti"`
}
