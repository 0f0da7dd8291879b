package services

import "github.com/librarian/apiserver/types"

// AvailableBooks returns the books in books that have no open loan in
// loans. The result keeps the order of books.
func AvailableBooks(books []types.Book, loans []types.Loan) []types.Book {
	out := make([]types.Book, 0, len(books))
	onLoan := make(map[string]struct{}, len(loans))
	for _, loan := range loans {
		if loan.IsOpen() {
			onLoan[loan.BookID] = struct{}{}
		}
	}

	for _, book := range books {
		if _, ok := onLoan[book.ID]; ok {
			continue
		}
		out = append(out, book)
	}
	return out
}

// LoansOf strips the embedded user and book from details.
func LoansOf(details []types.LoanDetail) []types.Loan {
	loans := make([]types.Loan, len(details))
	for i, detail := range details {
		loans[i] = detail.Loan
	}
	return loans
}
