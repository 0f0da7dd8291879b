package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/librarian/apiserver/internal/services"
	"go.uber.org/zap"
)

// LoanHandler provides HTTP handlers for the loan ledger.
type LoanHandler struct {
	loanService *services.LoanService
	logger      *zap.Logger
}

func NewLoanHandler(loanService *services.LoanService, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{loanService: loanService, logger: logger}
}

// LoanRouter registers loan routes on the given router.
func LoanRouter(r chi.Router, loanService *services.LoanService, logger *zap.Logger) {
	handler := NewLoanHandler(loanService, logger)

	r.Get("/", handler.ListLoans)
	r.Post("/", handler.Checkout)
	r.Route("/{loanID}", func(r chi.Router) {
		r.Get("/", handler.GetLoan)
		r.Put("/return", handler.Return)
		r.Delete("/", handler.DeleteLoan)
	})
}

// CheckoutRequest is the body of POST /loans.
type CheckoutRequest struct {
	UserID string `json:"userId"`
	BookID string `json:"bookId"`
}

func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loanService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list loans")
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loanService.Get(r.Context(), chi.URLParam(r, "loanID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to fetch loan")
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *LoanHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err, "invalid request")
		return
	}

	loan, err := h.loanService.Checkout(r.Context(), req.UserID, req.BookID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create loan")
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loanService.Return(r.Context(), chi.URLParam(r, "loanID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to return loan")
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	if err := h.loanService.Delete(r.Context(), chi.URLParam(r, "loanID")); err != nil {
		writeServiceError(w, r, h.logger, err, "failed to delete loan")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "loan deleted"})
}
