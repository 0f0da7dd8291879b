package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/librarian/apiserver/internal/services"
	"github.com/librarian/apiserver/types"
	"go.uber.org/zap"
)

// BookHandler provides HTTP handlers for the book catalog.
type BookHandler struct {
	bookService  *services.BookService
	statsService *services.StatsService
	logger       *zap.Logger
}

func NewBookHandler(bookService *services.BookService, statsService *services.StatsService, logger *zap.Logger) *BookHandler {
	return &BookHandler{
		bookService:  bookService,
		statsService: statsService,
		logger:       logger,
	}
}

// BookRouter registers book routes on the given router.
func BookRouter(r chi.Router, bookService *services.BookService, statsService *services.StatsService, logger *zap.Logger) {
	handler := NewBookHandler(bookService, statsService, logger)

	r.Get("/", handler.ListBooks)
	r.Post("/", handler.CreateBook)
	r.Get("/available", handler.ListAvailableBooks)
	r.Route("/{bookID}", func(r chi.Router) {
		r.Get("/", handler.GetBook)
		r.Put("/", handler.UpdateBook)
		r.Delete("/", handler.DeleteBook)
	})
}

func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list books")
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BookHandler) ListAvailableBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.statsService.Available(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list available books")
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.Get(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to fetch book")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req types.Book
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err, "invalid request")
		return
	}

	created, err := h.bookService.Create(r.Context(), types.Book{
		Title:  req.Title,
		Author: req.Author,
		Year:   req.Year,
		Genre:  req.Genre,
		ISBN:   req.ISBN,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create book")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var patch types.BookPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeServiceError(w, r, h.logger, err, "invalid request")
		return
	}

	updated, err := h.bookService.Update(r.Context(), chi.URLParam(r, "bookID"), patch)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to update book")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.bookService.Delete(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		writeServiceError(w, r, h.logger, err, "failed to delete book")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "book deleted"})
}
