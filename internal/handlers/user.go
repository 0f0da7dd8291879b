package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/librarian/apiserver/internal/services"
	"github.com/librarian/apiserver/types"
	"go.uber.org/zap"
)

// UserHandler provides HTTP handlers for library users.
type UserHandler struct {
	userService *services.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, logger *zap.Logger) {
	handler := NewUserHandler(userService, logger)

	r.Get("/", handler.ListUsers)
	r.Post("/", handler.CreateUser)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Put("/", handler.UpdateUser)
		r.Delete("/", handler.DeleteUser)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	// Decoded as a patch so a missing eta can be told apart from zero.
	var req types.UserPatch
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err, "invalid request")
		return
	}
	if req.Age == nil {
		writeServiceError(w, r, h.logger, &services.ValidationError{Field: "eta", Message: "is required"}, "invalid request")
		return
	}

	created, err := h.userService.Create(r.Context(), req.Apply(types.User{}))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch types.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeServiceError(w, r, h.logger, err, "invalid request")
		return
	}

	updated, err := h.userService.Update(r.Context(), chi.URLParam(r, "userID"), patch)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Delete(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeServiceError(w, r, h.logger, err, "failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "user deleted"})
}
