package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/librarian/apiserver/internal/auth"
	"github.com/librarian/apiserver/internal/services"
	"go.uber.org/zap"
)

// AuthHandler provides account endpoints.
type AuthHandler struct {
	accountService *services.AccountService
	logger         *zap.Logger
}

func NewAuthHandler(accountService *services.AccountService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{accountService: accountService, logger: logger}
}

// AuthRouter registers auth routes on the given router. Register and
// login exist only when the gateway issues its own tokens.
func AuthRouter(r chi.Router, accountService *services.AccountService, gateway auth.Gateway, logger *zap.Logger) {
	handler := NewAuthHandler(accountService, logger)

	if _, ok := gateway.(auth.TokenIssuer); ok {
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)
	}
	r.Post("/google-login", handler.GoogleLogin)
	r.With(Authenticate(gateway, AuthRequired, logger)).Get("/me", handler.Me)
}

// Register creates a new account and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err, "invalid request")
		return
	}

	result, err := h.accountService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create account")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err, "invalid request")
		return
	}

	result, err := h.accountService.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to authenticate")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req services.GoogleLoginInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err, "invalid request")
		return
	}

	result, err := h.accountService.GoogleLogin(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to authenticate")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Me returns the current authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	account, err := h.accountService.Me(r.Context(), identity)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to load account")
		return
	}
	writeJSON(w, http.StatusOK, account)
}
