package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/librarian/apiserver/internal/auth"
	"go.uber.org/zap"
)

// Auth modes.
const (
	AuthRequired = "required"
	AuthOptional = "optional"
	AuthDisabled = "disabled"
)

// Authenticate builds the middleware for mode. In required mode a missing
// or rejected credential ends the request with 401. In optional mode the
// request continues without an identity. Disabled mode never consults the
// gateway.
func Authenticate(gateway auth.Gateway, mode string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if mode == AuthDisabled || gateway == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r)
			if err != nil {
				if mode == AuthOptional {
					if !errors.Is(err, auth.ErrMissingCredential) {
						logger.Warn("ignoring malformed authorization header", zap.Error(err))
					}
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			identity, err := gateway.Authenticate(r.Context(), token)
			if err != nil {
				if mode == AuthOptional {
					logger.Warn("ignoring invalid token",
						zap.String("provider", gateway.Provider()),
						zap.Error(err),
					)
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// RequestLogger logs one line per request through logger.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
