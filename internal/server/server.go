package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/librarian/apiserver/config"
	"github.com/librarian/apiserver/internal/auth"
	"github.com/librarian/apiserver/internal/db"
	"github.com/librarian/apiserver/internal/events"
	"github.com/librarian/apiserver/internal/handlers"
	"github.com/librarian/apiserver/internal/mq"
	"github.com/librarian/apiserver/internal/services"
	"github.com/librarian/apiserver/internal/store"
	"github.com/librarian/apiserver/internal/store/memstore"
	"go.uber.org/zap"
)

// Repositories groups the persistence backends used by the services.
type Repositories struct {
	Books    services.BookRepository
	Users    services.UserRepository
	Loans    services.LoanRepository
	Accounts services.AccountRepository
}

// Deps is everything NewRouter needs. GoogleVerifier checks Google ID
// tokens on google-login when Gateway issues its own tokens; nil disables
// google-login in that mode.
type Deps struct {
	Repos          Repositories
	Gateway        auth.Gateway
	GoogleVerifier auth.Gateway
	AuthMode       string
	Events         services.LoanEventPublisher
	Logger         *zap.Logger
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Backend
	logger     *zap.Logger
}

// New wires the configured store, gateway and broker into an HTTP server.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{logger: logger}

	repos, dbConn, err := OpenRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.db = dbConn

	gateway, err := auth.NewGateway(ctx, cfg.Auth)
	if err != nil {
		s.close()
		return nil, err
	}

	var googleVerifier auth.Gateway
	if _, local := gateway.(auth.TokenIssuer); local && cfg.Auth.GoogleClientID != "" {
		googleVerifier, err = auth.NewGoogleGateway(ctx, cfg.Auth.GoogleClientID)
		if err != nil {
			s.close()
			return nil, err
		}
	}

	var publisher services.LoanEventPublisher = events.Nop{}
	broker, err := mq.New(ctx, cfg.MQ)
	switch {
	case err == nil:
		s.broker = broker
		publisher = events.NewPublisher(broker, cfg.MQ.LoanChannel)
	case errors.Is(err, mq.ErrDisabled):
		logger.Info("no message broker configured, loan events are dropped")
	default:
		s.close()
		return nil, fmt.Errorf("connect message broker: %w", err)
	}

	s.router = NewRouter(Deps{
		Repos:          repos,
		Gateway:        gateway,
		GoogleVerifier: googleVerifier,
		AuthMode:       cfg.Auth.Mode,
		Events:         publisher,
		Logger:         logger,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		zap.Int("port", port),
		zap.String("store", cfg.StoreDriver),
		zap.String("auth_provider", gateway.Provider()),
		zap.String("auth_mode", cfg.Auth.Mode),
		zap.Bool("google_verifier", googleVerifier != nil),
		zap.String("mq", cfg.MQ.Backend),
	)
	return s, nil
}

// OpenRepositories opens the store selected by cfg.StoreDriver. The
// returned *sql.DB is nil for the memory driver; otherwise the caller
// closes it.
func OpenRepositories(ctx context.Context, cfg config.Config) (Repositories, *sql.DB, error) {
	if cfg.StoreDriver == "memory" {
		mem := memstore.New()
		if cfg.SeedSampleData {
			mem.Seed()
		}
		return Repositories{
			Books:    mem.Books(),
			Users:    mem.Users(),
			Loans:    mem.Loans(),
			Accounts: mem.Accounts(),
		}, nil, nil
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return Repositories{}, nil, fmt.Errorf("open database: %w", err)
	}
	return Repositories{
		Books:    store.NewBookRepository(dbConn),
		Users:    store.NewUserRepository(dbConn),
		Loans:    store.NewLoanRepository(dbConn),
		Accounts: store.NewAccountRepository(dbConn),
	}, dbConn, nil
}

// NewRouter builds the chi router. Every resource route is served both at
// the root and under /api.
func NewRouter(deps Deps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bookService := services.NewBookService(deps.Repos.Books)
	userService := services.NewUserService(deps.Repos.Users)
	loanService := services.NewLoanService(
		deps.Repos.Loans,
		deps.Repos.Users,
		deps.Repos.Books,
		logger,
		services.WithLoanEvents(deps.Events),
	)
	statsService := services.NewStatsService(deps.Repos.Books, deps.Repos.Users, deps.Repos.Loans)
	accountService := services.NewAccountService(deps.Repos.Accounts, deps.Gateway, services.WithGoogleVerifier(deps.GoogleVerifier))

	authMiddleware := handlers.Authenticate(deps.Gateway, deps.AuthMode, logger)

	routes := func(r chi.Router) {
		r.Get("/healthz", handlers.Healthz)
		r.Get("/health", handlers.Healthz)
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, accountService, deps.Gateway, logger)
		})
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Route("/books", func(r chi.Router) {
				handlers.BookRouter(r, bookService, statsService, logger)
			})
			r.Route("/users", func(r chi.Router) {
				handlers.UserRouter(r, userService, logger)
			})
			r.Route("/loans", func(r chi.Router) {
				handlers.LoanRouter(r, loanService, logger)
			})
			r.Get("/stats", handlers.Stats(statsService, logger))
		})
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(logger),
		middleware.Timeout(60*time.Second),
	)
	routes(router)
	router.Route("/api", routes)
	return router
}

// Router exposes the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			s.logger.Warn("failed to close message broker", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("failed to close database", zap.Error(err))
		}
	}
}
