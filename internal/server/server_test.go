package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/librarian/apiserver/config"
	"github.com/librarian/apiserver/internal/auth"
	"github.com/librarian/apiserver/internal/events"
	"github.com/librarian/apiserver/internal/handlers"
	"github.com/librarian/apiserver/internal/mq"
	"github.com/librarian/apiserver/internal/store/memstore"
	"github.com/librarian/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	gateway *auth.JWTGateway
	token   string
}

func newTestServer(t *testing.T, mode string, opts ...func(*Deps)) *testServer {
	t.Helper()
	gateway, err := auth.NewJWTGateway("test-secret", time.Hour)
	require.NoError(t, err)

	mem := memstore.New()
	deps := Deps{
		Repos: Repositories{
			Books:    mem.Books(),
			Users:    mem.Users(),
			Loans:    mem.Loans(),
			Accounts: mem.Accounts(),
		},
		Gateway:  gateway,
		AuthMode: mode,
		Events:   events.Nop{},
		Logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	token, err := gateway.IssueToken("account-1")
	require.NoError(t, err)
	return &testServer{t: t, handler: NewRouter(deps), gateway: gateway, token: token}
}

// do sends body as JSON with the server's token and decodes the response
// into out when out is non-nil.
func (s *testServer) do(method, path string, body any, out any) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.doAs(s.token, method, path, body, out)
}

func (s *testServer) doAs(token, method, path string, body any, out any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if out != nil {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func validBookBody(isbn string) map[string]any {
	return map[string]any{"titolo": "1984", "autore": "Orwell", "anno": 1949, "genere": "Distopico", "isbn": isbn}
}

func validUserBody() map[string]any {
	return map[string]any{"nome": "Mario", "cognome": "Rossi", "genere": "Maschio", "eta": 34}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, handlers.AuthRequired)

	for _, path := range []string{"/healthz", "/health", "/api/healthz"} {
		var body handlers.HealthResponse
		rec := srv.doAs("", http.MethodGet, path, nil, &body)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "OK", body.Status)
		assert.Equal(t, "Server is running", body.Message)
	}
}

func TestLibraryFlow(t *testing.T) {
	srv := newTestServer(t, handlers.AuthRequired)

	var user types.User
	rec := srv.do(http.MethodPost, "/users", validUserBody(), &user)
	require.Equal(t, http.StatusCreated, rec.Code)

	var book types.Book
	rec = srv.do(http.MethodPost, "/api/books", validBookBody("978-1"), &book)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1984", book.Title)

	var loan types.LoanDetail
	rec = srv.do(http.MethodPost, "/loans", handlers.CheckoutRequest{UserID: user.ID, BookID: book.ID}, &loan)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, loan.Book)
	assert.Equal(t, book.ID, loan.Book.ID)
	assert.Contains(t, rec.Body.String(), `"dataPrestito"`)

	var available []types.Book
	rec = srv.do(http.MethodGet, "/books/available", nil, &available)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, available)

	var stats types.Stats
	rec = srv.do(http.MethodGet, "/api/stats", nil, &stats)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, stats.ActiveLoans)
	assert.Equal(t, 0, stats.AvailableBooks)

	var returned types.LoanDetail
	rec = srv.do(http.MethodPut, "/loans/"+loan.ID+"/return", nil, &returned)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, returned.ReturnedAt)

	rec = srv.do(http.MethodPut, "/loans/"+loan.ID+"/return", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(http.MethodGet, "/books/available", nil, &available)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, available, 1)

	var list []types.LoanDetail
	rec = srv.do(http.MethodGet, "/api/loans", nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].User)
	assert.Equal(t, "Mario", list[0].User.FirstName)

	var msg handlers.MessageResponse
	rec = srv.do(http.MethodDelete, "/loans/"+loan.ID, nil, &msg)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "loan deleted", msg.Message)
	rec = srv.do(http.MethodGet, "/loans/"+loan.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t, handlers.AuthRequired)

	var user types.User
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/users", validUserBody(), &user).Code)
	var book types.Book
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/books", validBookBody("978-1"), &book).Code)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		field  string
	}{
		{"empty body", http.MethodPost, "/books", "", http.StatusBadRequest, ""},
		{"malformed body", http.MethodPost, "/books", "{", http.StatusBadRequest, ""},
		{"missing title", http.MethodPost, "/books", map[string]any{"autore": "A", "anno": 1, "genere": "G", "isbn": "x"}, http.StatusBadRequest, "titolo"},
		{"duplicate isbn", http.MethodPost, "/books", validBookBody("978-1"), http.StatusConflict, "isbn"},
		{"unknown book", http.MethodGet, "/books/missing", nil, http.StatusNotFound, ""},
		{"update unknown book", http.MethodPut, "/books/missing", map[string]any{"titolo": "x"}, http.StatusNotFound, ""},
		{"missing eta", http.MethodPost, "/users", map[string]any{"nome": "A", "cognome": "B", "genere": "Altro"}, http.StatusBadRequest, "eta"},
		{"bad genere", http.MethodPost, "/users", map[string]any{"nome": "A", "cognome": "B", "genere": "X", "eta": 3}, http.StatusBadRequest, "genere"},
		{"unknown user", http.MethodDelete, "/users/missing", nil, http.StatusNotFound, ""},
		{"checkout unknown book", http.MethodPost, "/loans", handlers.CheckoutRequest{UserID: user.ID, BookID: "missing"}, http.StatusNotFound, ""},
		{"checkout without user", http.MethodPost, "/loans", handlers.CheckoutRequest{BookID: book.ID}, http.StatusBadRequest, "userId"},
		{"return unknown loan", http.MethodPut, "/loans/missing/return", nil, http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body handlers.ErrorResponse
			rec := srv.do(tc.method, tc.path, tc.body, &body)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, body.Error)
			if tc.field != "" {
				assert.Equal(t, tc.field, body.Field)
			}
		})
	}
}

func TestAuthModes(t *testing.T) {
	t.Run("required", func(t *testing.T) {
		srv := newTestServer(t, handlers.AuthRequired)
		assert.Equal(t, http.StatusUnauthorized, srv.doAs("", http.MethodGet, "/books", nil, nil).Code)
		assert.Equal(t, http.StatusUnauthorized, srv.doAs("forged", http.MethodGet, "/api/books", nil, nil).Code)
		assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/books", nil, nil).Code)
	})

	t.Run("optional", func(t *testing.T) {
		srv := newTestServer(t, handlers.AuthOptional)
		assert.Equal(t, http.StatusOK, srv.doAs("", http.MethodGet, "/books", nil, nil).Code)
		assert.Equal(t, http.StatusOK, srv.doAs("forged", http.MethodGet, "/books", nil, nil).Code)
	})

	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, handlers.AuthDisabled)
		assert.Equal(t, http.StatusOK, srv.doAs("forged", http.MethodGet, "/stats", nil, nil).Code)
	})

	t.Run("me always needs a token", func(t *testing.T) {
		srv := newTestServer(t, handlers.AuthDisabled)
		assert.Equal(t, http.StatusUnauthorized, srv.doAs("", http.MethodGet, "/auth/me", nil, nil).Code)
	})
}

func TestAuthRoutes(t *testing.T) {
	srv := newTestServer(t, handlers.AuthRequired)

	var registered struct {
		Token string        `json:"token"`
		User  types.Account `json:"user"`
	}
	rec := srv.doAs("", http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "secret123",
	}, &registered)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, registered.Token)
	assert.NotContains(t, rec.Body.String(), "secret123")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = srv.doAs("", http.MethodPost, "/auth/register", map[string]string{
		"username": "alice", "email": "alice2@example.com", "password": "secret123",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.doAs("", http.MethodPost, "/auth/login", map[string]string{"username": "alice", "password": "nope-nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var loggedIn struct {
		Token string `json:"token"`
	}
	rec = srv.doAs("", http.MethodPost, "/auth/login", map[string]string{"username": "alice", "password": "secret123"}, &loggedIn)
	require.Equal(t, http.StatusOK, rec.Code)

	var me types.Account
	rec = srv.doAs(loggedIn.Token, http.MethodGet, "/auth/me", nil, &me)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", me.Username)

	// Valid signature, but no account behind the subject.
	rec = srv.do(http.MethodGet, "/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type googleStub struct{}

func (googleStub) Provider() string { return auth.ProviderGoogle }

func (googleStub) Authenticate(ctx context.Context, credential string) (types.Identity, error) {
	if credential != "google-id-token" {
		return types.Identity{}, auth.ErrInvalidCredential
	}
	return types.Identity{Subject: "g-1", Email: "g@example.com", Provider: auth.ProviderGoogle}, nil
}

func TestGoogleLogin_BareGoogleIDIsRejected(t *testing.T) {
	t.Run("no verifier", func(t *testing.T) {
		srv := newTestServer(t, handlers.AuthRequired)

		rec := srv.doAs("", http.MethodPost, "/auth/google-login", map[string]string{"googleId": "g-1", "email": "g@example.com"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with verifier", func(t *testing.T) {
		srv := newTestServer(t, handlers.AuthRequired, func(d *Deps) { d.GoogleVerifier = googleStub{} })

		rec := srv.doAs("", http.MethodPost, "/auth/google-login", map[string]string{"googleId": "g-1", "email": "g@example.com"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = srv.doAs("", http.MethodPost, "/auth/google-login", map[string]string{"idToken": "forged", "googleId": "g-1"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGoogleLogin_VerifiedToken(t *testing.T) {
	srv := newTestServer(t, handlers.AuthRequired, func(d *Deps) { d.GoogleVerifier = googleStub{} })

	var google struct {
		Token string        `json:"token"`
		User  types.Account `json:"user"`
	}
	rec := srv.doAs("", http.MethodPost, "/auth/google-login", map[string]string{"idToken": "google-id-token"}, &google)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "g-1", google.User.GoogleID)
	assert.NotEqual(t, "google-id-token", google.Token)
	assert.Equal(t, http.StatusOK, srv.doAs(google.Token, http.MethodGet, "/books", nil, nil).Code)

	var me types.Account
	rec = srv.doAs(google.Token, http.MethodGet, "/auth/me", nil, &me)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, google.User.ID, me.ID)
}

type firebaseStub struct{}

func (firebaseStub) Provider() string { return auth.ProviderFirebase }

func (firebaseStub) Authenticate(ctx context.Context, credential string) (types.Identity, error) {
	if credential != "firebase-token" {
		return types.Identity{}, auth.ErrInvalidCredential
	}
	return types.Identity{Subject: "uid-1", Email: "f@example.com", Provider: auth.ProviderFirebase}, nil
}

func TestFirebaseGatewayRoutes(t *testing.T) {
	srv := newTestServer(t, handlers.AuthRequired, func(d *Deps) { d.Gateway = firebaseStub{} })

	rec := srv.doAs("", http.MethodPost, "/auth/register", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "secret123",
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var result struct {
		Token string `json:"token"`
	}
	rec = srv.doAs("", http.MethodPost, "/auth/google-login", map[string]string{"idToken": "firebase-token"}, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "firebase-token", result.Token)

	assert.Equal(t, http.StatusOK, srv.doAs("firebase-token", http.MethodGet, "/books", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, srv.doAs(srv.token, http.MethodGet, "/books", nil, nil).Code)

	var me types.Account
	rec = srv.doAs("firebase-token", http.MethodGet, "/auth/me", nil, &me)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uid-1", me.GoogleID)
}

type recordingPublisher struct {
	events []types.LoanEvent
}

func (p *recordingPublisher) PublishLoanEvent(ctx context.Context, event types.LoanEvent) error {
	p.events = append(p.events, event)
	return nil
}

func TestLoanEventsCarryCaller(t *testing.T) {
	rec := &recordingPublisher{}
	srv := newTestServer(t, handlers.AuthRequired, func(d *Deps) { d.Events = rec })

	var user types.User
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/users", validUserBody(), &user).Code)
	var book types.Book
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/books", validBookBody("978-1"), &book).Code)
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/loans", handlers.CheckoutRequest{UserID: user.ID, BookID: book.ID}, nil).Code)

	require.Len(t, rec.events, 1)
	assert.Equal(t, types.LoanCheckedOut, rec.events[0].Type)
	assert.Equal(t, "account-1", rec.events[0].Actor)
}

func TestOpenRepositories_Memory(t *testing.T) {
	repos, conn, err := OpenRepositories(context.Background(), config.Config{StoreDriver: "memory", SeedSampleData: true})
	require.NoError(t, err)
	assert.Nil(t, conn)

	books, err := repos.Books.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, books, 4)
}

func TestNew_MemoryBroker(t *testing.T) {
	cfg := config.Config{
		StoreDriver: "memory",
		Auth:        config.AuthConfig{Provider: auth.ProviderLocal, Mode: handlers.AuthRequired, JWTSecret: "secret"},
		MQ:          config.MQConfig{Backend: "memory", LoanChannel: "loan-events"},
	}
	srv, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &mq.Memory{}, srv.broker)
	assert.NotNil(t, srv.Router())

	_, err = New(context.Background(), config.Config{StoreDriver: "memory"}, zap.NewNop())
	assert.Error(t, err)
}
