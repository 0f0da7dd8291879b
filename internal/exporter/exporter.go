// Package exporter writes JSON snapshots of the catalog and loan ledger to
// object storage.
package exporter

import (
	"bytes"
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/librarian/apiserver/internal/services"
	"github.com/librarian/apiserver/internal/storage"
	"github.com/librarian/apiserver/types"
	"go.uber.org/zap"
)

// Prefix is the key prefix of every snapshot.
const Prefix = "exports/"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the exported document.
type Snapshot struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Books       []types.Book       `json:"books"`
	Users       []types.User       `json:"users"`
	Loans       []types.LoanDetail `json:"loans"`
	Available   []types.Book       `json:"availableBooks"`
	Stats       types.Stats        `json:"stats"`
}

type Exporter struct {
	books   services.BookRepository
	users   services.UserRepository
	loans   services.LoanRepository
	objects storage.ObjectStorage
	logger  *zap.Logger
	now     func() time.Time
}

func New(books services.BookRepository, users services.UserRepository, loans services.LoanRepository, objects storage.ObjectStorage, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		books:   books,
		users:   users,
		loans:   loans,
		objects: objects,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Build collects a snapshot without writing it.
func (e *Exporter) Build(ctx context.Context) (Snapshot, error) {
	books, err := e.books.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list books: %w", err)
	}
	users, err := e.users.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list users: %w", err)
	}
	details, err := e.loans.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list loans: %w", err)
	}

	loans := services.LoansOf(details)
	return Snapshot{
		GeneratedAt: e.now(),
		Books:       books,
		Users:       users,
		Loans:       details,
		Available:   services.AvailableBooks(books, loans),
		Stats:       services.BuildStats(books, users, loans),
	}, nil
}

// Export writes a snapshot under exports/<timestamp>.json and returns its
// key.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	snapshot, err := e.Build(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	if err := e.objects.EnsureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	key := Key(snapshot.GeneratedAt)
	if err := e.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	e.logger.Info("catalog exported",
		zap.String("bucket", e.objects.Bucket()),
		zap.String("key", key),
		zap.Int("books", len(snapshot.Books)),
		zap.Int("users", len(snapshot.Users)),
		zap.Int("loans", len(snapshot.Loans)),
	)
	return key, nil
}

// Key returns the object key for a snapshot taken at t.
func Key(t time.Time) string {
	return Prefix + t.UTC().Format("20060102T150405Z") + ".json"
}
