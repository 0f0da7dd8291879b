/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/librarian/apiserver/config"
	"github.com/librarian/apiserver/internal/events"
	"github.com/librarian/apiserver/internal/mq"
	"github.com/librarian/apiserver/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect loan events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log loan events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		logger, err := newLogger(cfg.Env)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.New(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("connect message broker: %w", err)
		}
		defer func() { _ = broker.Close() }()

		logger.Info("tailing loan events", zap.String("channel", cfg.MQ.LoanChannel))
		err = events.Tail(ctx, broker, cfg.MQ.LoanChannel, logger, func(event types.LoanEvent) {
			logger.Info("loan event",
				zap.String("type", string(event.Type)),
				zap.String("loan_id", event.LoanID),
				zap.String("user_id", event.UserID),
				zap.String("book_id", event.BookID),
				zap.Time("occurred_at", event.OccurredAt),
				zap.String("actor", event.Actor),
			)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
