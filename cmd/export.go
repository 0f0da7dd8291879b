/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/librarian/apiserver/config"
	"github.com/librarian/apiserver/internal/exporter"
	"github.com/librarian/apiserver/internal/server"
	"github.com/librarian/apiserver/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportList bool

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a catalog snapshot to object storage",
	Long: `Writes a JSON snapshot of books, users, loans, available books and
dashboard statistics to the configured object storage under exports/.

	librarian export
	librarian export --list
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.LoadConfig()

		logger, err := newLogger(cfg.Env)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		objects, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open object storage: %w", err)
		}
		defer func() { _ = objects.Close() }()

		if exportList {
			keys, err := objects.List(ctx, exporter.Prefix)
			if err != nil {
				return fmt.Errorf("list exports: %w", err)
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		}

		repos, dbConn, err := server.OpenRepositories(ctx, cfg)
		if err != nil {
			return err
		}
		if dbConn != nil {
			defer dbConn.Close()
		}

		key, err := exporter.New(repos.Books, repos.Users, repos.Loans, objects, logger).Export(ctx)
		if err != nil {
			logger.Error("export failed", zap.Error(err))
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", objects.Bucket(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().BoolVar(&exportList, "list", false, "list existing exports instead of writing a new one")
}
