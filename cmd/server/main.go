package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"payment-confirmation-backend/internal/models"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "payment-confirmation",
		Short: "Mobile-money payment confirmation service",
		// Bare invocation serves.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(autocheckCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the auto-checker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			a.logger.Info("schema up to date")
			return nil
		},
	}
}

func autocheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "autocheck",
		Short: "Run one auto-check pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.checker.Run(cmd.Context(), models.RunTriggerManual)
			if err != nil {
				return err
			}
			fmt.Printf("run %s: status=%s checked=%d matched=%d failed=%d\n",
				run.ID, run.Status, run.EntriesChecked, run.MatchedCount, run.FailedCount)
			return nil
		},
	}
}
