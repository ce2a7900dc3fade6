package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/shop-settlement/internal/app"
	"github.com/wekeepgrowing/shop-settlement/internal/config"
	"github.com/wekeepgrowing/shop-settlement/internal/infrastructure/database"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "settlementctl",
		Short:         "Operator commands for the cart settlement service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(outboxCmd())
	return rootCmd
}

// withApp loads configuration, builds the app and closes it after fn.
func withApp(fn func(a *app.App) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()
	return fn(a)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the settlement tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				if err := database.Migrate(a.DB, a.Logger); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func reconcileCmd() *cobra.Command {
	var (
		minAge time.Duration
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Verify stale pending transactions with their provider and settle confirmed ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				if !cmd.Flags().Changed("min-age") {
					minAge = a.Config.Reconcile.MinAge
				}
				if !cmd.Flags().Changed("limit") {
					limit = a.Config.Reconcile.BatchSize
				}
				report, err := a.Reconciler.Run(cmd.Context(), minAge, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "checked=%d settled=%d pending=%d failed=%d\n",
					report.Checked, report.Settled, report.StillPending, report.Failed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&minAge, "min-age", 10*time.Minute, "only transactions pending at least this long")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum transactions per run")
	return cmd
}

func outboxCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Publish pending settlement events to the configured sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				if a.OutboxRelay == nil {
					return fmt.Errorf("outbox.sink is not configured")
				}
				if !once {
					a.OutboxRelay.Run(cmd.Context())
					return nil
				}
				report, err := a.OutboxRelay.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published=%d failed=%d\n", report.Published, report.Failed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "publish a single batch and exit")
	return cmd
}
