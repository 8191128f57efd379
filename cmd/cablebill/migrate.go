package main

import (
	"context"
	"fmt"

	"github.com/cablebill/cablebill/internal/config"
	"github.com/cablebill/cablebill/internal/migration"
	"github.com/cablebill/cablebill/internal/observability"
	"github.com/cablebill/cablebill/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, conn *gorm.DB) error {
			if err := migration.Apply(conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		})
	},
}

var migrateSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the most recent migrations (postgres only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, conn *gorm.DB) error {
			if conn.Dialector.Name() != "postgres" {
				return fmt.Errorf("migrate down is not supported on %s", conn.Dialector.Name())
			}
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.Rollback(sqlDB, migrateSteps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reverted %d migration(s).\n", migrateSteps)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to revert")
}

func withDatabase(ctx context.Context, fn func(context.Context, *gorm.DB) error) error {
	var conn *gorm.DB
	return runWith(ctx, func(ctx context.Context) error {
		return fn(ctx, conn)
	},
		config.Module,
		observability.Module,
		db.Module,
		fx.Populate(&conn),
	)
}
