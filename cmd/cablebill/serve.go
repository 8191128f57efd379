package main

import (
	"github.com/cablebill/cablebill/internal/app"
	"github.com/cablebill/cablebill/internal/migration"
	"github.com/cablebill/cablebill/internal/scheduler"
	"github.com/cablebill/cablebill/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveWithScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. Pending migrations are applied on start.

With --scheduler the monthly billing and overdue jobs run in the same
process, which suits single-node installs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []fx.Option{
			app.Core,
			migration.Module,
			app.Billing,
			server.Module,
		}
		if serveWithScheduler {
			opts = append(opts, scheduler.Module)
		}
		fx.New(opts...).Run()
		return nil
	},
}

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the billing scheduler without the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		fx.New(
			app.Core,
			app.Billing,
			scheduler.Module,
		).Run()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schedulerCmd)

	serveCmd.Flags().BoolVar(&serveWithScheduler, "scheduler", false, "also run the billing scheduler")
}
