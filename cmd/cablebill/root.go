package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var rootCmd = &cobra.Command{
	Use:   "cablebill",
	Short: "Cable TV subscription billing",
	Long: `cablebill manages customers, plans, subscriptions, monthly bills and
payments for a cable TV operator.

Configuration is read from the environment and an optional .env file.
Billing settings come from billing.yml.

Examples:
  cablebill serve
  cablebill scheduler
  cablebill billing run --period 2024-03
  cablebill migrate up
  cablebill admin create --username admin`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runWith starts a short-lived fx application, hands control to fn once
// every constructor has run, and stops the application afterwards.
func runWith(ctx context.Context, fn func(context.Context) error, opts ...fx.Option) error {
	opts = append(opts, fx.NopLogger)
	application := fx.New(opts...)
	if err := application.Err(); err != nil {
		return err
	}

	if err := application.Start(ctx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := application.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
