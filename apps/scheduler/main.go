package main

import (
	"github.com/cablebill/cablebill/internal/app"
	"github.com/cablebill/cablebill/internal/scheduler"
	"go.uber.org/fx"
)

// The scheduler process shares the database with the API but never serves
// HTTP; schema migrations are left to the API or `cablebill migrate up`.
func main() {
	fx.New(
		app.Core,
		app.Billing,
		scheduler.Module,
	).Run()
}
