package main

import (
	"github.com/cablebill/cablebill/internal/app"
	"github.com/cablebill/cablebill/internal/migration"
	"github.com/cablebill/cablebill/internal/server"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		app.Core,
		migration.Module,
		app.Billing,
		server.Module,
	).Run()
}
