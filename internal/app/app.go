// Package app groups the fx modules shared by the cablebill binaries.
package app

import (
	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/bill"
	"github.com/cablebill/cablebill/internal/billing"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/config"
	"github.com/cablebill/cablebill/internal/customer"
	"github.com/cablebill/cablebill/internal/lock"
	"github.com/cablebill/cablebill/internal/notification"
	"github.com/cablebill/cablebill/internal/observability"
	"github.com/cablebill/cablebill/internal/plan"
	"github.com/cablebill/cablebill/internal/providers"
	"github.com/cablebill/cablebill/internal/subscription"
	"github.com/cablebill/cablebill/pkg/db"
	"go.uber.org/fx"
)

// Core is the infrastructure every process needs.
var Core = fx.Options(
	config.Module,
	observability.Module,
	fx.Provide(NewSnowflake),
	db.Module,
	clock.Module,
)

// Billing provides the domain services behind bill generation and delivery.
var Billing = fx.Options(
	providers.Module,
	notification.Module,
	lock.Module,
	plan.Module,
	customer.Module,
	subscription.Module,
	bill.Module,
	billing.Module,
)

func NewSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
