// Package app groups the fx modules shared by the hrledger binaries.
package app

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hrledger/internal/account"
	"github.com/smallbiznis/hrledger/internal/audit"
	"github.com/smallbiznis/hrledger/internal/checkout"
	"github.com/smallbiznis/hrledger/internal/clock"
	"github.com/smallbiznis/hrledger/internal/config"
	"github.com/smallbiznis/hrledger/internal/coupon"
	"github.com/smallbiznis/hrledger/internal/ledger"
	"github.com/smallbiznis/hrledger/internal/notification"
	"github.com/smallbiznis/hrledger/internal/observability"
	"github.com/smallbiznis/hrledger/internal/payment"
	"github.com/smallbiznis/hrledger/internal/providers"
	"github.com/smallbiznis/hrledger/internal/ratelimit"
	"github.com/smallbiznis/hrledger/pkg/db"
	"go.uber.org/fx"
)

// Core is infrastructure every binary needs.
var Core = fx.Options(
	config.Module,
	observability.Module,
	fx.Provide(RegisterSnowflake),
	db.Module,
	clock.Module,
)

// Domain is the checkout, coupon, ledger and notification stack.
var Domain = fx.Options(
	audit.Module,
	account.Module,
	coupon.Module,
	ledger.Module,
	payment.Module,
	providers.Module,
	notification.Module,
	ratelimit.Module,
	checkout.Module,
)

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
