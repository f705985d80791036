package main

import (
	"github.com/smallbiznis/hrledger/internal/app"
	"github.com/smallbiznis/hrledger/internal/scheduler"
	"go.uber.org/fx"
)

// The worker retries queued receipt emails and reconciles balances. It
// serves no HTTP routes.
func main() {
	fx.New(
		app.Core,
		app.Domain,
		scheduler.Module,
	).Run()
}
