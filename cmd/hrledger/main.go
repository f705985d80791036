package main

import (
	"github.com/smallbiznis/hrledger/internal/app"
	"github.com/smallbiznis/hrledger/internal/auth"
	"github.com/smallbiznis/hrledger/internal/authorization"
	"github.com/smallbiznis/hrledger/internal/migration"
	"github.com/smallbiznis/hrledger/internal/scheduler"
	"github.com/smallbiznis/hrledger/internal/server"
	"go.uber.org/fx"
)

// hrledger runs the API and the background worker in one process.
func main() {
	fx.New(
		app.Core,
		migration.Module,
		app.Domain,

		auth.Module,
		authorization.Module,
		server.Module,

		scheduler.Module,
	).Run()
}
