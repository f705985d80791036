package main

import (
	"github.com/smallbiznis/hrledger/internal/app"
	"github.com/smallbiznis/hrledger/internal/auth"
	"github.com/smallbiznis/hrledger/internal/authorization"
	"github.com/smallbiznis/hrledger/internal/server"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		app.Core,
		app.Domain,

		// Request authentication and admin RBAC
		auth.Module,
		authorization.Module,

		server.Module,
	).Run()
}
