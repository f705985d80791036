package ledger

import (
	"github.com/smallbiznis/hrledger/internal/ledger/repository"
	"github.com/smallbiznis/hrledger/internal/ledger/service"
	"go.uber.org/fx"
)

// Module provides the ledger writer. It depends on the account and coupon
// modules for balance updates and redemption.
var Module = fx.Module("ledger",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
