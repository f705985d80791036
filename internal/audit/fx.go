package audit

import (
	"github.com/smallbiznis/hrledger/internal/audit/repository"
	"github.com/smallbiznis/hrledger/internal/audit/service"
	"go.uber.org/fx"
)

// Module provides the audit trail used by admin handlers and the payment
// mode switch.
var Module = fx.Module("audit",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
