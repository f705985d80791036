package payment

import (
	"github.com/smallbiznis/hrledger/internal/payment/adapters"
	"github.com/smallbiznis/hrledger/internal/payment/adapters/yoco"
	"github.com/smallbiznis/hrledger/internal/payment/repository"
	paymentservice "github.com/smallbiznis/hrledger/internal/payment/service"
	"github.com/smallbiznis/hrledger/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			yoco.NewFactory(),
		)
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
