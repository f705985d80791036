package webhook

import (
	"context"
	"net/http"

	"github.com/smallbiznis/hrledger/internal/clock"
	"github.com/smallbiznis/hrledger/internal/config"
	"github.com/smallbiznis/hrledger/internal/payment/adapters/yoco"
	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Clock    clock.Clock
	Payments paymentdomain.Service `optional:"true"`
}

// modeResolver reports the payment mode in force when a webhook arrives.
type modeResolver interface {
	Mode(ctx context.Context) (paymentdomain.Mode, error)
}

// Service authenticates inbound gateway webhooks and extracts the checkout
// they refer to. Recording is left to the checkout processor so webhook and
// redirect deliveries share one idempotent path. Each payment mode is signed
// with its own secret; the active mode picks the verifier.
type Service struct {
	log         *zap.Logger
	clock       clock.Clock
	modes       modeResolver
	defaultMode paymentdomain.Mode
	verifiers   map[paymentdomain.Mode]paymentdomain.WebhookVerifier
}

func NewService(p Params) *Service {
	log := p.Log.Named("payment.webhook")
	svc := &Service{
		log:       log,
		clock:     p.Clock,
		verifiers: map[paymentdomain.Mode]paymentdomain.WebhookVerifier{},
	}
	if svc.clock == nil {
		svc.clock = clock.New()
	}
	if p.Payments != nil {
		svc.modes = p.Payments
	}
	if mode, err := paymentdomain.ParseMode(p.Cfg.Payment.DefaultMode); err == nil {
		svc.defaultMode = mode
	} else {
		svc.defaultMode = paymentdomain.ModeTest
	}

	for _, mode := range []paymentdomain.Mode{paymentdomain.ModeLive, paymentdomain.ModeTest} {
		secret := p.Cfg.Payment.WebhookSecret(string(mode))
		if secret == "" {
			log.Warn("yoco webhook secret not configured, webhooks will be rejected", zap.String("mode", string(mode)))
			continue
		}
		hook, err := yoco.NewWebhook(secret)
		if err != nil {
			log.Error("invalid yoco webhook secret", zap.String("mode", string(mode)), zap.Error(err))
			continue
		}
		svc.verifiers[mode] = hook
	}
	return svc
}

// NewServiceWithVerifier wires one verifier for every mode, used by tests.
func NewServiceWithVerifier(log *zap.Logger, c clock.Clock, verifier paymentdomain.WebhookVerifier) *Service {
	return &Service{
		log:         log,
		clock:       c,
		defaultMode: paymentdomain.ModeTest,
		verifiers: map[paymentdomain.Mode]paymentdomain.WebhookVerifier{
			paymentdomain.ModeLive: verifier,
			paymentdomain.ModeTest: verifier,
		},
	}
}

func (s *Service) activeMode(ctx context.Context) paymentdomain.Mode {
	if s.modes == nil {
		return s.defaultMode
	}
	mode, err := s.modes.Mode(ctx)
	if err != nil {
		s.log.Warn("payment mode lookup failed, using default", zap.String("mode", string(s.defaultMode)), zap.Error(err))
		return s.defaultMode
	}
	return mode
}

func (s *Service) Ingest(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.WebhookEvent, error) {
	mode := s.activeMode(ctx)
	verifier := s.verifiers[mode]
	if verifier == nil {
		return nil, paymentdomain.ErrWebhookDisabled
	}
	if err := verifier.Verify(payload, headers, s.clock.Now()); err != nil {
		s.log.Warn("rejected webhook signature",
			zap.String("mode", string(mode)),
			zap.String("webhook_id", headers.Get("webhook-id")),
		)
		return nil, err
	}

	event, err := verifier.Parse(payload)
	if err != nil {
		return nil, err
	}
	s.log.Info("webhook accepted",
		zap.String("mode", string(mode)),
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("checkout_id", event.CheckoutID),
	)
	return event, nil
}
