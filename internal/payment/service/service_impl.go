package service

import (
	"context"
	"strings"

	auditdomain "github.com/smallbiznis/hrledger/internal/audit/domain"
	"github.com/smallbiznis/hrledger/internal/clock"
	"github.com/smallbiznis/hrledger/internal/config"
	"github.com/smallbiznis/hrledger/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const provider = "yoco"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Clock    clock.Clock
	Repo     paymentdomain.SettingsRepository
	Adapters *adapters.Registry
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      config.PaymentConfig
	clock    clock.Clock
	repo     paymentdomain.SettingsRepository
	adapters *adapters.Registry
	auditSvc auditdomain.Service
}

func NewService(p Params) paymentdomain.Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		cfg:      p.Cfg.Payment,
		clock:    c,
		repo:     p.Repo,
		adapters: p.Adapters,
		auditSvc: p.AuditSvc,
	}
}

// Mode reads the active mode from settings, falling back to the configured
// default when no row exists.
func (s *Service) Mode(ctx context.Context) (paymentdomain.Mode, error) {
	mode, ok, err := s.repo.GetPaymentMode(ctx, s.db)
	if err != nil {
		return "", err
	}
	if ok {
		return mode, nil
	}
	return paymentdomain.ParseMode(s.cfg.DefaultMode)
}

// Verifier builds a gateway client for the mode active at call time. The
// mode is read once so a concurrent switch cannot mix keys within a request.
func (s *Service) Verifier(ctx context.Context) (paymentdomain.Verifier, error) {
	mode, err := s.Mode(ctx)
	if err != nil {
		return nil, err
	}

	secret := s.cfg.SecretKey(string(mode))
	if secret == "" {
		s.log.Error("payment gateway secret key missing", zap.String("mode", string(mode)))
		return nil, &paymentdomain.ConfigError{Mode: mode}
	}

	return s.adapters.NewVerifier(provider, paymentdomain.AdapterConfig{
		Mode:      mode,
		SecretKey: secret,
		BaseURL:   s.cfg.YocoBaseURL,
		Timeout:   s.cfg.Timeout,
	})
}

func (s *Service) SetMode(ctx context.Context, mode paymentdomain.Mode, actorID string) error {
	mode, err := paymentdomain.ParseMode(string(mode))
	if err != nil {
		return err
	}

	previous, _ := s.Mode(ctx)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.SetPaymentMode(ctx, tx, mode, s.clock.Now()); err != nil {
			return err
		}
		if s.auditSvc != nil {
			target := "payment_mode"
			actorType, actor := "", (*string)(nil)
			if actorID = strings.TrimSpace(actorID); actorID != "" {
				actorType, actor = string(auditdomain.ActorTypeAdmin), &actorID
			}
			if err := s.auditSvc.AuditLogTx(ctx, tx, actorType, actor, "settings.payment_mode_changed", "settings", &target, map[string]any{
				"from": string(previous),
				"to":   string(mode),
			}); err != nil {
				return err
			}
		}
		s.log.Info("payment mode changed",
			zap.String("actor_id", actorID),
			zap.String("from", string(previous)),
			zap.String("to", string(mode)),
		)
		return nil
	})
}
