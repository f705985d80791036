package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	accountdomain "github.com/smallbiznis/hrledger/internal/account/domain"
	"github.com/smallbiznis/hrledger/internal/checkout/domain"
	"github.com/smallbiznis/hrledger/internal/config"
	coupondomain "github.com/smallbiznis/hrledger/internal/coupon/domain"
	ledgerdomain "github.com/smallbiznis/hrledger/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/hrledger/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/hrledger/internal/observability/metrics"
	"github.com/smallbiznis/hrledger/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
	"github.com/smallbiznis/hrledger/internal/ratelimit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultPlanID = "pro"

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Payments   paymentdomain.Service
	Ledger     ledgerdomain.Service
	Coupons    coupondomain.Service
	Accounts   accountdomain.Service
	Notifier   notificationdomain.Dispatcher
	Plans      *config.PlanCatalogHolder
	Limiter    *ratelimit.CheckoutLimiter `optional:"true"`
	ObsMetrics *obsmetrics.Metrics        `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	cfg        config.PaymentConfig
	payments   paymentdomain.Service
	ledger     ledgerdomain.Service
	coupons    coupondomain.Service
	accounts   accountdomain.Service
	notifier   notificationdomain.Dispatcher
	plans      *config.PlanCatalogHolder
	limiter    *ratelimit.CheckoutLimiter
	obsMetrics *obsmetrics.Metrics
	tracer     trace.Tracer
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("checkout.service"),
		cfg:        p.Cfg.Payment,
		payments:   p.Payments,
		ledger:     p.Ledger,
		coupons:    p.Coupons,
		accounts:   p.Accounts,
		notifier:   p.Notifier,
		plans:      p.Plans,
		limiter:    p.Limiter,
		obsMetrics: p.ObsMetrics,
		tracer:     otel.Tracer("hrledger/checkout"),
	}
}

func (s *Service) Verify(ctx context.Context, checkoutID string) (outcome domain.Outcome, err error) {
	checkoutID = strings.TrimSpace(checkoutID)
	if checkoutID == "" {
		return domain.Outcome{}, domain.ErrInvalidCheckoutID
	}

	ctx, span := s.tracer.Start(ctx, "checkout.verify",
		trace.WithAttributes(tracing.SafeAttributes(attribute.String("checkout.id", checkoutID))...),
	)
	defer span.End()

	outcome = domain.Outcome{CheckoutID: checkoutID, State: domain.StateReceived}
	mode := ""
	log := s.log.With(zap.String("checkout_id", checkoutID))

	defer func() {
		span.SetAttributes(tracing.SafeAttributes(
			attribute.String("checkout.mode", mode),
			attribute.String("checkout.state", string(outcome.State)),
		)...)
		result := string(outcome.State)
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, "checkout verification failed")
			if outcome.State != domain.StateRejected {
				result = "error"
			}
		}
		if s.obsMetrics != nil {
			s.obsMetrics.RecordCheckoutVerification(ctx, mode, result)
		}
	}()

	release, lockErr := s.limiter.LockCheckout(ctx, checkoutID)
	if errors.Is(lockErr, ratelimit.ErrCheckoutBusy) {
		return outcome, domain.ErrCheckoutInProgress
	}
	if lockErr != nil {
		log.Warn("checkout lock unavailable, relying on ledger uniqueness", zap.Error(lockErr))
	}
	defer release()

	outcome.State = domain.StateVerifying
	verifier, err := s.payments.Verifier(ctx)
	if err != nil {
		log.Error("payment verifier unavailable", zap.Error(err))
		return outcome, err
	}
	mode = string(verifier.Mode())

	checkout, err := verifier.GetCheckout(ctx, checkoutID)
	if err != nil {
		log.Warn("gateway checkout lookup failed", zap.String("mode", mode), zap.Error(err))
		return outcome, err
	}

	if checkout.Status != paymentdomain.StatusSuccessful {
		outcome.State = domain.StateRejected
		log.Info("checkout not paid", zap.String("status", checkout.Status))
		return outcome, &domain.RejectedPaymentError{Status: checkout.Status}
	}
	outcome.State = domain.StateVerified

	entry, err := entryFor(checkoutID, checkout)
	if err != nil {
		log.Error("paid checkout has unusable metadata", zap.Error(err))
		return outcome, err
	}

	existing, err := s.ledger.FindByExternalID(ctx, checkoutID)
	if err != nil {
		return outcome, err
	}
	if existing != nil {
		outcome.State = domain.StateAlreadyRecorded
		outcome.AlreadyProcessed = true
		outcome.TransactionID = existing.ID.String()
		return outcome, nil
	}
	outcome.State = domain.StateNotYetRecorded

	txn, err := s.ledger.Record(ctx, entry)
	if err != nil {
		var already *ledgerdomain.AlreadyRecordedError
		if errors.As(err, &already) {
			outcome.State = domain.StateAlreadyRecorded
			outcome.AlreadyProcessed = true
			outcome.TransactionID = already.TransactionID
			return outcome, nil
		}
		log.Error("ledger write failed", zap.Error(err))
		return outcome, err
	}
	outcome.State = domain.StateRecorded
	outcome.TransactionID = txn.ID.String()

	result := s.notifier.Notify(ctx, s.receiptFor(ctx, checkout, txn))
	if result.Sent {
		outcome.State = domain.StateNotified
	} else {
		outcome.State = domain.StateNotifyFailed
	}
	return outcome, nil
}

func (s *Service) Create(ctx context.Context, user domain.User, req domain.CreateRequest) (domain.CreateResult, error) {
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return domain.CreateResult{}, accountdomain.ErrInvalidUserID
	}

	meta := paymentdomain.CheckoutMetadata{
		UserID:    user.ID,
		UserEmail: strings.TrimSpace(user.Email),
	}

	var amount int64
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case paymentdomain.CheckoutTypeSubscription:
		planID := strings.TrimSpace(req.PlanID)
		if planID == "" {
			planID = defaultPlanID
		}
		plan, ok := s.plans.Get().Find(planID)
		if !ok {
			return domain.CreateResult{}, domain.ErrUnknownPlan
		}
		amount = plan.Price
		meta.Type = paymentdomain.CheckoutTypeSubscription
		meta.Description = plan.Description
	case paymentdomain.CheckoutTypeTopup:
		if req.Amount <= 0 {
			return domain.CreateResult{}, domain.ErrInvalidAmount
		}
		amount = req.Amount
		meta.Type = paymentdomain.CheckoutTypeTopup
		meta.Description = strings.TrimSpace(req.Description)

		if code := coupondomain.NormalizeCode(req.CouponCode); code != "" {
			result, err := s.coupons.Validate(ctx, user.ID, code)
			if err != nil {
				return domain.CreateResult{}, fmt.Errorf("%w: %w", ledgerdomain.ErrCouponSystem, err)
			}
			if !result.Valid {
				return domain.CreateResult{}, &domain.CouponRejectedError{Message: result.Message}
			}
			meta.CouponCode = code
		}
	default:
		return domain.CreateResult{}, domain.ErrInvalidType
	}

	verifier, err := s.payments.Verifier(ctx)
	if err != nil {
		return domain.CreateResult{}, err
	}

	checkout, err := verifier.CreateCheckout(ctx, paymentdomain.CreateCheckoutRequest{
		Amount:     amount,
		Currency:   s.currency(),
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		FailureURL: s.cfg.FailureURL,
		Metadata:   meta,
	})
	if err != nil {
		s.log.Warn("gateway checkout creation failed",
			zap.String("user_id", user.ID),
			zap.String("type", meta.Type),
			zap.Error(err),
		)
		return domain.CreateResult{}, err
	}

	s.log.Info("checkout created",
		zap.String("checkout_id", checkout.ID),
		zap.String("user_id", user.ID),
		zap.String("type", meta.Type),
		zap.Int64("amount", amount),
	)
	return domain.CreateResult{
		CheckoutID:  checkout.ID,
		RedirectURL: checkout.RedirectURL,
		Amount:      amount,
		Currency:    s.currency(),
	}, nil
}

func entryFor(checkoutID string, checkout *paymentdomain.Checkout) (ledgerdomain.Entry, error) {
	meta := checkout.Metadata
	userID := strings.TrimSpace(meta.UserID)
	if userID == "" {
		return ledgerdomain.Entry{}, &domain.ValidationError{Field: "userId"}
	}

	var txnType ledgerdomain.TransactionType
	switch strings.ToLower(strings.TrimSpace(meta.Type)) {
	case paymentdomain.CheckoutTypeTopup:
		txnType = ledgerdomain.TransactionTypeTopup
	case paymentdomain.CheckoutTypeSubscription:
		txnType = ledgerdomain.TransactionTypeSubscription
	default:
		return ledgerdomain.Entry{}, &domain.ValidationError{Field: "type"}
	}
	if checkout.Amount <= 0 {
		return ledgerdomain.Entry{}, &domain.ValidationError{Field: "amount"}
	}

	return ledgerdomain.Entry{
		ExternalID:  checkoutID,
		UserID:      userID,
		UserEmail:   strings.TrimSpace(meta.UserEmail),
		Type:        txnType,
		Amount:      checkout.Amount,
		CouponCode:  meta.CouponCode,
		Description: meta.Description,
		Metadata: map[string]any{
			"checkout_id": checkoutID,
			"payment_id":  checkout.PaymentID,
			"currency":    checkout.Currency,
		},
	}, nil
}

func (s *Service) receiptFor(ctx context.Context, checkout *paymentdomain.Checkout, txn *ledgerdomain.Transaction) notificationdomain.Receipt {
	receipt := notificationdomain.Receipt{
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		Recipient:     txn.UserEmail,
		Type:          string(txn.Type),
		Description:   txn.Description,
		Reference:     checkout.ID,
		Currency:      checkout.Currency,
		AmountPaid:    checkout.Amount,
		Credited:      txn.Amount,
		CreatedAt:     txn.CreatedAt,
	}
	if txn.CouponCode != nil {
		receipt.CouponCode = *txn.CouponCode
	}
	if txn.DiscountAmount != nil {
		receipt.Discount = *txn.DiscountAmount
	}
	if s.accounts != nil {
		if account, err := s.accounts.Get(ctx, txn.UserID); err == nil {
			balance := account.Balance
			receipt.Balance = &balance
		}
	}
	return receipt
}

func (s *Service) currency() string {
	if c := strings.ToUpper(strings.TrimSpace(s.cfg.Currency)); c != "" {
		return c
	}
	return "ZAR"
}
