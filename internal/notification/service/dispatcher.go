package service

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/hrledger/internal/clock"
	"github.com/smallbiznis/hrledger/internal/config"
	"github.com/smallbiznis/hrledger/internal/notification/domain"
	"github.com/smallbiznis/hrledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/hrledger/internal/observability/metrics"
	"github.com/smallbiznis/hrledger/internal/providers/email"
	"github.com/smallbiznis/hrledger/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed templates/*.html
var templateFS embed.FS

var receiptTemplate = template.Must(template.ParseFS(templateFS, "templates/receipt.html"))

const (
	baseRetryDelay  = time.Minute
	maxRetryDelay   = time.Hour
	maxLastErrorLen = 512
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Clock      clock.Clock
	Email      email.Provider
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Dispatcher struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        config.EmailConfig
	clock      clock.Clock
	email      email.Provider
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewDispatcher(p Params) domain.Dispatcher {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Dispatcher{
		db:         p.DB,
		log:        p.Log.Named("notification.dispatcher"),
		cfg:        p.Cfg.Email,
		clock:      c,
		email:      p.Email,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, receipt domain.Receipt) domain.Result {
	log := d.log.With(
		zap.String("transaction_id", receipt.TransactionID.String()),
		zap.String("user_id", receipt.UserID),
	)

	recipient := strings.TrimSpace(receipt.Recipient)
	log = log.With(logger.MaskedEmail("recipient", recipient))
	if recipient == "" {
		log.Warn("no recipient for receipt, skipping notification")
		d.record(ctx, "skipped")
		return domain.Result{Skipped: true, Err: domain.ErrNoRecipient}
	}

	subject, body, err := d.render(receipt)
	if err != nil {
		log.Error("failed to render receipt email", zap.Error(err))
		d.record(ctx, "render_failed")
		return domain.Result{Err: err}
	}

	sendErr := d.email.Send(ctx, []string{recipient}, subject, body)
	if sendErr == nil {
		d.record(ctx, "sent")
		log.Info("receipt email sent")
		return domain.Result{Sent: true}
	}

	log.Warn("receipt email failed, queueing retry", zap.Error(sendErr))
	d.record(ctx, "failed")

	now := d.clock.Now()
	lastError := truncate(sendErr.Error(), maxLastErrorLen)
	msg := &domain.OutboxMessage{
		ID:            ulid.Make().String(),
		TransactionID: receipt.TransactionID,
		Recipient:     recipient,
		Subject:       subject,
		HTMLBody:      body,
		Attempts:      1,
		LastError:     &lastError,
		NextAttemptAt: now.Add(RetryDelay(1)),
		CreatedAt:     now,
	}
	// The request may already be finishing; the outbox write must not be cut short.
	if err := d.repo.Enqueue(context.WithoutCancel(ctx), d.db, msg); err != nil {
		log.Error("failed to queue receipt email", zap.Error(err))
		return domain.Result{Err: sendErr}
	}
	return domain.Result{Queued: true, Err: sendErr}
}

func (d *Dispatcher) RetryPending(ctx context.Context, batchSize, maxAttempts int) (int, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	now := d.clock.Now()
	items, err := d.repo.ListDue(ctx, d.db, now, maxAttempts, batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for _, item := range items {
		if item == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		sendErr := d.email.Send(ctx, []string{item.Recipient}, item.Subject, item.HTMLBody)
		if sendErr == nil {
			if err := d.repo.MarkSent(ctx, d.db, item.ID, d.clock.Now()); err != nil {
				errs = append(errs, err)
				continue
			}
			sent++
			d.record(ctx, "retry_sent")
			continue
		}

		attempts := item.Attempts + 1
		next := d.clock.Now().Add(RetryDelay(attempts))
		if err := d.repo.MarkFailed(ctx, d.db, item.ID, attempts, truncate(sendErr.Error(), maxLastErrorLen), next); err != nil {
			errs = append(errs, err)
			continue
		}
		d.record(ctx, "retry_failed")
		if attempts >= maxAttempts {
			d.log.Error("receipt email abandoned",
				zap.String("outbox_id", item.ID),
				zap.String("transaction_id", item.TransactionID.String()),
				zap.Int("attempts", attempts),
				zap.Error(sendErr),
			)
		}
		errs = append(errs, fmt.Errorf("%w: %s: %w", obsmetrics.ErrDeliveryFailed, item.ID, sendErr))
	}

	return sent, errors.Join(errs...)
}

// RetryDelay doubles from one minute per attempt, capped at an hour.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := baseRetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

type receiptView struct {
	Heading       string
	ProductName   string
	SupportEmail  string
	Description   string
	AmountPaid    string
	Credited      string
	ShowCredited  bool
	Discount      string
	CouponCode    string
	Balance       string
	Reference     string
	TransactionID string
	Date          string
}

func (d *Dispatcher) render(receipt domain.Receipt) (string, string, error) {
	product := strings.TrimSpace(d.cfg.ProductName)
	if product == "" {
		product = "HR Docs"
	}

	view := receiptView{
		ProductName:   product,
		SupportEmail:  d.cfg.SupportEmail,
		Description:   receipt.Description,
		AmountPaid:    money.Format(receipt.AmountPaid, receipt.Currency),
		Credited:      money.Format(receipt.Credited, receipt.Currency),
		ShowCredited:  receipt.Type == "topup",
		CouponCode:    receipt.CouponCode,
		Discount:      money.Format(receipt.Discount, receipt.Currency),
		Reference:     receipt.Reference,
		TransactionID: receipt.TransactionID.String(),
		Date:          receipt.CreatedAt.UTC().Format("2 January 2006"),
	}
	if receipt.Balance != nil {
		view.Balance = money.Format(*receipt.Balance, receipt.Currency)
	}

	var subject string
	switch receipt.Type {
	case "subscription":
		view.Heading = "Your Pro subscription is active"
		subject = fmt.Sprintf("%s: Pro subscription confirmed", product)
	default:
		view.Heading = "Your credits have been added"
		subject = fmt.Sprintf("%s: %s credited", product, view.Credited)
	}

	var body bytes.Buffer
	if err := receiptTemplate.Execute(&body, view); err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrRender, err)
	}
	return subject, body.String(), nil
}

func (d *Dispatcher) record(ctx context.Context, result string) {
	if d.obsMetrics == nil {
		return
	}
	d.obsMetrics.RecordNotification(ctx, d.email.Name(), result)
}

// truncate caps v at max bytes without splitting a multi-byte rune.
func truncate(v string, max int) string {
	if len(v) <= max {
		return v
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(v[cut]) {
		cut--
	}
	return v[:cut]
}
