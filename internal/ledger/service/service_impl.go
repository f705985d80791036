package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/hrledger/internal/account/domain"
	auditdomain "github.com/smallbiznis/hrledger/internal/audit/domain"
	"github.com/smallbiznis/hrledger/internal/clock"
	coupondomain "github.com/smallbiznis/hrledger/internal/coupon/domain"
	ledgerdomain "github.com/smallbiznis/hrledger/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/hrledger/internal/observability/metrics"
	"github.com/smallbiznis/hrledger/pkg/db"
	"github.com/smallbiznis/hrledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       ledgerdomain.Repository
	Accounts   accountdomain.Repository
	CouponSvc  coupondomain.Service
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       ledgerdomain.Repository
	accounts   accountdomain.Repository
	couponSvc  coupondomain.Service
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      c,
		repo:       p.Repo,
		accounts:   p.Accounts,
		couponSvc:  p.CouponSvc,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

// Record writes a verified payment. Coupon resolution happens before any
// write so an unavailable coupon store aborts with nothing persisted. The
// transaction row, coupon redemption, balance and plan change commit together.
func (s *Service) Record(ctx context.Context, entry ledgerdomain.Entry) (*ledgerdomain.Transaction, error) {
	entry.ExternalID = strings.TrimSpace(entry.ExternalID)
	entry.UserID = strings.TrimSpace(entry.UserID)
	entry.CouponCode = strings.TrimSpace(entry.CouponCode)
	if entry.ExternalID == "" {
		return nil, ledgerdomain.ErrInvalidExternalID
	}
	if entry.UserID == "" {
		return nil, ledgerdomain.ErrInvalidUserID
	}
	if entry.Amount <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}

	log := s.log.With(
		zap.String("external_id", entry.ExternalID),
		zap.String("user_id", entry.UserID),
		zap.String("type", string(entry.Type)),
	)

	var (
		amount  int64
		newPlan accountdomain.Plan
		coupon  *coupondomain.Coupon
	)
	switch entry.Type {
	case ledgerdomain.TransactionTypeSubscription:
		amount = -entry.Amount
		newPlan = accountdomain.PlanPro
		if entry.CouponCode != "" {
			log.Info("ignoring coupon on subscription payment")
			entry.CouponCode = ""
		}
	case ledgerdomain.TransactionTypeTopup:
		amount = entry.Amount
		if entry.CouponCode != "" {
			result, err := s.couponSvc.Validate(ctx, entry.UserID, entry.CouponCode)
			if err != nil {
				log.Error("coupon lookup failed, aborting ledger write", zap.Error(err))
				return nil, fmt.Errorf("%w: %w", ledgerdomain.ErrCouponSystem, err)
			}
			if result.Valid {
				coupon = result.Coupon
			} else {
				log.Warn("coupon rejected, crediting full amount", zap.String("reason", result.Message))
			}
		}
	default:
		return nil, ledgerdomain.ErrInvalidType
	}

	txn := &ledgerdomain.Transaction{
		ID:          s.genID.Generate(),
		UserID:      entry.UserID,
		UserEmail:   strings.TrimSpace(entry.UserEmail),
		Type:        entry.Type,
		Description: describe(entry),
		Amount:      amount,
		ExternalID:  &entry.ExternalID,
		Metadata:    datatypes.JSONMap(copyMetadata(entry.Metadata)),
		CreatedAt:   s.clock.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		if err := s.accounts.Ensure(ctx, tx, entry.UserID, txn.UserEmail, now); err != nil {
			return err
		}
		if txn.UserEmail == "" {
			account, err := s.accounts.FindByUserID(ctx, tx, entry.UserID)
			if err != nil {
				return err
			}
			if account != nil {
				txn.UserEmail = account.Email
			}
		}

		if coupon != nil {
			redeemed, err := s.couponSvc.Redeem(ctx, tx, coupon.ID)
			if err != nil {
				return fmt.Errorf("%w: %w", ledgerdomain.ErrCouponSystem, err)
			}
			if redeemed {
				credit, discount := coupondomain.CreditFor(entry.Amount, *coupon)
				code := coupon.Code
				txn.Amount = credit
				txn.CouponCode = &code
				txn.DiscountAmount = &discount
				txn.Metadata["coupon_id"] = coupon.ID.String()
			} else {
				log.Warn("coupon exhausted before redemption, crediting full amount",
					zap.String("coupon_id", coupon.ID.String()),
				)
			}
		}

		inserted, err := s.repo.Insert(ctx, tx, txn)
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := s.repo.FindByExternalID(ctx, tx, entry.ExternalID)
			if err != nil {
				return err
			}
			already := &ledgerdomain.AlreadyRecordedError{ExternalID: entry.ExternalID}
			if existing != nil {
				already.TransactionID = existing.ID.String()
			}
			return already
		}

		if err := s.accounts.IncrementBalance(ctx, tx, entry.UserID, txn.Amount, now); err != nil {
			return err
		}
		if newPlan != "" {
			if err := s.accounts.SetPlan(ctx, tx, entry.UserID, newPlan, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = classify(err)
		if errors.Is(err, ledgerdomain.ErrDatabase) {
			log.Error("ledger write failed", zap.String("db_error", string(db.Classify(err))), zap.Error(err))
		}
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordLedgerWrite(ctx, string(txn.Type), txn.Amount)
	}
	log.Info("ledger entry recorded",
		zap.String("transaction_id", txn.ID.String()),
		zap.Int64("amount", txn.Amount),
	)
	return txn, nil
}

// AdjustCredit applies an operator correction with the same atomic
// discipline as Record and writes the audit entry in the same transaction.
func (s *Service) AdjustCredit(ctx context.Context, req ledgerdomain.AdjustRequest) (*ledgerdomain.Transaction, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, ledgerdomain.ErrInvalidUserID
	}
	if req.Amount == 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ledgerdomain.ErrInvalidReason
	}

	txn := &ledgerdomain.Transaction{
		ID:          s.genID.Generate(),
		UserID:      userID,
		Type:        ledgerdomain.TransactionTypeAdjustment,
		Description: reason,
		Amount:      req.Amount,
		Metadata:    datatypes.JSONMap{"actor_id": req.ActorID},
		CreatedAt:   s.clock.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		account, err := s.accounts.FindByUserID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if account == nil {
			return accountdomain.ErrNotFound
		}
		txn.UserEmail = account.Email

		if _, err := s.repo.Insert(ctx, tx, txn); err != nil {
			return err
		}
		if err := s.accounts.IncrementBalance(ctx, tx, userID, txn.Amount, now); err != nil {
			return err
		}
		if s.auditSvc != nil {
			targetID := userID
			actorID := strings.TrimSpace(req.ActorID)
			if err := s.auditSvc.AuditLogTx(ctx, tx, string(auditdomain.ActorTypeAdmin), &actorID, "ledger.credit_adjusted", "account", &targetID, map[string]any{
				"transaction_id": txn.ID.String(),
				"amount":         txn.Amount,
				"reason":         reason,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, accountdomain.ErrNotFound) {
			return nil, err
		}
		return nil, classify(err)
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordLedgerWrite(ctx, string(txn.Type), txn.Amount)
	}
	s.log.Info("credit adjusted",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("user_id", userID),
		zap.Int64("amount", txn.Amount),
	)
	return txn, nil
}

func (s *Service) FindByExternalID(ctx context.Context, externalID string) (*ledgerdomain.Transaction, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, ledgerdomain.ErrInvalidExternalID
	}
	txn, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ledgerdomain.ErrDatabase, err)
	}
	return txn, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ledgerdomain.Transaction, error) {
	txnID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || txnID == 0 {
		return nil, ledgerdomain.ErrInvalidID
	}
	txn, err := s.repo.FindByID(ctx, s.db, txnID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, ledgerdomain.ErrNotFound
	}
	return txn, nil
}

func (s *Service) List(ctx context.Context, req ledgerdomain.ListRequest) (ledgerdomain.ListResponse, error) {
	pageSize := pagination.ClampPageSize(req.PageSize)

	filter := ledgerdomain.ListFilter{
		UserID: strings.TrimSpace(req.UserID),
		Limit:  pageSize,
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		rawID, createdAt, err := pagination.ParseToken(token)
		if err != nil {
			return ledgerdomain.ListResponse{}, ledgerdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(rawID)
		if err != nil || id == 0 {
			return ledgerdomain.ListResponse{}, ledgerdomain.ErrInvalidPageToken
		}
		filter.Cursor = &ledgerdomain.ListCursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return ledgerdomain.ListResponse{}, err
	}

	page, info := pagination.BuildCursorPageInfo(items, pageSize, func(item *ledgerdomain.Transaction) string {
		return pagination.CursorFor(item.ID.String(), item.CreatedAt)
	})

	out := make([]ledgerdomain.Transaction, 0, len(page))
	for _, item := range page {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return ledgerdomain.ListResponse{
		Transactions:  out,
		NextPageToken: info.NextPageToken,
		HasMore:       info.HasMore,
	}, nil
}

func (s *Service) Reconcile(ctx context.Context, userID string) (ledgerdomain.Reconciliation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ledgerdomain.Reconciliation{}, ledgerdomain.ErrInvalidUserID
	}
	row, err := s.repo.Reconcile(ctx, s.db, userID)
	if err != nil {
		return ledgerdomain.Reconciliation{}, err
	}
	if row == nil {
		return ledgerdomain.Reconciliation{}, accountdomain.ErrNotFound
	}
	return *row, nil
}

func (s *Service) FindDrift(ctx context.Context, limit int) ([]ledgerdomain.Reconciliation, error) {
	if limit <= 0 {
		limit = 200
	}
	return s.repo.FindDrift(ctx, s.db, limit)
}

// classify keeps typed outcomes intact and wraps everything else as a
// database failure.
func classify(err error) error {
	var already *ledgerdomain.AlreadyRecordedError
	switch {
	case errors.As(err, &already):
		return already
	case errors.Is(err, ledgerdomain.ErrCouponSystem):
		return err
	default:
		return fmt.Errorf("%w: %w", ledgerdomain.ErrDatabase, err)
	}
}

func describe(entry ledgerdomain.Entry) string {
	if desc := strings.TrimSpace(entry.Description); desc != "" {
		return desc
	}
	switch entry.Type {
	case ledgerdomain.TransactionTypeSubscription:
		return "Pro subscription"
	default:
		return "Credit top-up"
	}
}

func copyMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for key, value := range in {
		if strings.TrimSpace(key) == "" {
			continue
		}
		out[key] = value
	}
	return out
}
