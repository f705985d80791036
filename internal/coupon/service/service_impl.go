package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/hrledger/internal/account/domain"
	"github.com/smallbiznis/hrledger/internal/clock"
	"github.com/smallbiznis/hrledger/internal/coupon/domain"
	obsmetrics "github.com/smallbiznis/hrledger/internal/observability/metrics"
	"github.com/smallbiznis/hrledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Accounts   accountdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	accounts   accountdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("coupon.service"),
		genID:      p.GenID,
		clock:      c,
		repo:       p.Repo,
		accounts:   p.Accounts,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Validate(ctx context.Context, userID, code string) (domain.ValidationResult, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return s.reject(ctx, "not_found", domain.MessageNotFound), nil
	}

	coupon, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if coupon == nil {
		return s.reject(ctx, "not_found", domain.MessageNotFound), nil
	}
	if !coupon.Active {
		return s.reject(ctx, "inactive", domain.MessageInactive), nil
	}

	now := s.clock.Now()
	if coupon.Expired(now) {
		s.deactivate(ctx, coupon, "expired")
		return s.reject(ctx, "expired", domain.MessageExpired), nil
	}
	if coupon.Exhausted() {
		s.deactivate(ctx, coupon, "usage_limit")
		return s.reject(ctx, "usage_limit", domain.MessageUsageLimit), nil
	}

	if len(coupon.ApplicableTo) > 0 {
		plan := ""
		if s.accounts != nil && strings.TrimSpace(userID) != "" {
			account, err := s.accounts.FindByUserID(ctx, s.db, userID)
			if err != nil {
				return domain.ValidationResult{}, err
			}
			if account != nil {
				plan = string(account.Plan)
			}
		}
		if !coupon.AppliesTo(userID, plan) {
			return s.reject(ctx, "not_applicable", domain.MessageNotApplicable), nil
		}
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordCouponValidation(ctx, "applied")
	}
	return domain.ValidationResult{Valid: true, Message: domain.MessageApplied, Coupon: coupon}, nil
}

func (s *Service) reject(ctx context.Context, result, message string) domain.ValidationResult {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordCouponValidation(ctx, result)
	}
	return domain.ValidationResult{Valid: false, Message: message}
}

// deactivate flips the coupon off after expiry or exhaustion. A failed write
// leaves the rejection in place; the next validation retries it.
func (s *Service) deactivate(ctx context.Context, coupon *domain.Coupon, reason string) {
	if err := s.repo.Deactivate(ctx, s.db, coupon.ID, s.clock.Now()); err != nil {
		s.log.Warn("failed to deactivate coupon",
			zap.String("coupon_id", coupon.ID.String()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	coupon.Active = false
	s.log.Info("coupon deactivated",
		zap.String("coupon_id", coupon.ID.String()),
		zap.String("reason", reason),
	)
}

func (s *Service) Redeem(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error) {
	if tx == nil {
		tx = s.db
	}
	return s.repo.Redeem(ctx, tx, id, s.clock.Now())
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Coupon, error) {
	code := domain.NormalizeCode(req.Code)
	if code == "" {
		return domain.Coupon{}, domain.ErrInvalidCode
	}

	switch req.DiscountType {
	case domain.DiscountTypeFixed:
		if req.DiscountValue <= 0 {
			return domain.Coupon{}, domain.ErrInvalidDiscountValue
		}
	case domain.DiscountTypePercentage:
		if req.DiscountValue < 1 || req.DiscountValue > 99 {
			return domain.Coupon{}, domain.ErrInvalidDiscountValue
		}
	default:
		return domain.Coupon{}, domain.ErrInvalidDiscountType
	}
	if req.MaxUses != nil && *req.MaxUses <= 0 {
		return domain.Coupon{}, domain.ErrInvalidMaxUses
	}

	scope := make([]string, 0, len(req.ApplicableTo))
	for _, entry := range req.ApplicableTo {
		if entry = strings.TrimSpace(entry); entry != "" {
			scope = append(scope, entry)
		}
	}

	now := s.clock.Now()
	coupon := domain.Coupon{
		ID:            s.genID.Generate(),
		Code:          code,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MaxUses:       req.MaxUses,
		Active:        true,
		ApplicableTo:  scope,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.ExpiresAt != nil {
		expiresAt := req.ExpiresAt.UTC()
		coupon.ExpiresAt = &expiresAt
	}

	if err := s.repo.Insert(ctx, s.db, &coupon); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Coupon{}, domain.ErrCodeTaken
		}
		return domain.Coupon{}, err
	}

	s.log.Info("coupon created",
		zap.String("coupon_id", coupon.ID.String()),
		zap.String("discount_type", string(coupon.DiscountType)),
	)
	return coupon, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) (domain.Coupon, error) {
	couponID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || couponID == 0 {
		return domain.Coupon{}, domain.ErrInvalidID
	}

	coupon, err := s.repo.FindByID(ctx, s.db, couponID)
	if err != nil {
		return domain.Coupon{}, err
	}
	if coupon == nil {
		return domain.Coupon{}, domain.ErrNotFound
	}
	if !coupon.Active {
		return *coupon, nil
	}

	now := s.clock.Now()
	if err := s.repo.Deactivate(ctx, s.db, couponID, now); err != nil {
		return domain.Coupon{}, err
	}
	coupon.Active = false
	coupon.UpdatedAt = now
	return *coupon, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.Coupon, error) {
	items, err := s.repo.List(ctx, s.db, activeOnly)
	if err != nil {
		return nil, err
	}

	coupons := make([]domain.Coupon, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		coupons = append(coupons, *item)
	}
	return coupons, nil
}
