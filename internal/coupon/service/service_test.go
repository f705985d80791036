package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/hrledger/internal/account/domain"
	accountrepo "github.com/smallbiznis/hrledger/internal/account/repository"
	"github.com/smallbiznis/hrledger/internal/clock"
	"github.com/smallbiznis/hrledger/internal/coupon/domain"
	"github.com/smallbiznis/hrledger/internal/coupon/repository"
	"github.com/smallbiznis/hrledger/internal/coupon/service"
	"github.com/smallbiznis/hrledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	repo  domain.Repository
	svc   domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	fake := clock.NewFakeClock(testNow)
	repo := repository.Provide()
	svc := service.New(service.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     repo,
		Accounts: accountrepo.Provide(),
	})
	return &fixture{db: db, node: node, clock: fake, repo: repo, svc: svc}
}

func (f *fixture) seed(t *testing.T, c domain.Coupon) domain.Coupon {
	t.Helper()

	c.ID = f.node.Generate()
	c.CreatedAt = testNow
	c.UpdatedAt = testNow
	if c.DiscountType == "" {
		c.DiscountType = domain.DiscountTypeFixed
		c.DiscountValue = 5000
	}
	require.NoError(t, f.repo.Insert(context.Background(), f.db, &c))
	return c
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) *domain.Coupon {
	t.Helper()

	c, err := f.repo.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func intPtr(v int) *int { return &v }

func TestValidateNotFound(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Validate(context.Background(), "user_1", "NOPE")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, domain.MessageNotFound, res.Message)
}

func TestValidateNormalizesCode(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.Coupon{Code: "WELCOME50", Active: true})

	res, err := f.svc.Validate(context.Background(), "user_1", "  welcome50 ")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, domain.MessageApplied, res.Message)
	require.NotNil(t, res.Coupon)
	assert.Equal(t, "WELCOME50", res.Coupon.Code)
}

func TestValidateInactive(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.Coupon{Code: "OLD", Active: false})

	res, err := f.svc.Validate(context.Background(), "user_1", "OLD")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, domain.MessageInactive, res.Message)
}

func TestValidateExpiredDeactivates(t *testing.T) {
	f := newFixture(t)
	yesterday := testNow.Add(-24 * time.Hour)
	c := f.seed(t, domain.Coupon{Code: "SUMMER", Active: true, ExpiresAt: &yesterday})

	res, err := f.svc.Validate(context.Background(), "user_1", "SUMMER")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, domain.MessageExpired, res.Message)
	assert.False(t, f.reload(t, c.ID).Active)

	res, err = f.svc.Validate(context.Background(), "user_1", "SUMMER")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageInactive, res.Message)
}

func TestValidateUsageCapDeactivates(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, domain.Coupon{Code: "FIRST10", Active: true, MaxUses: intPtr(10), Uses: 10})

	res, err := f.svc.Validate(context.Background(), "user_1", "FIRST10")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, domain.MessageUsageLimit, res.Message)
	assert.False(t, f.reload(t, c.ID).Active)
}

func TestValidateScopeMismatchHasNoSideEffect(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, domain.Coupon{Code: "VIP", Active: true, ApplicableTo: []string{"user:user_vip"}})

	res, err := f.svc.Validate(context.Background(), "user_1", "VIP")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, domain.MessageNotApplicable, res.Message)
	assert.True(t, f.reload(t, c.ID).Active)

	res, err = f.svc.Validate(context.Background(), "user_vip", "VIP")
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestValidatePlanScope(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.Coupon{Code: "AGENCY", Active: true, ApplicableTo: []string{"plan:agency"}})

	accounts := accountrepo.Provide()
	require.NoError(t, accounts.Ensure(context.Background(), f.db, "user_ag", "", testNow))
	require.NoError(t, accounts.SetPlan(context.Background(), f.db, "user_ag", accountdomain.PlanAgency, testNow))

	res, err := f.svc.Validate(context.Background(), "user_ag", "AGENCY")
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

type failingRepo struct {
	domain.Repository
}

func (failingRepo) FindByCode(context.Context, *gorm.DB, string) (*domain.Coupon, error) {
	return nil, errors.New("connection reset")
}

func TestValidateReturnsInfrastructureError(t *testing.T) {
	svc := service.New(service.Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(testNow),
		Repo:  failingRepo{},
	})

	_, err := svc.Validate(context.Background(), "user_1", "ANY")
	assert.Error(t, err)
}

func TestRedeemRespectsCap(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, domain.Coupon{Code: "ONCE", Active: true, MaxUses: intPtr(1)})

	ok, err := f.svc.Redeem(context.Background(), f.db, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Redeem(context.Background(), f.db, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, f.reload(t, c.ID).Uses)
}

func TestCreateValidatesAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateRequest{Code: "HALF", DiscountType: domain.DiscountTypePercentage, DiscountValue: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidDiscountValue)

	_, err = f.svc.Create(ctx, domain.CreateRequest{Code: "HALF", DiscountType: "bogus", DiscountValue: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidDiscountType)

	created, err := f.svc.Create(ctx, domain.CreateRequest{
		Code:          "half",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: 50,
		ApplicableTo:  []string{" plan:pro ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "HALF", created.Code)
	assert.Equal(t, []string{"plan:pro"}, []string(created.ApplicableTo))

	_, err = f.svc.Create(ctx, domain.CreateRequest{Code: "HALF", DiscountType: domain.DiscountTypeFixed, DiscountValue: 100})
	assert.ErrorIs(t, err, domain.ErrCodeTaken)
}

func TestDeactivateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, domain.Coupon{Code: "A", Active: true})
	f.seed(t, domain.Coupon{Code: "B", Active: true})

	deactivated, err := f.svc.Deactivate(ctx, a.ID.String())
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	active, err := f.svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B", active[0].Code)

	_, err = f.svc.Deactivate(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
