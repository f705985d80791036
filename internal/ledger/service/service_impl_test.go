package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/hrledger/internal/account/domain"
	accountrepo "github.com/smallbiznis/hrledger/internal/account/repository"
	auditrepo "github.com/smallbiznis/hrledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/hrledger/internal/audit/service"
	"github.com/smallbiznis/hrledger/internal/clock"
	coupondomain "github.com/smallbiznis/hrledger/internal/coupon/domain"
	couponrepo "github.com/smallbiznis/hrledger/internal/coupon/repository"
	couponservice "github.com/smallbiznis/hrledger/internal/coupon/service"
	"github.com/smallbiznis/hrledger/internal/ledger/domain"
	"github.com/smallbiznis/hrledger/internal/ledger/repository"
	"github.com/smallbiznis/hrledger/internal/ledger/service"
	"github.com/smallbiznis/hrledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	accounts accountdomain.Repository
	coupons  coupondomain.Repository
	svc      domain.Service
}

func newFixture(t *testing.T, couponSvc coupondomain.Service) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	fake := clock.NewFakeClock(testNow)
	accounts := accountrepo.Provide()
	coupons := couponrepo.Provide()
	if couponSvc == nil {
		couponSvc = couponservice.New(couponservice.Params{
			DB:       db,
			Log:      zap.NewNop(),
			GenID:    node,
			Clock:    fake,
			Repo:     coupons,
			Accounts: accounts,
		})
	}
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
	})
	svc := service.NewService(service.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Repo:      repository.Provide(),
		Accounts:  accounts,
		CouponSvc: couponSvc,
		AuditSvc:  audit,
	})
	return &fixture{db: db, node: node, clock: fake, accounts: accounts, coupons: coupons, svc: svc}
}

func (f *fixture) seedCoupon(t *testing.T, c coupondomain.Coupon) coupondomain.Coupon {
	t.Helper()

	c.ID = f.node.Generate()
	c.Active = true
	c.CreatedAt = testNow
	c.UpdatedAt = testNow
	require.NoError(t, f.coupons.Insert(context.Background(), f.db, &c))
	return c
}

func (f *fixture) account(t *testing.T, userID string) *accountdomain.Account {
	t.Helper()

	acc, err := f.accounts.FindByUserID(context.Background(), f.db, userID)
	require.NoError(t, err)
	require.NotNil(t, acc)
	return acc
}

type failingCoupons struct {
	coupondomain.Service
	err error
}

func (f failingCoupons) Validate(context.Context, string, string) (coupondomain.ValidationResult, error) {
	return coupondomain.ValidationResult{}, f.err
}

func topup(externalID string, amount int64, code string) domain.Entry {
	return domain.Entry{
		ExternalID: externalID,
		UserID:     "user_1",
		UserEmail:  "owner@example.com",
		Type:       domain.TransactionTypeTopup,
		Amount:     amount,
		CouponCode: code,
	}
}

func TestRecordTopupWithoutCoupon(t *testing.T) {
	f := newFixture(t, nil)

	txn, err := f.svc.Record(context.Background(), topup("ch_1", 10000, ""))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), txn.Amount)
	assert.Nil(t, txn.CouponCode)
	assert.Equal(t, "Credit top-up", txn.Description)

	acc := f.account(t, "user_1")
	assert.Equal(t, int64(10000), acc.Balance)
	assert.Equal(t, accountdomain.PlanPayg, acc.Plan)
}

func TestRecordIsIdempotentPerExternalID(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Record(ctx, topup("ch_dup", 10000, ""))
	require.NoError(t, err)

	_, err = f.svc.Record(ctx, topup("ch_dup", 10000, ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyRecorded))

	var already *domain.AlreadyRecordedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, first.ID.String(), already.TransactionID)

	assert.Equal(t, int64(1), testutil.Count(t, f.db, "transactions", "external_id = ?", "ch_dup"))
	assert.Equal(t, int64(10000), f.account(t, "user_1").Balance)
}

func TestRecordSubscriptionDebitsAndUpgradesPlan(t *testing.T) {
	f := newFixture(t, nil)

	txn, err := f.svc.Record(context.Background(), domain.Entry{
		ExternalID: "ch_sub",
		UserID:     "user_1",
		UserEmail:  "owner@example.com",
		Type:       domain.TransactionTypeSubscription,
		Amount:     74700,
		CouponCode: "IGNORED",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-74700), txn.Amount)
	assert.Nil(t, txn.CouponCode)

	acc := f.account(t, "user_1")
	assert.Equal(t, accountdomain.PlanPro, acc.Plan)
	assert.Equal(t, int64(-74700), acc.Balance)
}

func TestRecordPercentageCoupon(t *testing.T) {
	f := newFixture(t, nil)
	c := f.seedCoupon(t, coupondomain.Coupon{
		Code:          "HALF",
		DiscountType:  coupondomain.DiscountTypePercentage,
		DiscountValue: 50,
	})

	txn, err := f.svc.Record(context.Background(), topup("ch_pct", 10000, "half"))
	require.NoError(t, err)
	assert.Equal(t, int64(20000), txn.Amount)
	require.NotNil(t, txn.CouponCode)
	assert.Equal(t, "HALF", *txn.CouponCode)
	require.NotNil(t, txn.DiscountAmount)
	assert.Equal(t, int64(10000), *txn.DiscountAmount)

	assert.Equal(t, int64(20000), f.account(t, "user_1").Balance)

	reloaded, err := f.coupons.FindByID(context.Background(), f.db, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Uses)
}

func TestRecordFixedCoupon(t *testing.T) {
	f := newFixture(t, nil)
	f.seedCoupon(t, coupondomain.Coupon{
		Code:          "BONUS50",
		DiscountType:  coupondomain.DiscountTypeFixed,
		DiscountValue: 5000,
	})

	txn, err := f.svc.Record(context.Background(), topup("ch_fixed", 10000, "BONUS50"))
	require.NoError(t, err)
	assert.Equal(t, int64(15000), txn.Amount)
	assert.Equal(t, int64(15000), f.account(t, "user_1").Balance)
}

func TestRecordInvalidCouponCreditsFullPrice(t *testing.T) {
	f := newFixture(t, nil)
	past := testNow.Add(-time.Hour)
	f.seedCoupon(t, coupondomain.Coupon{
		Code:          "OLD",
		DiscountType:  coupondomain.DiscountTypeFixed,
		DiscountValue: 5000,
		ExpiresAt:     &past,
	})

	txn, err := f.svc.Record(context.Background(), topup("ch_open", 10000, "OLD"))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), txn.Amount)
	assert.Nil(t, txn.CouponCode)

	_, err = f.svc.Record(context.Background(), topup("ch_open_2", 10000, "MISSING"))
	require.NoError(t, err)
	assert.Equal(t, int64(20000), f.account(t, "user_1").Balance)
}

func TestRecordCouponUsageCapFallsBackToFullPrice(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	maxUses := 1
	c := f.seedCoupon(t, coupondomain.Coupon{
		Code:          "ONCE",
		DiscountType:  coupondomain.DiscountTypePercentage,
		DiscountValue: 50,
		MaxUses:       &maxUses,
	})

	first, err := f.svc.Record(ctx, topup("ch_cap_1", 10000, "ONCE"))
	require.NoError(t, err)
	assert.Equal(t, int64(20000), first.Amount)

	second, err := f.svc.Record(ctx, topup("ch_cap_2", 10000, "ONCE"))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), second.Amount)
	assert.Nil(t, second.CouponCode)

	assert.Equal(t, int64(30000), f.account(t, "user_1").Balance)

	reloaded, err := f.coupons.FindByID(ctx, f.db, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Uses)
	assert.False(t, reloaded.Active)
}

func TestRecordCouponSystemFailureWritesNothing(t *testing.T) {
	f := newFixture(t, failingCoupons{err: errors.New("connection refused")})

	_, err := f.svc.Record(context.Background(), topup("ch_closed", 10000, "HALF"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCouponSystem))

	assert.Equal(t, int64(0), testutil.Count(t, f.db, "transactions", "external_id = ?", "ch_closed"))
	assert.Equal(t, int64(0), testutil.Count(t, f.db, "accounts", "user_id = ?", "user_1"))
}

func TestRecordRejectsInvalidEntries(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, domain.Entry{UserID: "u", Type: domain.TransactionTypeTopup, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidExternalID)

	_, err = f.svc.Record(ctx, domain.Entry{ExternalID: "x", Type: domain.TransactionTypeTopup, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)

	_, err = f.svc.Record(ctx, domain.Entry{ExternalID: "x", UserID: "u", Type: domain.TransactionTypeTopup})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Record(ctx, domain.Entry{ExternalID: "x", UserID: "u", Type: "refund", Amount: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestAdjustCreditIsAudited(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, topup("ch_base", 10000, ""))
	require.NoError(t, err)

	txn, err := f.svc.AdjustCredit(ctx, domain.AdjustRequest{
		UserID:  "user_1",
		Amount:  -2500,
		Reason:  "duplicate charge refund",
		ActorID: "admin_1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeAdjustment, txn.Type)
	assert.Nil(t, txn.ExternalID)
	assert.Equal(t, int64(7500), f.account(t, "user_1").Balance)
	assert.Equal(t, int64(1), testutil.Count(t, f.db, "audit_logs", "action = ?", "ledger.credit_adjusted"))

	_, err = f.svc.AdjustCredit(ctx, domain.AdjustRequest{UserID: "user_1", Amount: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidReason)

	_, err = f.svc.AdjustCredit(ctx, domain.AdjustRequest{UserID: "ghost", Amount: 100, Reason: "x"})
	assert.ErrorIs(t, err, accountdomain.ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i, id := range []string{"ch_a", "ch_b", "ch_c"} {
		f.clock.Set(testNow.Add(time.Duration(i) * time.Minute))
		_, err := f.svc.Record(ctx, topup(id, 1000, ""))
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, domain.ListRequest{UserID: "user_1", PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextPageToken)

	next, err := f.svc.List(ctx, domain.ListRequest{UserID: "user_1", PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, next.Transactions, 1)
	assert.False(t, next.HasMore)

	_, err = f.svc.List(ctx, domain.ListRequest{PageToken: "%%%"})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func TestReconcileDetectsDrift(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, topup("ch_r", 10000, ""))
	require.NoError(t, err)

	rec, err := f.svc.Reconcile(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, rec.Consistent())

	require.NoError(t, f.db.Exec("UPDATE accounts SET balance = balance + 1 WHERE user_id = ?", "user_1").Error)

	drift, err := f.svc.FindDrift(ctx, 10)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, int64(1), drift[0].Drift())
}

func TestGetTransaction(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	txn, err := f.svc.Record(ctx, topup("ch_get", 1000, ""))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, txn.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "ch_get", *got.ExternalID)

	_, err = f.svc.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.Get(ctx, f.node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
