package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/smallbiznis/hrledger/internal/clock"
	"github.com/smallbiznis/hrledger/internal/config"
	"github.com/smallbiznis/hrledger/internal/notification/domain"
	"github.com/smallbiznis/hrledger/internal/notification/repository"
	"github.com/smallbiznis/hrledger/internal/notification/service"
	obsmetrics "github.com/smallbiznis/hrledger/internal/observability/metrics"
	"github.com/smallbiznis/hrledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeEmail struct {
	err  error
	sent []sentMail
}

func (f *fakeEmail) Name() string { return "fake" }

func (f *fakeEmail) Send(ctx context.Context, to []string, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func newDispatcher(t *testing.T, mail *fakeEmail) (domain.Dispatcher, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db := testutil.NewDB(t)
	fake := clock.NewFakeClock(testNow)
	d := service.NewDispatcher(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Cfg:   config.Config{Email: config.EmailConfig{ProductName: "HR Docs", SupportEmail: "help@example.com"}},
		Clock: fake,
		Email: mail,
		Repo:  repository.Provide(),
	})
	return d, db, fake
}

func receipt(t *testing.T) domain.Receipt {
	node := testutil.NewNode(t)
	return domain.Receipt{
		TransactionID: node.Generate(),
		UserID:        "user_1",
		Recipient:     "owner@example.com",
		Type:          "topup",
		Description:   "Credit top-up",
		Reference:     "ch_1",
		Currency:      "ZAR",
		AmountPaid:    10000,
		Credited:      20000,
		Discount:      10000,
		CouponCode:    "HALF",
		CreatedAt:     testNow,
	}
}

func TestNotifySendsReceipt(t *testing.T) {
	mail := &fakeEmail{}
	d, db, _ := newDispatcher(t, mail)

	res := d.Notify(context.Background(), receipt(t))
	assert.True(t, res.Sent)
	assert.NoError(t, res.Err)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"owner@example.com"}, mail.sent[0].to)
	assert.Equal(t, "HR Docs: R 200.00 credited", mail.sent[0].subject)
	assert.Contains(t, mail.sent[0].body, "R 100.00")
	assert.Contains(t, mail.sent[0].body, "Coupon HALF")
	assert.Contains(t, mail.sent[0].body, "help@example.com")
	assert.Equal(t, int64(0), testutil.Count(t, db, "notification_outbox", ""))
}

func TestNotifyFailureIsQueuedNotReturned(t *testing.T) {
	mail := &fakeEmail{err: errors.New("smtp down")}
	d, db, _ := newDispatcher(t, mail)

	res := d.Notify(context.Background(), receipt(t))
	assert.False(t, res.Sent)
	assert.True(t, res.Queued)
	assert.Error(t, res.Err)
	assert.Equal(t, int64(1), testutil.Count(t, db, "notification_outbox", "attempts = ?", 1))
}

func TestNotifyFailureKeepsLastErrorValidUTF8(t *testing.T) {
	// 511 ASCII bytes then a two-byte rune straddles the 512 byte cap.
	long := strings.Repeat("x", 511) + "é" + strings.Repeat("y", 64)
	mail := &fakeEmail{err: errors.New(long)}
	d, db, _ := newDispatcher(t, mail)

	res := d.Notify(context.Background(), receipt(t))
	require.True(t, res.Queued)

	var lastError string
	require.NoError(t, db.Raw(`SELECT last_error FROM notification_outbox`).Scan(&lastError).Error)
	assert.True(t, utf8.ValidString(lastError))
	assert.Equal(t, strings.Repeat("x", 511), lastError)
}

func TestNotifySkipsWithoutRecipient(t *testing.T) {
	mail := &fakeEmail{}
	d, _, _ := newDispatcher(t, mail)

	r := receipt(t)
	r.Recipient = " "
	res := d.Notify(context.Background(), r)
	assert.True(t, res.Skipped)
	assert.ErrorIs(t, res.Err, domain.ErrNoRecipient)
	assert.Empty(t, mail.sent)
}

func TestRetryPendingDeliversQueuedMail(t *testing.T) {
	mail := &fakeEmail{err: errors.New("smtp down")}
	d, db, fake := newDispatcher(t, mail)
	ctx := context.Background()

	d.Notify(ctx, receipt(t))

	sent, err := d.RetryPending(ctx, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "not due yet")

	fake.Advance(2 * time.Minute)
	sent, err = d.RetryPending(ctx, 10, 5)
	assert.Equal(t, 0, sent)
	assert.ErrorIs(t, err, obsmetrics.ErrDeliveryFailed)
	assert.Equal(t, int64(1), testutil.Count(t, db, "notification_outbox", "attempts = ?", 2))

	mail.err = nil
	fake.Advance(time.Hour)
	sent, err = d.RetryPending(ctx, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, int64(1), testutil.Count(t, db, "notification_outbox", "sent_at IS NOT NULL"))
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Minute, service.RetryDelay(0))
	assert.Equal(t, time.Minute, service.RetryDelay(1))
	assert.Equal(t, 4*time.Minute, service.RetryDelay(3))
	assert.Equal(t, time.Hour, service.RetryDelay(10))
}
