package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/mrz1836/postmark"
	"github.com/smallbiznis/hrledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromConfigSelectsTransport(t *testing.T) {
	p, err := NewFromConfig(config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "noop", p.Name())

	p, err = NewFromConfig(config.Config{Email: config.EmailConfig{Transport: "smtp", SMTPHost: "localhost", SMTPPort: 1025}})
	require.NoError(t, err)
	assert.Equal(t, "smtp", p.Name())

	_, err = NewFromConfig(config.Config{Email: config.EmailConfig{Transport: "postmark"}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewFromConfig(config.Config{Email: config.EmailConfig{Transport: "pigeon"}})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestSMTPSendBuildsMessage(t *testing.T) {
	p := NewSMTP(Config{Host: "mail.local", Port: 25, From: "billing@example.com"})

	var gotAddr string
	var gotMsg []byte
	p.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Nil(t, a)
		assert.Equal(t, []string{"owner@example.com"}, to)
		return nil
	}

	err := p.Send(context.Background(), []string{"owner@example.com"}, "Receipt\r\nBcc: x@evil", "<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "mail.local:25", gotAddr)

	msg := string(gotMsg)
	assert.Contains(t, msg, "Subject: ReceiptBcc: x@evil\r\n")
	assert.True(t, strings.HasSuffix(msg, "<p>hi</p>"))
}

func TestSMTPSendWrapsFailure(t *testing.T) {
	p := NewSMTP(Config{Host: "mail.local", Port: 25})
	p.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := p.Send(context.Background(), []string{"a@example.com"}, "s", "b")
	assert.ErrorIs(t, err, ErrSendFailed)

	assert.ErrorIs(t, p.Send(context.Background(), nil, "s", "b"), ErrNoRecipients)
}

type fakePostmark struct {
	sent postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (f *fakePostmark) SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error) {
	f.sent = email
	return f.resp, f.err
}

func TestPostmarkSend(t *testing.T) {
	fake := &fakePostmark{}
	p := &PostmarkProvider{client: fake, cfg: PostmarkConfig{SenderEmail: "billing@example.com", SupportEmail: "help@example.com"}}

	require.NoError(t, p.Send(context.Background(), []string{"a@example.com", "b@example.com"}, "Receipt", "<p/>"))
	assert.Equal(t, "a@example.com,b@example.com", fake.sent.To)
	assert.Equal(t, "help@example.com", fake.sent.ReplyTo)

	fake.resp = postmark.EmailResponse{ErrorCode: 406, Message: "inactive recipient"}
	assert.ErrorIs(t, p.Send(context.Background(), []string{"a@example.com"}, "Receipt", "<p/>"), ErrSendFailed)
}
