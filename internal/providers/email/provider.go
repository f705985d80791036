package email

import (
	"context"
	"errors"
)

// Provider delivers a rendered HTML email.
type Provider interface {
	Name() string
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
}

var (
	ErrNoRecipients    = errors.New("email_no_recipients")
	ErrInvalidConfig   = errors.New("email_invalid_config")
	ErrSendFailed      = errors.New("email_send_failed")
	ErrUnknownProvider = errors.New("email_unknown_transport")
)

type NoOpProvider struct{}

func (p *NoOpProvider) Name() string { return "noop" }

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	return nil
}
