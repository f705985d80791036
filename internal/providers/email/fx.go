package email

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/hrledger/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Email.Transport)) {
	case "", "noop":
		return &NoOpProvider{}, nil
	case "smtp":
		return NewSMTP(Config{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.SMTPFrom,
		}), nil
	case "postmark":
		return NewPostmark(PostmarkConfig{
			ServerToken:  cfg.Email.PostmarkServerToken,
			AccountToken: cfg.Email.PostmarkAccountToken,
			SenderEmail:  cfg.Email.SenderEmail,
			SupportEmail: cfg.Email.SupportEmail,
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Email.Transport)
	}
}
