package providers

import (
	"github.com/smallbiznis/hrledger/internal/providers/email"
	"github.com/smallbiznis/hrledger/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
