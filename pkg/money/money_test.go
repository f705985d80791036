package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "R 100.00", FormatZAR(10000))
	assert.Equal(t, "R 747.00", FormatZAR(74700))
	assert.Equal(t, "R 12,345.05", FormatZAR(1234505))
	assert.Equal(t, "-R 747.00", FormatZAR(-74700))
	assert.Equal(t, "R 0.99", FormatZAR(99))
	assert.Equal(t, "$ 1.00", Format(100, "usd"))
	assert.Equal(t, "KES 1.00", Format(100, "kes"))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Topup", Label("topup"))
	assert.Equal(t, "Credit Adjusted", Label("credit_adjusted"))
}
