// Package money formats integer cent amounts for receipts and emails.
package money

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Format renders cents as "<symbol> 1,234.50". Negative amounts keep a
// leading minus sign.
func Format(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := printer.Sprintf("%d", cents/100)
	return fmt.Sprintf("%s%s %s.%02d", sign, Symbol(currency), whole, cents%100)
}

// FormatZAR is Format for South African rand.
func FormatZAR(cents int64) string {
	return Format(cents, "ZAR")
}

func Symbol(currency string) string {
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "", "ZAR":
		return "R"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	default:
		return strings.ToUpper(strings.TrimSpace(currency))
	}
}

// Label title-cases an identifier such as "topup" for display.
func Label(v string) string {
	v = strings.ReplaceAll(strings.TrimSpace(v), "_", " ")
	return cases.Title(language.English).String(v)
}
