package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyCode is the ISO 4217 code of every amount handled by the service.
const CurrencyCode = "BRL"

const currencySymbol = "R$"

// FormatBRL renders an amount the way pt-BR formats BRL currency: "R$ 1.234,56".
// Values are rounded half away from zero to two places; negatives carry a leading
// minus ("-R$ 50,00") and anything that rounds to zero prints as "R$ 0,00".
func FormatBRL(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	negative := rounded.IsNegative()
	whole, cents, _ := strings.Cut(rounded.Abs().StringFixed(2), ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(currencySymbol)
	b.WriteByte(' ')
	b.WriteString(groupThousands(whole))
	b.WriteByte(',')
	b.WriteString(cents)
	return b.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3)
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
