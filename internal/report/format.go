package report

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.RequireFromString("0.5")
)

// roundMoney rounds to whole units with halves going up, so -2.5 becomes -2
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}

// FormatMeters renders a length with three decimals
func FormatMeters(m decimal.Decimal) string {
	return m.StringFixed(3)
}

// FormatMoney renders an amount rounded to whole units with thousands
// separators
func FormatMoney(amount decimal.Decimal) string {
	s := roundMoney(amount).StringFixed(0)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if negative && s != "0" {
		return "-" + b.String()
	}
	return b.String()
}

// FormatPercent renders a ratio (0.25) as a percentage with one decimal
// ("25.0%")
func FormatPercent(ratio decimal.Decimal) string {
	return ratio.Mul(hundred).StringFixed(1) + "%"
}

// FormatRate renders an optional exchange rate
func FormatRate(rate decimal.NullDecimal) string {
	if !rate.Valid {
		return "N/A"
	}
	return rate.Decimal.String()
}

// roundedMoney is the numeric cell value for money columns
func roundedMoney(d decimal.Decimal) float64 {
	return roundMoney(d).InexactFloat64()
}

// roundedMeters is the numeric cell value for meter columns
func roundedMeters(d decimal.Decimal) float64 {
	return d.Round(3).InexactFloat64()
}

// truncate shortens a string to maxLen runes with ellipsis
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
