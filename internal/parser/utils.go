package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var leadingNumberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// parseNumber reads the longest numeric prefix of a cleaned cell, so "12.5米"
// reads as 12.5. It fails when there is no numeric prefix at all.
func parseNumber(s string) (decimal.Decimal, bool) {
	s = cleanCurrency(s)
	if s == "" {
		return decimal.Zero, false
	}

	token := leadingNumberPattern.FindString(s)
	if token == "" {
		return decimal.Zero, false
	}

	val, err := decimal.NewFromString(strings.TrimSuffix(token, "."))
	if err != nil {
		return decimal.Zero, false
	}
	return val, true
}

// cleanCurrency removes currency marks and thousands separators
// Also handles accounting notation: (123.45) → -123.45
func cleanCurrency(s string) string {
	s = strings.TrimSpace(s)

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimPrefix(s, "(")
		s = strings.TrimSuffix(s, ")")
		s = strings.TrimSpace(s)
	}

	s = strings.ReplaceAll(s, "NT$", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative && s != "" && !strings.HasPrefix(s, "-") {
		s = "-" + s
	}

	return s
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
