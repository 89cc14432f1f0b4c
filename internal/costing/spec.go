package costing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// SpecSource records where a spec value came from
type SpecSource string

const (
	SpecSourceNone SpecSource = ""
	SpecSourceMm   SpecSource = "mm"
	SpecSourceAWG  SpecSource = "awg"
)

// ExtractedSpec is the nominal spec and optional cut length parsed from a
// product name. A valid CutMm means the line was sold in pieces.
type ExtractedSpec struct {
	SpecMm decimal.NullDecimal
	CutMm  decimal.NullDecimal
	Source SpecSource
}

// HasCut reports whether the sales unit is pieces rather than meters
func (s ExtractedSpec) HasCut() bool {
	return s.CutMm.Valid
}

var (
	// first "<number>mm"; only the first occurrence is considered
	specMmPattern = regexp.MustCompile(`(?i)([\d.]+)\s*mm`)

	// "3.5mm * 85", "2mm x 180"
	cutAfterSpecPattern = regexp.MustCompile(`(?i)mm\s*[x*]\s*(\d+(?:\.\d+)?)`)

	// "* 180mm", "x180mm"
	cutBeforeMmPattern = regexp.MustCompile(`(?i)[x*]\s*(\d+(?:\.\d+)?)\s*mm\b`)

	// "18AWG", "1/0AWG"
	awgPattern = regexp.MustCompile(`(?i)(\d+(?:/\d+)?)AWG`)

	leadingNumber = regexp.MustCompile(`^(\d+(?:\.\d*)?|\.\d+)`)
)

// ExtractSpec parses the spec (mm) and the cut length (mm) out of a product
// name. Missing values stay invalid; this never fails.
func (c *Catalog) ExtractSpec(name string) ExtractedSpec {
	var out ExtractedSpec
	if strings.TrimSpace(name) == "" {
		return out
	}

	if m := specMmPattern.FindStringSubmatch(name); m != nil {
		if v, ok := parseLeadingDecimal(m[1]); ok {
			out.SpecMm = decimal.NewNullDecimal(v)
			out.Source = SpecSourceMm
		}
	}

	out.CutMm = extractCut(name)

	if !out.SpecMm.Valid {
		if v, ok := c.lookupAWG(name); ok {
			out.SpecMm = decimal.NewNullDecimal(v)
			out.Source = SpecSourceAWG
		}
	}

	return out
}

func extractCut(name string) decimal.NullDecimal {
	for _, re := range []*regexp.Regexp{cutAfterSpecPattern, cutBeforeMmPattern} {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		v, err := decimal.NewFromString(m[1])
		if err != nil {
			continue
		}
		return decimal.NewNullDecimal(v)
	}
	return decimal.NullDecimal{}
}

func (c *Catalog) lookupAWG(name string) (decimal.Decimal, bool) {
	if c == nil || len(c.AWG) == 0 {
		return decimal.Zero, false
	}
	m := awgPattern.FindStringSubmatch(name)
	if m == nil {
		return decimal.Zero, false
	}
	mm, ok := c.AWG[m[1]]
	return mm, ok
}

// parseLeadingDecimal reads the longest numeric prefix of s ("1.2.3" -> 1.2).
// A lone "." has no numeric prefix.
func parseLeadingDecimal(s string) (decimal.Decimal, bool) {
	token := leadingNumber.FindString(s)
	if token == "" {
		return decimal.Zero, false
	}
	token = strings.TrimSuffix(token, ".")
	v, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// FormatSpecName renders a spec and optional cut back into product-name form
func FormatSpecName(spec ExtractedSpec) string {
	if !spec.SpecMm.Valid {
		return ""
	}
	name := fmt.Sprintf("%smm", spec.SpecMm.Decimal.String())
	if spec.CutMm.Valid {
		name += fmt.Sprintf(" * %smm", spec.CutMm.Decimal.String())
	}
	return name
}
