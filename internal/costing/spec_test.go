package costing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func mustCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog failed: %v", err)
	}
	return cat
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertNullDecimal(t *testing.T, field string, got decimal.NullDecimal, want string) {
	t.Helper()
	if want == "" {
		if got.Valid {
			t.Errorf("%s = %s, want null", field, got.Decimal)
		}
		return
	}
	if !got.Valid {
		t.Errorf("%s = null, want %s", field, want)
		return
	}
	if !got.Decimal.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", field, got.Decimal, want)
	}
}

func TestExtractSpec(t *testing.T) {
	cat := mustCatalog(t)

	tests := []struct {
		name   string
		input  string
		spec   string
		cut    string
		source SpecSource
	}{
		{"spec and cut after mm", "熱收縮套管 2.0mm * 180mm", "2.0", "180", SpecSourceMm},
		{"spec only", "玻璃纖維矽套管 10.0mm 1.5KV", "10", "", SpecSourceMm},
		{"x separator", "熱縮管 3.5mm x 85", "3.5", "85", SpecSourceMm},
		{"upper case MM", "熱縮管 4MM*100", "4", "100", SpecSourceMm},
		{"cut before mm", "熱縮管 Φ3mm 5 x 120mm", "3", "120", SpecSourceMm},
		{"leading numeric prefix", "規格 1.2.3mm", "1.2", "", SpecSourceMm},
		{"first occurrence without number", "規格 .mm 3mm", "", "", SpecSourceNone},
		{"awg fallback", "矽套管 18AWG", "1.2", "", SpecSourceAWG},
		{"awg slash gauge", "矽套管 1/0AWG", "9", "", SpecSourceAWG},
		{"unknown awg", "矽套管 99AWG", "", "", SpecSourceNone},
		{"no spec", "螺絲", "", "", SpecSourceNone},
		{"empty name", "", "", "", SpecSourceNone},
		{"blank name", "   ", "", "", SpecSourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cat.ExtractSpec(tt.input)
			assertNullDecimal(t, "specMm", got.SpecMm, tt.spec)
			assertNullDecimal(t, "cutMm", got.CutMm, tt.cut)
			if got.Source != tt.source {
				t.Errorf("source = %q, want %q", got.Source, tt.source)
			}
		})
	}
}

func TestExtractSpec_MmWinsOverAWG(t *testing.T) {
	cat := mustCatalog(t)

	got := cat.ExtractSpec("矽套管 3mm 18AWG")
	assertNullDecimal(t, "specMm", got.SpecMm, "3")
	if got.Source != SpecSourceMm {
		t.Errorf("source = %q, want mm", got.Source)
	}
}

func TestMeters(t *testing.T) {
	cat := mustCatalog(t)

	pieces := cat.ExtractSpec("熱收縮套管 2.0mm * 180mm")
	if got := Meters(dec("10"), pieces); !got.Equal(dec("1.8")) {
		t.Errorf("Meters with cut = %s, want 1.8", got)
	}

	reel := cat.ExtractSpec("玻璃纖維矽套管 10.0mm 1.5KV")
	if got := Meters(dec("25.5"), reel); !got.Equal(dec("25.5")) {
		t.Errorf("Meters without cut = %s, want 25.5", got)
	}
}

func TestFormatSpecName(t *testing.T) {
	spec := ExtractedSpec{
		SpecMm: decimal.NewNullDecimal(dec("2.5")),
		CutMm:  decimal.NewNullDecimal(dec("180")),
	}
	if got := FormatSpecName(spec); got != "2.5mm * 180mm" {
		t.Errorf("FormatSpecName = %q", got)
	}
	if got := FormatSpecName(ExtractedSpec{}); got != "" {
		t.Errorf("FormatSpecName(empty) = %q, want empty", got)
	}
}

func TestExtractSpec_FormattedNameRoundTrip(t *testing.T) {
	cat := mustCatalog(t)

	tests := []struct {
		name    string
		product string
		wantCut bool
	}{
		{"cut after spec", "熱收縮套管 2.0mm * 180mm", true},
		{"cut without unit", "3.5mm x 85", true},
		{"no cut", "玻璃纖維矽套管 10mm", false},
		{"awg sourced", "矽膠線 18AWG", false},
		{"leading prefix", "1.2.3mm", false},
		{"cut in pieces", "Φ3mm 5 x 120mm", true},
		{"bare fraction", ".5mm*3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := cat.ExtractSpec(tt.product)
			if !first.SpecMm.Valid {
				t.Fatalf("ExtractSpec(%q) found no spec", tt.product)
			}
			if first.HasCut() != tt.wantCut {
				t.Errorf("ExtractSpec(%q) cut = %v, want %v", tt.product, first.HasCut(), tt.wantCut)
			}

			formatted := FormatSpecName(first)
			again := cat.ExtractSpec(formatted)
			if !again.SpecMm.Decimal.Equal(first.SpecMm.Decimal) {
				t.Errorf("spec of %q = %s, want %s", formatted, again.SpecMm.Decimal, first.SpecMm.Decimal)
			}
			if again.CutMm.Valid != first.CutMm.Valid || !again.CutMm.Decimal.Equal(first.CutMm.Decimal) {
				t.Errorf("cut of %q = %v, want %v", formatted, again.CutMm, first.CutMm)
			}
		})
	}
}
