package costing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Reason explains why a line was left without a cost
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNoSpec         Reason = "no_spec"
	ReasonNoCatalogEntry Reason = "no_catalog_entry"
	ReasonNoExchangeRate Reason = "no_exchange_rate"
	ReasonUnpriced       Reason = "unpriced"
)

// Resolution is the outcome of a unit cost lookup. When Resolved is false
// UnitPrice is zero and Reason says why.
type Resolution struct {
	UnitPrice  decimal.Decimal // domestic currency per meter
	BasePrice  decimal.Decimal // catalog price in the family's own currency
	Surcharge  decimal.Decimal // multiplier applied to BasePrice, 1 when none
	ColorClass ColorClass
	Resolved   bool
	Reason     Reason
}

// PriceContext carries the per-run inputs of the resolver
type PriceContext struct {
	Geometry     *GeometrySnapshot
	ExchangeRate decimal.NullDecimal
}

// HasRate reports whether foreign prices can be converted
func (p PriceContext) HasRate() bool {
	return p.ExchangeRate.Valid && p.ExchangeRate.Decimal.IsPositive()
}

// Resolver turns a classified line into a per-meter unit price
type Resolver struct {
	cat *Catalog
}

func NewResolver(cat *Catalog) *Resolver {
	return &Resolver{cat: cat}
}

// Resolve follows exactly one lookup path, the one named by the classification
func (r *Resolver) Resolve(cls Classification, spec ExtractedSpec, itemCode, name string, ctx PriceContext) Resolution {
	code := normalizeCode(itemCode)

	switch cls.Family {
	case FamilyGeometry:
		return r.resolveGeometry(cls, spec, ctx)
	case FamilyDomestic:
		return r.resolveDomestic(spec, code, name)
	case FamilyForeign:
		return r.resolveForeign(cls, spec, code, name, ctx)
	default:
		return unresolved(ReasonUnpriced)
	}
}

func (r *Resolver) resolveGeometry(cls Classification, spec ExtractedSpec, ctx PriceContext) Resolution {
	if !spec.SpecMm.Valid {
		return unresolved(ReasonNoSpec)
	}
	cost, ok := ctx.Geometry.Lookup(cls.Series, spec.SpecMm.Decimal)
	if !ok {
		return unresolved(ReasonNoCatalogEntry)
	}
	return resolved(cost, decimal.NewFromInt(1), cost)
}

func (r *Resolver) resolveDomestic(spec ExtractedSpec, code, name string) Resolution {
	class := r.DomesticColorClass(code, name)
	if !spec.SpecMm.Valid {
		res := unresolved(ReasonNoSpec)
		res.ColorClass = class
		return res
	}

	for _, key := range specCandidates(spec.SpecMm.Decimal) {
		row, ok := r.cat.Domestic[key]
		if !ok {
			continue
		}
		price, ok := row[class]
		if !ok || !price.IsPositive() {
			break
		}
		res := resolved(price, decimal.NewFromInt(1), price)
		res.ColorClass = class
		return res
	}

	res := unresolved(ReasonNoCatalogEntry)
	res.ColorClass = class
	return res
}

// DomesticColorClass picks the colour class from the code suffix, then from
// name keywords, defaulting to black
func (r *Resolver) DomesticColorClass(itemCode, name string) ColorClass {
	d := r.cat.Rules.Domestic
	code := normalizeCode(itemCode)

	switch {
	case d.ThinSuffix != "" && strings.HasSuffix(code, d.ThinSuffix):
		return ColorThin
	case d.TransparentSuffix != "" && strings.HasSuffix(code, d.TransparentSuffix):
		return ColorTransparent
	case hasAnySuffix(code, d.ColorSuffixes):
		return ColorColor
	}

	switch {
	case containsAny(name, d.ThinKeywords):
		return ColorThin
	case containsAny(name, d.TransparentKeywords):
		return ColorTransparent
	case containsAny(name, d.ColorKeywords):
		return ColorColor
	}

	return ColorBlack
}

func (r *Resolver) resolveForeign(cls Classification, spec ExtractedSpec, code, name string, ctx PriceContext) Resolution {
	if !ctx.HasRate() {
		return unresolved(ReasonNoExchangeRate)
	}
	if !spec.SpecMm.Valid {
		return unresolved(ReasonNoSpec)
	}

	table := r.cat.Foreign[cls.Supplier]
	var base decimal.Decimal
	found := false
	for _, key := range specCandidates(spec.SpecMm.Decimal) {
		if p, ok := table[key]; ok {
			base, found = p, true
			break
		}
	}
	if !found {
		return unresolved(ReasonNoCatalogEntry)
	}

	factor := r.ForeignSurcharge(code, name)
	unit := base.Mul(factor).Mul(ctx.ExchangeRate.Decimal)
	return resolved(unit, factor, base)
}

// ForeignSurcharge returns the colour surcharge multiplier for a foreign
// item, or 1 when none applies
func (r *Resolver) ForeignSurcharge(itemCode, name string) decimal.Decimal {
	f := r.cat.Rules.Foreign
	code := normalizeCode(itemCode)
	one := decimal.NewFromInt(1)

	white := (f.WhiteKeyword != "" && strings.Contains(name, f.WhiteKeyword)) ||
		(f.WhiteSuffix != "" && strings.HasSuffix(code, f.WhiteSuffix))
	if white {
		return one
	}

	colored := containsAny(name, f.ColorKeywords) || hasAnySuffix(code, f.ColorSuffixes)
	if !colored {
		return one
	}

	for _, s := range f.Surcharges {
		if strings.Contains(code, s.Marker) {
			return s.Factor
		}
	}
	return one
}

func resolved(unit, surcharge, base decimal.Decimal) Resolution {
	return Resolution{
		UnitPrice: unit,
		BasePrice: base,
		Surcharge: surcharge,
		Resolved:  true,
	}
}

func unresolved(reason Reason) Resolution {
	return Resolution{
		UnitPrice: decimal.Zero,
		BasePrice: decimal.Zero,
		Surcharge: decimal.NewFromInt(1),
		Reason:    reason,
	}
}
