package costing

import "github.com/shopspring/decimal"

// SalesLine is one ledger row as handed to the pipeline
type SalesLine struct {
	Row      int
	Customer string
	ItemCode string
	Name     string
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

// PricedLine is a sales line with its resolved cost and profit
type PricedLine struct {
	SalesLine
	Spec           ExtractedSpec
	Classification Classification
	Meters         decimal.Decimal
	UnitPrice      decimal.Decimal
	Cost           decimal.Decimal
	Profit         decimal.Decimal
	Surcharge      decimal.Decimal
	ColorClass     ColorClass
	Resolved       bool
	Reason         Reason
}

// Meters converts a quantity to meters: pieces × cut / 1000 when the line has
// a cut length, otherwise the quantity is already in meters
func Meters(quantity decimal.Decimal, spec ExtractedSpec) decimal.Decimal {
	if !spec.CutMm.Valid {
		return quantity
	}
	return quantity.Mul(spec.CutMm.Decimal).Shift(-3)
}

// Assemble computes meters, cost and profit for one line. An unresolved
// price yields cost 0 and profit equal to the amount.
func Assemble(line SalesLine, spec ExtractedSpec, cls Classification, res Resolution) PricedLine {
	meters := Meters(line.Quantity, spec)

	unit := decimal.Zero
	if res.Resolved {
		unit = res.UnitPrice
	}
	cost := unit.Mul(meters)

	return PricedLine{
		SalesLine:      line,
		Spec:           spec,
		Classification: cls,
		Meters:         meters,
		UnitPrice:      unit,
		Cost:           cost,
		Profit:         line.Amount.Sub(cost),
		Surcharge:      res.Surcharge,
		ColorClass:     res.ColorClass,
		Resolved:       res.Resolved,
		Reason:         res.Reason,
	}
}
