package metrics

import (
	"sort"

	"github.com/shopspring/decimal"
)

// LineData holds the priced-line fields needed for aggregation
type LineData struct {
	Customer string
	ItemCode string
	Name     string
	Quantity decimal.Decimal
	Meters   decimal.Decimal
	Amount   decimal.Decimal
	Cost     decimal.Decimal
	Profit   decimal.Decimal
}

// Summary is the summed block shared by every aggregation
type Summary struct {
	LineCount     int
	UnpricedLines int // lines that contributed no cost
	Quantity      decimal.Decimal
	Meters        decimal.Decimal
	Amount        decimal.Decimal
	Cost          decimal.Decimal
	Profit        decimal.Decimal
	AvgPrice      decimal.Decimal // Amount / Meters
	AvgCost       decimal.Decimal // Cost / Meters
	MarginRate    decimal.Decimal // Profit / Amount
}

func (s *Summary) add(line LineData) {
	s.LineCount++
	s.Quantity = s.Quantity.Add(line.Quantity)
	s.Meters = s.Meters.Add(line.Meters)
	s.Amount = s.Amount.Add(line.Amount)
	s.Cost = s.Cost.Add(line.Cost)
	s.Profit = s.Profit.Add(line.Profit)
	if line.Cost.IsZero() {
		s.UnpricedLines++
	}
}

// finalize derives the ratios; each is zero when its denominator is not
// positive
func (s *Summary) finalize() {
	s.AvgPrice = decimal.Zero
	s.AvgCost = decimal.Zero
	s.MarginRate = decimal.Zero

	if s.Meters.IsPositive() {
		s.AvgPrice = s.Amount.Div(s.Meters)
		s.AvgCost = s.Cost.Div(s.Meters)
	}
	if s.Amount.IsPositive() {
		s.MarginRate = s.Profit.Div(s.Amount)
	}
}

// Totals is the grand total over all surviving lines
type Totals struct {
	Summary
}

// CalculateTotals sums every line
func CalculateTotals(lines []LineData) Totals {
	var t Totals
	for _, line := range lines {
		t.add(line)
	}
	t.finalize()
	return t
}

// sortByProfitDesc orders groups by total profit, highest first; groups with
// equal profit keep first-seen order
func sortByProfitDesc[T any](groups []T, profit func(T) decimal.Decimal) {
	sort.SliceStable(groups, func(i, j int) bool {
		return profit(groups[i]).GreaterThan(profit(groups[j]))
	})
}
