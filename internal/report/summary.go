package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/datsun80zx/tubecost.git/internal/costing"
	"github.com/datsun80zx/tubecost.git/internal/metrics"
)

// SummaryReport contains all data for the summary report
type SummaryReport struct {
	GeneratedAt      time.Time
	RunID            string
	FileName         string
	ExchangeRate     decimal.NullDecimal
	GeometryRevision int64

	// Executive Summary
	Totals        metrics.Totals
	LineCount     int
	ExcludedLines int
	LossLines     int
	TotalLoss     decimal.Decimal

	// Breakdowns
	TopCustomers    []metrics.CustomerMetric
	TopItems        []metrics.ItemMetric
	UnresolvedLines []UnresolvedLine
	Unresolved      []ReasonCount
	Warnings        []string
}

// UnresolvedLine is a line that could not be costed
type UnresolvedLine struct {
	Row      int
	Customer string
	ItemCode string
	Name     string
	Reason   string
}

// ReasonCount is the number of lines left unresolved for one reason
type ReasonCount struct {
	Reason string
	Count  int
}

// BuildSummary assembles the summary report of a result; top limits the
// customer and item breakdowns, 0 means all
func BuildSummary(result *costing.Result, fileName string, top int) *SummaryReport {
	report := &SummaryReport{
		GeneratedAt:      time.Now(),
		RunID:            result.RunID,
		FileName:         fileName,
		ExchangeRate:     result.ExchangeRate,
		GeometryRevision: result.GeometryRevision,
		Totals:           result.Totals,
		LineCount:        len(result.Lines),
		ExcludedLines:    result.Excluded,
		TopCustomers:     limit(result.Customers, top),
		TopItems:         limit(result.Items, top),
		Warnings:         result.Warnings,
	}

	for _, l := range result.Lines {
		if l.Profit.IsNegative() {
			report.LossLines++
			report.TotalLoss = report.TotalLoss.Add(l.Profit)
		}
		if !l.Resolved && l.Reason != costing.ReasonUnpriced {
			report.UnresolvedLines = append(report.UnresolvedLines, UnresolvedLine{
				Row:      l.Row,
				Customer: customerLabel(l.Customer),
				ItemCode: l.ItemCode,
				Name:     l.Name,
				Reason:   reasonLabels[l.Reason],
			})
		}
	}

	for reason, n := range result.Unresolved {
		report.Unresolved = append(report.Unresolved, ReasonCount{Reason: reasonLabels[reason], Count: n})
	}
	sort.Slice(report.Unresolved, func(i, j int) bool {
		return report.Unresolved[i].Reason < report.Unresolved[j].Reason
	})

	return report
}

func limit[T any](s []T, n int) []T {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[:n]
}

func customerLabel(customer string) string {
	if strings.TrimSpace(customer) == "" {
		return metrics.UnassignedCustomer
	}
	return customer
}

func lineMargin(l costing.PricedLine) decimal.Decimal {
	if !l.Amount.IsPositive() {
		return decimal.Zero
	}
	return l.Profit.Div(l.Amount)
}

const (
	heavyRule = "════════════════════════════════════════════════════════════════════════════════════════════════════"
	lightRule = "────────────────────────────────────────────────────────────────────────────────────────────────────"
)

// PrintCustomers writes the customer statistics table
func PrintCustomers(w io.Writer, customers []metrics.CustomerMetric, top int) {
	rows := limit(customers, top)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No customers found")
		return
	}

	fmt.Fprintln(w, "Profitability by Customer")
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "%-28s  %5s  %12s  %12s  %12s  %12s  %8s  %8s  %8s\n",
		"Customer", "Lines", "Meters", "Amount", "Cost", "Profit", "Avg $/m", "Cost/m", "Margin")
	fmt.Fprintln(w, lightRule)

	for _, m := range rows {
		fmt.Fprintf(w, "%-28s  %5d  %12s  %12s  %12s  %12s  %8s  %8s  %8s\n",
			truncate(m.Customer, 28),
			m.LineCount,
			FormatMeters(m.Meters),
			FormatMoney(m.Amount),
			FormatMoney(m.Cost),
			FormatMoney(m.Profit),
			m.AvgPrice.StringFixed(2),
			m.AvgCost.StringFixed(2),
			FormatPercent(m.MarginRate),
		)
	}
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "Showing %d of %d customer(s)\n", len(rows), len(customers))
}

// PrintItems writes the item cost comparison table
func PrintItems(w io.Writer, items []metrics.ItemMetric, top int) {
	rows := limit(items, top)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No items found")
		return
	}

	fmt.Fprintln(w, "Cost Comparison by Item")
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "%-12s  %-30s  %12s  %12s  %12s  %12s  %8s\n",
		"Code", "Name", "Meters", "Amount", "Cost", "Profit", "Margin")
	fmt.Fprintln(w, lightRule)

	for _, m := range rows {
		fmt.Fprintf(w, "%-12s  %-30s  %12s  %12s  %12s  %12s  %8s\n",
			truncate(m.ItemCode, 12),
			truncate(m.Name, 30),
			FormatMeters(m.Meters),
			FormatMoney(m.Amount),
			FormatMoney(m.Cost),
			FormatMoney(m.Profit),
			FormatPercent(m.MarginRate),
		)
	}
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "Showing %d of %d item(s)\n", len(rows), len(items))
}

// PrintTotals writes the one-block summary printed after an analysis
func PrintTotals(w io.Writer, result *costing.Result) {
	t := result.Totals
	fmt.Fprintf(w, "Lines priced:       %d\n", len(result.Lines))
	if result.Excluded > 0 {
		fmt.Fprintf(w, "Lines excluded:     %d\n", result.Excluded)
	}
	fmt.Fprintf(w, "Exchange rate:      %s\n", FormatRate(result.ExchangeRate))
	fmt.Fprintf(w, "Geometry revision:  %d\n", result.GeometryRevision)
	fmt.Fprintf(w, "Total meters:       %s\n", FormatMeters(t.Meters))
	fmt.Fprintf(w, "Total amount:       %s\n", FormatMoney(t.Amount))
	fmt.Fprintf(w, "Total cost:         %s\n", FormatMoney(t.Cost))
	fmt.Fprintf(w, "Total profit:       %s (%s margin)\n", FormatMoney(t.Profit), FormatPercent(t.MarginRate))
}
