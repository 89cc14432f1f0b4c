package server

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/datsun80zx/tubecost.git/internal/costing"
	"github.com/datsun80zx/tubecost.git/internal/metrics"
	"github.com/datsun80zx/tubecost.git/internal/store"
)

type runView struct {
	ID               string              `json:"id"`
	FileName         string              `json:"file_name"`
	ExchangeRate     decimal.NullDecimal `json:"exchange_rate"`
	GeometryRevision int64               `json:"geometry_revision"`
	LineCount        int                 `json:"line_count"`
	ExcludedCount    int                 `json:"excluded_count"`
	TotalMeters      decimal.Decimal     `json:"total_meters"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	TotalCost        decimal.Decimal     `json:"total_cost"`
	TotalProfit      decimal.Decimal     `json:"total_profit"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func newRunView(r *store.Run) runView {
	return runView{
		ID:               r.ID,
		FileName:         r.FileName,
		ExchangeRate:     r.ExchangeRate,
		GeometryRevision: r.GeometryRevision,
		LineCount:        r.LineCount,
		ExcludedCount:    r.ExcludedCount,
		TotalMeters:      r.TotalMeters,
		TotalAmount:      r.TotalAmount,
		TotalCost:        r.TotalCost,
		TotalProfit:      r.TotalProfit,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type summaryView struct {
	LineCount     int             `json:"line_count"`
	UnpricedLines int             `json:"unpriced_lines"`
	Quantity      decimal.Decimal `json:"quantity"`
	Meters        decimal.Decimal `json:"meters"`
	Amount        decimal.Decimal `json:"amount"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	MarginRate    decimal.Decimal `json:"margin_rate"`
}

func newSummaryView(s metrics.Summary) summaryView {
	return summaryView{
		LineCount:     s.LineCount,
		UnpricedLines: s.UnpricedLines,
		Quantity:      s.Quantity,
		Meters:        s.Meters,
		Amount:        s.Amount,
		Cost:          s.Cost,
		Profit:        s.Profit,
		AvgPrice:      s.AvgPrice,
		AvgCost:       s.AvgCost,
		MarginRate:    s.MarginRate,
	}
}

type lineView struct {
	Row        int                 `json:"row"`
	Customer   string              `json:"customer"`
	ItemCode   string              `json:"item_code"`
	Name       string              `json:"name"`
	Quantity   decimal.Decimal     `json:"quantity"`
	Amount     decimal.Decimal     `json:"amount"`
	SpecMm     decimal.NullDecimal `json:"spec_mm"`
	CutMm      decimal.NullDecimal `json:"cut_mm"`
	Family     costing.Family      `json:"family"`
	Supplier   costing.Supplier    `json:"supplier,omitempty"`
	Series     string              `json:"series,omitempty"`
	ColorClass costing.ColorClass  `json:"color_class,omitempty"`
	Meters     decimal.Decimal     `json:"meters"`
	UnitPrice  decimal.Decimal     `json:"unit_price"`
	Cost       decimal.Decimal     `json:"cost"`
	Profit     decimal.Decimal     `json:"profit"`
	Resolved   bool                `json:"resolved"`
	Reason     costing.Reason      `json:"reason,omitempty"`
}

func newLineViews(lines []costing.PricedLine) []lineView {
	out := make([]lineView, len(lines))
	for i, l := range lines {
		out[i] = lineView{
			Row:        l.Row,
			Customer:   l.Customer,
			ItemCode:   l.ItemCode,
			Name:       l.Name,
			Quantity:   l.Quantity,
			Amount:     l.Amount,
			SpecMm:     l.Spec.SpecMm,
			CutMm:      l.Spec.CutMm,
			Family:     l.Classification.Family,
			Supplier:   l.Classification.Supplier,
			Series:     l.Classification.Series,
			ColorClass: l.ColorClass,
			Meters:     l.Meters,
			UnitPrice:  l.UnitPrice,
			Cost:       l.Cost,
			Profit:     l.Profit,
			Resolved:   l.Resolved,
			Reason:     l.Reason,
		}
	}
	return out
}

type analysisView struct {
	Run             runView                `json:"run"`
	Totals          summaryView            `json:"totals"`
	Lines           []lineView             `json:"lines"`
	Unresolved      map[costing.Reason]int `json:"unresolved"`
	Warnings        []string               `json:"warnings"`
	AlreadyImported bool                   `json:"already_imported,omitempty"`
	SkippedRows     []int                  `json:"skipped_rows,omitempty"`
}

func newAnalysisView(run *store.Run, result *costing.Result) analysisView {
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return analysisView{
		Run:        newRunView(run),
		Totals:     newSummaryView(result.Totals.Summary),
		Lines:      newLineViews(result.Lines),
		Unresolved: result.Unresolved,
		Warnings:   warnings,
	}
}

type customerView struct {
	Customer string `json:"customer"`
	summaryView
}

func newCustomerViews(customers []metrics.CustomerMetric) []customerView {
	out := make([]customerView, len(customers))
	for i, c := range customers {
		out[i] = customerView{Customer: c.Customer, summaryView: newSummaryView(c.Summary)}
	}
	return out
}

type itemView struct {
	ItemCode string `json:"item_code"`
	Name     string `json:"name"`
	summaryView
}

func newItemViews(items []metrics.ItemMetric) []itemView {
	out := make([]itemView, len(items))
	for i, m := range items {
		out[i] = itemView{ItemCode: m.ItemCode, Name: m.Name, summaryView: newSummaryView(m.Summary)}
	}
	return out
}

type geometryTableView struct {
	Revision  int64               `json:"revision"`
	UpdatedAt *time.Time          `json:"updated_at,omitempty"`
	Entries   []geometryEntryView `json:"entries"`
}

type geometryEntryView struct {
	Series       string          `json:"series"`
	Spec         string          `json:"spec"`
	CostPerMeter decimal.Decimal `json:"cost_per_meter"`
}

func newGeometryTableView(snap *costing.GeometrySnapshot) geometryTableView {
	v := geometryTableView{Revision: snap.Revision, Entries: []geometryEntryView{}}
	if !snap.UpdatedAt.IsZero() {
		t := snap.UpdatedAt
		v.UpdatedAt = &t
	}
	for _, e := range snap.Entries() {
		v.Entries = append(v.Entries, geometryEntryView{Series: e.Series, Spec: e.SpecKey, CostPerMeter: e.CostPerMeter})
	}
	return v
}
