package costing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/datsun80zx/tubecost.git/internal/metrics"
)

// Result is the full output of one pipeline run
type Result struct {
	RunID            string // assigned by the caller that persists the run
	ExchangeRate     decimal.NullDecimal
	GeometryRevision int64

	Lines     []PricedLine
	Items     []metrics.ItemMetric
	Customers []metrics.CustomerMetric
	Totals    metrics.Totals

	Excluded   int
	Unresolved map[Reason]int
	Warnings   []string
}

// Run prices lines against cat with a one-off pipeline
func Run(lines []SalesLine, cat *Catalog, geo *GeometrySnapshot, rate decimal.NullDecimal) *Result {
	return NewPipeline(cat).Run(lines, PriceContext{Geometry: geo, ExchangeRate: rate})
}

// Pipeline wires the extractor, classifier, resolver and assembler around a
// single immutable catalog
type Pipeline struct {
	catalog    *Catalog
	classifier *Classifier
	resolver   *Resolver
}

func NewPipeline(cat *Catalog) *Pipeline {
	return &Pipeline{
		catalog:    cat,
		classifier: NewClassifier(cat),
		resolver:   NewResolver(cat),
	}
}

// Catalog returns the catalog the pipeline was built with
func (p *Pipeline) Catalog() *Catalog {
	return p.catalog
}

// Classifier exposes the rule sequence used by the pipeline
func (p *Pipeline) Classifier() *Classifier {
	return p.classifier
}

// PriceLine runs one line through extraction, classification, resolution and
// assembly. It does not apply the exclusion filter.
func (p *Pipeline) PriceLine(line SalesLine, ctx PriceContext) PricedLine {
	spec := p.catalog.ExtractSpec(line.Name)
	cls := p.classifier.Classify(line.ItemCode, line.Name)
	res := p.resolver.Resolve(cls, spec, line.ItemCode, line.Name, ctx)
	return Assemble(line, spec, cls, res)
}

// Run prices every line, drops excluded codes and aggregates the survivors.
// It is a pure function of its inputs; identical inputs give identical output.
func (p *Pipeline) Run(lines []SalesLine, ctx PriceContext) *Result {
	result := &Result{
		ExchangeRate: ctx.ExchangeRate,
		Lines:        make([]PricedLine, 0, len(lines)),
		Unresolved:   make(map[Reason]int),
	}
	if ctx.Geometry != nil {
		result.GeometryRevision = ctx.Geometry.Revision
	}

	for _, line := range lines {
		priced := p.PriceLine(line, ctx)
		if p.classifier.IsExcluded(line.ItemCode) {
			result.Excluded++
			continue
		}
		if !priced.Resolved {
			result.Unresolved[priced.Reason]++
		}
		result.Lines = append(result.Lines, priced)
	}

	result.aggregate()
	return result
}

// Summarize rebuilds the aggregates of lines that were priced earlier, for
// example lines loaded back from storage
func Summarize(lines []PricedLine, rate decimal.NullDecimal, geometryRevision int64, excluded int) *Result {
	result := &Result{
		ExchangeRate:     rate,
		GeometryRevision: geometryRevision,
		Lines:            lines,
		Excluded:         excluded,
		Unresolved:       make(map[Reason]int),
	}
	for _, l := range lines {
		if !l.Resolved {
			result.Unresolved[l.Reason]++
		}
	}
	result.aggregate()
	return result
}

func (r *Result) aggregate() {
	data := LineData(r.Lines)
	r.Items = metrics.CalculateItemMetrics(data)
	r.Customers = metrics.CalculateCustomerMetrics(data)
	r.Totals = metrics.CalculateTotals(data)
	r.Warnings = buildWarnings(r)
}

// LineData projects priced lines onto the aggregation input
func LineData(lines []PricedLine) []metrics.LineData {
	out := make([]metrics.LineData, len(lines))
	for i, l := range lines {
		out[i] = metrics.LineData{
			Customer: l.Customer,
			ItemCode: l.ItemCode,
			Name:     l.Name,
			Quantity: l.Quantity,
			Meters:   l.Meters,
			Amount:   l.Amount,
			Cost:     l.Cost,
			Profit:   l.Profit,
		}
	}
	return out
}

func buildWarnings(r *Result) []string {
	var warnings []string

	if n := r.Unresolved[ReasonNoExchangeRate]; n > 0 {
		warnings = append(warnings,
			fmt.Sprintf("no valid exchange rate: %d foreign-catalog lines left at cost 0", n))
	}

	reasons := make([]string, 0, len(r.Unresolved))
	for reason := range r.Unresolved {
		if reason == ReasonNoExchangeRate || reason == ReasonUnpriced {
			continue
		}
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		warnings = append(warnings,
			fmt.Sprintf("%d lines unresolved (%s)", r.Unresolved[Reason(reason)], reason))
	}

	return warnings
}
