package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/datsun80zx/tubecost.git/internal/costing"
)

// Run is one stored analysis of a ledger file
type Run struct {
	ID               string
	FileName         string
	FileHash         string
	ExchangeRate     decimal.NullDecimal
	GeometryRevision int64
	LineCount        int
	ExcludedCount    int
	TotalQuantity    decimal.Decimal
	TotalMeters      decimal.Decimal
	TotalAmount      decimal.Decimal
	TotalCost        decimal.Decimal
	TotalProfit      decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ApplyResult copies a pipeline result's headline figures onto the run
func (r *Run) ApplyResult(result *costing.Result) {
	r.ExchangeRate = result.ExchangeRate
	r.GeometryRevision = result.GeometryRevision
	r.LineCount = len(result.Lines)
	r.ExcludedCount = result.Excluded
	r.TotalQuantity = result.Totals.Quantity
	r.TotalMeters = result.Totals.Meters
	r.TotalAmount = result.Totals.Amount
	r.TotalCost = result.Totals.Cost
	r.TotalProfit = result.Totals.Profit
}

const runColumns = `id, file_name, file_hash, exchange_rate, geometry_revision,
	line_count, excluded_count, total_quantity, total_meters, total_amount,
	total_cost, total_profit, created_at, updated_at`

// CreateRun inserts a new run
func (q *Queries) CreateRun(ctx context.Context, r Run) error {
	_, err := q.exec(ctx, `
		INSERT INTO analysis_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.FileName, r.FileHash, r.ExchangeRate, r.GeometryRevision,
		r.LineCount, r.ExcludedCount,
		r.TotalQuantity.String(), r.TotalMeters.String(), r.TotalAmount.String(),
		r.TotalCost.String(), r.TotalProfit.String(),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// UpdateRun rewrites the recomputed figures of an existing run
func (q *Queries) UpdateRun(ctx context.Context, r Run) error {
	res, err := q.exec(ctx, `
		UPDATE analysis_runs SET
			exchange_rate = ?, geometry_revision = ?, line_count = ?,
			excluded_count = ?, total_quantity = ?, total_meters = ?,
			total_amount = ?, total_cost = ?, total_profit = ?, updated_at = ?
		WHERE id = ?`,
		r.ExchangeRate, r.GeometryRevision, r.LineCount, r.ExcludedCount,
		r.TotalQuantity.String(), r.TotalMeters.String(), r.TotalAmount.String(),
		r.TotalCost.String(), r.TotalProfit.String(), formatTime(r.UpdatedAt),
		r.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRun loads one run by id
func (q *Queries) GetRun(ctx context.Context, id string) (*Run, error) {
	row := q.queryRow(ctx, `SELECT `+runColumns+` FROM analysis_runs WHERE id = ?`, id)
	return scanRun(row)
}

// GetRunByHash finds the run created from a file with the given hash
func (q *Queries) GetRunByHash(ctx context.Context, hash string) (*Run, error) {
	row := q.queryRow(ctx, `SELECT `+runColumns+` FROM analysis_runs WHERE file_hash = ?`, hash)
	return scanRun(row)
}

// ListRuns returns the most recent runs first; limit <= 0 means all
func (q *Queries) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r                    Run
		createdAt, updatedAt string
	)
	err := s.Scan(
		&r.ID, &r.FileName, &r.FileHash, &r.ExchangeRate, &r.GeometryRevision,
		&r.LineCount, &r.ExcludedCount, &r.TotalQuantity, &r.TotalMeters,
		&r.TotalAmount, &r.TotalCost, &r.TotalProfit, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertSalesLines stores the base lines of a run in ledger order
func (q *Queries) InsertSalesLines(ctx context.Context, runID string, lines []costing.SalesLine) error {
	for i, l := range lines {
		_, err := q.exec(ctx, `
			INSERT INTO sales_lines (run_id, line_no, source_row, customer, item_code, name, quantity, amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, l.Row, l.Customer, l.ItemCode, l.Name, l.Quantity.String(), l.Amount.String())
		if err != nil {
			return fmt.Errorf("failed to insert sales line %d: %w", l.Row, err)
		}
	}
	return nil
}

// ListSalesLines returns the base lines of a run in ledger order
func (q *Queries) ListSalesLines(ctx context.Context, runID string) ([]costing.SalesLine, error) {
	rows, err := q.query(ctx, `
		SELECT source_row, customer, item_code, name, quantity, amount
		FROM sales_lines
		WHERE run_id = ?
		ORDER BY line_no`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales lines: %w", err)
	}
	defer rows.Close()

	var lines []costing.SalesLine
	for rows.Next() {
		var l costing.SalesLine
		if err := rows.Scan(&l.Row, &l.Customer, &l.ItemCode, &l.Name, &l.Quantity, &l.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan sales line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sales lines: %w", err)
	}
	return lines, nil
}

// ReplacePricedLines swaps the priced output of a run for a new one
func (q *Queries) ReplacePricedLines(ctx context.Context, runID string, lines []costing.PricedLine) error {
	if _, err := q.exec(ctx, `DELETE FROM priced_lines WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear priced lines: %w", err)
	}

	for i, l := range lines {
		resolved := 0
		if l.Resolved {
			resolved = 1
		}
		_, err := q.exec(ctx, `
			INSERT INTO priced_lines (
				run_id, line_no, source_row, customer, item_code, name, quantity, amount,
				family, supplier, series, rule_name, spec_mm, cut_mm, spec_source,
				color_class, meters, unit_price, surcharge, cost, profit, resolved, reason
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, l.Row, l.Customer, l.ItemCode, l.Name, l.Quantity.String(), l.Amount.String(),
			string(l.Classification.Family), string(l.Classification.Supplier),
			l.Classification.Series, l.Classification.Rule,
			l.Spec.SpecMm, l.Spec.CutMm, string(l.Spec.Source),
			string(l.ColorClass), l.Meters.String(), l.UnitPrice.String(), surchargeOrOne(l.Surcharge).String(),
			l.Cost.String(), l.Profit.String(), resolved, string(l.Reason))
		if err != nil {
			return fmt.Errorf("failed to insert priced line %d: %w", l.Row, err)
		}
	}
	return nil
}

// ListPricedLines returns the stored priced output of a run
func (q *Queries) ListPricedLines(ctx context.Context, runID string) ([]costing.PricedLine, error) {
	rows, err := q.query(ctx, `
		SELECT source_row, customer, item_code, name, quantity, amount,
			family, supplier, series, rule_name, spec_mm, cut_mm, spec_source,
			color_class, meters, unit_price, surcharge, cost, profit, resolved, reason
		FROM priced_lines
		WHERE run_id = ?
		ORDER BY line_no`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query priced lines: %w", err)
	}
	defer rows.Close()

	var lines []costing.PricedLine
	for rows.Next() {
		var (
			l                                   costing.PricedLine
			family, supplier, source, color, rs string
			resolved                            int
		)
		err := rows.Scan(
			&l.Row, &l.Customer, &l.ItemCode, &l.Name, &l.Quantity, &l.Amount,
			&family, &supplier, &l.Classification.Series, &l.Classification.Rule,
			&l.Spec.SpecMm, &l.Spec.CutMm, &source,
			&color, &l.Meters, &l.UnitPrice, &l.Surcharge, &l.Cost, &l.Profit, &resolved, &rs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan priced line: %w", err)
		}
		l.Classification.Family = costing.Family(family)
		l.Classification.Supplier = costing.Supplier(supplier)
		l.Spec.Source = costing.SpecSource(source)
		l.ColorClass = costing.ColorClass(color)
		l.Resolved = resolved != 0
		l.Reason = costing.Reason(rs)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read priced lines: %w", err)
	}
	return lines, nil
}

func surchargeOrOne(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.NewFromInt(1)
	}
	return d
}
