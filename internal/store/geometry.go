package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/datsun80zx/tubecost.git/internal/costing"
)

// GeometrySnapshot reads the whole geometry cost table. The snapshot's
// revision is the highest revision stored, 0 for an empty table.
func (q *Queries) GeometrySnapshot(ctx context.Context) (*costing.GeometrySnapshot, error) {
	rows, err := q.query(ctx, `
		SELECT series, spec_key, cost_per_meter, revision, updated_at
		FROM geometry_costs
		ORDER BY series, spec_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query geometry costs: %w", err)
	}
	defer rows.Close()

	var (
		entries  []costing.GeometryEntry
		revision int64
	)
	for rows.Next() {
		var (
			e         costing.GeometryEntry
			rev       int64
			updatedAt string
		)
		if err := rows.Scan(&e.Series, &e.SpecKey, &e.CostPerMeter, &rev, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan geometry cost: %w", err)
		}
		if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		if rev > revision {
			revision = rev
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read geometry costs: %w", err)
	}

	return costing.NewGeometrySnapshot(revision, entries), nil
}

// revisionLock is the statement that keeps concurrent saves from reading the
// same MAX(revision). SQLite serializes writers on its single connection.
func revisionLock(driver Driver) string {
	if driver == DriverPostgres {
		return `LOCK TABLE geometry_costs IN SHARE ROW EXCLUSIVE MODE`
	}
	return ""
}

// SaveGeometryCost upserts one (series, spec) cost and returns the new table
// revision. On PostgreSQL it must run inside a transaction.
func (q *Queries) SaveGeometryCost(ctx context.Context, series string, spec, costPerMeter decimal.Decimal, now time.Time) (int64, error) {
	series = strings.ToUpper(strings.TrimSpace(series))
	if series == "" {
		return 0, fmt.Errorf("%w: series is required", costing.ErrInvalidInput)
	}
	if !spec.IsPositive() {
		return 0, fmt.Errorf("%w: spec must be positive", costing.ErrInvalidInput)
	}
	if !costPerMeter.IsPositive() {
		return 0, fmt.Errorf("%w: cost per meter must be positive", costing.ErrInvalidInput)
	}

	if stmt := revisionLock(q.driver); stmt != "" {
		if _, err := q.exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to lock geometry costs: %w", err)
		}
	}

	var current int64
	if err := q.queryRow(ctx, `SELECT COALESCE(MAX(revision), 0) FROM geometry_costs`).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read geometry revision: %w", err)
	}
	revision := current + 1

	_, err := q.exec(ctx, `
		INSERT INTO geometry_costs (series, spec_key, cost_per_meter, revision, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (series, spec_key) DO UPDATE SET
			cost_per_meter = excluded.cost_per_meter,
			revision = excluded.revision,
			updated_at = excluded.updated_at`,
		series, costing.GeometryKey(spec), costPerMeter.String(), revision, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to save geometry cost: %w", err)
	}

	return revision, nil
}

// SaveGeometryCost runs Queries.SaveGeometryCost in its own transaction so
// the revision read and the upsert commit together
func (s *Store) SaveGeometryCost(ctx context.Context, series string, spec, costPerMeter decimal.Decimal, now time.Time) (int64, error) {
	var revision int64
	err := s.WithTx(ctx, func(q *Queries) error {
		var err error
		revision, err = q.SaveGeometryCost(ctx, series, spec, costPerMeter, now)
		return err
	})
	return revision, err
}
