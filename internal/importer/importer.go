package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/datsun80zx/tubecost.git/internal/costing"
	"github.com/datsun80zx/tubecost.git/internal/parser"
	"github.com/datsun80zx/tubecost.git/internal/store"
)

// Importer turns ledger files into stored, priced analysis runs
type Importer struct {
	store    *store.Store
	pipeline *costing.Pipeline
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewImporter creates a new importer instance
func NewImporter(st *store.Store, pipeline *costing.Pipeline, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		store:    st,
		pipeline: pipeline,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ImportResult contains the results of an import or recalculation
type ImportResult struct {
	Run              *store.Run
	Result           *costing.Result
	ValidationResult *ValidationResult
	Duration         time.Duration
	AlreadyImported  bool
}

// ImportFile analyzes a ledger on disk
func (i *Importer) ImportFile(ctx context.Context, path string, rate decimal.NullDecimal) (*ImportResult, error) {
	startTime := time.Now()

	// Step 1: Calculate file hash
	hash, err := CalculateFileHash(path)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate file hash: %w", err)
	}

	// Step 2: A known file is repriced in place
	if existing, err := i.reimport(ctx, hash, rate); existing != nil || err != nil {
		return existing, err
	}

	// Step 3: Parse ledger
	ledger, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}

	return i.importLedger(ctx, filepath.Base(path), hash, ledger, rate, startTime)
}

// ImportBytes analyzes an uploaded ledger; fileName selects the format
func (i *Importer) ImportBytes(ctx context.Context, fileName string, data []byte, rate decimal.NullDecimal) (*ImportResult, error) {
	startTime := time.Now()

	hash := HashBytes(data)
	if existing, err := i.reimport(ctx, hash, rate); existing != nil || err != nil {
		return existing, err
	}

	p, err := parser.ForFile(fileName)
	if err != nil {
		return nil, err
	}
	ledger, err := p.ParseLedger(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}

	return i.importLedger(ctx, filepath.Base(fileName), hash, ledger, rate, startTime)
}

// reimport reprices the run already stored for hash, if any, from its base
// lines with the given rate and the current geometry table. It returns nil
// when the file is new.
func (i *Importer) reimport(ctx context.Context, hash string, rate decimal.NullDecimal) (*ImportResult, error) {
	run, err := i.store.Queries().GetRunByHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing import: %w", err)
	}

	i.logger.Info("ledger already imported, repricing", zap.String("run_id", run.ID))

	res, err := i.Recalculate(ctx, run.ID, rate)
	if err != nil {
		return nil, err
	}
	res.AlreadyImported = true
	return res, nil
}

func (i *Importer) importLedger(ctx context.Context, fileName, hash string, ledger *parser.Ledger, rate decimal.NullDecimal, startTime time.Time) (*ImportResult, error) {
	lines := ToSalesLines(ledger.Rows)
	now := i.now()

	run := &store.Run{
		ID:        i.newID(),
		FileName:  fileName,
		FileHash:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var result *costing.Result
	err := i.store.WithTx(ctx, func(q *store.Queries) error {
		// the geometry table is read fresh for every run
		snapshot, err := q.GeometrySnapshot(ctx)
		if err != nil {
			return err
		}

		result = i.pipeline.Run(lines, costing.PriceContext{Geometry: snapshot, ExchangeRate: rate})
		result.RunID = run.ID
		run.ApplyResult(result)

		if err := q.CreateRun(ctx, *run); err != nil {
			return err
		}
		if err := q.InsertSalesLines(ctx, run.ID, lines); err != nil {
			return err
		}
		return q.ReplacePricedLines(ctx, run.ID, result.Lines)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}

	validation := ValidateResult(result, ledger.Skipped)
	duration := time.Since(startTime)

	i.logger.Info("ledger imported",
		zap.String("run_id", run.ID),
		zap.String("file", fileName),
		zap.Int("lines", len(result.Lines)),
		zap.Int("excluded", result.Excluded),
		zap.Int("skipped", len(ledger.Skipped)),
		zap.Int64("geometry_revision", result.GeometryRevision),
		zap.Duration("duration", duration))

	return &ImportResult{
		Run:              run,
		Result:           result,
		ValidationResult: validation,
		Duration:         duration,
	}, nil
}

// Recalculate reprices a stored run from its base lines with a new exchange
// rate and the current geometry table
func (i *Importer) Recalculate(ctx context.Context, runID string, rate decimal.NullDecimal) (*ImportResult, error) {
	startTime := time.Now()

	var (
		run    *store.Run
		result *costing.Result
	)
	err := i.store.WithTx(ctx, func(q *store.Queries) error {
		var err error
		run, err = q.GetRun(ctx, runID)
		if err != nil {
			return err
		}

		lines, err := q.ListSalesLines(ctx, runID)
		if err != nil {
			return err
		}

		snapshot, err := q.GeometrySnapshot(ctx)
		if err != nil {
			return err
		}

		result = i.pipeline.Run(lines, costing.PriceContext{Geometry: snapshot, ExchangeRate: rate})
		result.RunID = run.ID
		run.ApplyResult(result)
		run.UpdatedAt = i.now()

		if err := q.UpdateRun(ctx, *run); err != nil {
			return err
		}
		return q.ReplacePricedLines(ctx, run.ID, result.Lines)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to recalculate run %s: %w", runID, err)
	}

	i.logger.Info("run recalculated",
		zap.String("run_id", run.ID),
		zap.Stringer("exchange_rate", rate.Decimal),
		zap.Bool("has_rate", rate.Valid),
		zap.Int64("geometry_revision", result.GeometryRevision))

	return &ImportResult{
		Run:              run,
		Result:           result,
		ValidationResult: ValidateResult(result, nil),
		Duration:         time.Since(startTime),
	}, nil
}

// Load returns a stored run with its aggregates rebuilt from the stored
// priced lines
func (i *Importer) Load(ctx context.Context, runID string) (*store.Run, *costing.Result, error) {
	run, err := i.store.Queries().GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	result, err := i.loadResult(ctx, run)
	if err != nil {
		return nil, nil, err
	}
	return run, result, nil
}

func (i *Importer) loadResult(ctx context.Context, run *store.Run) (*costing.Result, error) {
	lines, err := i.store.Queries().ListPricedLines(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	result := costing.Summarize(lines, run.ExchangeRate, run.GeometryRevision, run.ExcludedCount)
	result.RunID = run.ID
	return result, nil
}

// ToSalesLines converts parsed ledger rows into pipeline input
func ToSalesLines(rows []parser.SalesRow) []costing.SalesLine {
	lines := make([]costing.SalesLine, len(rows))
	for idx, r := range rows {
		lines[idx] = costing.SalesLine{
			Row:      r.Row,
			Customer: r.Customer,
			ItemCode: r.ItemCode,
			Name:     r.Name,
			Quantity: r.Quantity,
			Amount:   r.Amount,
		}
	}
	return lines
}
