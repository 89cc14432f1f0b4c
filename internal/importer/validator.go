package importer

import (
	"fmt"

	"github.com/datsun80zx/tubecost.git/internal/costing"
	"github.com/datsun80zx/tubecost.git/internal/parser"
)

// ValidationResult contains validation warnings for one analysis
type ValidationResult struct {
	UnresolvedRows []int
	SkippedRows    []int
	Warnings       []string
}

// ValidateResult collects data-quality warnings from the ledger scan and the
// pipeline output
func ValidateResult(result *costing.Result, skipped []*parser.ValidationError) *ValidationResult {
	v := &ValidationResult{
		UnresolvedRows: make([]int, 0),
		SkippedRows:    make([]int, 0),
		Warnings:       make([]string, 0),
	}

	for _, s := range skipped {
		v.SkippedRows = append(v.SkippedRows, s.Row)
	}
	if len(skipped) > 0 {
		v.Warnings = append(v.Warnings,
			fmt.Sprintf("Skipped %d rows without a numeric quantity", len(skipped)))
	}

	for _, l := range result.Lines {
		if !l.Resolved && l.Reason != costing.ReasonUnpriced {
			v.UnresolvedRows = append(v.UnresolvedRows, l.Row)
		}
	}

	v.Warnings = append(v.Warnings, result.Warnings...)

	return v
}
