package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/datsun80zx/tubecost.git/internal/costing"
	"github.com/datsun80zx/tubecost.git/internal/report"
)

func (a *app) handleReport(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("report requires a report type\nAvailable reports: customers, items")
	}

	reportType := args[0]
	flags, _, err := parseFlags(args[1:], "run", "top")
	if err != nil {
		return err
	}

	top := 0
	if raw, ok := flags["top"]; ok {
		top, err = strconv.Atoi(raw)
		if err != nil || top < 0 {
			return fmt.Errorf("invalid --top %q", raw)
		}
	}

	result, err := a.loadRun(ctx, flags["run"])
	if err != nil {
		return err
	}

	switch reportType {
	case "customers":
		report.PrintCustomers(os.Stdout, result.Customers, top)
	case "items":
		report.PrintItems(os.Stdout, result.Items, top)
	default:
		return fmt.Errorf("unknown report type: %s\nAvailable reports: customers, items", reportType)
	}
	return nil
}

// loadRun loads the given run, or the most recent one when id is empty
func (a *app) loadRun(ctx context.Context, id string) (*costing.Result, error) {
	if id == "" {
		runs, err := a.store.Queries().ListRuns(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no analyses found; run `tubecost analyze <ledger>` first")
		}
		id = runs[0].ID
	}

	run, result, err := a.importer.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Run %s · %s · rate %s\n\n", run.ID, run.FileName, report.FormatRate(run.ExchangeRate))
	return result, nil
}
