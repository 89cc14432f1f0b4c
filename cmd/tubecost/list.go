package main

import (
	"context"
	"fmt"

	"github.com/datsun80zx/tubecost.git/internal/report"
)

func (a *app) listRuns(ctx context.Context) error {
	runs, err := a.store.Queries().ListRuns(ctx, 20)
	if err != nil {
		return fmt.Errorf("error listing runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No analyses found")
		fmt.Println()
		fmt.Println("💡 Analyze your first ledger with:")
		fmt.Println("   tubecost analyze ledger.xlsx --rate 4.45")
		return nil
	}

	fmt.Println("Analysis History")
	fmt.Println("════════════════════════════════════════════════════════════════════════════════════════════════════")
	fmt.Printf("%-36s  %-16s  %6s  %6s  %12s  %12s  %-24s\n",
		"Run ID", "Date", "Lines", "Rate", "Amount", "Profit", "Ledger File")
	fmt.Println("────────────────────────────────────────────────────────────────────────────────────────────────────")

	for _, run := range runs {
		dateStr := run.UpdatedAt.Local().Format("2006-01-02 15:04")

		filename := []rune(run.FileName)
		if len(filename) > 24 {
			filename = append(filename[:21], []rune("...")...)
		}

		fmt.Printf("%-36s  %s  %6d  %6s  %12s  %12s  %-24s\n",
			run.ID,
			dateStr,
			run.LineCount,
			report.FormatRate(run.ExchangeRate),
			report.FormatMoney(run.TotalAmount),
			report.FormatMoney(run.TotalProfit),
			string(filename),
		)
	}
	fmt.Println("════════════════════════════════════════════════════════════════════════════════════════════════════")
	fmt.Printf("Total: %d run(s)\n", len(runs))
	return nil
}
