package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/datsun80zx/tubecost.git/internal/costing"
	"github.com/datsun80zx/tubecost.git/internal/importer"
	"github.com/datsun80zx/tubecost.git/internal/report"
)

func (a *app) handleAnalyze(ctx context.Context, args []string) error {
	flags, rest, err := parseFlags(args, "rate", "xlsx", "html")
	if err != nil {
		return err
	}
	if len(rest) < 1 {
		return fmt.Errorf("analyze requires a ledger file\nUsage: tubecost analyze <ledger.xlsx|ledger.csv> [--rate R]")
	}

	ledgerPath := rest[0]
	if _, err := os.Stat(ledgerPath); os.IsNotExist(err) {
		return fmt.Errorf("ledger file not found: %s", ledgerPath)
	}

	rate, err := a.rate(flags)
	if err != nil {
		return err
	}

	fmt.Println("Starting analysis...")
	fmt.Printf("  Ledger file:   %s\n", ledgerPath)
	fmt.Printf("  Exchange rate: %s\n", report.FormatRate(rate))
	fmt.Println()

	result, err := a.importer.ImportFile(ctx, ledgerPath, rate)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if result.AlreadyImported {
		fmt.Println("ℹ️  This ledger has already been analyzed; repriced the existing run")
	} else {
		fmt.Println("✅ Analysis successful!")
	}
	fmt.Println()
	fmt.Printf("Run ID:             %s\n", result.Run.ID)
	report.PrintTotals(os.Stdout, result.Result)
	fmt.Printf("Duration:           %v\n", result.Duration.Round(time.Millisecond))

	printValidation(result)

	if path, ok := flags["xlsx"]; ok {
		if err := writeXLSX(path, result.Result); err != nil {
			return err
		}
	}
	if path, ok := flags["html"]; ok {
		if err := writeHTML(path, result); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Println("💡 Next steps:")
	fmt.Println("   tubecost report customers     # View profitability by customer")
	fmt.Println("   tubecost report items         # Compare cost by item")
	return nil
}

func (a *app) handleRecalc(ctx context.Context, args []string) error {
	flags, rest, err := parseFlags(args, "rate")
	if err != nil {
		return err
	}
	if len(rest) < 1 {
		return fmt.Errorf("recalc requires a run id\nUsage: tubecost recalc <run-id> [--rate R]")
	}

	rate, err := a.rate(flags)
	if err != nil {
		return err
	}

	result, err := a.importer.Recalculate(ctx, rest[0], rate)
	if err != nil {
		return err
	}

	fmt.Println("✅ Run repriced")
	fmt.Println()
	fmt.Printf("Run ID:             %s\n", result.Run.ID)
	report.PrintTotals(os.Stdout, result.Result)
	printValidation(result)
	return nil
}

func printValidation(result *importer.ImportResult) {
	v := result.ValidationResult
	if v == nil || len(v.Warnings) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("⚠️  Warnings:")
	for _, warning := range v.Warnings {
		fmt.Printf("   - %s\n", warning)
	}
	if len(v.UnresolvedRows) > 0 {
		fmt.Printf("   - Unresolved rows: %s\n", joinInts(v.UnresolvedRows, 20))
	}
}

func joinInts(rows []int, limit int) string {
	parts := make([]string, 0, len(rows))
	for i, r := range rows {
		if i == limit {
			parts = append(parts, fmt.Sprintf("... (%d more)", len(rows)-limit))
			break
		}
		parts = append(parts, fmt.Sprint(r))
	}
	return strings.Join(parts, ", ")
}

func writeXLSX(path string, result *costing.Result) error {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer file.Close()

	if err := report.WriteWorkbook(file, result); err != nil {
		return err
	}

	absPath, _ := filepath.Abs(path)
	fmt.Printf("📄 Workbook written: %s\n", absPath)
	return nil
}

func writeHTML(path string, result *importer.ImportResult) error {
	if !strings.HasSuffix(strings.ToLower(path), ".html") {
		path += ".html"
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return fmt.Errorf("error initializing renderer: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer file.Close()

	summary := report.BuildSummary(result.Result, result.Run.FileName, 20)
	if err := renderer.RenderSummary(file, summary); err != nil {
		return fmt.Errorf("error rendering report: %w", err)
	}

	absPath, _ := filepath.Abs(path)
	fmt.Printf("📊 Report generated: %s\n", absPath)
	fmt.Println("💡 Open the HTML file in your browser and print to PDF (Cmd+P / Ctrl+P)")
	return nil
}
