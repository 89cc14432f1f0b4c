package main

import (
	"context"
	"fmt"
	"time"

	"github.com/datsun80zx/tubecost.git/internal/costing"
)

func handlePVC(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("pvc requires a subcommand\nAvailable: weight, cost, save, list")
	}

	switch args[0] {
	case "weight":
		return pvcWeight(args[1:])
	case "cost":
		return pvcCost(args[1:])
	case "save":
		return a.pvcSave(ctx, args[1:])
	case "list":
		return a.pvcList(ctx)
	default:
		return fmt.Errorf("unknown pvc subcommand: %s\nAvailable: weight, cost, save, list", args[0])
	}
}

func pvcWeight(args []string) error {
	flags, _, err := parseFlags(args, "inner", "thickness", "density")
	if err != nil {
		return err
	}

	inner, err := floatFlag(flags, "inner", 0)
	if err != nil {
		return err
	}
	thickness, err := floatFlag(flags, "thickness", 0)
	if err != nil {
		return err
	}
	density, err := floatFlag(flags, "density", 0)
	if err != nil {
		return err
	}

	w, err := costing.PipeWeight(inner, thickness, density)
	if err != nil {
		return err
	}

	fmt.Println("Pipe Weight")
	fmt.Println("════════════════════════════════════════")
	fmt.Printf("Inner diameter:     %10.3f mm\n", w.InnerDiameter)
	fmt.Printf("Inner area:         %10.4f mm²\n", w.InnerArea)
	fmt.Printf("Outer diameter:     %10.3f mm\n", w.OuterDiameter)
	fmt.Printf("Outer area:         %10.4f mm²\n", w.OuterArea)
	fmt.Println("────────────────────────────────────────")
	fmt.Printf("Weight:             %10.4f g/m\n", w.GramsPerMeter)
	fmt.Printf("Reel of 305 m:      %10.4f kg\n", w.KgPer305Meters)
	fmt.Printf("Reel of 100 m:      %10.4f kg\n", w.KgPer100Meters)
	fmt.Println("════════════════════════════════════════")
	return nil
}

func pvcCost(args []string) error {
	flags, _, err := parseFlags(args, "weight", "pellet", "scrap", "margin")
	if err != nil {
		return err
	}

	weight, err := floatFlag(flags, "weight", 0)
	if err != nil {
		return err
	}
	pellet, err := floatFlag(flags, "pellet", 0)
	if err != nil {
		return err
	}
	scrap, err := floatFlag(flags, "scrap", 0)
	if err != nil {
		return err
	}
	margin, err := floatFlag(flags, "margin", 0)
	if err != nil {
		return err
	}

	c, err := costing.PipeCost(weight, scrap, pellet, margin)
	if err != nil {
		return err
	}

	fmt.Println("Pipe Cost")
	fmt.Println("════════════════════════════════════════")
	fmt.Printf("Weight:             %10.4f g/m\n", c.GramsPerMeter)
	fmt.Printf("Pellet price:       %10.2f /kg\n", c.PelletPrice)
	fmt.Printf("Scrap:              %9.1f%%\n", c.ScrapPercent)
	fmt.Printf("Material incl. scrap:%9.2f /kg\n", c.MaterialPerKg)
	fmt.Println("────────────────────────────────────────")
	fmt.Printf("Cost per meter:     %10.4f\n", c.CostPerMeter)
	fmt.Printf("Price per meter:    %10.4f (%.1f%% margin)\n", c.PricePerMeter, c.MarginPercent)
	fmt.Println("════════════════════════════════════════")
	return nil
}

func (a *app) pvcSave(ctx context.Context, args []string) error {
	flags, _, err := parseFlags(args, "series", "cost", "spec", "inner")
	if err != nil {
		return err
	}

	series, err := a.catalog.GeometrySeries(flags["series"])
	if err != nil {
		return err
	}

	cost, err := decimalFlag(flags, "cost")
	if err != nil {
		return err
	}
	if !cost.Valid {
		return fmt.Errorf("--cost is required")
	}

	spec, err := decimalFlag(flags, "spec")
	if err != nil {
		return err
	}
	if !spec.Valid {
		if spec, err = decimalFlag(flags, "inner"); err != nil {
			return err
		}
	}
	if !spec.Valid {
		return fmt.Errorf("--spec or --inner is required")
	}

	revision, err := a.store.SaveGeometryCost(ctx, series, spec.Decimal, cost.Decimal, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("✅ Saved %s %s mm = %s per meter (revision %d)\n",
		series, costing.GeometryKey(spec.Decimal), cost.Decimal, revision)
	fmt.Println("💡 Stored runs keep their prices until repriced with `tubecost recalc <run-id>`")
	return nil
}

func (a *app) pvcList(ctx context.Context) error {
	snap, err := a.store.Queries().GeometrySnapshot(ctx)
	if err != nil {
		return err
	}

	entries := snap.Entries()
	if len(entries) == 0 {
		fmt.Println("No geometry costs saved")
		fmt.Println()
		fmt.Println("💡 Save one with:")
		fmt.Println("   tubecost pvc save --series CFT-3 --inner 2 --cost 0.85")
		return nil
	}

	fmt.Println("Geometry Cost Table")
	fmt.Println("════════════════════════════════════════")
	fmt.Printf("%-8s  %12s  %14s\n", "Series", "Spec (mm)", "Cost / m")
	fmt.Println("────────────────────────────────────────")
	for _, e := range entries {
		fmt.Printf("%-8s  %12s  %14s\n", e.Series, e.SpecKey, e.CostPerMeter.StringFixed(4))
	}
	fmt.Println("════════════════════════════════════════")
	fmt.Printf("Revision %d, last updated %s\n", snap.Revision, snap.UpdatedAt.Local().Format("2006-01-02 15:04"))
	return nil
}
