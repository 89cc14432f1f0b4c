package costing

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned by the geometry calculator for non-positive
// dimensions, densities or prices
var ErrInvalidInput = errors.New("invalid input")

// WeightResult is the per-meter weight of a pipe and its intermediate values.
// Lengths are in mm, areas in mm², weights in g/m (reels in kg).
type WeightResult struct {
	InnerDiameter  float64
	InnerRadius    float64
	InnerArea      float64
	Thickness      float64
	OuterDiameter  float64
	OuterRadius    float64
	OuterArea      float64
	Density        float64
	GramsPerMeter  float64
	KgPer305Meters float64
	KgPer100Meters float64
}

// CostResult is the material cost and suggested selling price per meter
type CostResult struct {
	GramsPerMeter float64
	ScrapPercent  float64
	PelletPrice   float64
	MarginPercent float64
	MaterialPerKg float64
	CostPerMeter  float64
	PricePerMeter float64
}

// PipeWeight computes the per-meter weight of a pipe. With diameters in mm
// and density in g/cm³, the ring area in mm² times density is already g/m.
func PipeWeight(innerDiameter, thickness, density float64) (WeightResult, error) {
	if err := requirePositive("inner diameter", innerDiameter); err != nil {
		return WeightResult{}, err
	}
	if err := requirePositive("thickness", thickness); err != nil {
		return WeightResult{}, err
	}
	if err := requirePositive("density", density); err != nil {
		return WeightResult{}, err
	}

	innerRadius := innerDiameter / 2
	outer := innerDiameter + 2*thickness
	outerRadius := outer / 2

	innerArea := math.Pi * innerRadius * innerRadius
	outerArea := math.Pi * outerRadius * outerRadius
	grams := (outerArea - innerArea) * density

	return WeightResult{
		InnerDiameter:  innerDiameter,
		InnerRadius:    innerRadius,
		InnerArea:      innerArea,
		Thickness:      thickness,
		OuterDiameter:  outer,
		OuterRadius:    outerRadius,
		OuterArea:      outerArea,
		Density:        density,
		GramsPerMeter:  grams,
		KgPer305Meters: grams * 305 / 1000,
		KgPer100Meters: grams * 100 / 1000,
	}, nil
}

// PipeCost computes material cost per meter from weight, scrap rate and
// pellet price per kg; the selling price adds the margin on top of cost.
func PipeCost(gramsPerMeter, scrapPercent, pelletPrice, marginPercent float64) (CostResult, error) {
	if err := requirePositive("weight per meter", gramsPerMeter); err != nil {
		return CostResult{}, err
	}
	if err := requirePositive("pellet price", pelletPrice); err != nil {
		return CostResult{}, err
	}
	if math.IsNaN(scrapPercent) || math.IsInf(scrapPercent, 0) {
		scrapPercent = 0
	}
	if math.IsNaN(marginPercent) || math.IsInf(marginPercent, 0) {
		marginPercent = 0
	}

	materialPerKg := pelletPrice * (1 + scrapPercent/100)
	cost := (gramsPerMeter / 1000) * materialPerKg

	return CostResult{
		GramsPerMeter: gramsPerMeter,
		ScrapPercent:  scrapPercent,
		PelletPrice:   pelletPrice,
		MarginPercent: marginPercent,
		MaterialPerKg: materialPerKg,
		CostPerMeter:  cost,
		PricePerMeter: cost * (1 + marginPercent/100),
	}, nil
}

func requirePositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidInput, field)
	}
	return nil
}

// GeometryKey is the table key for a spec: rounded to three decimals
func GeometryKey(spec decimal.Decimal) string {
	return spec.Round(3).StringFixed(3)
}

// GeometryEntry is one saved per-meter cost
type GeometryEntry struct {
	Series       string
	SpecKey      string
	CostPerMeter decimal.Decimal
	UpdatedAt    time.Time
}

// GeometrySnapshot is the geometry-derived cost table as persisted at the
// moment a run started. Revision increases on every save.
type GeometrySnapshot struct {
	Revision  int64
	UpdatedAt time.Time
	costs     map[string]map[string]decimal.Decimal
}

// NewGeometrySnapshot indexes entries by series and normalized key
func NewGeometrySnapshot(revision int64, entries []GeometryEntry) *GeometrySnapshot {
	s := &GeometrySnapshot{
		Revision: revision,
		costs:    make(map[string]map[string]decimal.Decimal),
	}
	for _, e := range entries {
		series := strings.ToUpper(strings.TrimSpace(e.Series))
		key := e.SpecKey
		if d, err := decimal.NewFromString(key); err == nil {
			key = GeometryKey(d)
		}
		if s.costs[series] == nil {
			s.costs[series] = make(map[string]decimal.Decimal)
		}
		s.costs[series][key] = e.CostPerMeter
		if e.UpdatedAt.After(s.UpdatedAt) {
			s.UpdatedAt = e.UpdatedAt
		}
	}
	return s
}

// Lookup finds the exact (series, spec) entry
func (s *GeometrySnapshot) Lookup(series string, spec decimal.Decimal) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	table, ok := s.costs[strings.ToUpper(series)]
	if !ok {
		return decimal.Zero, false
	}
	cost, ok := table[GeometryKey(spec)]
	return cost, ok
}

// Entries lists the snapshot contents sorted by series, then numeric spec
func (s *GeometrySnapshot) Entries() []GeometryEntry {
	if s == nil {
		return nil
	}
	var out []GeometryEntry
	for series, table := range s.costs {
		for key, cost := range table {
			out = append(out, GeometryEntry{Series: series, SpecKey: key, CostPerMeter: cost})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Series != out[j].Series {
			return out[i].Series < out[j].Series
		}
		a, _ := decimal.NewFromString(out[i].SpecKey)
		b, _ := decimal.NewFromString(out[j].SpecKey)
		return a.LessThan(b)
	})
	return out
}

// Len is the number of entries across all series
func (s *GeometrySnapshot) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, t := range s.costs {
		n += len(t)
	}
	return n
}
