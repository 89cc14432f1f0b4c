package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/datsun80zx/tubecost.git/internal/costing"
)

type weightRequest struct {
	InnerDiameter float64 `json:"inner_diameter"`
	Thickness     float64 `json:"thickness"`
	Density       float64 `json:"density"`
}

type weightResponse struct {
	InnerDiameter  float64 `json:"inner_diameter"`
	InnerArea      float64 `json:"inner_area"`
	OuterDiameter  float64 `json:"outer_diameter"`
	OuterArea      float64 `json:"outer_area"`
	GramsPerMeter  float64 `json:"grams_per_meter"`
	KgPer305Meters float64 `json:"kg_per_305m"`
	KgPer100Meters float64 `json:"kg_per_100m"`
}

type costRequest struct {
	GramsPerMeter float64 `json:"grams_per_meter"`
	ScrapPercent  float64 `json:"scrap_percent"`
	PelletPrice   float64 `json:"pellet_price"`
	MarginPercent float64 `json:"margin_percent"`
}

type costResponse struct {
	MaterialPerKg float64 `json:"material_per_kg"`
	CostPerMeter  float64 `json:"cost_per_meter"`
	PricePerMeter float64 `json:"price_per_meter"`
}

type saveCostRequest struct {
	Series        string              `json:"series"`
	Spec          decimal.NullDecimal `json:"spec"`
	InnerDiameter decimal.NullDecimal `json:"inner_diameter"`
	CostPerMeter  decimal.Decimal     `json:"cost_per_meter"`
}

type saveCostResponse struct {
	Series       string          `json:"series"`
	Spec         string          `json:"spec"`
	CostPerMeter decimal.Decimal `json:"cost_per_meter"`
	Revision     int64           `json:"revision"`
}

func (s *Server) handlePipeWeight(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	res, err := costing.PipeWeight(req.InnerDiameter, req.Thickness, req.Density)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, weightResponse{
		InnerDiameter:  res.InnerDiameter,
		InnerArea:      res.InnerArea,
		OuterDiameter:  res.OuterDiameter,
		OuterArea:      res.OuterArea,
		GramsPerMeter:  res.GramsPerMeter,
		KgPer305Meters: res.KgPer305Meters,
		KgPer100Meters: res.KgPer100Meters,
	})
}

func (s *Server) handlePipeCost(w http.ResponseWriter, r *http.Request) {
	var req costRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	res, err := costing.PipeCost(req.GramsPerMeter, req.ScrapPercent, req.PelletPrice, req.MarginPercent)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, costResponse{
		MaterialPerKg: res.MaterialPerKg,
		CostPerMeter:  res.CostPerMeter,
		PricePerMeter: res.PricePerMeter,
	})
}

func (s *Server) handleListGeometryCosts(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Queries().GeometrySnapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGeometryTableView(snap))
}

func (s *Server) handleSaveGeometryCost(w http.ResponseWriter, r *http.Request) {
	var req saveCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	resp, err := s.saveGeometryCost(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("geometry cost saved",
		zap.String("series", resp.Series),
		zap.String("spec", resp.Spec),
		zap.Int64("revision", resp.Revision))
	writeJSON(w, http.StatusCreated, resp)
}

// saveGeometryCost validates and stores one geometry-derived cost. The spec
// defaults to the inner diameter when it is not given.
func (s *Server) saveGeometryCost(ctx context.Context, req saveCostRequest) (saveCostResponse, error) {
	series, err := s.catalog.GeometrySeries(req.Series)
	if err != nil {
		return saveCostResponse{}, err
	}
	spec := req.Spec
	if !spec.Valid {
		spec = req.InnerDiameter
	}
	if !spec.Valid {
		return saveCostResponse{}, fmt.Errorf("%w: spec or inner diameter is required", costing.ErrInvalidInput)
	}

	revision, err := s.store.SaveGeometryCost(ctx, series, spec.Decimal, req.CostPerMeter, time.Now())
	if err != nil {
		return saveCostResponse{}, err
	}

	return saveCostResponse{
		Series:       series,
		Spec:         costing.GeometryKey(spec.Decimal),
		CostPerMeter: req.CostPerMeter,
		Revision:     revision,
	}, nil
}
