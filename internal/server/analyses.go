package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/datsun80zx/tubecost.git/internal/report"
)

// Cached views of a run
const (
	viewAnalysis  = "analysis"
	viewCustomers = "customers"
	viewItems     = "items"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("ledger")
	if err != nil {
		badRequest(w, "missing ledger file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "failed to read ledger file")
		return
	}

	rate, err := s.parseRate(r.FormValue("exchange_rate"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	res, err := s.importer.ImportBytes(r.Context(), header.Filename, data, rate)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// a known file was repriced in place, so its cached views are stale
	if res.AlreadyImported {
		s.invalidate(r.Context(), res.Run.ID)
	}

	view := newAnalysisView(res.Run, res.Result)
	view.AlreadyImported = res.AlreadyImported
	view.SkippedRows = res.ValidationResult.SkippedRows

	status := http.StatusCreated
	if res.AlreadyImported {
		status = http.StatusOK
	}
	writeJSON(w, status, view)
}

// parseRate reads an optional exchange rate form value, falling back to the
// configured default when it is blank
func (s *Server) parseRate(raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.defaultRate, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid exchange_rate %q", raw)
	}
	return decimal.NewNullDecimal(d), nil
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.store.Queries().ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]runView, len(runs))
	for i := range runs {
		out[i] = newRunView(&runs[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.serveCached(w, r, id, viewAnalysis, func() (any, error) {
		run, result, err := s.importer.Load(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return newAnalysisView(run, result), nil
	})
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.serveCached(w, r, id, viewCustomers, func() (any, error) {
		_, result, err := s.importer.Load(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return newCustomerViews(result.Customers), nil
	})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.serveCached(w, r, id, viewItems, func() (any, error) {
		_, result, err := s.importer.Load(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return newItemViews(result.Items), nil
	})
}

// serveCached answers from the result cache when it holds the view, and
// fills it otherwise
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, runID, view string, load func() (any, error)) {
	lock := s.runLock(runID)
	lock.RLock()
	defer lock.RUnlock()

	var cached json.RawMessage
	hit, err := s.cache.Get(r.Context(), runID, view, &cached)
	if err != nil {
		s.logger.Warn("result cache read failed", zap.String("run_id", runID), zap.Error(err))
	}
	if hit {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	v, err := load()
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.cache.Set(r.Context(), runID, view, v); err != nil {
		s.logger.Warn("result cache write failed", zap.String("run_id", runID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, v)
}

type recalculateRequest struct {
	ExchangeRate decimal.NullDecimal `json:"exchange_rate"`
}

func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req recalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}

	lock := s.runLock(id)
	lock.Lock()
	defer lock.Unlock()

	res, err := s.importer.Recalculate(r.Context(), id, req.ExchangeRate)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.cache.Invalidate(r.Context(), id); err != nil {
		s.logger.Warn("result cache invalidation failed", zap.String("run_id", id), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, newAnalysisView(res.Run, res.Result))
}

// invalidate drops the cached views of a run once in-flight cached reads
// have finished
func (s *Server) invalidate(ctx context.Context, runID string) {
	lock := s.runLock(runID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.cache.Invalidate(ctx, runID); err != nil {
		s.logger.Warn("result cache invalidation failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, result, err := s.importer.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, result); err != nil {
		s.writeError(w, err)
		return
	}

	name := strings.TrimSuffix(run.FileName, filepath.Ext(run.FileName)) + "_成本毛利.xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
