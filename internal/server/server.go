package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/datsun80zx/tubecost.git/internal/costing"
	"github.com/datsun80zx/tubecost.git/internal/importer"
	"github.com/datsun80zx/tubecost.git/internal/store"
)

// maxUploadSize bounds a multipart ledger upload
const maxUploadSize = 32 << 20

// Server exposes analyses and the PVC geometry table over HTTP
type Server struct {
	importer    *importer.Importer
	store       *store.Store
	catalog     *costing.Catalog
	cache       *store.ResultCache
	defaultRate decimal.NullDecimal
	logger      *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// Options configures a Server
type Options struct {
	Importer    *importer.Importer
	Store       *store.Store
	Catalog     *costing.Catalog
	Cache       *store.ResultCache // optional
	DefaultRate decimal.NullDecimal
	Logger      *zap.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		importer:    opts.Importer,
		store:       opts.Store,
		catalog:     opts.Catalog,
		cache:       opts.Cache,
		defaultRate: opts.DefaultRate,
		logger:      logger,
		locks:       make(map[string]*sync.RWMutex),
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyses", s.handleCreateAnalysis)
		r.Get("/analyses", s.handleListAnalyses)
		r.Get("/analyses/{id}", s.handleGetAnalysis)
		r.Get("/analyses/{id}/customers", s.handleCustomers)
		r.Get("/analyses/{id}/items", s.handleItems)
		r.Post("/analyses/{id}/recalculate", s.handleRecalculate)
		r.Get("/analyses/{id}/export.xlsx", s.handleExport)

		r.Get("/pvc/costs", s.handleListGeometryCosts)
		r.Post("/pvc/costs", s.handleSaveGeometryCost)
		r.Post("/pvc/weight", s.handlePipeWeight)
		r.Post("/pvc/cost", s.handlePipeCost)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// runLock guards the priced lines of one run. Repricing takes it for
// writing; cached reads hold it for reading from load through cache fill.
func (s *Server) runLock(id string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.cache.Ping(r.Context()); err != nil {
		// the cache is optional; report it without failing the check
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "cache": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
