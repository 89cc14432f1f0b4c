package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/datsun80zx/tubecost.git/internal/config"
	"github.com/datsun80zx/tubecost.git/internal/costing"
	"github.com/datsun80zx/tubecost.git/internal/importer"
	"github.com/datsun80zx/tubecost.git/internal/store"
	"github.com/datsun80zx/tubecost.git/pkg/logger"
)

const usage = `Sales Ledger Cost & Margin Tool

Usage:
  tubecost analyze <ledger.xlsx|ledger.csv> [--rate R] [--xlsx FILE] [--html FILE]
                                            Price a sales ledger and store the run
  tubecost list                             List analysis runs
  tubecost report customers [--run ID] [--top N]
                                            Show profitability by customer
  tubecost report items [--run ID] [--top N]
                                            Show cost comparison by item
  tubecost recalc <run-id> [--rate R]       Reprice a stored run
  tubecost pvc weight --inner D --thickness T --density P
                                            Pipe weight per meter
  tubecost pvc cost --weight G --pellet P [--scrap S] [--margin M]
                                            Material cost per meter
  tubecost pvc save --series CFT-3|CFT-6 --cost C [--spec S | --inner D]
                                            Save a geometry-derived cost
  tubecost pvc list                         Show the geometry cost table
  tubecost migrate                          Apply database migrations
  tubecost serve                            Start the HTTP API

Configuration (environment or .env):
  DB_DRIVER        sqlite (default) or postgres
  SQLITE_PATH      SQLite file (default tubecost.db)
  DATABASE_URL     PostgreSQL URL when DB_DRIVER=postgres
  EXCHANGE_RATE    Default CNY -> TWD rate for foreign-catalog items
  CATALOG_PATH     Cost catalog TOML overriding the built-in one
  REDIS_ADDR       Optional result cache for the HTTP API
  HTTP_ADDR        Listen address for serve (default :8080)

Examples:
  tubecost analyze 銷貨明細.xlsx --rate 4.45 --xlsx 成本毛利.xlsx
  tubecost report customers --top 20
  tubecost pvc weight --inner 2 --thickness 0.3 --density 1.4
  tubecost pvc save --series CFT-3 --inner 2 --cost 0.85
`

// app holds what every command needs
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	catalog  *costing.Catalog
	importer *importer.Importer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "-h" || command == "--help" {
		fmt.Print(usage)
		return
	}

	// pure calculators need no database
	if command == "pvc" && len(os.Args) > 2 && (os.Args[2] == "weight" || os.Args[2] == "cost") {
		if err := handlePVC(context.Background(), nil, os.Args[2:]); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	args := os.Args[2:]
	switch command {
	case "analyze":
		err = a.handleAnalyze(ctx, args)
	case "list":
		err = a.listRuns(ctx)
	case "report":
		err = a.handleReport(ctx, args)
	case "recalc":
		err = a.handleRecalc(ctx, args)
	case "pvc":
		err = handlePVC(ctx, a, args)
	case "migrate":
		err = a.migrate(ctx)
	case "serve":
		err = a.serve(ctx)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("❌ %v\n", err)
		a.close()
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return nil, err
	}

	cat, err := costing.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Options{
		Driver:         store.Driver(cfg.DBDriver),
		DSN:            cfg.DSN(),
		MaxOpenConns:   cfg.DBMaxOpenConns,
		ConnectTimeout: cfg.DBConnectTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	// a local SQLite file is brought up to date on every start; PostgreSQL
	// schemas move only through `tubecost migrate`
	if st.Driver() == store.DriverSQLite {
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		catalog:  cat,
		importer: importer.NewImporter(st, costing.NewPipeline(cat), log),
	}, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	_ = a.log.Sync()
}

// rate returns the --rate flag when given, else the configured default
func (a *app) rate(flags map[string]string) (decimal.NullDecimal, error) {
	if raw, ok := flags["rate"]; ok {
		return parseRate(raw)
	}
	return a.cfg.DefaultRate()
}
