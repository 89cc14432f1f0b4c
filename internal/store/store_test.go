package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/datsun80zx/tubecost.git/internal/costing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	s, err := Open(ctx, Options{Driver: DriverSQLite, DSN: ":memory:", ConnectTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRebind(t *testing.T) {
	query := `SELECT a FROM t WHERE b = ? AND c IN (?, ?)`

	if got := rebind(DriverSQLite, query); got != query {
		t.Errorf("sqlite rebind changed the query: %s", got)
	}
	want := `SELECT a FROM t WHERE b = $1 AND c IN ($2, $3)`
	if got := rebind(DriverPostgres, query); got != want {
		t.Errorf("postgres rebind = %s, want %s", got, want)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "mysql"}, nil); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate failed: %v", err)
	}
}

func TestGeometryCosts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	q := s.Queries()
	now := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	snap, err := q.GeometrySnapshot(ctx)
	if err != nil {
		t.Fatalf("GeometrySnapshot failed: %v", err)
	}
	if snap.Revision != 0 || snap.Len() != 0 {
		t.Errorf("empty table: revision %d len %d", snap.Revision, snap.Len())
	}

	rev1, err := q.SaveGeometryCost(ctx, "cft-3", dec("2"), dec("1.5"), now)
	if err != nil {
		t.Fatalf("SaveGeometryCost failed: %v", err)
	}
	rev2, err := q.SaveGeometryCost(ctx, "CFT-6", dec("10"), dec("4.2"), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("SaveGeometryCost failed: %v", err)
	}
	rev3, err := q.SaveGeometryCost(ctx, "CFT-3", dec("2.000"), dec("1.6"), now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("SaveGeometryCost failed: %v", err)
	}
	if rev1 != 1 || rev2 != 2 || rev3 != 3 {
		t.Errorf("revisions = %d, %d, %d; want 1, 2, 3", rev1, rev2, rev3)
	}

	snap, err = q.GeometrySnapshot(ctx)
	if err != nil {
		t.Fatalf("GeometrySnapshot failed: %v", err)
	}
	if snap.Revision != 3 {
		t.Errorf("snapshot revision = %d, want 3", snap.Revision)
	}
	if snap.Len() != 2 {
		t.Errorf("snapshot len = %d, want 2 (upsert)", snap.Len())
	}
	if cost, ok := snap.Lookup("CFT-3", dec("2")); !ok || !cost.Equal(dec("1.6")) {
		t.Errorf("CFT-3 2mm = %s, %v; want 1.6", cost, ok)
	}
	if !snap.UpdatedAt.Equal(now.Add(2 * time.Minute)) {
		t.Errorf("updated at = %v", snap.UpdatedAt)
	}

	for _, tt := range []struct {
		series     string
		spec, cost string
	}{
		{"", "2", "1"},
		{"CFT-3", "0", "1"},
		{"CFT-3", "2", "-1"},
	} {
		_, err := q.SaveGeometryCost(ctx, tt.series, dec(tt.spec), dec(tt.cost), now)
		if !errors.Is(err, costing.ErrInvalidInput) {
			t.Errorf("SaveGeometryCost(%q, %s, %s): expected ErrInvalidInput, got %v", tt.series, tt.spec, tt.cost, err)
		}
	}
}

func TestRevisionLock(t *testing.T) {
	if got := revisionLock(DriverPostgres); got != "LOCK TABLE geometry_costs IN SHARE ROW EXCLUSIVE MODE" {
		t.Errorf("postgres lock = %q", got)
	}
	if got := revisionLock(DriverSQLite); got != "" {
		t.Errorf("sqlite lock = %q, want none", got)
	}
}

func TestSaveGeometryCost_ConcurrentRevisions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const saves = 8
	revisions := make(chan int64, saves)
	errs := make(chan error, saves)
	var wg sync.WaitGroup
	for i := 1; i <= saves; i++ {
		wg.Add(1)
		go func(spec int64) {
			defer wg.Done()
			rev, err := s.SaveGeometryCost(ctx, "CFT-3", decimal.NewFromInt(spec), dec("1"), time.Now())
			if err != nil {
				errs <- err
				return
			}
			revisions <- rev
		}(int64(i))
	}
	wg.Wait()
	close(revisions)
	close(errs)

	for err := range errs {
		t.Fatalf("SaveGeometryCost failed: %v", err)
	}
	seen := make(map[int64]bool)
	for rev := range revisions {
		if seen[rev] {
			t.Errorf("revision %d handed out twice", rev)
		}
		seen[rev] = true
	}
	for rev := int64(1); rev <= saves; rev++ {
		if !seen[rev] {
			t.Errorf("revision %d missing from %v", rev, seen)
		}
	}
}

func TestRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 10, 2, 9, 30, 0, 0, time.UTC)

	lines := []costing.SalesLine{
		{Row: 4, Customer: "(CH049)世僖", ItemCode: "H015R", Name: "熱收縮套管 1.5mm", Quantity: dec("100"), Amount: dec("150")},
		{Row: 6, Customer: "(CK002)宏達", ItemCode: "FSG-3-10", Name: "玻璃纖維矽套管 10.0mm * 250mm", Quantity: dec("40"), Amount: dec("300")},
	}
	cat, err := costing.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	result := costing.Run(lines, cat, nil, decimal.NewNullDecimal(dec("4.5")))

	run := Run{ID: "run-1", FileName: "ledger.xlsx", FileHash: "abc", CreatedAt: created, UpdatedAt: created}
	run.ApplyResult(result)

	err = s.WithTx(ctx, func(q *Queries) error {
		if err := q.CreateRun(ctx, run); err != nil {
			return err
		}
		if err := q.InsertSalesLines(ctx, run.ID, lines); err != nil {
			return err
		}
		return q.ReplacePricedLines(ctx, run.ID, result.Lines)
	})
	if err != nil {
		t.Fatalf("persist run failed: %v", err)
	}

	q := s.Queries()
	got, err := q.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if !got.TotalProfit.Equal(result.Totals.Profit) || !got.ExchangeRate.Decimal.Equal(dec("4.5")) {
		t.Errorf("run = %+v", got)
	}
	if !got.CreatedAt.Equal(created) || got.LineCount != 2 {
		t.Errorf("created at %v line count %d", got.CreatedAt, got.LineCount)
	}

	byHash, err := q.GetRunByHash(ctx, "abc")
	if err != nil || byHash.ID != "run-1" {
		t.Errorf("GetRunByHash = %v, %v", byHash, err)
	}

	base, err := q.ListSalesLines(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListSalesLines failed: %v", err)
	}
	if len(base) != 2 || base[1].Row != 6 || !base[1].Quantity.Equal(dec("40")) {
		t.Errorf("base lines = %+v", base)
	}

	priced, err := q.ListPricedLines(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListPricedLines failed: %v", err)
	}
	if len(priced) != 2 {
		t.Fatalf("got %d priced lines, want 2", len(priced))
	}
	fsg := priced[1]
	if fsg.Classification.Family != costing.FamilyForeign || fsg.Classification.Supplier != costing.SupplierPrimary {
		t.Errorf("classification = %+v", fsg.Classification)
	}
	if !fsg.Spec.CutMm.Valid || !fsg.Meters.Equal(dec("10")) || !fsg.Cost.Equal(result.Lines[1].Cost) {
		t.Errorf("priced line = %+v", fsg)
	}
	if !fsg.Resolved || fsg.Spec.Source != costing.SpecSourceMm {
		t.Errorf("resolved %v source %q", fsg.Resolved, fsg.Spec.Source)
	}

	// recalculation without a rate replaces the priced output
	rerun := costing.Run(base, cat, nil, decimal.NullDecimal{})
	got.ApplyResult(rerun)
	got.UpdatedAt = created.Add(time.Hour)
	err = s.WithTx(ctx, func(q *Queries) error {
		if err := q.UpdateRun(ctx, *got); err != nil {
			return err
		}
		return q.ReplacePricedLines(ctx, got.ID, rerun.Lines)
	})
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}

	updated, _ := q.GetRun(ctx, "run-1")
	if updated.ExchangeRate.Valid {
		t.Errorf("exchange rate = %v, want null", updated.ExchangeRate)
	}
	if !updated.TotalCost.Equal(dec("95")) {
		t.Errorf("total cost = %s, want 95", updated.TotalCost)
	}
	priced, _ = q.ListPricedLines(ctx, "run-1")
	if priced[1].Resolved || priced[1].Reason != costing.ReasonNoExchangeRate {
		t.Errorf("foreign line after recalculation = %+v", priced[1])
	}

	runs, err := q.ListRuns(ctx, 10)
	if err != nil || len(runs) != 1 {
		t.Errorf("ListRuns = %v, %v", runs, err)
	}
}

func TestRuns_NotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	q := s.Queries()

	if _, err := q.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun: expected ErrNotFound, got %v", err)
	}
	if _, err := q.GetRunByHash(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRunByHash: expected ErrNotFound, got %v", err)
	}
	if err := q.UpdateRun(ctx, Run{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateRun: expected ErrNotFound, got %v", err)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(q *Queries) error {
		if err := q.CreateRun(ctx, Run{ID: "r", FileHash: "h", CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.Queries().GetRun(ctx, "r"); !errors.Is(err, ErrNotFound) {
		t.Errorf("run survived rollback: %v", err)
	}
}

func TestResultCache_Disabled(t *testing.T) {
	cache := NewResultCache("", "", 0, time.Minute)
	if cache != nil {
		t.Fatal("empty address should disable the cache")
	}

	ctx := context.Background()
	var v map[string]string
	if hit, err := cache.Get(ctx, "run", "items", &v); hit || err != nil {
		t.Errorf("Get on disabled cache = %v, %v", hit, err)
	}
	if err := cache.Set(ctx, "run", "items", v); err != nil {
		t.Errorf("Set on disabled cache: %v", err)
	}
	if err := cache.Invalidate(ctx, "run"); err != nil {
		t.Errorf("Invalidate on disabled cache: %v", err)
	}
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping on disabled cache: %v", err)
	}
	cache.Close()

	if got := cacheKey("r1", "items"); got != "tubecost:run:r1:items" {
		t.Errorf("cacheKey = %q", got)
	}
}
