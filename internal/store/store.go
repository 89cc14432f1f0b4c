package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested run does not exist
var ErrNotFound = errors.New("not found")

// Driver selects the SQL dialect
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Options configures Open
type Options struct {
	Driver         Driver
	DSN            string // postgres URL or sqlite path
	MaxOpenConns   int
	ConnectTimeout time.Duration
}

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the connection pool
type Store struct {
	db     *sql.DB
	driver Driver
	logger *zap.Logger
}

// Queries runs the store's statements against a pool or a transaction
type Queries struct {
	db     DBTX
	driver Driver
}

// New wraps an already open connection
func New(db *sql.DB, driver Driver, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, driver: driver, logger: logger}
}

// Open connects to the configured database, retrying with exponential
// backoff until ConnectTimeout elapses
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driverName := string(opts.Driver)
	switch opts.Driver {
	case DriverPostgres:
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = opts.ConnectTimeout
	if retryPolicy.MaxElapsedTime <= 0 {
		retryPolicy.MaxElapsedTime = 30 * time.Second
	}
	retryPolicy.MaxInterval = 5 * time.Second

	logger.Info("connecting to database", zap.String("driver", driverName))

	var db *sql.DB
	err := backoff.RetryNotify(
		func() error {
			conn, err := sql.Open(driverName, opts.DSN)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("open: %w", err))
			}
			if err := conn.PingContext(ctx); err != nil {
				conn.Close()
				return fmt.Errorf("ping: %w", err)
			}
			db = conn
			return nil
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, next time.Duration) {
			logger.Warn("database connection failed, retrying",
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driverName, err)
	}

	if opts.Driver == DriverSQLite {
		// one connection: in-memory databases are per connection, and
		// sqlite serializes writers anyway
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, `
			PRAGMA foreign_keys = ON;
			PRAGMA busy_timeout = 5000;
		`); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set sqlite pragmas: %w", err)
		}
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	logger.Info("connected to database", zap.String("driver", driverName))
	return New(db, opts.Driver, logger), nil
}

// DB exposes the pool for migrations
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver reports the dialect in use
func (s *Store) Driver() Driver {
	return s.driver
}

// Close closes the pool
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Queries returns a handle bound to the pool
func (s *Store) Queries() *Queries {
	return &Queries{db: s.db, driver: s.driver}
}

// WithTx runs fn inside a transaction, committing when fn returns nil
func (s *Store) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := fn(&Queries{db: tx, driver: s.driver}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, rebind(q.driver, query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, rebind(q.driver, query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, rebind(q.driver, query), args...)
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres. Statements in
// this package never contain a literal question mark.
func rebind(driver Driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
