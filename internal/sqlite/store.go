// Package sqlite implements the SQLite storage backend for baglink:
// container records, parent→child edges, and scan-event telemetry behind
// a health-checked connection pool.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/parcelmesh/baglink/pkg/types"
)

// dbFileName is the database file created under DataDir.
const dbFileName = "baglink.db"

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Store read and write helpers accept a Querier so the linking engine can
// run them inside its own transaction; passing nil uses the pooled
// connection directly.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the single authoritative relational store. It must be
// attached before use and detached to release the pool.
type Store struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	log      *slog.Logger

	healthStop chan struct{}
	healthDone chan struct{}
}

// NewStore creates an unattached Store. A nil logger uses slog.Default.
func NewStore(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{log: log}
}

// Attach opens the database under config.DataDir, applies the schema,
// and sizes the connection pool. Returns ErrAlreadyAttached when called
// on an attached store.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	dsn := "file:" + filepath.Join(dataDir, dbFileName) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	// Pool sizing: base connections stay idle, overflow opens on demand,
	// long-lived connections are recycled.
	pool := config.Pool
	db.SetMaxOpenConns(pool.GetBaseConns() + pool.GetOverflowConns())
	db.SetMaxIdleConns(pool.GetBaseConns())
	db.SetConnMaxLifetime(pool.GetConnMaxLifetime())

	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(context.Background(), ddl); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.ExecContext(context.Background(), ddl); err != nil {
			db.Close()
			return fmt.Errorf("applying indexes: %w", err)
		}
	}

	s.db = db
	s.config = config
	s.attached = true

	s.healthStop = make(chan struct{})
	s.healthDone = make(chan struct{})
	go s.healthLoop(pool.GetHealthCheckPeriod())

	return nil
}

// Detach stops the health checker and closes the pool. Idempotent; after
// Detach all operations return ErrDetached.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}

	close(s.healthStop)
	<-s.healthDone

	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	s.attached = false
	return nil
}

// Begin starts a transaction on the pooled connection.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapTransient(fmt.Errorf("beginning transaction: %w", err))
	}
	return tx, nil
}

// handle returns the open pool or ErrDetached.
func (s *Store) handle() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil, types.ErrDetached
	}
	return s.db, nil
}

// querier resolves a caller-supplied Querier, defaulting to the pool.
func (s *Store) querier(q Querier) (Querier, error) {
	if q != nil {
		return q, nil
	}
	return s.handle()
}

// healthLoop pings the pool on a fixed period until Detach. A failed ping
// is logged; database/sql replaces broken connections on next use.
func (s *Store) healthLoop(period time.Duration) {
	defer close(s.healthDone)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-s.healthStop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := s.db.PingContext(ctx)
			cancel()
			if err != nil {
				s.log.Warn("store health check failed", "error", err)
			}
		}
	}
}

// generateUUID generates a new UUID v7 for entity IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails.
		return uuid.New().String()
	}
	return id.String()
}

// sqliteCode extracts the extended result code from a driver error,
// or -1 when err did not come from the driver.
func sqliteCode(err error) int {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return -1
}

// wrapTransient marks infrastructure errors the retry layer may repeat:
// busy/locked database, broken or exhausted connections, timeouts.
// Constraint violations and other rejections pass through untouched.
func wrapTransient(err error) error {
	if err == nil {
		return nil
	}
	switch sqliteCode(err) & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return types.MarkRetryable(err)
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return types.MarkRetryable(err)
	}
	return err
}
