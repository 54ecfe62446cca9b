package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type DB struct {
	Pool   *sql.DB
	driver string
}

// Open connects to SQLite (dsn is a file path) or Postgres (dsn is a
// connection URL) and pings it.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var (
		pool *sql.DB
		err  error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
		pool, err = sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dsn))
		if err != nil {
			return nil, err
		}
		// sqlite wants a single writer; this also serializes our transactions
		pool.SetMaxOpenConns(1)
	case DriverPostgres:
		pool, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		pool.SetMaxOpenConns(10)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	pool.SetConnMaxLifetime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pctx); err != nil {
		_ = pool.Close()
		return nil, classify("ping", err)
	}

	return &DB{Pool: pool, driver: driver}, nil
}

func (d *DB) Driver() string { return d.driver }

func (d *DB) Ping(ctx context.Context) error {
	return classify("ping", d.Pool.PingContext(ctx))
}

// Checkpoint folds the SQLite write-ahead log into the database file so a
// copy of the file is complete. Postgres has nothing to do.
func (d *DB) Checkpoint(ctx context.Context) error {
	if d.driver != DriverSQLite {
		return nil
	}
	_, err := d.Pool.ExecContext(ctx, `PRAGMA wal_checkpoint(FULL);`)
	return classify("checkpoint", err)
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}

// rebind rewrites '?' placeholders to '$n' for Postgres. Queries in this
// package never contain a literal '?'.
func (d *DB) rebind(q string) string {
	if d.driver != DriverPostgres || !strings.Contains(q, "?") {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// withTx runs fn in one transaction. fn's error rolls everything back.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

// Timestamps are stored as fixed-width UTC text so that string comparison
// in SQL matches chronological order on both engines.
const tsLayout = "2006-01-02T15:04:05.000000Z07:00"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTS(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTS(*t), Valid: true}
}

func parseNullTS(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTS(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
