// Package testutil provides shared helpers for integration tests.
// Helpers in this package skip automatically when required environment
// variables are not set, so unit tests can run without a running database.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
)

// NewPool opens a *pgxpool.Pool connected to the database specified by the
// TEST_DATABASE_URL environment variable.
//
// The test is skipped automatically if TEST_DATABASE_URL is not set, so
// integration tests are opt-in and never break CI environments that lack a DB.
// The pool is closed automatically when the test (and all its subtests) finish.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	return openPool(t, 0)
}

// NewPoolWithMaxConns is NewPool with the pool capped at maxConns
// connections, for tests that exercise behaviour under pool exhaustion.
func NewPoolWithMaxConns(t *testing.T, maxConns int32) *pgxpool.Pool {
	t.Helper()
	return openPool(t, maxConns)
}

func openPool(t *testing.T, maxConns int32) *pgxpool.Pool {
	t.Helper()

	cfg, err := pgxpool.ParseConfig(requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewPool: parse dsn: %v", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// NewSQLDB opens a *sql.DB connected to the database specified by the
// TEST_DATABASE_URL environment variable using the pgx database/sql driver.
//
// Use this when you need a *sql.DB rather than a *pgxpool.Pool, for example
// when driving goose migrations in integration tests.
// The connection is closed automatically when the test finishes.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := requireDSN(t)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: open: %v", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		t.Fatalf("testutil.NewSQLDB: ping: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// MustOpenSQLDB opens a *sql.DB for the given DSN and panics on any error.
// Use this in TestMain functions where no *testing.T is available.
// Callers are responsible for closing the returned *sql.DB.
func MustOpenSQLDB(dsn string) *sql.DB {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		panic("testutil.MustOpenSQLDB: open: " + err.Error())
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		panic("testutil.MustOpenSQLDB: ping: " + err.Error())
	}
	return db
}

// requireDSN returns the TEST_DATABASE_URL environment variable value,
// skipping the test if it is not set.
func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	return dsn
}

// NewTx begins a transaction on a fresh test pool and rolls it back when the
// test finishes. The featured tables are emptied inside the transaction so
// each test starts from no slots and no links, whatever the shared database
// holds.
func NewTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := NewPool(t)
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("testutil.NewTx: begin: %v", err)
	}
	t.Cleanup(func() {
		// Rollback discards all changes made during the test; no cleanup SQL needed.
		_ = tx.Rollback(context.Background())
	})

	if _, err := tx.Exec(ctx, `DELETE FROM product_featured_product; DELETE FROM featured_product`); err != nil {
		t.Fatalf("testutil.NewTx: reset featured tables: %v", err)
	}
	return tx
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SeedProduct inserts a product with the handle id and a single variant
// "var_<id>" priced at each entry of prices (currency code → minor units).
func SeedProduct(t *testing.T, db Execer, id string, prices map[string]int64) {
	t.Helper()
	ctx := context.Background()

	if _, err := db.Exec(ctx,
		`INSERT INTO products (id, title, handle) VALUES ($1, $2, $1)`, id, "Product "+id); err != nil {
		t.Fatalf("testutil.SeedProduct: product %s: %v", id, err)
	}
	variantID := "var_" + id
	if _, err := db.Exec(ctx,
		`INSERT INTO product_variants (id, product_id, title) VALUES ($1, $2, 'Default')`, variantID, id); err != nil {
		t.Fatalf("testutil.SeedProduct: variant %s: %v", variantID, err)
	}
	for currency, amount := range prices {
		if _, err := db.Exec(ctx,
			`INSERT INTO variant_prices (variant_id, currency_code, amount) VALUES ($1, $2, $3)`,
			variantID, currency, amount); err != nil {
			t.Fatalf("testutil.SeedProduct: price %s/%s: %v", variantID, currency, err)
		}
	}
}

// SeedRegion inserts a pricing region.
func SeedRegion(t *testing.T, db Execer, id, currency string) {
	t.Helper()
	if _, err := db.Exec(context.Background(),
		`INSERT INTO regions (id, name, currency_code) VALUES ($1, $1, $2)`, id, currency); err != nil {
		t.Fatalf("testutil.SeedRegion: %s: %v", id, err)
	}
}
