package repo

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
)

// Locker serializes critical sections across every process sharing the
// database.
type Locker interface {
	// WithLock runs fn while holding the lock named key. The lock is released
	// when fn returns, whether or not it failed.
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// beginner is satisfied by *pgxpool.Pool.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pgAdvisoryLocker implements Locker with transaction-scoped Postgres advisory
// locks. fn runs inside the locking transaction: repo calls made with fn's
// context use that transaction's connection, so a critical section holds
// exactly one pool connection and its writes commit together.
type pgAdvisoryLocker struct {
	pool beginner
	log  *slog.Logger
}

// NewAdvisoryLocker constructs a Locker backed by pg_advisory_xact_lock.
// pool is normally a *pgxpool.Pool.
func NewAdvisoryLocker(pool beginner, log *slog.Logger) Locker {
	return &pgAdvisoryLocker{pool: pool, log: log}
}

// WithLock begins a transaction, blocks until the advisory lock for key is
// granted and runs fn. The transaction commits when fn succeeds and rolls
// back otherwise; either way the lock is released with it.
func (l *pgAdvisoryLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.Locker.WithLock: begin: %w", err)
	}
	// Rollback is a no-op after a successful Commit.
	defer l.rollback(ctx, tx, key)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1::bigint)`, advisoryLockKey(key)); err != nil {
		return fmt.Errorf("repo.Locker.WithLock: lock %q: %w", key, err)
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.Locker.WithLock: commit: %w", err)
	}
	return nil
}

func (l *pgAdvisoryLocker) rollback(ctx context.Context, tx pgx.Tx, key string) {
	// Roll back even if ctx was cancelled while fn ran.
	err := tx.Rollback(context.WithoutCancel(ctx))
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		l.log.ErrorContext(ctx, "failed to roll back locked transaction", "key", key, "error", err)
	}
}

// advisoryLockKey maps a lock name onto the bigint key space.
func advisoryLockKey(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

// localLocker implements Locker with in-process mutexes. It only serializes
// callers inside one process.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLocker constructs a process-local Locker.
func NewLocalLocker() Locker {
	return &localLocker{locks: map[string]*sync.Mutex{}}
}

// WithLock runs fn while holding the mutex for key.
func (l *localLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}
