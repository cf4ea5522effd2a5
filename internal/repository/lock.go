package repository

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Locker serializes mutations across every process sharing a backend. The
// returned func releases the lock and must be called exactly once.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

const lockRetryDelay = 10 * time.Millisecond

// FileLocker takes an exclusive OS lock on a file next to the documents.
type FileLocker struct {
	path string
}

// NewFileLocker returns a locker on path. The file is created when missing.
func NewFileLocker(path string) *FileLocker {
	return &FileLocker{path: path}
}

func (l *FileLocker) Lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, storageErr("mkdir "+filepath.Dir(l.path), err)
	}
	// A fresh handle per call: flock is held per open file, so goroutines
	// sharing one FileLocker still exclude each other.
	fl := flock.New(l.path)
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, storageErr("lock "+l.path, err)
	}
	if !ok {
		return nil, storageErr("lock "+l.path, ctx.Err())
	}
	return func() { _ = fl.Unlock() }, nil
}

// advisoryLockKey identifies the ratings mutation lock among postgres advisory locks.
const advisoryLockKey int64 = 0x7475746f72

// PostgresLocker holds a session-level advisory lock on a dedicated pool connection.
type PostgresLocker struct {
	pool *pgxpool.Pool
}

func (l *PostgresLocker) Lock(ctx context.Context) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, storageErr("acquire lock connection", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, advisoryLockKey); err != nil {
		conn.Release()
		return nil, storageErr("advisory lock", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, advisoryLockKey); err != nil {
			// Closing the session drops any lock it still holds.
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}, nil
}

// MemoryLocker is an in-process lock for the memory backend.
type MemoryLocker struct {
	ch chan struct{}
}

// NewMemoryLocker returns an unlocked MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{ch: make(chan struct{}, 1)}
}

func (l *MemoryLocker) Lock(ctx context.Context) (func(), error) {
	select {
	case l.ch <- struct{}{}:
		return func() { <-l.ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func lockPath(dir string) string {
	return filepath.Join(dir, ".tutor-ratings.lock")
}
