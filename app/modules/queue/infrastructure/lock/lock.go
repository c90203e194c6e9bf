// Package queuelock provides the matchmaking mutex: a Postgres advisory lock
// shared across instances and an in-process lock for single-node setups.
package queuelock

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

const releaseTimeout = 5 * time.Second

// session is the connection a held advisory lock lives on.
type session interface {
	QueryBool(ctx context.Context, query string, key int64) (bool, error)
	// Discard ends the database session instead of returning it to the pool.
	Discard() error
	Close() error
}

// AdvisoryLocker takes a session level pg_try_advisory_lock on a dedicated
// connection and unlocks it on release.
type AdvisoryLocker struct {
	connect func(ctx context.Context) (session, error)
	logger  *slog.Logger
}

func NewAdvisoryLocker(db *bun.DB, logger *slog.Logger) *AdvisoryLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdvisoryLocker{
		connect: func(ctx context.Context) (session, error) {
			conn, err := db.Conn(ctx)
			if err != nil {
				return nil, err
			}
			return bunSession{conn: conn}, nil
		},
		logger: logger,
	}
}

// TryAcquire never blocks on the lock itself.
func (l *AdvisoryLocker) TryAcquire(ctx context.Context, key int64) (bool, func(), error) {
	conn, err := l.connect(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("failed to reserve lock connection: %w", err)
	}

	held, err := conn.QueryBool(ctx, "SELECT pg_try_advisory_lock(?)", key)
	if err != nil {
		// The lock may have been granted before the error surfaced.
		_ = conn.Discard()
		return false, nil, fmt.Errorf("failed to try advisory lock %d: %w", key, err)
	}
	if !held {
		_ = conn.Close()
		return false, nil, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// The caller's context may already be cancelled.
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()

			unlocked, err := conn.QueryBool(ctx, "SELECT pg_advisory_unlock(?)", key)
			if err == nil && unlocked {
				if err := conn.Close(); err != nil {
					l.logger.Warn("Failed to close advisory lock connection", slog.Any("error", err))
				}
				return
			}

			// A pooled session would keep the lock forever, so end it.
			l.logger.Warn("Failed to release advisory lock, discarding its connection",
				slog.Int64("key", key),
				slog.Bool("unlocked", unlocked),
				slog.Any("error", err),
			)
			if err := conn.Discard(); err != nil {
				l.logger.Warn("Failed to discard advisory lock connection", slog.Any("error", err))
			}
		})
	}
	return true, release, nil
}

type bunSession struct {
	conn bun.Conn
}

func (s bunSession) QueryBool(ctx context.Context, query string, key int64) (bool, error) {
	var v bool
	err := s.conn.NewRaw(query, key).Scan(ctx, &v)
	return v, err
}

// Discard makes database/sql close the connection: a Raw callback returning
// driver.ErrBadConn closes both the sql.Conn and the driver connection.
func (s bunSession) Discard() error {
	err := s.conn.Raw(func(any) error { return driver.ErrBadConn })
	if errors.Is(err, driver.ErrBadConn) {
		return nil
	}
	return err
}

func (s bunSession) Close() error {
	return s.conn.Close()
}

// LocalLocker serializes holders within one process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: map[int64]*sync.Mutex{}}
}

func (l *LocalLocker) TryAcquire(_ context.Context, key int64) (bool, func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return false, nil, nil
	}
	var once sync.Once
	return true, func() { once.Do(m.Unlock) }, nil
}
