package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/skiff-data/skiff-engine/pkg/logging"
)

// Pool provides acquire/release semantics over the shared embedded
// engine connection. ATTACH and CREATE SECRET mutate session-global
// catalog state, so every statement of one pipeline runs on a single
// acquired handle, and a handle is never shared by two in-flight
// statements.
type Pool struct {
	db     *sql.DB
	logger *zap.Logger

	mu       sync.Mutex
	active   int
	acquired uint64
	closed   bool
}

// Handle is a scoped engine connection: acquired, used, and released
// on every exit path.
type Handle struct {
	conn *sql.Conn
	mu   sync.Mutex // serializes statements on this handle
}

// NewPool wraps an opened engine database handle.
func NewPool(db *sql.DB, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{db: db, logger: logger}
}

// Acquire takes a dedicated engine connection. The caller must release
// it with Release, including on error paths.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("engine pool is closed")
	}
	p.mu.Unlock()

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire engine connection: %w", err)
	}

	p.mu.Lock()
	p.active++
	p.acquired++
	p.mu.Unlock()

	return &Handle{conn: conn}, nil
}

// Release returns the handle's connection to the engine. Safe to call
// once per acquired handle; errors are logged, not returned, because
// release runs on failure paths where the original error matters more.
func (p *Pool) Release(h *Handle) {
	if h == nil || h.conn == nil {
		return
	}
	if err := h.conn.Close(); err != nil {
		p.logger.Warn("failed to release engine connection",
			zap.String("error", logging.SanitizeError(err)))
	}
	h.conn = nil

	p.mu.Lock()
	p.active--
	p.mu.Unlock()
}

// WithConn acquires a handle, runs fn, and releases on every exit path.
func (p *Pool) WithConn(ctx context.Context, fn func(ctx context.Context, h *Handle) error) error {
	h, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(h)
	return fn(ctx, h)
}

// Exec runs a statement on the handle.
func (h *Handle) Exec(ctx context.Context, stmt Statement) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		return fmt.Errorf("engine handle already released")
	}
	if _, err := h.conn.ExecContext(ctx, stmt.SQL); err != nil {
		return fmt.Errorf("engine statement failed: %w", err)
	}
	return nil
}

// QueryExists runs a query and reports whether it returned at least
// one row. Used for catalog-introspection checks.
func (h *Handle) QueryExists(ctx context.Context, stmt Statement, args ...any) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		return false, fmt.Errorf("engine handle already released")
	}

	rows, err := h.conn.QueryContext(ctx, stmt.SQL, args...)
	if err != nil {
		return false, fmt.Errorf("engine query failed: %w", err)
	}
	defer rows.Close()

	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("engine query failed: %w", err)
	}
	return exists, nil
}

// QueryStrings runs a query and returns the first column of every row.
// Used by the metadata refresher for schema listings.
func (h *Handle) QueryStrings(ctx context.Context, stmt Statement, args ...any) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		return nil, fmt.Errorf("engine handle already released")
	}

	rows, err := h.conn.QueryContext(ctx, stmt.SQL, args...)
	if err != nil {
		return nil, fmt.Errorf("engine query failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("engine scan failed: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("engine query failed: %w", err)
	}
	return out, nil
}

// Stats describes pool usage for the health endpoint.
type Stats struct {
	ActiveHandles  int    `json:"active_handles"`
	TotalAcquires  uint64 `json:"total_acquires"`
	OpenEngineConn int    `json:"open_engine_connections"`
}

// GetStats returns a snapshot of pool usage. Safe to call concurrently.
func (p *Pool) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		ActiveHandles:  p.active,
		TotalAcquires:  p.acquired,
		OpenEngineConn: p.db.Stats().OpenConnections,
	}
}

// Close shuts the pool down. Idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.logger.Info("engine pool closed", zap.Uint64("total_acquires", p.acquired))
	return p.db.Close()
}
