// Package metadata maintains a lightweight catalog summary for each
// attached source, refreshed after every successful attach.
package metadata

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/logging"
)

// Summary is the cached catalog listing for one attached source.
type Summary struct {
	Alias       string    `json:"alias"`
	Tables      []string  `json:"tables"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Refresher pulls table listings from the engine catalog and caches
// them per alias. Refresh failures never fail the attach that
// triggered them; a source with an unreadable catalog is still
// connected.
type Refresher struct {
	logger *zap.Logger

	mu        sync.RWMutex
	summaries map[string]Summary
}

// NewRefresher creates an empty refresher.
func NewRefresher(logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{logger: logger, summaries: make(map[string]Summary)}
}

// Refresh pulls the table listing for alias on the given handle and
// caches it. Errors are logged and swallowed.
func (r *Refresher) Refresh(ctx context.Context, h *engine.Handle, alias string) {
	stmt := engine.NewStatement("SELECT table_name FROM duckdb_tables() WHERE database_name = ? ORDER BY table_name")
	tables, err := h.QueryStrings(ctx, stmt, alias)
	if err != nil {
		r.logger.Warn("Metadata refresh failed",
			zap.String("alias", alias),
			zap.String("error", logging.SanitizeError(err)))
		return
	}

	r.mu.Lock()
	r.summaries[alias] = Summary{Alias: alias, Tables: tables, RefreshedAt: time.Now()}
	r.mu.Unlock()

	r.logger.Debug("Refreshed source metadata",
		zap.String("alias", alias),
		zap.Int("tables", len(tables)))
}

// Get returns the cached summary for alias.
func (r *Refresher) Get(alias string) (Summary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.summaries[alias]
	return s, ok
}

// Forget drops the cached summary for alias. Called on detach.
func (r *Refresher) Forget(alias string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.summaries, alias)
}
