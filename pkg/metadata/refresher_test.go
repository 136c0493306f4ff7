package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skiff-data/skiff-engine/pkg/engine"
)

const tablesQuery = "SELECT table_name FROM duckdb_tables() WHERE database_name = ? ORDER BY table_name"

func newMockHandle(t *testing.T) (*engine.Handle, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool := engine.NewPool(db, zap.NewNop())
	h, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { pool.Release(h) })
	return h, mock
}

func TestRefresh_CachesTables(t *testing.T) {
	h, mock := newMockHandle(t)

	mock.ExpectQuery(tablesQuery).WithArgs("sales").WillReturnRows(
		sqlmock.NewRows([]string{"table_name"}).AddRow("customers").AddRow("orders"))

	r := NewRefresher(zap.NewNop())
	r.Refresh(context.Background(), h, "sales")

	s, ok := r.Get("sales")
	require.True(t, ok)
	assert.Equal(t, []string{"customers", "orders"}, s.Tables)
	assert.False(t, s.RefreshedAt.IsZero())
}

func TestRefresh_FailureLeavesNoEntry(t *testing.T) {
	h, mock := newMockHandle(t)

	mock.ExpectQuery(tablesQuery).WithArgs("sales").WillReturnError(errors.New("catalog unavailable"))

	r := NewRefresher(zap.NewNop())
	r.Refresh(context.Background(), h, "sales")

	_, ok := r.Get("sales")
	assert.False(t, ok)
}

func TestForget(t *testing.T) {
	h, mock := newMockHandle(t)

	mock.ExpectQuery(tablesQuery).WithArgs("sales").WillReturnRows(
		sqlmock.NewRows([]string{"table_name"}).AddRow("customers"))

	r := NewRefresher(zap.NewNop())
	r.Refresh(context.Background(), h, "sales")
	r.Forget("sales")

	_, ok := r.Get("sales")
	assert.False(t, ok)
}
