package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
)

func newMockPool(t *testing.T) (*Pool, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPool(db, zap.NewNop()), mock
}

func TestPool_AcquireReleaseStats(t *testing.T) {
	pool, _ := newMockPool(t)
	ctx := context.Background()

	h, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	stats := pool.GetStats()
	if stats.ActiveHandles != 1 {
		t.Errorf("expected 1 active handle, got %d", stats.ActiveHandles)
	}
	if stats.TotalAcquires != 1 {
		t.Errorf("expected 1 total acquire, got %d", stats.TotalAcquires)
	}

	pool.Release(h)
	if got := pool.GetStats().ActiveHandles; got != 0 {
		t.Errorf("expected 0 active handles after release, got %d", got)
	}

	// Double release is a no-op.
	pool.Release(h)
	if got := pool.GetStats().ActiveHandles; got != 0 {
		t.Errorf("expected double release to be a no-op, got %d active", got)
	}
}

func TestPool_ExecAndQueryExists(t *testing.T) {
	pool, mock := newMockPool(t)
	ctx := context.Background()

	attach := `ATTACH 'https://example.com/sales.duckdb' AS sales_db (READ_ONLY)`
	verify := `SELECT database_name FROM duckdb_databases() WHERE database_name = ?`

	mock.ExpectExec(attach).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(verify).
		WithArgs("sales_db").
		WillReturnRows(sqlmock.NewRows([]string{"database_name"}).AddRow("sales_db"))

	err := pool.WithConn(ctx, func(ctx context.Context, h *Handle) error {
		if err := h.Exec(ctx, NewStatement(attach)); err != nil {
			return err
		}
		exists, err := h.QueryExists(ctx, NewStatement(verify), "sales_db")
		if err != nil {
			return err
		}
		if !exists {
			t.Error("expected catalog row to exist")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithConn failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPool_QueryExists_NoRows(t *testing.T) {
	pool, mock := newMockPool(t)
	query := `SELECT database_name FROM duckdb_databases() WHERE database_name = ?`
	mock.ExpectQuery(query).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"database_name"}))

	err := pool.WithConn(context.Background(), func(ctx context.Context, h *Handle) error {
		exists, err := h.QueryExists(ctx, NewStatement(query), "missing")
		if err != nil {
			return err
		}
		if exists {
			t.Error("expected no catalog row")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithConn failed: %v", err)
	}
}

func TestPool_WithConn_ReleasesOnError(t *testing.T) {
	pool, mock := newMockPool(t)

	stmt := `ATTACH 'bad' AS x`
	mock.ExpectExec(stmt).WillReturnError(errForTest("IO Error: No such file or directory"))

	err := pool.WithConn(context.Background(), func(ctx context.Context, h *Handle) error {
		return h.Exec(ctx, NewStatement(stmt))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := pool.GetStats().ActiveHandles; got != 0 {
		t.Errorf("handle leaked on error path: %d active", got)
	}
}

func TestPool_UsableAfterHandleRelease(t *testing.T) {
	pool, _ := newMockPool(t)

	h, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	pool.Release(h)

	if err := h.Exec(context.Background(), NewStatement("SELECT 1")); err == nil {
		t.Error("expected error using a released handle")
	} else if !strings.Contains(err.Error(), "released") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPool_CloseIdempotent(t *testing.T) {
	pool, mock := newMockPool(t)
	mock.ExpectClose()
	if err := pool.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if _, err := pool.Acquire(context.Background()); err == nil {
		t.Error("expected acquire on closed pool to fail")
	}
}

type errForTest string

func (e errForTest) Error() string { return string(e) }
