package metadata

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "access_token", "t1"))

	v, err := r.Get(ctx, "access_token")
	require.NoError(t, err)
	require.Equal(t, "t1", v)
}

func TestGet_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), "absent")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSet_Upserts(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", "old"))
	require.NoError(t, r.Set(ctx, "k", "new"))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "new", v)
}

func TestDelete_IsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", "1"))
	require.NoError(t, r.Set(ctx, "b", "2"))
	require.NoError(t, r.Delete(ctx, "a", "b", "c"))

	_, err := r.Get(ctx, "a")
	require.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.Get(ctx, "b")
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, r.Delete(ctx, "a"))
}

func TestErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk full")
	mock.ExpectQuery(`SELECT value FROM metadata`).WithArgs("k").WillReturnError(boom)
	mock.ExpectExec(`INSERT INTO metadata`).WithArgs("k", "v").WillReturnError(boom)
	mock.ExpectExec(`DELETE FROM metadata`).WithArgs("k").WillReturnError(boom)

	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err = r.Get(ctx, "k")
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "failed to get metadata[k]")

	err = r.Set(ctx, "k", "v")
	require.ErrorIs(t, err, boom)

	err = r.Delete(ctx, "k")
	require.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
