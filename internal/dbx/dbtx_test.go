package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:dbx_famtree?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS docs (path TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM docs`)
	require.NoError(t, err)
	return db
}

func countDocs(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM docs`).Scan(&n))
	return n
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := openSQLite(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO docs(path) VALUES ('trees/u1/people/p1')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countDocs(t, db))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := openSQLite(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO docs(path) VALUES ('invitations/i1')`)
		require.NoError(t, e)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countDocs(t, db))
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	mdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mdb.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.Panics(t, func() {
		_ = WithTx(context.Background(), mdb, nil, func(ctx context.Context, tx DBTX) error {
			panic("kaput")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	mdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mdb.Close()

	mock.ExpectBegin().WillReturnError(errors.New("no conn"))

	err = WithTx(context.Background(), mdb, nil, func(ctx context.Context, tx DBTX) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitError(t *testing.T) {
	mdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mdb.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

	err = WithTx(context.Background(), mdb, nil, func(ctx context.Context, tx DBTX) error { return nil })
	require.EqualError(t, err, "commit failed")
	require.NoError(t, mock.ExpectationsWereMet())
}
