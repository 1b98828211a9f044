package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var selectDoc = regexp.QuoteMeta(`SELECT path, data, create_time, update_time FROM documents WHERE path = $1`)

func newMock(t *testing.T) (*Backend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Postgres, docstore.Inline{}), mock
}

func docRow(path, data string, ts time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(columns).AddRow(path, []byte(data), ts.UnixNano(), ts.UnixNano())
}

func fixedClock(t *testing.T, ts time.Time) {
	t.Helper()
	orig := docstore.Clock
	docstore.Clock = func() time.Time { return ts }
	t.Cleanup(func() { docstore.Clock = orig })
}

func TestGet(t *testing.T) {
	b, mock := newMock(t)
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(selectDoc).WithArgs("invitations/i1").
		WillReturnRows(docRow("invitations/i1", `{"status":"pending"}`, ts))
	mock.ExpectQuery(selectDoc).WithArgs("invitations/i2").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(selectDoc).WithArgs("invitations/i3").
		WillReturnError(errors.New("conn reset"))

	d, err := b.Get(ctx, "invitations/i1")
	require.NoError(t, err)
	assert.Equal(t, "i1", d.ID)
	assert.Equal(t, "pending", d.Data["status"])
	assert.Equal(t, ts, d.UpdateTime)

	_, err = b.Get(ctx, "invitations/i2")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = b.Get(ctx, "invitations/i3")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_PushesDownStringFilters(t *testing.T) {
	b, mock := newMock(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT path, data, create_time, update_time FROM documents WHERE collection = $1 AND data->>$2 = $3 ORDER BY id`)).
		WithArgs("invitations", "invitedEmail", "b@y.com").
		WillReturnRows(docRow("invitations/i1", `{"invitedEmail":"b@y.com","status":"pending","n":1}`, ts).
			AddRow("invitations/i2", []byte(`{"invitedEmail":"b@y.com","status":"pending","n":2}`), ts.UnixNano(), ts.UnixNano()))

	q := docstore.Collection("invitations").Where("invitedEmail", "b@y.com").Where("n", 2)
	docs, err := b.Query(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "i2", docs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_WritesInsideTransaction(t *testing.T) {
	b, mock := newMock(t)
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	fixedClock(t, ts)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT path, data, create_time, update_time FROM documents WHERE path = $1 FOR UPDATE`)).
		WithArgs("invitations/i1").
		WillReturnRows(docRow("invitations/i1", `{"status":"pending","ownerUid":"u1"}`, ts.Add(-time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs("invitations/i1").
		WillReturnRows(docRow("invitations/i1", `{"status":"pending","ownerUid":"u1"}`, ts.Add(-time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs("identities/u2/sharedTrees/u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents (path,collection,id,data,create_time,update_time) VALUES ($1,$2,$3,CAST($4 AS JSONB),$5,$6) ON CONFLICT (path) DO UPDATE`)).
		WithArgs("invitations/i1", "invitations", "i1", `{"ownerUid":"u1","status":"accepted"}`, ts.Add(-time.Hour).UnixNano(), ts.UnixNano()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents`)).
		WithArgs("identities/u2/sharedTrees/u1", "identities/u2/sharedTrees", "u1", `{"accessLevel":"viewer"}`, ts.UnixNano(), ts.UnixNano()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := docstore.NewBatch(b)
	ctx := context.Background()
	require.NoError(t, batch.Require(ctx, "invitations/i1", "status", "pending"))
	require.NoError(t, batch.Update(ctx, "invitations/i1", map[string]any{"status": "accepted"}))
	require.NoError(t, batch.Set(ctx, "identities/u2/sharedTrees/u1", map[string]any{"accessLevel": "viewer"}))

	require.NoError(t, b.Commit(ctx, batch))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_PreconditionFailureRollsBack(t *testing.T) {
	b, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs("invitations/i1").
		WillReturnRows(docRow("invitations/i1", `{"status":"declined"}`, time.Now()))
	mock.ExpectRollback()

	batch := docstore.NewBatch(b)
	ctx := context.Background()
	require.NoError(t, batch.Require(ctx, "invitations/i1", "status", "pending"))
	require.NoError(t, batch.Update(ctx, "invitations/i1", map[string]any{"status": "accepted"}))

	err := b.Commit(ctx, batch)
	require.ErrorIs(t, err, common.ErrPreconditionFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_DeleteAndNotify(t *testing.T) {
	b, mock := newMock(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(selectDoc).WithArgs("trees/u1/people/p1").
		WillReturnRows(docRow("trees/u1/people/p1", `{"label":"Jean"}`, ts))

	var seen []*docstore.Document
	cancel := b.WatchDocument("trees/u1/people/p1", func(d *docstore.Document, err error) {
		require.NoError(t, err)
		seen = append(seen, d)
	})
	defer cancel()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs("trees/u1/people/p1").
		WillReturnRows(docRow("trees/u1/people/p1", `{"label":"Jean"}`, ts))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM documents WHERE path = $1`)).WithArgs("trees/u1/people/p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(selectDoc).WithArgs("trees/u1/people/p1").WillReturnError(sql.ErrNoRows)

	batch := docstore.NewBatch(b)
	require.NoError(t, batch.Delete(context.Background(), "trees/u1/people/p1"))
	require.NoError(t, b.Commit(context.Background(), batch))

	require.Len(t, seen, 2)
	assert.Equal(t, "Jean", seen[0].Data["label"])
	assert.Nil(t, seen[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_NotifiesAfterCallerCancels(t *testing.T) {
	b, mock := newMock(t)
	ts := time.Now().UTC()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock.ExpectQuery(selectDoc).WithArgs("a/1").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(selectDoc).WithArgs("a/2").WillReturnError(sql.ErrNoRows)

	// the caller goes away as soon as the first watcher hears of the commit
	var first, second []*docstore.Document
	stop1 := b.WatchDocument("a/1", func(d *docstore.Document, err error) {
		require.NoError(t, err)
		first = append(first, d)
		if d != nil {
			cancel()
		}
	})
	defer stop1()
	stop2 := b.WatchDocument("a/2", func(d *docstore.Document, err error) {
		require.NoError(t, err)
		second = append(second, d)
	})
	defer stop2()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs("a/1").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs("a/2").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(selectDoc).WithArgs("a/1").WillReturnRows(docRow("a/1", `{"x":"1"}`, ts))
	mock.ExpectQuery(selectDoc).WithArgs("a/2").WillReturnRows(docRow("a/2", `{"x":"2"}`, ts))

	batch := docstore.NewBatch(b)
	require.NoError(t, batch.Set(ctx, "a/1", map[string]any{"x": "1"}))
	require.NoError(t, batch.Set(ctx, "a/2", map[string]any{"x": "2"}))
	require.NoError(t, b.Commit(ctx, batch))

	require.Error(t, ctx.Err())
	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, "2", second[1].Data["x"])
	require.NoError(t, mock.ExpectationsWereMet())
}

type recordingFeed struct {
	published [][]string
}

func (f *recordingFeed) Publish(_ context.Context, paths []string) error {
	f.published = append(f.published, paths)
	return nil
}
func (f *recordingFeed) Listen(ctx context.Context, fn func([]string)) error { return nil }
func (f *recordingFeed) Close() error                                        { return nil }

func TestCommit_PublishesToFeed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	feed := &recordingFeed{}
	b := New(db, Postgres, docstore.Inline{}, WithFeed(feed))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := docstore.NewBatch(b)
	require.NoError(t, batch.Set(context.Background(), "a/1", map[string]any{"x": "y"}))
	require.NoError(t, b.Commit(context.Background(), batch))

	assert.Equal(t, [][]string{{"a/1"}}, feed.published)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_UsesDialectDirectory(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var dirs []string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		dirs = append(dirs, dir)
		return nil
	}

	require.NoError(t, RunMigrations(context.Background(), nil, Postgres))
	require.NoError(t, RunMigrations(context.Background(), nil, SQLite))
	assert.Equal(t, []string{"postgres", "sqlite"}, dirs)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error { return errors.New("boom") }
	assert.EqualError(t, RunMigrations(context.Background(), nil, Postgres), "boom")
}

func TestDialectByName(t *testing.T) {
	d, err := DialectByName("sqlite")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)
	_, err = DialectByName("oracle")
	assert.Error(t, err)
}

func TestSQLite_EndToEnd(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, SQLite, "file:sqlstore_e2e?mode=memory&cache=shared", docstore.Inline{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	s := docstore.New(b)

	var pending [][]*docstore.Document
	cancel := s.WatchQuery(docstore.Collection("invitations").Where("status", "pending"), func(docs []*docstore.Document, err error) {
		require.NoError(t, err)
		pending = append(pending, docs)
	})
	defer cancel()

	id, err := s.Add(ctx, "invitations", map[string]any{"status": "pending", "invitedEmail": "b@y.com", "createdAt": docstore.ServerTimestamp})
	require.NoError(t, err)

	err = s.RunBatch(ctx, func(ctx context.Context, a docstore.Accessor) error {
		if err := a.Require(ctx, docstore.Join("invitations", id), "status", "pending"); err != nil {
			return err
		}
		if err := a.Update(ctx, docstore.Join("invitations", id), map[string]any{"status": "accepted"}); err != nil {
			return err
		}
		return a.Set(ctx, "identities/u2/sharedTrees/u1", map[string]any{"ownerUid": "u1", "accessLevel": "viewer"})
	})
	require.NoError(t, err)

	inv, err := s.Get(ctx, docstore.Join("invitations", id))
	require.NoError(t, err)
	assert.Equal(t, "accepted", inv.Data["status"])
	assert.NotEmpty(t, inv.Data["createdAt"])

	err = s.RunBatch(ctx, func(ctx context.Context, a docstore.Accessor) error {
		return a.Require(ctx, docstore.Join("invitations", id), "status", "pending")
	})
	assert.ErrorIs(t, err, common.ErrPreconditionFailed)

	require.Len(t, pending, 3)
	assert.Empty(t, pending[0])
	assert.Len(t, pending[1], 1)
	assert.Empty(t, pending[2])

	shared, err := s.Query(ctx, docstore.Collection("identities/u2/sharedTrees"))
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "viewer", shared[0].Data["accessLevel"])
}
