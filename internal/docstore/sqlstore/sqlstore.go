// Package sqlstore is a docstore backend on database/sql. Documents are rows
// of a single table keyed by path; data is stored as JSON. PostgreSQL (pgx)
// and SQLite (modernc) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/dbx"
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/docstore/sqlstore/migrations"
	"github.com/dmitrijs2005/famtree/internal/logging"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const table = "documents"

var columns = []string{"path", "data", "create_time", "update_time"}

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type Backend struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	log     logging.Logger
	feed    docstore.ChangeFeed

	// mu orders commits, their notifications and watch registration.
	mu  sync.Mutex
	hub *docstore.Hub
}

type Option func(*Backend)

// WithFeed publishes every commit to feed.
func WithFeed(feed docstore.ChangeFeed) Option {
	return func(b *Backend) { b.feed = feed }
}

func WithLogger(l logging.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// New wraps an open database. The schema is expected to be migrated.
func New(db *sql.DB, dialect Dialect, d docstore.Dispatcher, opts ...Option) *Backend {
	b := &Backend{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
		log:     logging.Nop{},
		hub:     docstore.NewHub(d),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Open connects to dsn, migrates the schema and returns a ready backend.
func Open(ctx context.Context, dialect Dialect, dsn string, d docstore.Dispatcher, opts ...Option) (*Backend, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, common.NewProviderError(common.CodeUnavailable, fmt.Errorf("ping %s: %w", dialect.Name, err))
	}
	if err := RunMigrations(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return New(db, dialect, d, opts...), nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations for dialect.
func RunMigrations(ctx context.Context, db *sql.DB, dialect Dialect) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect.GooseDialect); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, dialect.migrationsDir())
}

func (b *Backend) Get(ctx context.Context, path string) (*docstore.Document, error) {
	if err := docstore.ValidateDocument(path); err != nil {
		return nil, err
	}
	d, err := b.load(ctx, b.db, path, false)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, path)
	}
	return d, nil
}

// load returns nil without error when the document is absent.
func (b *Backend) load(ctx context.Context, db dbx.DBTX, path string, lock bool) (*docstore.Document, error) {
	q := b.sb.Select(columns...).From(table).Where(sq.Eq{"path": path})
	if lock && b.dialect.LockRows {
		q = q.Suffix("FOR UPDATE")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	d, err := scanDocument(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*docstore.Document, error) {
	var (
		path             string
		raw              []byte
		created, updated int64
	)
	if err := row.Scan(&path, &raw, &created, &updated); err != nil {
		return nil, err
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &docstore.Document{
		Path:       path,
		ID:         docstore.Base(path),
		Data:       data,
		CreateTime: time.Unix(0, created).UTC(),
		UpdateTime: time.Unix(0, updated).UTC(),
	}, nil
}

func (b *Backend) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	if err := docstore.ValidateCollection(q.Collection); err != nil {
		return nil, err
	}

	sel := b.sb.Select(columns...).From(table).Where(sq.Eq{"collection": q.Collection})
	for _, f := range q.Filters {
		// string comparisons are pushed down, everything is re-checked below
		if s, ok := f.Value.(string); ok && fieldName.MatchString(f.Field) {
			sel = sel.Where(b.dialect.fieldEquals(f.Field, s))
		}
	}
	query, args, err := sel.OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []*docstore.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	docstore.SortByID(out)
	return out, nil
}

func (b *Backend) Commit(ctx context.Context, batch *docstore.Batch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, p := range batch.Preconditions() {
			cur, err := b.load(ctx, tx, p.Path, true)
			if err != nil {
				return err
			}
			if err := docstore.CheckPrecondition(cur, p); err != nil {
				return err
			}
		}

		now := docstore.Clock()
		var order []string
		staged := map[string]*docstore.Document{}
		for _, op := range batch.Ops() {
			cur, seen := staged[op.Path]
			if !seen {
				var err error
				if cur, err = b.load(ctx, tx, op.Path, true); err != nil {
					return err
				}
				order = append(order, op.Path)
			}
			next, err := docstore.Apply(cur, op, now)
			if err != nil {
				return err
			}
			staged[op.Path] = next
		}

		for _, path := range order {
			if err := b.write(ctx, tx, path, staged[path]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// The commit is durable at this point; watchers and the feed hear about
	// it even if the caller has gone away.
	ctx = context.WithoutCancel(ctx)
	paths := batch.Paths()
	b.notifyLocked(ctx, paths)
	if b.feed != nil && len(paths) > 0 {
		if err := b.feed.Publish(ctx, paths); err != nil {
			b.log.Warn(ctx, "change feed publish failed", "error", err)
		}
	}
	return nil
}

func (b *Backend) write(ctx context.Context, tx dbx.DBTX, path string, d *docstore.Document) error {
	var (
		query string
		args  []any
		err   error
	)
	if d == nil {
		query, args, err = b.sb.Delete(table).Where(sq.Eq{"path": path}).ToSql()
	} else {
		raw, merr := json.Marshal(d.Data)
		if merr != nil {
			return merr
		}
		query, args, err = b.sb.Insert(table).
			Columns("path", "collection", "id", "data", "create_time", "update_time").
			Values(d.Path, docstore.Parent(d.Path), d.ID, b.dialect.jsonValue(string(raw)),
				d.CreateTime.UnixNano(), d.UpdateTime.UnixNano()).
			Suffix("ON CONFLICT (path) DO UPDATE SET data = excluded.data, create_time = excluded.create_time, update_time = excluded.update_time").
			ToSql()
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Refresh re-delivers watches touched by paths. The change feed calls it for
// commits made by other processes.
func (b *Backend) Refresh(paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifyLocked(context.Background(), paths)
}

func (b *Backend) notifyLocked(ctx context.Context, paths []string) {
	for _, w := range b.hub.Affected(paths) {
		b.deliverLocked(ctx, w)
	}
}

func (b *Backend) deliverLocked(ctx context.Context, w *docstore.Watch) {
	if q := w.Query(); q != nil {
		docs, err := b.Query(ctx, *q)
		b.hub.DeliverQuery(w, docs, err)
		return
	}
	d, err := b.load(ctx, b.db, w.Document(), false)
	b.hub.DeliverDocument(w, d, err)
}

func (b *Backend) WatchDocument(path string, fn func(*docstore.Document, error)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.hub.WatchDocument(path, fn)
	b.deliverLocked(context.Background(), w)
	return func() { b.hub.Cancel(w) }
}

func (b *Backend) WatchQuery(q docstore.Query, fn func([]*docstore.Document, error)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.hub.WatchQuery(q, fn)
	b.deliverLocked(context.Background(), w)
	return func() { b.hub.Cancel(w) }
}

func (b *Backend) Close() error {
	if b.feed != nil {
		_ = b.feed.Close()
	}
	return b.db.Close()
}
