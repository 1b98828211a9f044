// Package memstore is an in-memory docstore backend. It is the default for
// development and the backend most tests run against.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore"
)

type Backend struct {
	mu   sync.Mutex
	docs map[string]*docstore.Document
	hub  *docstore.Hub
	// failNext makes the next commit fail before anything is applied.
	failNext error
}

func New(d docstore.Dispatcher) *Backend {
	return &Backend{
		docs: map[string]*docstore.Document{},
		hub:  docstore.NewHub(d),
	}
}

// NewStore wraps a fresh in-memory backend.
func NewStore(d docstore.Dispatcher) *docstore.Store {
	return docstore.New(New(d))
}

func (b *Backend) Get(ctx context.Context, path string) (*docstore.Document, error) {
	if err := docstore.ValidateDocument(path); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, path)
	}
	return d.Clone(), nil
}

func (b *Backend) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	if err := docstore.ValidateCollection(q.Collection); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queryLocked(q), nil
}

func (b *Backend) queryLocked(q docstore.Query) []*docstore.Document {
	out := []*docstore.Document{}
	for _, d := range b.docs {
		if q.Matches(d) {
			out = append(out, d.Clone())
		}
	}
	docstore.SortByID(out)
	return out
}

// FailNextCommit makes the next Commit return err without applying anything.
func (b *Backend) FailNextCommit(err error) {
	b.mu.Lock()
	b.failNext = err
	b.mu.Unlock()
}

func (b *Backend) Commit(ctx context.Context, batch *docstore.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.failNext; err != nil {
		b.failNext = nil
		return err
	}

	for _, p := range batch.Preconditions() {
		if err := docstore.CheckPrecondition(b.docs[p.Path], p); err != nil {
			return err
		}
	}

	// stage everything first so a failing op leaves no trace
	now := docstore.Clock()
	staged := map[string]*docstore.Document{}
	lookup := func(path string) *docstore.Document {
		if d, ok := staged[path]; ok {
			return d
		}
		return b.docs[path]
	}
	for _, op := range batch.Ops() {
		next, err := docstore.Apply(lookup(op.Path), op, now)
		if err != nil {
			return err
		}
		staged[op.Path] = next
	}

	for path, d := range staged {
		if d == nil {
			delete(b.docs, path)
			continue
		}
		b.docs[path] = d
	}

	b.notifyLocked(batch.Paths())
	return nil
}

func (b *Backend) notifyLocked(paths []string) {
	for _, w := range b.hub.Affected(paths) {
		if q := w.Query(); q != nil {
			b.hub.DeliverQuery(w, b.queryLocked(*q), nil)
			continue
		}
		b.hub.DeliverDocument(w, b.docs[w.Document()], nil)
	}
}

func (b *Backend) WatchDocument(path string, fn func(*docstore.Document, error)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.hub.WatchDocument(path, fn)
	b.hub.DeliverDocument(w, b.docs[path], nil)
	return func() { b.hub.Cancel(w) }
}

func (b *Backend) WatchQuery(q docstore.Query, fn func([]*docstore.Document, error)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.hub.WatchQuery(q, fn)
	b.hub.DeliverQuery(w, b.queryLocked(q), nil)
	return func() { b.hub.Cancel(w) }
}

// Watches reports the number of live watches.
func (b *Backend) Watches() int {
	return b.hub.Len()
}

func (b *Backend) Close() error {
	return nil
}
