package docstore

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Dispatcher runs watch deliveries. *stream.Loop satisfies it.
type Dispatcher interface {
	Post(fn func()) bool
}

// Inline runs deliveries synchronously on the committing goroutine.
type Inline struct{}

func (Inline) Post(fn func()) bool {
	fn()
	return true
}

// Watch is a registered live listener.
type Watch struct {
	id        uint64
	doc       string
	query     *Query
	onDoc     func(*Document, error)
	onQuery   func([]*Document, error)
	cancelled atomic.Bool

	delivered bool
	lastDoc   *Document
	lastDocs  []*Document
}

// Document is the watched path, empty for query watches.
func (w *Watch) Document() string { return w.doc }

// Query is the watched query, nil for document watches.
func (w *Watch) Query() *Query { return w.query }

func (w *Watch) affectedBy(path string) bool {
	if w.query != nil {
		return Parent(path) == w.query.Collection
	}
	return w.doc == path
}

// Hub keeps the watch registry and posts deliveries to a Dispatcher. Callers
// serialise delivery calls with their commits so that listeners observe
// changes in commit order.
type Hub struct {
	d       Dispatcher
	mu      sync.Mutex
	next    uint64
	watches []*Watch
}

func NewHub(d Dispatcher) *Hub {
	if d == nil {
		d = Inline{}
	}
	return &Hub{d: d}
}

func (h *Hub) WatchDocument(path string, fn func(*Document, error)) *Watch {
	return h.register(&Watch{doc: path, onDoc: fn})
}

func (h *Hub) WatchQuery(q Query, fn func([]*Document, error)) *Watch {
	return h.register(&Watch{query: &q, onQuery: fn})
}

func (h *Hub) register(w *Watch) *Watch {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	w.id = h.next
	h.watches = append(h.watches, w)
	return w
}

// Cancel stops w. Deliveries already queued for it are dropped.
func (h *Hub) Cancel(w *Watch) {
	w.cancelled.Store(true)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watches = slices.DeleteFunc(h.watches, func(x *Watch) bool { return x == w })
}

// Affected returns the live watches touched by any of paths.
func (h *Hub) Affected(paths []string) []*Watch {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*Watch
	for _, w := range h.watches {
		for _, p := range paths {
			if w.affectedBy(p) {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

// Len reports the number of live watches.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watches)
}

// DeliverDocument posts doc to w unless it equals the last delivery.
func (h *Hub) DeliverDocument(w *Watch, doc *Document, err error) {
	if err == nil {
		if w.delivered && w.lastDoc.Equal(doc) {
			return
		}
		w.delivered, w.lastDoc = true, doc.Clone()
	}
	out := doc.Clone()
	h.d.Post(func() {
		if !w.cancelled.Load() {
			w.onDoc(out, err)
		}
	})
}

// DeliverQuery posts docs to w unless they equal the last delivery.
func (h *Hub) DeliverQuery(w *Watch, docs []*Document, err error) {
	if err == nil {
		if w.delivered && equalDocs(w.lastDocs, docs) {
			return
		}
		w.delivered, w.lastDocs = true, cloneAll(docs)
	}
	out := cloneAll(docs)
	h.d.Post(func() {
		if !w.cancelled.Load() {
			w.onQuery(out, err)
		}
	})
}

func cloneAll(docs []*Document) []*Document {
	out := make([]*Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}
