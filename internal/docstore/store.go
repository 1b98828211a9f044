package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reader is the read side shared by stores and batches.
type Reader interface {
	// Get returns common.ErrorNotFound when the document is absent.
	Get(ctx context.Context, path string) (*Document, error)
	Query(ctx context.Context, q Query) ([]*Document, error)
}

// Accessor is what repositories are bound to: either a Store, where every
// write commits on its own, or a Batch, where writes are deferred to commit.
type Accessor interface {
	Reader
	// Create fails with common.ErrorAlreadyExists when the document exists.
	Create(ctx context.Context, path string, data map[string]any) error
	Set(ctx context.Context, path string, data map[string]any) error
	// Merge overwrites the given top-level fields, creating the document if needed.
	Merge(ctx context.Context, path string, data map[string]any) error
	// Update is Merge that fails with common.ErrorNotFound on absent documents.
	Update(ctx context.Context, path string, data map[string]any) error
	// Delete succeeds when the document is already absent.
	Delete(ctx context.Context, path string) error
	// Require fails with common.ErrPreconditionFailed unless field == value.
	Require(ctx context.Context, path, field string, value any) error
}

// Backend is a storage engine.
type Backend interface {
	Reader
	Commit(ctx context.Context, b *Batch) error
	// WatchDocument delivers the document (nil while absent) now and after
	// every change. Deliveries run on the backend's dispatcher.
	WatchDocument(path string, fn func(*Document, error)) (cancel func())
	// WatchQuery delivers the result set now and after every change.
	WatchQuery(q Query, fn func([]*Document, error)) (cancel func())
	Close() error
}

// Store is the handle services use.
type Store struct {
	Backend
}

func New(b Backend) *Store {
	return &Store{Backend: b}
}

// NewID returns a fresh random document id.
func NewID() string {
	return uuid.NewString()
}

func (s *Store) commitOne(ctx context.Context, record func(b *Batch) error) error {
	b := NewBatch(s)
	if err := record(b); err != nil {
		return err
	}
	return s.Commit(ctx, b)
}

func (s *Store) Create(ctx context.Context, path string, data map[string]any) error {
	return s.commitOne(ctx, func(b *Batch) error { return b.Create(ctx, path, data) })
}

func (s *Store) Set(ctx context.Context, path string, data map[string]any) error {
	return s.commitOne(ctx, func(b *Batch) error { return b.Set(ctx, path, data) })
}

func (s *Store) Merge(ctx context.Context, path string, data map[string]any) error {
	return s.commitOne(ctx, func(b *Batch) error { return b.Merge(ctx, path, data) })
}

func (s *Store) Update(ctx context.Context, path string, data map[string]any) error {
	return s.commitOne(ctx, func(b *Batch) error { return b.Update(ctx, path, data) })
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return s.commitOne(ctx, func(b *Batch) error { return b.Delete(ctx, path) })
}

// Require checks the precondition immediately.
func (s *Store) Require(ctx context.Context, path, field string, value any) error {
	if err := ValidateDocument(path); err != nil {
		return err
	}
	cur, err := s.Get(ctx, path)
	if err != nil {
		cur = nil
		if !isNotFound(err) {
			return err
		}
	}
	return CheckPrecondition(cur, Precondition{Path: path, Field: field, Value: value})
}

// Add creates a document with a generated id in collection.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := ValidateCollection(collection); err != nil {
		return "", err
	}
	id := NewID()
	if err := s.Create(ctx, Join(collection, id), data); err != nil {
		return "", err
	}
	return id, nil
}

// RunBatch records fn's writes into a batch and commits them atomically when
// fn returns nil. Nothing is written when fn fails.
//
//	err := store.RunBatch(ctx, func(ctx context.Context, a docstore.Accessor) error {
//	    return repos.Invitations(a).SetStatus(ctx, id, models.InvitationAccepted)
//	})
func (s *Store) RunBatch(ctx context.Context, fn func(ctx context.Context, a Accessor) error) error {
	b := NewBatch(s)
	if err := fn(ctx, b); err != nil {
		return err
	}
	if b.Empty() {
		return nil
	}
	if err := s.Commit(ctx, b); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Clock returns the time used for commit stamps. Tests replace it.
var Clock = func() time.Time { return time.Now().UTC() }

// ChangeFeed carries committed paths between processes sharing one backend,
// so watches in every process see writes made by the others.
type ChangeFeed interface {
	Publish(ctx context.Context, paths []string) error
	// Listen blocks until ctx is done, calling fn for changes made elsewhere.
	Listen(ctx context.Context, fn func(paths []string)) error
	Close() error
}
