package docstore

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"time"

	"github.com/dmitrijs2005/famtree/internal/common"
)

type OpKind int

const (
	OpCreate OpKind = iota
	OpSet
	OpMerge
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpSet:
		return "set"
	case OpMerge:
		return "merge"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Op is a single write inside a batch.
type Op struct {
	Kind OpKind
	Path string
	Data map[string]any
}

// Precondition must hold at commit time for the batch to apply.
type Precondition struct {
	Path  string
	Field string
	Value any
}

// Batch collects writes that are committed atomically: either every write
// and precondition succeeds or nothing is applied. Reads go straight to the
// underlying store and are not isolated.
type Batch struct {
	reader   Reader
	ops      []Op
	preconds []Precondition
}

func NewBatch(r Reader) *Batch {
	return &Batch{reader: r}
}

func (b *Batch) Ops() []Op                     { return b.ops }
func (b *Batch) Preconditions() []Precondition { return b.preconds }
func (b *Batch) Empty() bool                   { return len(b.ops) == 0 && len(b.preconds) == 0 }

// Paths lists every document the batch writes.
func (b *Batch) Paths() []string {
	out := make([]string, 0, len(b.ops))
	for _, op := range b.ops {
		out = append(out, op.Path)
	}
	return out
}

func (b *Batch) add(kind OpKind, path string, data map[string]any) error {
	if err := ValidateDocument(path); err != nil {
		return err
	}
	b.ops = append(b.ops, Op{Kind: kind, Path: path, Data: maps.Clone(data)})
	return nil
}

func (b *Batch) Get(ctx context.Context, path string) (*Document, error) {
	return b.reader.Get(ctx, path)
}

func (b *Batch) Query(ctx context.Context, q Query) ([]*Document, error) {
	return b.reader.Query(ctx, q)
}

func (b *Batch) Create(_ context.Context, path string, data map[string]any) error {
	return b.add(OpCreate, path, data)
}

func (b *Batch) Set(_ context.Context, path string, data map[string]any) error {
	return b.add(OpSet, path, data)
}

func (b *Batch) Merge(_ context.Context, path string, data map[string]any) error {
	return b.add(OpMerge, path, data)
}

func (b *Batch) Update(_ context.Context, path string, data map[string]any) error {
	return b.add(OpUpdate, path, data)
}

func (b *Batch) Delete(_ context.Context, path string) error {
	return b.add(OpDelete, path, nil)
}

func (b *Batch) Require(_ context.Context, path, field string, value any) error {
	if err := ValidateDocument(path); err != nil {
		return err
	}
	b.preconds = append(b.preconds, Precondition{Path: path, Field: field, Value: value})
	return nil
}

// CheckPrecondition validates p against the current state of its document
// (nil when absent).
func CheckPrecondition(cur *Document, p Precondition) error {
	if cur == nil {
		return fmt.Errorf("%w: %s", common.ErrorNotFound, p.Path)
	}
	got, ok := cur.Data[p.Field]
	if !ok || !equalValue(got, p.Value) {
		return fmt.Errorf("%w: %s.%s is %v", common.ErrPreconditionFailed, p.Path, p.Field, got)
	}
	return nil
}

func equalValue(stored, want any) bool {
	return reflect.DeepEqual(stored, normalizeValue(want))
}

// Apply computes the state of a document after op. cur is nil when the
// document does not exist; a nil result means the document is deleted.
func Apply(cur *Document, op Op, now time.Time) (*Document, error) {
	switch op.Kind {
	case OpDelete:
		return nil, nil
	case OpCreate:
		if cur != nil {
			return nil, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, op.Path)
		}
	case OpUpdate:
		if cur == nil {
			return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, op.Path)
		}
	}

	data, err := normalize(op.Data, now)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op.Kind, op.Path, err)
	}

	next := &Document{
		Path:       op.Path,
		ID:         Base(op.Path),
		CreateTime: now,
		UpdateTime: now,
		Data:       data,
	}
	if cur == nil {
		return next, nil
	}

	next.CreateTime = cur.CreateTime
	if op.Kind == OpMerge || op.Kind == OpUpdate {
		merged := deepCopy(cur.Data).(map[string]any)
		maps.Copy(merged, data)
		next.Data = merged
	}
	return next, nil
}
