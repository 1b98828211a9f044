package models

import (
	"bytes"
	"encoding/json"
)

// Optional is a tri-state field for partial updates: absent (leave the stored
// value alone), null (clear it) or a value.
type Optional[T any] struct {
	set  bool
	null bool
	val  T
}

func Some[T any](v T) Optional[T] { return Optional[T]{set: true, val: v} }
func Null[T any]() Optional[T]    { return Optional[T]{set: true, null: true} }

// IsSet reports whether the field is present, null included.
func (o Optional[T]) IsSet() bool  { return o.set }
func (o Optional[T]) IsNull() bool { return o.set && o.null }
func (o Optional[T]) IsZero() bool { return !o.set }

// Get returns the value and whether there is one.
func (o Optional[T]) Get() (T, bool) {
	return o.val, o.set && !o.null
}

// Ptr returns nil for null or absent.
func (o Optional[T]) Ptr() *T {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}

// Field returns the stored representation: nil for null, the value otherwise.
func (o Optional[T]) Field() any {
	if o.null {
		return nil
	}
	return o.val
}

// FromPtr maps nil to null.
func FromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return Null[T]()
	}
	return Some(*p)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.val)
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.null = true
		var zero T
		o.val = zero
		return nil
	}
	o.null = false
	return json.Unmarshal(b, &o.val)
}
