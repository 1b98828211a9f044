package stream

import (
	"context"
	"slices"
	"sync/atomic"
)

// Source is a push-based stream of values. Subscribe and the callback it
// receives are only ever invoked on the loop goroutine. The returned function
// cancels the subscription; after it returns no further values are delivered.
type Source[T any] interface {
	Subscribe(fn func(T)) (cancel func())
}

// Func adapts a plain function to Source.
type Func[T any] func(fn func(T)) func()

func (f Func[T]) Subscribe(fn func(T)) func() {
	return f(fn)
}

// Of emits v once, synchronously, to every subscriber.
func Of[T any](v T) Source[T] {
	return Func[T](func(fn func(T)) func() {
		fn(v)
		return func() {}
	})
}

// Map transforms every value of src.
func Map[T, U any](src Source[T], f func(T) U) Source[U] {
	return Func[U](func(fn func(U)) func() {
		return src.Subscribe(func(v T) { fn(f(v)) })
	})
}

// Filter forwards only the values for which keep returns true.
func Filter[T any](src Source[T], keep func(T) bool) Source[T] {
	return Func[T](func(fn func(T)) func() {
		return src.Subscribe(func(v T) {
			if keep(v) {
				fn(v)
			}
		})
	})
}

// Distinct drops values equal to the previously forwarded one.
func Distinct[T comparable](src Source[T]) Source[T] {
	return DistinctFunc(src, func(a, b T) bool { return a == b })
}

// DistinctFunc is Distinct with a caller-supplied equality.
func DistinctFunc[T any](src Source[T], equal func(a, b T) bool) Source[T] {
	return Func[T](func(fn func(T)) func() {
		var (
			last T
			has  bool
		)
		return src.Subscribe(func(v T) {
			if has && equal(last, v) {
				return
			}
			last, has = v, true
			fn(v)
		})
	})
}

// SwitchMap maps every value of src to an inner source and forwards values of
// the most recent inner source only. The previous inner subscription is
// cancelled before the next one is established.
func SwitchMap[T, U any](src Source[T], f func(T) Source[U]) Source[U] {
	return Func[U](func(fn func(U)) func() {
		var (
			inner   func()
			gen     int
			stopped bool
		)
		outer := src.Subscribe(func(v T) {
			if stopped {
				return
			}
			if inner != nil {
				inner()
				inner = nil
			}
			gen++
			mine := gen
			cancel := f(v).Subscribe(func(u U) {
				if !stopped && mine == gen {
					fn(u)
				}
			})
			if mine == gen {
				inner = cancel
			} else {
				cancel()
			}
		})
		return func() {
			stopped = true
			gen++
			outer()
			if inner != nil {
				inner()
				inner = nil
			}
		}
	})
}

// CombineLatest2 emits f(a, b) whenever either input emits, once both have
// produced at least one value.
func CombineLatest2[A, B, R any](a Source[A], b Source[B], f func(A, B) R) Source[R] {
	return Func[R](func(fn func(R)) func() {
		var (
			va         A
			vb         B
			hasA, hasB bool
		)
		emit := func() {
			if hasA && hasB {
				fn(f(va, vb))
			}
		}
		cancelA := a.Subscribe(func(v A) {
			va, hasA = v, true
			emit()
		})
		cancelB := b.Subscribe(func(v B) {
			vb, hasB = v, true
			emit()
		})
		return func() {
			cancelA()
			cancelB()
		}
	})
}

// Share multicasts src. The first subscriber connects it, later subscribers
// receive the latest value at once, and the last one to cancel disconnects
// it.
func Share[T any](src Source[T]) Source[T] {
	var (
		subs     fanout[T]
		count    int
		upstream func()
		last     T
		has      bool
	)
	return Func[T](func(fn func(T)) func() {
		e := subs.add(fn)
		count++
		if count == 1 {
			upstream = src.Subscribe(func(v T) {
				last, has = v, true
				subs.emit(v)
			})
		} else if has {
			fn(last)
		}

		done := false
		return func() {
			if done {
				return
			}
			done = true
			subs.remove(e)
			count--
			if count > 0 {
				return
			}
			var zero T
			last, has = zero, false
			if upstream != nil {
				cancel := upstream
				upstream = nil
				cancel()
			}
		}
	})
}

// Subject is a hot source holding a current value. Subscribers receive the
// current value immediately and every later one.
type Subject[T any] struct {
	loop *Loop
	val  T
	has  bool
	subs fanout[T]
}

// NewSubject returns a subject seeded with initial.
func NewSubject[T any](loop *Loop, initial T) *Subject[T] {
	return &Subject[T]{loop: loop, val: initial, has: true}
}

// Next publishes v. It is safe to call from any goroutine; delivery happens
// on the loop.
func (s *Subject[T]) Next(v T) {
	s.loop.Post(func() { s.set(v) })
}

func (s *Subject[T]) set(v T) {
	s.val, s.has = v, true
	s.subs.emit(v)
}

func (s *Subject[T]) Subscribe(fn func(T)) func() {
	e := s.subs.add(fn)
	if s.has {
		fn(s.val)
	}
	return func() { s.subs.remove(e) }
}

type subscriber[T any] struct {
	fn   func(T)
	dead bool
}

type fanout[T any] struct {
	subs []*subscriber[T]
}

func (f *fanout[T]) add(fn func(T)) *subscriber[T] {
	e := &subscriber[T]{fn: fn}
	f.subs = append(f.subs, e)
	return e
}

func (f *fanout[T]) remove(e *subscriber[T]) {
	e.dead = true
	f.subs = slices.DeleteFunc(f.subs, func(s *subscriber[T]) bool { return s == e })
}

func (f *fanout[T]) emit(v T) {
	for _, e := range slices.Clone(f.subs) {
		if !e.dead {
			e.fn(v)
		}
	}
}

// subscribeOn subscribes fn to src on the loop and returns the cancel. When
// ctx ends before the loop gets to it, the subscription is skipped, or undone
// right after, and fn never runs.
func subscribeOn[T any](ctx context.Context, loop *Loop, src Source[T], fn func(T)) (func(), error) {
	var (
		abandoned atomic.Bool
		cancel    func()
	)
	release := func() {
		loop.Post(func() {
			if cancel != nil {
				cancel()
				cancel = nil
			}
		})
	}

	err := loop.Call(ctx, func() {
		if abandoned.Load() {
			return
		}
		cancel = src.Subscribe(func(v T) {
			if !abandoned.Load() {
				fn(v)
			}
		})
	})
	if err != nil {
		abandoned.Store(true)
		release()
		return nil, err
	}
	return release, nil
}

// First subscribes to src on the loop, waits for its first value and cancels
// the subscription.
func First[T any](ctx context.Context, loop *Loop, src Source[T]) (T, error) {
	var zero T
	values := make(chan T, 1)
	got := false

	release, err := subscribeOn(ctx, loop, src, func(v T) {
		if got {
			return
		}
		got = true
		values <- v
	})
	if err != nil {
		return zero, err
	}

	select {
	case v := <-values:
		release()
		return v, nil
	case <-ctx.Done():
		release()
		return zero, ctx.Err()
	case <-loop.Done():
		return zero, ErrClosed
	}
}

// Observe subscribes fn to src from any goroutine. fn runs on the loop. The
// returned cancel may also be called from any goroutine.
func Observe[T any](ctx context.Context, loop *Loop, src Source[T], fn func(T)) (func(), error) {
	return subscribeOn(ctx, loop, src, fn)
}
