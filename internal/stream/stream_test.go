package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// recorder collects values delivered on the loop; read it only after Drain.
type recorder[T any] struct {
	mu   sync.Mutex
	vals []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	r.vals = append(r.vals, v)
	r.mu.Unlock()
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.vals...)
}

func TestLoop_RunsTasksInOrder(t *testing.T) {
	l := startLoop(t)
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Drain(testCtx(t)))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoop_DrainWaitsForNestedPosts(t *testing.T) {
	l := startLoop(t)
	done := false
	l.Post(func() {
		l.Post(func() {
			l.Post(func() { done = true })
		})
	})
	require.NoError(t, l.Drain(testCtx(t)))
	assert.True(t, done)
}

func TestLoop_ClosedAfterRunReturns(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	cancel()
	<-l.Done()

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Call(context.Background(), func() {}), ErrClosed)
	assert.ErrorIs(t, l.Drain(context.Background()), ErrClosed)
}

func TestLoop_RunTwice(t *testing.T) {
	l := startLoop(t)
	require.Eventually(t, func() bool { return l.started.Load() }, time.Second, time.Millisecond)
	assert.Error(t, l.Run(context.Background()))
}

func TestSubject_ReplaysCurrentAndForwards(t *testing.T) {
	l := startLoop(t)
	ctx := testCtx(t)
	s := NewSubject(l, "a")

	rec := &recorder[string]{}
	cancel, err := Observe[string](ctx, l, s, rec.add)
	require.NoError(t, err)

	s.Next("b")
	s.Next("c")
	require.NoError(t, l.Drain(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, rec.all())

	cancel()
	s.Next("d")
	require.NoError(t, l.Drain(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, rec.all())
}

func TestMapFilterDistinct(t *testing.T) {
	l := startLoop(t)
	ctx := testCtx(t)
	s := NewSubject(l, 1)

	src := Distinct(Filter(Map[int, int](s, func(v int) int { return v / 10 }), func(v int) bool { return v != 5 }))
	rec := &recorder[int]{}
	_, err := Observe(ctx, l, src, rec.add)
	require.NoError(t, err)

	for _, v := range []int{2, 11, 12, 55, 13, 40} {
		s.Next(v)
	}
	require.NoError(t, l.Drain(ctx))
	assert.Equal(t, []int{0, 1, 4}, rec.all())
}

// manual is a cold source whose emissions are driven by the test.
type manual[T any] struct {
	subs fanout[T]
	live int
}

func (m *manual[T]) Subscribe(fn func(T)) func() {
	e := m.subs.add(fn)
	m.live++
	return func() {
		if !e.dead {
			m.live--
		}
		m.subs.remove(e)
	}
}

func TestSwitchMap_TearsDownPreviousInnerFirst(t *testing.T) {
	l := startLoop(t)
	ctx := testCtx(t)
	key := NewSubject(l, "t1")
	inners := map[string]*manual[string]{"t1": {}, "t2": {}}

	var events []string
	src := SwitchMap[string, string](key, func(k string) Source[string] {
		events = append(events, "subscribe "+k)
		if k == "t2" {
			assert.Equal(t, 0, inners["t1"].live, "t1 must be released before t2 is bound")
		}
		return inners[k]
	})

	rec := &recorder[string]{}
	cancel, err := Observe(ctx, l, src, rec.add)
	require.NoError(t, err)

	require.NoError(t, l.Call(ctx, func() { inners["t1"].subs.emit("t1:a") }))
	key.Next("t2")
	require.NoError(t, l.Drain(ctx))
	require.NoError(t, l.Call(ctx, func() {
		inners["t1"].subs.emit("t1:stale")
		inners["t2"].subs.emit("t2:a")
	}))

	assert.Equal(t, []string{"t1:a", "t2:a"}, rec.all())
	assert.Equal(t, []string{"subscribe t1", "subscribe t2"}, events)

	cancel()
	require.NoError(t, l.Drain(ctx))
	require.NoError(t, l.Call(ctx, func() {
		assert.Equal(t, 0, inners["t2"].live)
	}))
}

func TestCombineLatest2_WaitsForBoth(t *testing.T) {
	l := startLoop(t)
	ctx := testCtx(t)
	a := &manual[int]{}
	b := &manual[string]{}

	rec := &recorder[string]{}
	_, err := Observe(ctx, l, CombineLatest2[int, string, string](a, b, func(x int, y string) string {
		return y + ":" + string(rune('0'+x))
	}), rec.add)
	require.NoError(t, err)

	require.NoError(t, l.Call(ctx, func() {
		a.subs.emit(1)
		a.subs.emit(2)
		b.subs.emit("x")
		a.subs.emit(3)
		b.subs.emit("y")
	}))
	assert.Equal(t, []string{"x:2", "x:3", "y:3"}, rec.all())
}

func TestFirst(t *testing.T) {
	l := startLoop(t)
	ctx := testCtx(t)

	v, err := First[string](ctx, l, Of("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	m := &manual[int]{}
	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Post(func() { m.subs.emit(7) })
	}()
	n, err := First[int](ctx, l, m)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	require.NoError(t, l.Drain(ctx))
	require.NoError(t, l.Call(ctx, func() { assert.Equal(t, 0, m.live) }))
}

func TestFirst_ContextCancelled(t *testing.T) {
	l := startLoop(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := First[int](ctx, l, &manual[int]{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestObserve_ExpiredBeforeLoopRuns(t *testing.T) {
	l := NewLoop()
	m := &manual[int]{}
	var calls int

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Observe[int](ctx, l, m, func(int) { calls++ })
	require.ErrorIs(t, err, context.Canceled)
	_, err = First[int](ctx, l, m)
	require.ErrorIs(t, err, context.Canceled)

	runCtx, stop := context.WithCancel(context.Background())
	go func() { _ = l.Run(runCtx) }()
	t.Cleanup(func() {
		stop()
		<-l.Done()
	})

	tctx := testCtx(t)
	require.NoError(t, l.Drain(tctx))
	require.NoError(t, l.Call(tctx, func() {
		m.subs.emit(1)
		assert.Equal(t, 0, m.live)
		assert.Equal(t, 0, calls)
	}))
}

func TestShare_OneUpstreamSubscription(t *testing.T) {
	l := startLoop(t)
	ctx := testCtx(t)
	m := &manual[int]{}
	shared := Share[int](m)

	var a, b recorder[int]
	require.NoError(t, l.Call(ctx, func() {
		cancelA := shared.Subscribe(a.add)
		m.subs.emit(1)
		cancelB := shared.Subscribe(b.add)
		assert.Equal(t, 1, m.live)

		m.subs.emit(2)
		cancelA()
		assert.Equal(t, 1, m.live)
		cancelB()
		assert.Equal(t, 0, m.live)
	}))
	assert.Equal(t, []int{1, 2}, a.all())
	assert.Equal(t, []int{1, 2}, b.all())
}
