package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amy/portal-client/internal/core/domain"
)

func constFetcher[T any](v T, calls *atomic.Int32) Fetcher[T] {
	return func(context.Context, FetchRequest) (T, error) {
		calls.Add(1)
		return v, nil
	}
}

func TestRegistry_SameKeySharesCell(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	defer r.Close()

	var calls atomic.Int32
	a, err := Use(r, "news:3", constFetcher([]string{"a"}, &calls), []string{})
	require.NoError(t, err)
	b, err := Use(r, "news:3", constFetcher([]string{"b"}, &calls), []string{})
	require.NoError(t, err)

	assert.Same(t, a, b)
	require.NoError(t, a.Refresh(context.Background()))
	assert.Equal(t, []string{"a"}, b.Value())
	assert.Equal(t, []string{"news:3"}, r.Keys())
}

func TestRegistry_CacheKeyOverride(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	defer r.Close()

	var calls atomic.Int32
	c, err := Use(r, "ignored", constFetcher(1, &calls), 0, WithCacheKey("auth-me"))
	require.NoError(t, err)
	assert.Equal(t, "auth-me", c.Key())

	found, ok := Lookup[int](r, "auth-me")
	require.True(t, ok)
	assert.Same(t, c, found)

	_, ok = Lookup[int](r, "ignored")
	assert.False(t, ok)
}

func TestRegistry_TypeMismatch(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	defer r.Close()

	var calls atomic.Int32
	_, err := Use(r, "k", constFetcher("s", &calls), "")
	require.NoError(t, err)

	_, err = Use(r, "k", constFetcher(1, &calls), 0)
	assert.ErrorIs(t, err, domain.ErrKeyTypeMismatch)

	_, ok := Lookup[int](r, "k")
	assert.False(t, ok)
}

func TestRegistry_EvictStartsFresh(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	defer r.Close()

	var calls atomic.Int32
	first, err := Use(r, "k", constFetcher("v", &calls), "")
	require.NoError(t, err)
	require.NoError(t, first.Refresh(context.Background()))

	r.Evict("k")
	assert.ErrorIs(t, first.Refresh(context.Background()), domain.ErrCellClosed)

	second, err := Use(r, "k", constFetcher("v", &calls), "default")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	require.NoError(t, second.Refresh(context.Background()))
	assert.Equal(t, "v", second.Value())
}

func TestRegistry_CloseTearsDownCells(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	f := newGatedFetcher()
	cell, err := Use(r, "k", f.fetch, "default", WithEager())
	require.NoError(t, err)
	waitCalls(t, f, 1)

	r.Close()
	f.release(1, "late")

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, "default", cell.Value())
	assert.Empty(t, r.Keys())

	_, err = Use(r, "other", f.fetch, "")
	assert.ErrorIs(t, err, domain.ErrCellClosed)
}

func TestView_MemoizedPerGeneration(t *testing.T) {
	var fetches atomic.Int32
	cell := NewCell("k", constFetcher(map[string]string{"id": "42"}, &fetches), map[string]string{})
	defer cell.Close()

	var evals atomic.Int32
	view := Derive(cell, func(m map[string]string) string {
		evals.Add(1)
		if id, ok := m["id"]; ok {
			return "/u/" + id
		}
		return "/profile"
	})

	require.NoError(t, cell.Refresh(context.Background()))
	assert.Equal(t, "/u/42", view.Get())
	assert.Equal(t, "/u/42", view.Get())
	assert.Equal(t, int32(1), evals.Load())

	require.NoError(t, cell.Refresh(context.Background()))
	assert.Equal(t, "/u/42", view.Get())
	assert.Equal(t, int32(2), evals.Load())
}

func TestView_DefaultValueBeforeLoad(t *testing.T) {
	f := newGatedFetcher()
	cell := NewCell("k", f.fetch, "")
	defer func() {
		cell.Close()
		f.release(1, "")
	}()

	view := Derive(cell, func(s string) bool { return s != "" })
	assert.False(t, view.Get())
}

func TestView_SubscribeFiresOnGenerationChange(t *testing.T) {
	f := newGatedFetcher()
	cell := NewCell("k", f.fetch, "anon")
	defer cell.Close()

	view := Derive(cell, func(s string) string { return "user:" + s })

	var (
		mu  sync.Mutex
		got []string
	)
	unsubscribe := view.Subscribe(func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})
	defer unsubscribe()

	waitCalls(t, f, 1)
	f.release(1, "steve")
	require.Eventually(t, func() bool { return cell.Value() == "steve" }, time.Second, time.Millisecond)

	done := refreshAsync(cell)
	waitCalls(t, f, 2)
	f.fail(2, assert.AnError)
	_ = awaitDone(t, done)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"user:anon", "user:steve"}, got)
}
