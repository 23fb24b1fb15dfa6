package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/amy/portal-client/internal/core/domain"
	"github.com/amy/portal-client/internal/core/ports"
	"github.com/amy/portal-client/internal/metrics"
)

// FetchRequest describes one fetch attempt.
type FetchRequest struct {
	Key         string
	Generation  uint64
	Credentials ports.CredentialsPolicy
}

// Fetcher loads the remote value. It must honor ctx: the context is canceled
// when the attempt is superseded or the cell is closed.
type Fetcher[T any] func(ctx context.Context, req FetchRequest) (T, error)

// Snapshot is a consistent read of a cell.
type Snapshot[T any] struct {
	Value T
	// Loading is true while the latest issued generation is outstanding.
	Loading bool
	// Err is the failure of the latest settled generation, if any.
	Err error
	// Generation is the generation whose result is published; 0 means the
	// default value is still showing.
	Generation uint64
	// Version increases on every observable state change.
	Version   uint64
	UpdatedAt time.Time
}

// Cell is one piece of lazily fetched, refreshable remote state.
type Cell[T any] struct {
	key   string
	fetch Fetcher[T]
	opts  options
	log   zerolog.Logger

	lifeCtx    context.Context
	cancelLife context.CancelFunc

	mu        sync.Mutex
	value     T
	applied   uint64 // generation of the published value
	issued    uint64 // latest generation handed out
	settled   uint64 // latest current generation that finished, ok or not
	err       error
	version   uint64
	updatedAt time.Time
	started   bool
	closed    bool
	inflight  map[uint64]context.CancelFunc
	settleCh  chan struct{}
	subs      map[uint64]func(Snapshot[T])
	nextSub   uint64

	// notifyMu serializes subscriber delivery; never acquired while holding mu.
	notifyMu  sync.Mutex
	delivered uint64
}

// NewCell builds a standalone cell. Most callers go through Use so that
// consumers of the same key share one cell.
func NewCell[T any](key string, fetch Fetcher[T], defaultValue T, opts ...Option) *Cell[T] {
	o := buildOptions(opts)
	if o.cacheKey != "" {
		key = o.cacheKey
	}
	log := zerolog.Nop()
	if o.logger != nil {
		log = *o.logger
	}
	lifeCtx, cancel := context.WithCancel(context.Background())

	c := &Cell[T]{
		key:        key,
		fetch:      fetch,
		opts:       o,
		log:        log.With().Str("cache_key", key).Logger(),
		lifeCtx:    lifeCtx,
		cancelLife: cancel,
		value:      defaultValue,
		inflight:   make(map[uint64]context.CancelFunc),
		settleCh:   make(chan struct{}),
		subs:       make(map[uint64]func(Snapshot[T])),
	}

	if o.eager {
		c.kick()
	}
	return c
}

// Key returns the cache key.
func (c *Cell[T]) Key() string { return c.key }

// Credentials returns the credentials policy of this cell.
func (c *Cell[T]) Credentials() ports.CredentialsPolicy { return c.opts.credentials }

// Snapshot returns the current state. The first read of a lazy cell starts
// its initial load.
func (c *Cell[T]) Snapshot() Snapshot[T] {
	c.kick()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Value returns the published value: the default or the latest good result.
func (c *Cell[T]) Value() T { return c.Snapshot().Value }

// Loading reports whether the latest generation is outstanding.
func (c *Cell[T]) Loading() bool { return c.Snapshot().Loading }

// Err returns the failure of the latest settled generation.
func (c *Cell[T]) Err() error { return c.Snapshot().Err }

// Refresh starts a new generation and waits until the cell has settled on a
// generation at least as new as that one. A newer Refresh issued meanwhile
// supersedes this one; in that case Refresh waits for the newer result.
//
// The returned error is the fetch failure the cell settled on, if any. The
// failure is also published through Err; callers rendering state can ignore
// the return value.
//
// ctx bounds only this caller's wait. The fetch itself is shared by every
// waiter and is canceled only by a newer generation or by Close.
func (c *Cell[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	gen, fetchCtx, err := c.beginLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.deliver(snap)

	go c.run(fetchCtx, gen)
	return c.wait(ctx, gen)
}

// Await starts the initial load if nobody has yet and waits for the latest
// issued generation to settle. Unlike Refresh it never issues a generation of
// its own when one is already outstanding.
func (c *Cell[T]) Await(ctx context.Context) (Snapshot[T], error) {
	c.kick()
	c.mu.Lock()
	gen := c.issued
	c.mu.Unlock()

	err := c.wait(ctx, gen)
	return c.Snapshot(), err
}

// Subscribe registers fn for every state change and immediately delivers the
// current snapshot. fn runs synchronously and must not call Refresh or
// Subscribe on the same cell.
func (c *Cell[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	c.kick()

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.closed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		fn(snap)
		return func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	snap := c.snapshotLocked()
	c.mu.Unlock()

	fn(snap)

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Watch streams snapshots until ctx is done. The channel keeps only the latest
// undelivered snapshot, so slow readers skip intermediate states.
func (c *Cell[T]) Watch(ctx context.Context) <-chan Snapshot[T] {
	ch := make(chan Snapshot[T], 1)
	unsubscribe := c.Subscribe(func(s Snapshot[T]) {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	})

	go func() {
		<-ctx.Done()
		c.notifyMu.Lock()
		unsubscribe()
		close(ch)
		c.notifyMu.Unlock()
	}()
	return ch
}

// Close tears the cell down: in-flight fetches are canceled and any response
// that still arrives is dropped. The last value stays readable.
func (c *Cell[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for gen, cancel := range c.inflight {
		cancel()
		delete(c.inflight, gen)
	}
	c.cancelLife()
	c.subs = map[uint64]func(Snapshot[T]){}
	close(c.settleCh)
	c.version++
	c.mu.Unlock()

	c.log.Debug().Msg("cache cell closed")
}

// kick starts the initial load of a cell nobody has loaded yet.
func (c *Cell[T]) kick() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	gen, fetchCtx, err := c.beginLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if err != nil {
		return
	}
	c.deliver(snap)
	go c.run(fetchCtx, gen)
}

// beginLocked issues a new generation. Strictly older in-flight generations
// are canceled; their results would be discarded anyway. The fetch context
// derives from the cell lifetime, never from a caller.
func (c *Cell[T]) beginLocked() (uint64, context.Context, error) {
	if c.closed {
		return 0, nil, domain.ErrCellClosed
	}
	c.started = true
	c.issued++
	gen := c.issued
	c.err = nil

	for old, cancel := range c.inflight {
		cancel()
		delete(c.inflight, old)
	}
	fetchCtx, cancel := context.WithCancel(c.lifeCtx)
	c.inflight[gen] = cancel
	c.version++

	metrics.CacheGeneration.WithLabelValues(c.key).Set(float64(gen))
	c.log.Debug().Uint64("generation", gen).Msg("fetch started")
	return gen, fetchCtx, nil
}

func (c *Cell[T]) run(ctx context.Context, gen uint64) {
	start := time.Now()
	value, err := c.fetch(ctx, FetchRequest{
		Key:         c.key,
		Generation:  gen,
		Credentials: c.opts.credentials,
	})
	metrics.CacheFetchDuration.WithLabelValues(c.key).Observe(time.Since(start).Seconds())
	c.settle(gen, value, err)
}

func (c *Cell[T]) settle(gen uint64, value T, err error) {
	c.mu.Lock()
	if cancel, ok := c.inflight[gen]; ok {
		cancel()
		delete(c.inflight, gen)
	}
	if c.closed {
		c.mu.Unlock()
		c.log.Debug().Uint64("generation", gen).Msg("response for closed cell dropped")
		return
	}
	if gen != c.issued {
		latest := c.issued
		c.mu.Unlock()
		metrics.CacheFetchesTotal.WithLabelValues(c.key, "stale").Inc()
		c.log.Debug().Uint64("generation", gen).Uint64("latest", latest).Msg("stale response discarded")
		return
	}

	if err != nil {
		c.err = err
		metrics.CacheFetchesTotal.WithLabelValues(c.key, "error").Inc()
		c.log.Warn().Err(err).Uint64("generation", gen).Msg("fetch failed, keeping last good value")
	} else {
		c.value = value
		c.applied = gen
		c.updatedAt = time.Now().UTC()
		metrics.CacheFetchesTotal.WithLabelValues(c.key, "ok").Inc()
	}
	c.settled = gen
	c.version++
	close(c.settleCh)
	c.settleCh = make(chan struct{})
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.deliver(snap)
}

// wait blocks until a generation >= gen has settled and returns its error.
func (c *Cell[T]) wait(ctx context.Context, gen uint64) error {
	for {
		c.mu.Lock()
		if c.settled >= gen {
			err := c.err
			c.mu.Unlock()
			return err
		}
		if c.closed {
			c.mu.Unlock()
			return domain.ErrCellClosed
		}
		ch := c.settleCh
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Cell[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Value:      c.value,
		Loading:    !c.closed && c.issued > c.settled,
		Err:        c.err,
		Generation: c.applied,
		Version:    c.version,
		UpdatedAt:  c.updatedAt,
	}
}

// deliver fans snap out to subscribers, skipping snapshots older than one
// already delivered.
func (c *Cell[T]) deliver(snap Snapshot[T]) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if snap.Version <= c.delivered {
		return
	}
	c.delivered = snap.Version

	c.mu.Lock()
	subs := make([]func(Snapshot[T]), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// IsCanceled reports whether err stems from a superseded or torn-down fetch.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrCellClosed)
}
