package cache

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/amy/portal-client/internal/core/domain"
)

type entry interface {
	Key() string
	Close()
}

// Registry maps cache keys to cells for one owning context. Consumers asking
// for the same key share one cell; Close tears all of them down.
type Registry struct {
	log zerolog.Logger

	mu     sync.Mutex
	cells  map[string]entry
	closed bool
}

// NewRegistry returns an empty registry. Cells created through it log with log
// unless they carry their own WithLogger option.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{log: log, cells: make(map[string]entry)}
}

// Use returns the cell registered under key, creating it on first use.
// A key already bound to a cell of another payload type yields
// domain.ErrKeyTypeMismatch.
func Use[T any](r *Registry, key string, fetch Fetcher[T], defaultValue T, opts ...Option) (*Cell[T], error) {
	o := buildOptions(opts)
	if o.cacheKey != "" {
		key = o.cacheKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("use %q: %w", key, domain.ErrCellClosed)
	}

	if existing, ok := r.cells[key]; ok {
		cell, ok := existing.(*Cell[T])
		if !ok {
			return nil, fmt.Errorf("use %q: %w", key, domain.ErrKeyTypeMismatch)
		}
		return cell, nil
	}

	if o.logger == nil {
		opts = append([]Option{WithLogger(r.log)}, opts...)
	}
	cell := NewCell(key, fetch, defaultValue, opts...)
	r.cells[key] = cell
	r.log.Debug().Str("cache_key", key).Bool("eager", o.eager).Msg("cache cell created")
	return cell, nil
}

// Lookup returns the cell under key without creating one.
func Lookup[T any](r *Registry, key string) (*Cell[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cell, ok := r.cells[key].(*Cell[T])
	return cell, ok
}

// Evict closes and forgets the cell under key. A later Use starts fresh.
func (r *Registry) Evict(key string) {
	r.mu.Lock()
	e, ok := r.cells[key]
	delete(r.cells, key)
	r.mu.Unlock()
	if ok {
		e.Close()
	}
}

// Keys lists the registered cache keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.cells))
	for k := range r.cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close tears down every cell. Further Use calls fail with domain.ErrCellClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	cells := r.cells
	r.cells = make(map[string]entry)
	r.mu.Unlock()

	for _, e := range cells {
		e.Close()
	}
	r.log.Debug().Int("cells", len(cells)).Msg("cache registry closed")
}
