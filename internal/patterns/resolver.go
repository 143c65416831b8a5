// Package patterns resolves pattern references into the blocks they stand
// for, for rendering only. Resolution is a read-time projection: expanded
// blocks are never written back into the page's own tree.
package patterns

import (
	"context"
	"sync"
	"time"

	composererrors "github.com/conduitcms/composer/internal/errors"
	"github.com/conduitcms/composer/internal/logging"
	"github.com/conduitcms/composer/internal/types"
)

// DefaultTTL is the staleness window of the resolver cache.
const DefaultTTL = 5 * time.Minute

// Store is the external pattern store the resolver reads through.
type Store interface {
	// FetchPattern returns the stored pattern, or ErrPatternNotFound.
	FetchPattern(ctx context.Context, patternID string) (*types.Pattern, error)
}

// cacheEntry holds one resolved pattern and its expiry.
type cacheEntry struct {
	blocks    []types.BlockInstance
	fetchedAt time.Time
}

// inflight tracks one in-progress fetch so concurrent resolutions for the
// same id coalesce into a single network call.
type inflight struct {
	done   chan struct{}
	blocks []types.BlockInstance
	err    error
}

// Resolver is a read-through cache over a pattern store with request
// coalescing and a TTL staleness window.
type Resolver struct {
	store    Store
	ttl      time.Duration
	logger   logging.Logger
	mutex    sync.Mutex
	cache    map[string]*cacheEntry
	inflight map[string]*inflight
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL overrides the default cache staleness window.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

// WithLogger sets the resolver's logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Resolver) { r.logger = l.WithComponent("patterns") }
}

// NewResolver creates a resolver over the given store.
func NewResolver(store Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		ttl:      DefaultTTL,
		logger:   logging.NopLogger{},
		cache:    make(map[string]*cacheEntry),
		inflight: make(map[string]*inflight),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the ordered block instances the pattern stands for. The
// store is hit at most once per distinct pattern id per TTL window; failures
// surface as a pattern-unavailable error, which renderers must show as a
// distinct affordance rather than an empty tree.
func (r *Resolver) Resolve(ctx context.Context, patternID string) ([]types.BlockInstance, error) {
	r.mutex.Lock()

	if entry, ok := r.cache[patternID]; ok && time.Since(entry.fetchedAt) < r.ttl {
		blocks := cloneBlocks(entry.blocks)
		r.mutex.Unlock()
		return blocks, nil
	}

	if flight, ok := r.inflight[patternID]; ok {
		r.mutex.Unlock()
		select {
		case <-flight.done:
			if flight.err != nil {
				return nil, flight.err
			}
			return cloneBlocks(flight.blocks), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	flight := &inflight{done: make(chan struct{})}
	r.inflight[patternID] = flight
	r.mutex.Unlock()

	blocks, err := r.fetch(ctx, patternID)

	r.mutex.Lock()
	delete(r.inflight, patternID)
	if err == nil {
		r.cache[patternID] = &cacheEntry{blocks: blocks, fetchedAt: time.Now()}
	}
	r.mutex.Unlock()

	flight.blocks = blocks
	flight.err = err
	close(flight.done)

	if err != nil {
		return nil, err
	}
	return cloneBlocks(blocks), nil
}

// fetch performs the actual store call and maps failures to the
// pattern-unavailable state.
func (r *Resolver) fetch(ctx context.Context, patternID string) ([]types.BlockInstance, error) {
	pattern, err := r.store.FetchPattern(ctx, patternID)
	if err != nil {
		r.logger.Warn(ctx, err, "pattern fetch failed", "pattern_id", patternID)
		return nil, composererrors.ErrPatternUnavailable(patternID, err)
	}

	// Stored pattern content is an ordinary tree of block instances;
	// references inside a pattern are not part of this design and are
	// skipped.
	blocks := make([]types.BlockInstance, 0, len(pattern.Blocks))
	for _, el := range pattern.Blocks {
		if el.Block != nil {
			blocks = append(blocks, *el.Block)
		}
	}
	return blocks, nil
}

// Invalidate drops the cached entry for a pattern, forcing the next resolve
// to refetch. Used after a local pattern edit; remote edits are covered only
// by the TTL window.
func (r *Resolver) Invalidate(patternID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.cache, patternID)
}

// InvalidateAll clears the whole cache.
func (r *Resolver) InvalidateAll() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.cache = make(map[string]*cacheEntry)
}

func cloneBlocks(blocks []types.BlockInstance) []types.BlockInstance {
	out := make([]types.BlockInstance, len(blocks))
	for i, b := range blocks {
		clone := b
		clone.Properties = types.CopyProperties(b.Properties)
		out[i] = clone
	}
	return out
}
