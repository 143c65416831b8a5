// Package registry implements the block registry: the read-only lookup from
// a block type identifier to its field schema and renderable implementation.
// Definitions can be registered programmatically or loaded from YAML files,
// which are hot-reloaded on change.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/conduitcms/composer/internal/types"
)

// RenderFunc produces the HTML for one configured block instance.
type RenderFunc func(ctx context.Context, props map[string]any) (string, error)

// BlockDefinition holds everything the engine knows about a block type: its
// display name, the field schema driving the property form, and its render
// implementation.
type BlockDefinition struct {
	Type   string
	Name   string
	Schema types.FieldSchema
	Render RenderFunc

	// Source is the definition file path when loaded from YAML, empty for
	// programmatic registrations.
	Source  string
	LastMod time.Time
}

// BlockEvent represents a change in the block registry
type BlockEvent struct {
	Type      EventType
	Block     *BlockDefinition
	Timestamp time.Time
}

// EventType represents the type of block event
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

// BlockRegistry manages all known block definitions
type BlockRegistry struct {
	blocks   map[string]*BlockDefinition
	mutex    sync.RWMutex
	watchers []chan BlockEvent
}

// NewBlockRegistry creates a new block registry
func NewBlockRegistry() *BlockRegistry {
	return &BlockRegistry{
		blocks:   make(map[string]*BlockDefinition),
		watchers: make([]chan BlockEvent, 0),
	}
}

// Register adds or updates a block definition in the registry
func (r *BlockRegistry) Register(def *BlockDefinition) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if _, exists := r.blocks[def.Type]; exists {
		eventType = EventTypeUpdated
	}

	r.blocks[def.Type] = def

	r.notify(BlockEvent{
		Type:      eventType,
		Block:     def,
		Timestamp: time.Now(),
	})
}

// Lookup retrieves a block definition by type identifier
func (r *BlockRegistry) Lookup(blockType string) (*BlockDefinition, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	def, exists := r.blocks[blockType]
	return def, exists
}

// GetAll returns all registered block definitions
func (r *BlockRegistry) GetAll() map[string]*BlockDefinition {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make(map[string]*BlockDefinition, len(r.blocks))
	for name, def := range r.blocks {
		result[name] = def
	}
	return result
}

// Remove removes a block definition from the registry
func (r *BlockRegistry) Remove(blockType string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	def, exists := r.blocks[blockType]
	if !exists {
		return
	}

	delete(r.blocks, blockType)

	r.notify(BlockEvent{
		Type:      EventTypeRemoved,
		Block:     def,
		Timestamp: time.Now(),
	})
}

// RemoveBySource removes all definitions loaded from the given file.
func (r *BlockRegistry) RemoveBySource(source string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for blockType, def := range r.blocks {
		if def.Source == source {
			delete(r.blocks, blockType)
			r.notify(BlockEvent{
				Type:      EventTypeRemoved,
				Block:     def,
				Timestamp: time.Now(),
			})
		}
	}
}

// Watch returns a channel that receives block events
func (r *BlockRegistry) Watch() <-chan BlockEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan BlockEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *BlockRegistry) UnWatch(ch <-chan BlockEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered block definitions
func (r *BlockRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.blocks)
}

// notify sends an event to all watchers. Callers must hold the mutex.
func (r *BlockRegistry) notify(event BlockEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
