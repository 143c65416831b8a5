// Package forms implements the dynamic form engine: editing an arbitrary
// properties bag against a field schema, with local state that updates
// immediately and propagation to the owning controller debounced by a quiet
// period.
package forms

import (
	"sync"
	"time"

	"github.com/conduitcms/composer/internal/types"
)

// DefaultDebounce is the quiet period before a pending bag propagates.
const DefaultDebounce = 500 * time.Millisecond

// PropagateFunc receives the full properties bag for the element after the
// debounce quiet period.
type PropagateFunc func(elementID string, props map[string]any)

// Form edits one element's properties bag against a field schema. One timer
// slot per form; rebinding or closing invalidates it so a late fire can
// never write stale values to the wrong element.
type Form struct {
	mutex     sync.Mutex
	elementID string
	schema    types.FieldSchema
	values    map[string]any
	collapsed map[string]bool
	dirty     bool
	timer     *time.Timer
	// generation invalidates superseded timers: every re-arm and every
	// cancel bumps it, and a fire whose generation no longer matches is
	// discarded.
	generation int
	debounce   time.Duration
	propagate  PropagateFunc
}

// Option configures a Form.
type Option func(*Form)

// WithDebounce overrides the default quiet period.
func WithDebounce(d time.Duration) Option {
	return func(f *Form) { f.debounce = d }
}

// NewForm creates a form bound to an element and its current properties
// snapshot. The snapshot is copied; the caller's bag is never shared.
func NewForm(elementID string, schema types.FieldSchema, snapshot map[string]any, propagate PropagateFunc, opts ...Option) *Form {
	f := &Form{
		elementID: elementID,
		schema:    schema,
		values:    types.CopyProperties(snapshot),
		collapsed: make(map[string]bool),
		debounce:  DefaultDebounce,
		propagate: propagate,
	}
	if f.values == nil {
		f.values = make(map[string]any)
	}
	for _, opt := range opts {
		opt(f)
	}
	f.initCollapse()
	return f
}

// initCollapse expands groups that already have a value set inside them and
// collapses the rest.
func (f *Form) initCollapse() {
	for _, group := range f.schema.Groups() {
		if group.Name == "" {
			continue
		}
		hasValue := false
		for _, field := range group.Fields {
			if v, ok := f.values[field.Name]; ok && !IsEmpty(field.Type, v) {
				hasValue = true
				break
			}
		}
		f.collapsed[group.Name] = !hasValue
	}
}

// ElementID returns the id of the element this form edits.
func (f *Form) ElementID() string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.elementID
}

// SetValue updates local form state immediately and (re)arms the debounce
// timer. The value is normalized to the field's canonical representation;
// invalid values are rejected without touching state.
func (f *Form) SetValue(name string, value any) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	def, ok := f.schema.Field(name)
	if !ok {
		def = types.FieldDefinition{Name: name, Type: types.FieldText}
	}

	normalized, err := Normalize(def, value)
	if err != nil {
		return err
	}

	f.values[name] = normalized
	f.dirty = true
	f.armLocked()
	return nil
}

// Value returns the current local value for a field, falling back to the
// field default and then the canonical empty value.
func (f *Form) Value(name string) any {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if v, ok := f.values[name]; ok {
		return v
	}
	if def, ok := f.schema.Field(name); ok {
		if def.Default != nil {
			return def.Default
		}
		return EmptyValue(def.Type)
	}
	return nil
}

// Values returns a deep copy of the current local bag.
func (f *Form) Values() map[string]any {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return types.CopyProperties(f.values)
}

// Bind switches the form to a different element. Any pending propagation
// for the previous element is cancelled and discarded; it must never apply
// to the newly bound element.
func (f *Form) Bind(elementID string, schema types.FieldSchema, snapshot map[string]any) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.cancelLocked()
	f.elementID = elementID
	f.schema = schema
	f.values = types.CopyProperties(snapshot)
	if f.values == nil {
		f.values = make(map[string]any)
	}
	f.dirty = false
	f.collapsed = make(map[string]bool)
	f.initCollapse()
}

// Refresh replaces local values with an externally supplied snapshot for
// the same element. This is a parent-handed-down update, not a user edit:
// it never arms the timer, so a snapshot can't re-propagate back to its own
// source.
func (f *Form) Refresh(snapshot map[string]any) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.dirty {
		// A user edit is pending; keep local state until it flushes.
		return
	}
	f.values = types.CopyProperties(snapshot)
	if f.values == nil {
		f.values = make(map[string]any)
	}
}

// Flush propagates any pending values immediately and cancels the timer.
func (f *Form) Flush() {
	f.mutex.Lock()
	if !f.dirty {
		f.mutex.Unlock()
		return
	}
	f.cancelLocked()
	f.dirty = false
	id := f.elementID
	bag := types.CopyProperties(f.values)
	propagate := f.propagate
	f.mutex.Unlock()

	if propagate != nil {
		propagate(id, bag)
	}
}

// Close cancels any pending propagation. A timer firing after Close is a
// defect; the generation check guarantees it is discarded.
func (f *Form) Close() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.cancelLocked()
	f.dirty = false
}

// ToggleGroup flips the collapse state of a named group.
func (f *Form) ToggleGroup(name string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.collapsed[name] = !f.collapsed[name]
}

// Collapsed reports whether a named group is collapsed.
func (f *Form) Collapsed(name string) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.collapsed[name]
}

// armLocked (re)arms the debounce timer. Callers must hold the mutex.
func (f *Form) armLocked() {
	if f.timer != nil {
		f.timer.Stop()
	}
	// Stop cannot unschedule a callback that has already fired and is
	// waiting on the mutex, so every re-arm bumps the generation: only the
	// last-armed timer matches and can propagate.
	f.generation++
	generation := f.generation
	f.timer = time.AfterFunc(f.debounce, func() {
		f.fire(generation)
	})
}

// cancelLocked stops the timer and bumps the generation so an already-fired
// callback racing with us is discarded. Callers must hold the mutex.
func (f *Form) cancelLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.generation++
}

// fire delivers the debounced propagation unless it was invalidated.
func (f *Form) fire(generation int) {
	f.mutex.Lock()
	if generation != f.generation || !f.dirty {
		f.mutex.Unlock()
		return
	}
	f.dirty = false
	f.timer = nil
	id := f.elementID
	bag := types.CopyProperties(f.values)
	propagate := f.propagate
	f.mutex.Unlock()

	if propagate != nil {
		propagate(id, bag)
	}
}
