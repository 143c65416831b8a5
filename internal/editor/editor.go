// Package editor implements the editor state controller: the single source
// of truth for a page's content tree, selection, and draft metadata during
// one editing session. All mutations go through its commands; every other
// component holds read-only snapshots or issues commands back through it.
package editor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	composererrors "github.com/conduitcms/composer/internal/errors"
	"github.com/conduitcms/composer/internal/logging"
	"github.com/conduitcms/composer/internal/types"
)

// DraftState is the lifecycle state of the draft under edit.
type DraftState int

const (
	StateUninitialized DraftState = iota
	StateLoading
	StateReady
	StateSaving
)

// String returns the string representation of the draft state
func (s DraftState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// ChangeKind tells subscribers what part of the controller state changed.
type ChangeKind int

const (
	ChangeTree ChangeKind = iota
	ChangeSelection
	ChangeDraft
	ChangeState
)

// ChangeEvent is delivered to subscribers after each committed mutation.
// Tree and selection are snapshots; the receiver must not mutate them.
type ChangeEvent struct {
	Kind       ChangeKind
	Tree       types.ContentTree
	SelectedID *string
	State      DraftState
	Timestamp  time.Time
}

// Gateway is the persistence collaborator the controller saves through.
type Gateway interface {
	LoadDraft(ctx context.Context, id string) (*types.PageDraft, error)
	CreateDraft(ctx context.Context, draft *types.PageDraft) (*types.PageDraft, error)
	UpdateDraft(ctx context.Context, id string, draft *types.PageDraft) (*types.PageDraft, error)
}

// Controller owns the content tree and draft for one editing session.
// Commands are applied atomically relative to each other under one mutex.
type Controller struct {
	mutex       sync.Mutex
	draft       types.PageDraft
	snapshot    types.PageDraft
	selectedID  *string
	state       DraftState
	draftID     string
	gateway     Gateway
	logger      logging.Logger
	subscribers []chan ChangeEvent
}

// Option configures a Controller.
type Option func(*Controller)

// WithGateway sets the persistence gateway used by Load and Save.
func WithGateway(g Gateway) Option {
	return func(c *Controller) { c.gateway = g }
}

// WithLogger sets the controller's logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l.WithComponent("editor") }
}

// NewController creates a controller in create mode: no loading phase, an
// empty tree, immediately ready.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		draft: types.PageDraft{
			Status:  types.StatusDraft,
			Content: types.ContentTree{},
		},
		state:  StateReady,
		logger: logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snapshot = c.draft.Clone()
	return c
}

// Load transitions the controller into edit mode for an existing draft:
// Uninitialized/Ready → Loading → Ready. A failed load leaves the previous
// draft untouched and the controller editable.
func (c *Controller) Load(ctx context.Context, draftID string) error {
	if c.gateway == nil {
		return composererrors.NewInternalError(
			composererrors.ErrCodeInternalError, "no persistence gateway configured", nil)
	}

	c.mutex.Lock()
	c.state = StateLoading
	c.mutex.Unlock()
	c.publish(ChangeEvent{Kind: ChangeState, State: StateLoading, Timestamp: time.Now()})

	draft, err := c.gateway.LoadDraft(ctx, draftID)

	c.mutex.Lock()
	c.state = StateReady
	if err == nil {
		c.draft = *draft
		if c.draft.Content == nil {
			c.draft.Content = types.ContentTree{}
		}
		c.snapshot = c.draft.Clone()
		c.selectedID = nil
		c.draftID = draftID
	}
	c.mutex.Unlock()

	if err != nil {
		c.logger.Error(ctx, err, "draft load failed", "draft_id", draftID)
		c.publishState()
		return composererrors.NewPersistenceError(
			composererrors.ErrCodeLoadFailed, "loading draft "+draftID, err)
	}

	c.publishAll()
	return nil
}

// Save validates and persists the draft: Ready → Saving → Ready. On failure
// the in-memory draft is untouched so the user can retry without data loss.
// Validation errors block the network call entirely.
func (c *Controller) Save(ctx context.Context) error {
	c.mutex.Lock()
	if c.state != StateReady {
		c.mutex.Unlock()
		return composererrors.NewCommandError(
			composererrors.ErrCodeInternalError, "save while not ready: "+c.state.String())
	}
	draft := c.draft.Clone()
	draftID := c.draftID
	c.mutex.Unlock()

	if err := ValidateDraft(&draft); err != nil {
		return err
	}

	if c.gateway == nil {
		return composererrors.NewInternalError(
			composererrors.ErrCodeInternalError, "no persistence gateway configured", nil)
	}

	c.setState(StateSaving)

	var saved *types.PageDraft
	var err error
	if draftID == "" {
		saved, err = c.gateway.CreateDraft(ctx, &draft)
	} else {
		saved, err = c.gateway.UpdateDraft(ctx, draftID, &draft)
	}

	c.setState(StateReady)

	if err != nil {
		c.logger.Error(ctx, err, "draft save failed", "draft_id", draftID)
		return composererrors.NewPersistenceError(
			composererrors.ErrCodeSaveFailed, "saving draft", err)
	}

	c.mutex.Lock()
	if saved != nil {
		if id, ok := saved.EntityFields["id"].(string); ok && c.draftID == "" {
			c.draftID = id
		}
	}
	// The snapshot must be the exact state the gateway received. Commands
	// are not blocked while Saving, so the live draft may already be ahead
	// of what was persisted and must stay dirty.
	c.snapshot = draft
	c.mutex.Unlock()
	c.publishDraft()
	return nil
}

// ValidateDraft checks the required top-level fields, reporting each failure
// against its specific field.
func ValidateDraft(draft *types.PageDraft) error {
	collection := &composererrors.ValidationErrorCollection{}
	if draft.Title == "" {
		collection.AddField("title", draft.Title, "title is required")
	}
	if draft.Slug == "" {
		collection.AddField("slug", draft.Slug, "slug is required")
	}
	if collection.HasErrors() {
		return collection.ToComposerError()
	}
	return nil
}

// State returns the current draft lifecycle state.
func (c *Controller) State() DraftState {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}

// Tree returns a deep copy of the current content tree.
func (c *Controller) Tree() types.ContentTree {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.draft.Content.Clone()
}

// Draft returns a deep copy of the current draft.
func (c *Controller) Draft() types.PageDraft {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.draft.Clone()
}

// SelectedID returns the current selection, or nil when nothing is
// selected.
func (c *Controller) SelectedID() *string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return copyID(c.selectedID)
}

// Dirty reports whether the draft differs structurally from the last
// loaded/saved snapshot.
func (c *Controller) Dirty() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return !c.draft.Equal(c.snapshot)
}

// SetTitle updates the draft title.
func (c *Controller) SetTitle(title string) {
	c.mutex.Lock()
	c.draft.Title = title
	c.mutex.Unlock()
	c.publishDraft()
}

// SetSlug updates the draft slug.
func (c *Controller) SetSlug(slug string) {
	c.mutex.Lock()
	c.draft.Slug = slug
	c.mutex.Unlock()
	c.publishDraft()
}

// SetStatus updates the draft publication status.
func (c *Controller) SetStatus(status types.PageStatus) {
	c.mutex.Lock()
	c.draft.Status = status
	c.mutex.Unlock()
	c.publishDraft()
}

// SetSettings replaces the page settings.
func (c *Controller) SetSettings(settings types.PageSettings) {
	c.mutex.Lock()
	c.draft.Settings = settings
	c.mutex.Unlock()
	c.publishDraft()
}

// AddBlock inserts a new block instance with empty properties. When afterID
// resolves to an existing element the instance goes immediately after it,
// otherwise it is appended. The new instance becomes the selection.
func (c *Controller) AddBlock(blockType string, afterID string) *types.BlockInstance {
	block := types.NewBlockInstance(blockType)

	c.mutex.Lock()
	element := types.BlockElement(block)
	if idx := c.draft.Content.IndexOf(afterID); afterID != "" && idx >= 0 {
		c.draft.Content = insertAt(c.draft.Content, idx+1, element)
	} else {
		c.draft.Content = append(c.draft.Content, element)
	}
	c.selectedID = &block.ID
	c.mutex.Unlock()

	c.publishTree()
	return block
}

// AddPatternReference appends a pattern reference with a fresh instance id,
// distinct from the pattern id it points at. Becomes the selection.
func (c *Controller) AddPatternReference(patternID string) *types.PatternReference {
	ref := types.NewPatternReference(patternID)

	c.mutex.Lock()
	c.draft.Content = append(c.draft.Content, types.PatternElement(ref))
	c.selectedID = &ref.ID
	c.mutex.Unlock()

	c.publishTree()
	return ref
}

// RemoveElement removes the element with the given id. If it was selected,
// selection becomes none. Absent ids are a no-op, not an error.
func (c *Controller) RemoveElement(id string) {
	c.mutex.Lock()
	idx := c.draft.Content.IndexOf(id)
	if idx < 0 {
		c.mutex.Unlock()
		return
	}
	c.draft.Content = append(c.draft.Content[:idx], c.draft.Content[idx+1:]...)
	if c.selectedID != nil && *c.selectedID == id {
		c.selectedID = nil
	}
	c.mutex.Unlock()

	c.publishTree()
}

// DuplicateElement deep-clones the element into a new instance with a fresh
// id inserted immediately after the source, and selects it. Duplicating a
// pattern reference duplicates only the reference. Absent ids are a no-op.
func (c *Controller) DuplicateElement(id string) *string {
	c.mutex.Lock()
	idx := c.draft.Content.IndexOf(id)
	if idx < 0 {
		c.mutex.Unlock()
		return nil
	}

	clone := c.draft.Content[idx].Clone()
	newID := uuid.NewString()
	if clone.Block != nil {
		clone.Block.ID = newID
	} else {
		clone.Pattern.ID = newID
	}

	c.draft.Content = insertAt(c.draft.Content, idx+1, clone)
	c.selectedID = &newID
	c.mutex.Unlock()

	c.publishTree()
	return &newID
}

// UpdateProperties replaces the full properties bag for the given element.
// This is a replace, not a merge; callers merge beforehand. Absent ids and
// pattern references are a no-op.
func (c *Controller) UpdateProperties(id string, props map[string]any) {
	c.mutex.Lock()
	idx := c.draft.Content.IndexOf(id)
	if idx < 0 || c.draft.Content[idx].Block == nil {
		c.mutex.Unlock()
		return
	}
	c.draft.Content[idx].Block.Properties = types.CopyProperties(props)
	c.mutex.Unlock()

	c.publishTree()
}

// Reorder replaces the tree order wholesale. The new sequence must be a
// permutation, minus deletions, of known ids: known ids omitted from the
// sequence are dropped; unknown ids reject the whole command.
func (c *Controller) Reorder(newOrder []string) error {
	c.mutex.Lock()

	var unknown []string
	for _, id := range newOrder {
		if !c.draft.Content.Contains(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		c.mutex.Unlock()
		return composererrors.ErrInvalidReorder(unknown)
	}

	reordered := make(types.ContentTree, 0, len(newOrder))
	seen := make(map[string]struct{}, len(newOrder))
	for _, id := range newOrder {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		reordered = append(reordered, c.draft.Content[c.draft.Content.IndexOf(id)])
	}
	c.draft.Content = reordered

	if c.selectedID != nil {
		if _, kept := seen[*c.selectedID]; !kept {
			c.selectedID = nil
		}
	}
	c.mutex.Unlock()

	c.publishTree()
	return nil
}

// MoveUp swaps the element with its previous neighbor; no-op at the top.
func (c *Controller) MoveUp(id string) {
	c.swap(id, -1)
}

// MoveDown swaps the element with its next neighbor; no-op at the bottom.
func (c *Controller) MoveDown(id string) {
	c.swap(id, +1)
}

func (c *Controller) swap(id string, direction int) {
	c.mutex.Lock()
	idx := c.draft.Content.IndexOf(id)
	target := idx + direction
	if idx < 0 || target < 0 || target >= len(c.draft.Content) {
		c.mutex.Unlock()
		return
	}
	c.draft.Content[idx], c.draft.Content[target] = c.draft.Content[target], c.draft.Content[idx]
	c.mutex.Unlock()

	c.publishTree()
}

// Select sets the selection to the given element id. Selecting an unknown
// id clears the selection.
func (c *Controller) Select(id string) {
	c.mutex.Lock()
	if c.draft.Content.Contains(id) {
		c.selectedID = &id
	} else {
		c.selectedID = nil
	}
	c.mutex.Unlock()

	c.publishSelection()
}

// ClearSelection clears the selection.
func (c *Controller) ClearSelection() {
	c.mutex.Lock()
	c.selectedID = nil
	c.mutex.Unlock()

	c.publishSelection()
}

// Subscribe returns a channel that receives change events after each
// committed mutation.
func (c *Controller) Subscribe() <-chan ChangeEvent {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ch := make(chan ChangeEvent, 100)
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (c *Controller) Unsubscribe(ch <-chan ChangeEvent) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for i, sub := range c.subscribers {
		if sub == ch {
			close(sub)
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			break
		}
	}
}

func (c *Controller) setState(state DraftState) {
	c.mutex.Lock()
	c.state = state
	c.mutex.Unlock()
	c.publishState()
}

func (c *Controller) publishTree() {
	c.mutex.Lock()
	event := ChangeEvent{
		Kind:       ChangeTree,
		Tree:       c.draft.Content.Clone(),
		SelectedID: copyID(c.selectedID),
		State:      c.state,
		Timestamp:  time.Now(),
	}
	c.mutex.Unlock()
	c.publish(event)
}

func (c *Controller) publishSelection() {
	c.mutex.Lock()
	event := ChangeEvent{
		Kind:       ChangeSelection,
		SelectedID: copyID(c.selectedID),
		State:      c.state,
		Timestamp:  time.Now(),
	}
	c.mutex.Unlock()
	c.publish(event)
}

func (c *Controller) publishDraft() {
	c.mutex.Lock()
	event := ChangeEvent{
		Kind:      ChangeDraft,
		State:     c.state,
		Timestamp: time.Now(),
	}
	c.mutex.Unlock()
	c.publish(event)
}

func (c *Controller) publishState() {
	c.mutex.Lock()
	event := ChangeEvent{
		Kind:      ChangeState,
		State:     c.state,
		Timestamp: time.Now(),
	}
	c.mutex.Unlock()
	c.publish(event)
}

func (c *Controller) publishAll() {
	c.publishTree()
	c.publishDraft()
}

func (c *Controller) publish(event ChangeEvent) {
	c.mutex.Lock()
	subs := make([]chan ChangeEvent, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mutex.Unlock()

	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			// Skip if channel is full
		}
	}
}

func insertAt(tree types.ContentTree, idx int, el types.Element) types.ContentTree {
	tree = append(tree, types.Element{})
	copy(tree[idx+1:], tree[idx:])
	tree[idx] = el
	return tree
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
