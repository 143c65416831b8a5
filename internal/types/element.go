// Package types defines the core data model shared across the composition
// engine: the content tree of block instances and pattern references, the
// field schema that drives dynamic forms, the page draft aggregate, and the
// cross-frame message union.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PatternKind is the discriminant value carried by pattern references.
const PatternKind = "pattern"

// BlockInstance is one concrete, configured occurrence of a block type
// within a page's content tree. The ID is generated client-side, stable for
// the instance's lifetime, and never reused.
type BlockInstance struct {
	ID         string         `json:"id"`
	BlockType  string         `json:"blockType"`
	Properties map[string]any `json:"properties"`
}

// PatternReference is a placeholder pointing at a reusable, separately
// stored group of blocks. Ref may be shared by multiple references; ID is
// unique per reference.
type PatternReference struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Ref  string `json:"ref"`
}

// Element is the tagged union occupying one position in a content tree.
// Exactly one of Block or Pattern is non-nil.
type Element struct {
	Block   *BlockInstance
	Pattern *PatternReference
}

// NewBlockInstance creates a block instance with a fresh id and an empty
// properties bag.
func NewBlockInstance(blockType string) *BlockInstance {
	return &BlockInstance{
		ID:         uuid.NewString(),
		BlockType:  blockType,
		Properties: make(map[string]any),
	}
}

// NewPatternReference creates a pattern reference with a fresh id, distinct
// from the pattern id it points at.
func NewPatternReference(patternID string) *PatternReference {
	return &PatternReference{
		ID:   uuid.NewString(),
		Kind: PatternKind,
		Ref:  patternID,
	}
}

// BlockElement wraps a block instance as a tree element.
func BlockElement(b *BlockInstance) Element {
	return Element{Block: b}
}

// PatternElement wraps a pattern reference as a tree element.
func PatternElement(p *PatternReference) Element {
	return Element{Pattern: p}
}

// ID returns the element's unique id regardless of variant.
func (e Element) ID() string {
	if e.Block != nil {
		return e.Block.ID
	}
	if e.Pattern != nil {
		return e.Pattern.ID
	}
	return ""
}

// IsPattern reports whether the element is a pattern reference.
func (e Element) IsPattern() bool {
	return e.Pattern != nil
}

// Clone returns a deep copy of the element. Block properties are copied
// recursively so mutating the original never leaks into the clone.
func (e Element) Clone() Element {
	if e.Block != nil {
		clone := *e.Block
		clone.Properties = deepCopyBag(e.Block.Properties)
		return Element{Block: &clone}
	}
	if e.Pattern != nil {
		clone := *e.Pattern
		return Element{Pattern: &clone}
	}
	return Element{}
}

// MarshalJSON emits the underlying variant directly, so serialized trees
// carry plain block/pattern objects discriminated by the "kind" field.
func (e Element) MarshalJSON() ([]byte, error) {
	if e.Block != nil {
		return json.Marshal(e.Block)
	}
	if e.Pattern != nil {
		return json.Marshal(e.Pattern)
	}
	return nil, fmt.Errorf("element has no variant set")
}

// UnmarshalJSON discriminates on the presence of "kind": "pattern".
func (e *Element) UnmarshalJSON(data []byte) error {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if probe.Kind == PatternKind {
		var p PatternReference
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		e.Pattern = &p
		e.Block = nil
		return nil
	}

	var b BlockInstance
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	if b.Properties == nil {
		b.Properties = make(map[string]any)
	}
	e.Block = &b
	e.Pattern = nil
	return nil
}

// deepCopyBag copies a property bag recursively. Only the JSON value shapes
// (maps, slices, scalars) are expected; anything else is copied by value.
func deepCopyBag(bag map[string]any) map[string]any {
	if bag == nil {
		return nil
	}
	out := make(map[string]any, len(bag))
	for k, v := range bag {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyBag(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}

// CopyProperties returns a deep copy of a properties bag. Callers use this
// when handing bags across ownership boundaries.
func CopyProperties(bag map[string]any) map[string]any {
	return deepCopyBag(bag)
}
