package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlockInstance(t *testing.T) {
	block := NewBlockInstance("hero")

	assert.NotEmpty(t, block.ID)
	assert.Equal(t, "hero", block.BlockType)
	assert.NotNil(t, block.Properties)
	assert.Empty(t, block.Properties)

	other := NewBlockInstance("hero")
	assert.NotEqual(t, block.ID, other.ID, "instance ids must never repeat")
}

func TestNewPatternReference(t *testing.T) {
	ref := NewPatternReference("pattern-7")

	assert.NotEmpty(t, ref.ID)
	assert.Equal(t, PatternKind, ref.Kind)
	assert.Equal(t, "pattern-7", ref.Ref)
	assert.NotEqual(t, ref.ID, ref.Ref, "reference id is distinct from the pattern id")
}

func TestElementJSONRoundTrip_Block(t *testing.T) {
	el := BlockElement(&BlockInstance{
		ID:        "b1",
		BlockType: "text",
		Properties: map[string]any{
			"content": "hello",
			"columns": float64(2),
			"nested":  map[string]any{"deep": []any{"a", "b"}},
		},
	})

	data, err := json.Marshal(el)
	require.NoError(t, err)

	var decoded Element
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.NotNil(t, decoded.Block)
	assert.Nil(t, decoded.Pattern)
	assert.Equal(t, el.Block, decoded.Block)
}

func TestElementJSONRoundTrip_Pattern(t *testing.T) {
	el := PatternElement(&PatternReference{ID: "p1", Kind: PatternKind, Ref: "shared-footer"})

	data, err := json.Marshal(el)
	require.NoError(t, err)

	var decoded Element
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.NotNil(t, decoded.Pattern)
	assert.Nil(t, decoded.Block)
	assert.Equal(t, el.Pattern, decoded.Pattern)
}

func TestElementUnmarshal_DiscriminatesOnKind(t *testing.T) {
	var el Element
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","kind":"pattern","ref":"r"}`), &el))
	assert.True(t, el.IsPattern())

	// A block with no kind field decodes as a block.
	require.NoError(t, json.Unmarshal([]byte(`{"id":"y","blockType":"hero"}`), &el))
	assert.False(t, el.IsPattern())
	require.NotNil(t, el.Block)
	assert.NotNil(t, el.Block.Properties, "missing properties decode as an empty bag")
}

func TestElementMarshal_NoVariant(t *testing.T) {
	_, err := json.Marshal(Element{})
	assert.Error(t, err)
}

func TestElementClone_DeepCopiesProperties(t *testing.T) {
	original := BlockElement(&BlockInstance{
		ID:        "b1",
		BlockType: "gallery",
		Properties: map[string]any{
			"images": []any{"a.jpg"},
			"layout": map[string]any{"columns": float64(3)},
		},
	})

	clone := original.Clone()
	clone.Block.Properties["layout"].(map[string]any)["columns"] = float64(9)
	clone.Block.Properties["images"] = append(clone.Block.Properties["images"].([]any), "b.jpg")

	assert.Equal(t, float64(3), original.Block.Properties["layout"].(map[string]any)["columns"])
	assert.Len(t, original.Block.Properties["images"], 1)
}

func TestContentTree_Lookup(t *testing.T) {
	tree := ContentTree{
		BlockElement(&BlockInstance{ID: "a", BlockType: "text"}),
		PatternElement(&PatternReference{ID: "b", Kind: PatternKind, Ref: "r"}),
		BlockElement(&BlockInstance{ID: "c", BlockType: "image"}),
	}

	assert.Equal(t, 1, tree.IndexOf("b"))
	assert.Equal(t, -1, tree.IndexOf("missing"))
	assert.True(t, tree.Contains("c"))
	assert.False(t, tree.Contains(""))
	assert.Equal(t, []string{"a", "b", "c"}, tree.IDs())
}

func TestContentTree_Clone(t *testing.T) {
	tree := ContentTree{
		BlockElement(&BlockInstance{ID: "a", BlockType: "text", Properties: map[string]any{"v": "1"}}),
	}

	clone := tree.Clone()
	clone[0].Block.Properties["v"] = "2"

	assert.Equal(t, "1", tree[0].Block.Properties["v"])
	assert.Nil(t, ContentTree(nil).Clone())
}

func TestPageDraft_EqualAndClone(t *testing.T) {
	draft := PageDraft{
		Title:  "Home",
		Slug:   "home",
		Status: StatusDraft,
		Content: ContentTree{
			BlockElement(&BlockInstance{ID: "a", BlockType: "text", Properties: map[string]any{"v": "1"}}),
		},
		Settings: PageSettings{MetaTitle: "Home", Custom: map[string]string{"k": "v"}},
	}

	clone := draft.Clone()
	assert.True(t, draft.Equal(clone))

	clone.Content[0].Block.Properties["v"] = "2"
	assert.False(t, draft.Equal(clone))
	assert.Equal(t, "1", draft.Content[0].Block.Properties["v"])
}
