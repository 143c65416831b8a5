package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameMessage_Known(t *testing.T) {
	msg, err := ParseFrameMessage([]byte(`{"type":"BLOCK_CLICKED","blockId":"b1"}`))
	require.NoError(t, err)
	assert.Equal(t, MsgBlockClicked, msg.Type)
	assert.Equal(t, "b1", msg.BlockID)
}

func TestParseFrameMessage_RejectsUnknownType(t *testing.T) {
	_, err := ParseFrameMessage([]byte(`{"type":"SOMETHING_ELSE"}`))
	assert.Error(t, err)

	_, err = ParseFrameMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestUpdateBlocksMessage_CarriesFullState(t *testing.T) {
	selected := "b2"
	tree := ContentTree{
		BlockElement(&BlockInstance{ID: "b1", BlockType: "text", Properties: map[string]any{}}),
		BlockElement(&BlockInstance{ID: "b2", BlockType: "image", Properties: map[string]any{}}),
	}

	data, err := json.Marshal(UpdateBlocksMessage(tree, &selected))
	require.NoError(t, err)

	msg, err := ParseFrameMessage(data)
	require.NoError(t, err)
	assert.Equal(t, MsgUpdateBlocks, msg.Type)
	assert.Len(t, msg.Blocks, 2)
	require.NotNil(t, msg.SelectedBlockID)
	assert.Equal(t, "b2", *msg.SelectedBlockID)
}

func TestUpdateThemeMessage(t *testing.T) {
	data, err := json.Marshal(UpdateThemeMessage(true))
	require.NoError(t, err)

	msg, err := ParseFrameMessage(data)
	require.NoError(t, err)
	require.NotNil(t, msg.IsDark)
	assert.True(t, *msg.IsDark)
}
