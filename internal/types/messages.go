package types

import (
	"encoding/json"
	"fmt"
)

// Cross-frame message types. The union is closed: senders only emit these,
// receivers drop anything else. Every host→frame message carries the full
// current value of its concern, never a diff, so delivery is idempotent and
// the receiver converges on the last value of each kind.
const (
	// frame → host
	MsgReady          = "READY"
	MsgBlockClicked   = "BLOCK_CLICKED"
	MsgContentHeight  = "CONTENT_HEIGHT"
	MsgBlockMoveUp    = "BLOCK_MOVE_UP"
	MsgBlockMoveDown  = "BLOCK_MOVE_DOWN"
	MsgBlockDuplicate = "BLOCK_DUPLICATE"
	MsgBlockRemove    = "BLOCK_REMOVE"

	// host → frame
	MsgUpdateBlocks    = "UPDATE_BLOCKS"
	MsgUpdateSelection = "UPDATE_SELECTION"
	MsgUpdateTheme     = "UPDATE_THEME"
)

// FrameMessage is the wire shape of one cross-frame message. Payload fields
// are pointers or zero-able so each message type only serializes what it
// carries.
type FrameMessage struct {
	Type            string      `json:"type"`
	BlockID         string      `json:"blockId,omitempty"`
	Height          float64     `json:"height,omitempty"`
	Blocks          ContentTree `json:"blocks,omitempty"`
	SelectedBlockID *string     `json:"selectedBlockId,omitempty"`
	IsDark          *bool       `json:"isDark,omitempty"`
}

// UpdateBlocksMessage builds a full-state tree push.
func UpdateBlocksMessage(tree ContentTree, selectedID *string) FrameMessage {
	return FrameMessage{
		Type:            MsgUpdateBlocks,
		Blocks:          tree,
		SelectedBlockID: selectedID,
	}
}

// UpdateSelectionMessage builds a full-state selection push.
func UpdateSelectionMessage(selectedID *string) FrameMessage {
	return FrameMessage{
		Type:            MsgUpdateSelection,
		SelectedBlockID: selectedID,
	}
}

// UpdateThemeMessage builds a theme push.
func UpdateThemeMessage(isDark bool) FrameMessage {
	return FrameMessage{Type: MsgUpdateTheme, IsDark: &isDark}
}

// ParseFrameMessage decodes an inbound message and rejects types outside the
// closed union.
func ParseFrameMessage(data []byte) (FrameMessage, error) {
	var msg FrameMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return FrameMessage{}, fmt.Errorf("decoding frame message: %w", err)
	}

	switch msg.Type {
	case MsgReady, MsgBlockClicked, MsgContentHeight,
		MsgBlockMoveUp, MsgBlockMoveDown, MsgBlockDuplicate, MsgBlockRemove,
		MsgUpdateBlocks, MsgUpdateSelection, MsgUpdateTheme:
		return msg, nil
	default:
		return FrameMessage{}, fmt.Errorf("unknown frame message type %q", msg.Type)
	}
}
