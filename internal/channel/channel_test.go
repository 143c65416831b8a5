package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduitcms/composer/internal/types"
)

// recordingSink captures forwarded frame commands.
type recordingSink struct {
	selected   []string
	movedUp    []string
	movedDown  []string
	duplicated []string
	removed    []string
}

func (s *recordingSink) Select(id string)   { s.selected = append(s.selected, id) }
func (s *recordingSink) MoveUp(id string)   { s.movedUp = append(s.movedUp, id) }
func (s *recordingSink) MoveDown(id string) { s.movedDown = append(s.movedDown, id) }
func (s *recordingSink) DuplicateElement(id string) *string {
	s.duplicated = append(s.duplicated, id)
	return nil
}
func (s *recordingSink) RemoveElement(id string) { s.removed = append(s.removed, id) }

type allowAll struct{}

func (allowAll) IsAllowedOrigin(origin string) bool { return true }

type denyAll struct{}

func (denyAll) IsAllowedOrigin(origin string) bool { return false }

// drainMessages reads everything currently queued for the frame.
func drainMessages(t *testing.T, c *Channel) []types.FrameMessage {
	t.Helper()

	var out []types.FrameMessage
	for {
		select {
		case data := <-c.send:
			msg, err := types.ParseFrameMessage(data)
			require.NoError(t, err)
			out = append(out, msg)
		case <-time.After(20 * time.Millisecond):
			return out
		}
	}
}

func readyMessage(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(types.FrameMessage{Type: types.MsgReady})
	require.NoError(t, err)
	return data
}

func TestChannel_StartsConnecting(t *testing.T) {
	c := NewChannel(&recordingSink{}, allowAll{})
	defer c.Close()

	assert.Equal(t, StateConnecting, c.State())
}

func TestChannel_PushesSuppressedWhileConnecting(t *testing.T) {
	c := NewChannel(&recordingSink{}, allowAll{})
	defer c.Close()

	selected := "b1"
	tree := types.ContentTree{
		types.BlockElement(&types.BlockInstance{ID: "b1", BlockType: "text", Properties: map[string]any{}}),
	}
	c.PushBlocks(tree, &selected)
	c.PushTheme(true)

	assert.Empty(t, drainMessages(t, c), "nothing crosses the wire before the handshake")
}

func TestChannel_ReadyPushesCurrentFullState(t *testing.T) {
	c := NewChannel(&recordingSink{}, allowAll{})
	defer c.Close()

	// Three tree pushes land while the frame is still booting; only the
	// last one is the current state.
	for _, id := range []string{"a", "b", "c"} {
		c.PushBlocks(types.ContentTree{
			types.BlockElement(&types.BlockInstance{ID: id, BlockType: "text", Properties: map[string]any{}}),
		}, nil)
	}
	c.PushTheme(true)

	c.handleMessage(readyMessage(t))
	assert.Equal(t, StateReady, c.State())

	msgs := drainMessages(t, c)
	require.Len(t, msgs, 2, "current state only, suppressed pushes are not replayed")

	assert.Equal(t, types.MsgUpdateBlocks, msgs[0].Type)
	require.Len(t, msgs[0].Blocks, 1)
	assert.Equal(t, "c", msgs[0].Blocks[0].ID())

	assert.Equal(t, types.MsgUpdateTheme, msgs[1].Type)
	require.NotNil(t, msgs[1].IsDark)
	assert.True(t, *msgs[1].IsDark)
}

func TestChannel_SecondReadyIgnored(t *testing.T) {
	c := NewChannel(&recordingSink{}, allowAll{})
	defer c.Close()

	c.handleMessage(readyMessage(t))
	drainMessages(t, c)

	c.handleMessage(readyMessage(t))
	assert.Empty(t, drainMessages(t, c))
}

func TestChannel_PushesFlowWhenReady(t *testing.T) {
	c := NewChannel(&recordingSink{}, allowAll{})
	defer c.Close()

	c.handleMessage(readyMessage(t))
	drainMessages(t, c)

	selected := "b9"
	c.PushSelection(&selected)

	msgs := drainMessages(t, c)
	require.Len(t, msgs, 1)
	assert.Equal(t, types.MsgUpdateSelection, msgs[0].Type)
	require.NotNil(t, msgs[0].SelectedBlockID)
	assert.Equal(t, "b9", *msgs[0].SelectedBlockID)
}

func TestChannel_ForwardsFrameCommands(t *testing.T) {
	sink := &recordingSink{}
	c := NewChannel(sink, allowAll{})
	defer c.Close()

	send := func(msgType, blockID string) {
		data, err := json.Marshal(types.FrameMessage{Type: msgType, BlockID: blockID})
		require.NoError(t, err)
		c.handleMessage(data)
	}

	send(types.MsgBlockClicked, "b1")
	send(types.MsgBlockMoveUp, "b2")
	send(types.MsgBlockMoveDown, "b3")
	send(types.MsgBlockDuplicate, "b4")
	send(types.MsgBlockRemove, "b5")

	assert.Equal(t, []string{"b1"}, sink.selected)
	assert.Equal(t, []string{"b2"}, sink.movedUp)
	assert.Equal(t, []string{"b3"}, sink.movedDown)
	assert.Equal(t, []string{"b4"}, sink.duplicated)
	assert.Equal(t, []string{"b5"}, sink.removed)
}

func TestChannel_DropsMalformedAndUnknownMessages(t *testing.T) {
	sink := &recordingSink{}
	c := NewChannel(sink, allowAll{})
	defer c.Close()

	c.handleMessage([]byte(`{not json`))
	c.handleMessage([]byte(`{"type":"EVIL_COMMAND","blockId":"b1"}`))

	// A command without a block id is dropped too.
	c.handleMessage([]byte(`{"type":"BLOCK_CLICKED"}`))

	assert.Empty(t, sink.selected)
	assert.Equal(t, StateConnecting, c.State())
}

func TestChannel_ReportsContentHeight(t *testing.T) {
	var got float64
	c := NewChannel(&recordingSink{}, allowAll{}, WithHeightFunc(func(h float64) { got = h }))
	defer c.Close()

	data, err := json.Marshal(types.FrameMessage{Type: types.MsgContentHeight, Height: 1240})
	require.NoError(t, err)
	c.handleMessage(data)

	assert.Equal(t, float64(1240), got)
}

func TestChannel_RejectsDisallowedOrigin(t *testing.T) {
	c := NewChannel(&recordingSink{}, denyAll{})
	defer c.Close()

	req := httptest.NewRequest(http.MethodGet, "/ws/frame", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()

	c.HandleFrame(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChannel_RejectsMissingOrigin(t *testing.T) {
	c := NewChannel(&recordingSink{}, allowAll{})
	defer c.Close()

	req := httptest.NewRequest(http.MethodGet, "/ws/frame", nil)
	rec := httptest.NewRecorder()

	c.HandleFrame(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code,
		"a request with no Origin header never reaches the validator allowance")
}

// dialFrame opens a frame websocket against a test server, sending the
// Origin header a browser would.
func dialFrame(t *testing.T, httpURL string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(httpURL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"http://localhost:8090"}},
	})
	require.NoError(t, err)
	return conn
}

func sendFrameMessage(t *testing.T, conn *websocket.Conn, data []byte) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func readFrameMessage(t *testing.T, conn *websocket.Conn) types.FrameMessage {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	msg, err := types.ParseFrameMessage(data)
	require.NoError(t, err)
	return msg
}

func TestChannel_RemountedFrameHandshakesAgain(t *testing.T) {
	c := NewChannel(&recordingSink{}, allowAll{})
	defer c.Close()

	selected := "b1"
	tree := types.ContentTree{
		types.BlockElement(&types.BlockInstance{ID: "b1", BlockType: "text", Properties: map[string]any{}}),
	}
	c.PushBlocks(tree, &selected)

	srv := httptest.NewServer(http.HandlerFunc(c.HandleFrame))
	defer srv.Close()

	first := dialFrame(t, srv.URL)
	sendFrameMessage(t, first, readyMessage(t))
	assert.Equal(t, types.MsgUpdateBlocks, readFrameMessage(t, first).Type)
	assert.Equal(t, types.MsgUpdateTheme, readFrameMessage(t, first).Type)
	require.NoError(t, first.Close(websocket.StatusNormalClosure, ""))

	// The dropped connection demotes the channel so the remounted frame
	// can handshake from scratch.
	require.Eventually(t, func() bool { return c.State() == StateConnecting },
		time.Second, 10*time.Millisecond)

	second := dialFrame(t, srv.URL)
	defer second.Close(websocket.StatusNormalClosure, "")
	sendFrameMessage(t, second, readyMessage(t))

	msg := readFrameMessage(t, second)
	assert.Equal(t, types.MsgUpdateBlocks, msg.Type)
	require.Len(t, msg.Blocks, 1)
	assert.Equal(t, "b1", msg.Blocks[0].ID())
	assert.Equal(t, types.MsgUpdateTheme, readFrameMessage(t, second).Type)
}

func TestChannel_CloseIsTerminal(t *testing.T) {
	c := NewChannel(&recordingSink{}, allowAll{})

	c.Close()
	assert.Equal(t, StateClosed, c.State())

	// A READY after close must not resurrect the channel.
	c.handleMessage(readyMessage(t))
	assert.Equal(t, StateClosed, c.State())

	// Close is idempotent.
	c.Close()
	assert.Equal(t, StateClosed, c.State())
}

func TestChannel_NilValidatorPanics(t *testing.T) {
	assert.Panics(t, func() { NewChannel(&recordingSink{}, nil) })
}
