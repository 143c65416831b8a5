// Package channel keeps an isolated preview frame synchronized with the
// editor controller over a websocket, and relays the frame's interaction
// events back as controller commands.
//
// The host and frame are two separate execution contexts with no shared
// memory; they exchange only plain serialized messages. Every outbound push
// carries the full current value of its concern, never a diff, so the
// protocol is idempotent and self-correcting under dropped intermediate
// messages.
package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	"github.com/conduitcms/composer/internal/logging"
	"github.com/conduitcms/composer/internal/types"
)

// State is the channel lifecycle state. Ready is entered on receipt of the
// frame's READY handshake. A dropped connection returns the channel to
// Connecting: the remounted frame is a fresh execution context and must
// re-handshake before anything is pushed to it. Closed is terminal.
type State int

const (
	StateConnecting State = iota
	StateReady
	StateClosed
)

// String returns the string representation of the channel state
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// OriginValidator validates websocket connection origins. The host must
// verify the message source is the frame it owns before acting on anything
// inbound.
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}

// CommandSink receives the frame's interaction events, forwarded verbatim
// to the editor controller's corresponding commands.
type CommandSink interface {
	Select(id string)
	MoveUp(id string)
	MoveDown(id string)
	DuplicateElement(id string) *string
	RemoveElement(id string)
}

// HeightFunc receives the frame's reported content height, used to size the
// frame element host-side.
type HeightFunc func(height float64)

// hostState is the latest full value of each pushed concern, retained so
// the current state (not a replay log) can be pushed once Ready arrives.
type hostState struct {
	tree       types.ContentTree
	selectedID *string
	isDark     bool
}

// Channel is the host-side actor for one preview frame connection.
type Channel struct {
	sink      CommandSink
	onHeight  HeightFunc
	validator OriginValidator
	limiter   *rate.Limiter
	logger    logging.Logger

	mutex sync.Mutex
	state State
	host  hostState
	send  chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Option configures a Channel.
type Option func(*Channel)

// WithHeightFunc sets the content-height callback.
func WithHeightFunc(fn HeightFunc) Option {
	return func(c *Channel) { c.onHeight = fn }
}

// WithLogger sets the channel's logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Channel) { c.logger = l.WithComponent("channel") }
}

// WithRateLimit overrides the inbound message rate limit.
func WithRateLimit(limiter *rate.Limiter) Option {
	return func(c *Channel) { c.limiter = limiter }
}

// NewChannel creates a host-side channel. validator must not be nil; origin
// validation is the isolation contract.
func NewChannel(sink CommandSink, validator OriginValidator, opts ...Option) *Channel {
	if validator == nil {
		panic("channel: origin validator cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		sink:      sink,
		validator: validator,
		limiter:   rate.NewLimiter(rate.Limit(100), 200),
		logger:    logging.NopLogger{},
		state:     StateConnecting,
		send:      make(chan []byte, 64),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current channel state.
func (c *Channel) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}

// PushBlocks records and, when Ready, sends the full content tree and
// selection. While Connecting the push is suppressed but the value is
// retained as the current state.
func (c *Channel) PushBlocks(tree types.ContentTree, selectedID *string) {
	c.mutex.Lock()
	c.host.tree = tree
	c.host.selectedID = selectedID
	ready := c.state == StateReady
	c.mutex.Unlock()

	if ready {
		c.enqueue(types.UpdateBlocksMessage(tree, selectedID))
	}
}

// PushSelection records and, when Ready, sends the current selection.
func (c *Channel) PushSelection(selectedID *string) {
	c.mutex.Lock()
	c.host.selectedID = selectedID
	ready := c.state == StateReady
	c.mutex.Unlock()

	if ready {
		c.enqueue(types.UpdateSelectionMessage(selectedID))
	}
}

// PushTheme records and, when Ready, sends the current theme.
func (c *Channel) PushTheme(isDark bool) {
	c.mutex.Lock()
	c.host.isDark = isDark
	ready := c.state == StateReady
	c.mutex.Unlock()

	if ready {
		c.enqueue(types.UpdateThemeMessage(isDark))
	}
}

// HandleFrame upgrades the frame's HTTP request to a websocket and runs the
// connection until it drops or the channel closes. Requests from origins
// the validator rejects are refused before the upgrade.
func (c *Channel) HandleFrame(w http.ResponseWriter, r *http.Request) {
	// An absent Origin header is rejected too: browsers always send one on
	// websocket upgrades, so a missing header means a non-browser client
	// the isolation contract does not cover.
	origin := r.Header.Get("Origin")
	if origin == "" || !c.validator.IsAllowedOrigin(origin) {
		c.logger.Warn(r.Context(), nil, "frame connection rejected", "origin", origin)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"}, // validated above
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		c.logger.Warn(r.Context(), err, "frame websocket upgrade failed")
		return
	}

	// Each connection gets its own context so a dropped frame tears down
	// both loops together instead of leaving a write loop competing with
	// the replacement connection.
	connCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()

	go c.writeLoop(connCtx, conn)
	c.readLoop(connCtx, conn)
	c.resetToConnecting()
}

// resetToConnecting demotes a Ready channel after its connection drops. The
// retained host state survives; the next READY handshake pushes it to the
// remounted frame. Closed stays closed.
func (c *Channel) resetToConnecting() {
	c.mutex.Lock()
	if c.state == StateReady {
		c.state = StateConnecting
	}
	c.mutex.Unlock()
}

// Close tears down the channel for good. Unlike a dropped connection, a
// closed channel never returns to Connecting and ignores further handshakes.
func (c *Channel) Close() {
	c.once.Do(func() {
		c.mutex.Lock()
		c.state = StateClosed
		c.mutex.Unlock()
		c.cancel()
	})
}

func (c *Channel) enqueue(msg types.FrameMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error(c.ctx, err, "marshaling frame message", "type", msg.Type)
		return
	}

	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		c.logger.Warn(c.ctx, nil, "frame send buffer full, dropping message", "type", msg.Type)
	}
}

func (c *Channel) writeLoop(connCtx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			ctx, cancel := context.WithTimeout(connCtx, 10*time.Second)
			err := conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.logger.Warn(c.ctx, err, "frame write error")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(connCtx, 10*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				c.logger.Warn(c.ctx, err, "frame ping error")
				return
			}

		case <-connCtx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
			return
		}
	}
}

func (c *Channel) readLoop(connCtx context.Context, conn *websocket.Conn) {
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		ctx, cancel := context.WithTimeout(connCtx, 60*time.Second)
		_, data, err := conn.Read(ctx)
		cancel()
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && connCtx.Err() == nil {
				c.logger.Warn(c.ctx, err, "frame read error")
			}
			return
		}

		if !c.limiter.Allow() {
			c.logger.Warn(c.ctx, nil, "frame message rate limit exceeded")
			continue
		}

		c.handleMessage(data)
	}
}

// handleMessage dispatches one inbound frame message. Unknown message types
// are dropped; the union is closed.
func (c *Channel) handleMessage(data []byte) {
	msg, err := types.ParseFrameMessage(data)
	if err != nil {
		c.logger.Warn(c.ctx, err, "dropping malformed frame message")
		return
	}

	switch msg.Type {
	case types.MsgReady:
		c.handleReady()
	case types.MsgBlockClicked:
		if c.sink != nil && msg.BlockID != "" {
			c.sink.Select(msg.BlockID)
		}
	case types.MsgContentHeight:
		if c.onHeight != nil {
			c.onHeight(msg.Height)
		}
	case types.MsgBlockMoveUp:
		if c.sink != nil && msg.BlockID != "" {
			c.sink.MoveUp(msg.BlockID)
		}
	case types.MsgBlockMoveDown:
		if c.sink != nil && msg.BlockID != "" {
			c.sink.MoveDown(msg.BlockID)
		}
	case types.MsgBlockDuplicate:
		if c.sink != nil && msg.BlockID != "" {
			c.sink.DuplicateElement(msg.BlockID)
		}
	case types.MsgBlockRemove:
		if c.sink != nil && msg.BlockID != "" {
			c.sink.RemoveElement(msg.BlockID)
		}
	default:
		// Host never receives host→frame types; drop them.
		c.logger.Debug(c.ctx, "ignoring unexpected frame message", "type", msg.Type)
	}
}

// handleReady transitions Connecting → Ready and pushes the current full
// state once. Pushes suppressed while Connecting are not replayed; only the
// state as of now matters.
func (c *Channel) handleReady() {
	c.mutex.Lock()
	if c.state != StateConnecting {
		c.mutex.Unlock()
		return
	}
	c.state = StateReady
	tree := c.host.tree
	selectedID := c.host.selectedID
	isDark := c.host.isDark
	c.mutex.Unlock()

	c.logger.Info(c.ctx, "preview frame ready")
	c.enqueue(types.UpdateBlocksMessage(tree, selectedID))
	c.enqueue(types.UpdateThemeMessage(isDark))
}
