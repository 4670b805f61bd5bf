// Package ws owns the persistent connection to the game server: dialing,
// per-type dispatch, and the bounded linear-backoff reconnect policy.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/overkillhq/arena-client/internal/clock"
	"github.com/overkillhq/arena-client/internal/decode"
	"github.com/overkillhq/arena-client/pkg/types"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 3 * time.Second
)

// ErrClientClosed is returned by Connect after Disconnect; a disconnected
// client is done for good and a new one must be constructed.
var ErrClientClosed = errors.New("ws: client closed")

// Handler receives the raw payload of one inbound event. Decoding is the
// subscriber's job; the client only routes frames by type.
type Handler func(data json.RawMessage)

type Options struct {
	// MaxReconnectAttempts bounds consecutive failed opens before the client
	// goes terminal. Zero means no automatic reconnection at all.
	MaxReconnectAttempts int
	// BaseReconnectDelay is multiplied by the attempt number: attempt n
	// waits n×base.
	BaseReconnectDelay time.Duration
	Clock              clock.Clock
	Logger             *zap.Logger
}

type registration struct {
	id int
	fn Handler
}

// Client is a websocket client for one session. It is safe for concurrent
// use, but a subscription table is never shared between two clients.
type Client struct {
	url  string
	opts Options

	mu             sync.Mutex
	conn           *websocket.Conn
	handlers       map[string][]registration
	nextHandlerID  int
	attempts       int
	reconnectTimer clock.Timer
	closed         bool
	terminal       bool
	generation     int
}

func NewClient(url string, opts Options) *Client {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BaseReconnectDelay <= 0 {
		opts.BaseReconnectDelay = 2 * time.Second
	}
	return &Client{
		url:      url,
		opts:     opts,
		handlers: make(map[string][]registration),
	}
}

// Connect dials the server. On success the read loop starts, the attempt
// counter resets and connection-established is emitted locally. On failure
// the error is returned and, unless the client was disconnected or is
// terminal, a reconnect is scheduled.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.url, nil)
	if err != nil {
		c.opts.Logger.Warn("connect failed", zap.String("url", c.url), zap.Error(err))
		c.scheduleReconnect()
		return err
	}
	conn.SetReadLimit(1 << 20)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
		return ErrClientClosed
	}
	c.conn = conn
	c.attempts = 0
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.opts.Logger.Info("connected", zap.String("url", c.url))
	go c.readLoop(conn, gen)
	c.dispatch(types.EventConnectionEstablished, json.RawMessage(`{}`))
	return nil
}

// Send marshals {type, data} and writes it if the connection is open.
// Anything else is a logged no-op: no queueing, no error to the caller.
func (c *Client) Send(eventType string, payload any) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		c.opts.Logger.Warn("cannot send, connection not open", zap.String("type", eventType))
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		c.opts.Logger.Error("marshal outbound payload", zap.String("type", eventType), zap.Error(err))
		return
	}
	frame, err := json.Marshal(types.Envelope{Type: eventType, Data: data})
	if err != nil {
		c.opts.Logger.Error("marshal outbound frame", zap.String("type", eventType), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		c.opts.Logger.Warn("write failed", zap.String("type", eventType), zap.Error(err))
	}
}

// On subscribes to one event type and returns a token for Off. Handlers run
// in registration order and survive reconnects.
func (c *Client) On(eventType string, h Handler) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandlerID++
	id := c.nextHandlerID
	c.handlers[eventType] = append(c.handlers[eventType], registration{id: id, fn: h})
	return id
}

// Off removes the registration returned by On.
func (c *Client) Off(eventType string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	regs := c.handlers[eventType]
	for i, r := range regs {
		if r.id == id {
			c.handlers[eventType] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Disconnect cancels any pending reconnect, closes the connection and clears
// every subscription. The client cannot be reused afterwards.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.handlers = make(map[string][]registration)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, frame, err := conn.Read(context.Background())
		if err != nil {
			c.mu.Lock()
			stale := c.generation != gen
			closed := c.closed
			if !stale && c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			if stale || closed {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.opts.Logger.Info("connection closed by server")
			default:
				c.opts.Logger.Warn("connection lost", zap.Error(err))
			}
			c.scheduleReconnect()
			return
		}

		env, err := decode.Envelope(frame)
		if err != nil {
			// per-message failure, never fatal to the loop
			c.opts.Logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		c.dispatch(env.Type, env.Data)
	}
}

func (c *Client) dispatch(eventType string, data json.RawMessage) {
	c.mu.Lock()
	regs := make([]registration, len(c.handlers[eventType]))
	copy(regs, c.handlers[eventType])
	c.mu.Unlock()

	for _, r := range regs {
		c.invoke(eventType, r, data)
	}
}

func (c *Client) invoke(eventType string, r registration, data json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			c.opts.Logger.Error("handler panicked",
				zap.String("type", eventType), zap.Any("panic", rec))
		}
	}()
	r.fn(data)
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.terminal {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.opts.MaxReconnectAttempts {
		c.terminal = true
		c.mu.Unlock()
		c.opts.Logger.Error("max reconnect attempts reached",
			zap.Int("attempts", c.opts.MaxReconnectAttempts))
		payload, _ := json.Marshal(types.ServerError{Message: "failed to reconnect to server"})
		c.dispatch(types.EventError, payload)
		return
	}
	c.attempts++
	attempt := c.attempts
	delay := time.Duration(attempt) * c.opts.BaseReconnectDelay
	c.reconnectTimer = c.opts.Clock.AfterFunc(delay, func() {
		c.opts.Logger.Info("reconnecting",
			zap.Int("attempt", attempt),
			zap.Int("max", c.opts.MaxReconnectAttempts))
		if err := c.Connect(context.Background()); err != nil {
			c.opts.Logger.Warn("reconnect failed", zap.Error(err))
		}
	})
	c.mu.Unlock()
	c.opts.Logger.Info("reconnect scheduled",
		zap.Int("attempt", attempt), zap.Duration("delay", delay))
}
