package ingest

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hupe1980/agenthub/logging"
)

// WSOptions configures a WSConnection.
type WSOptions struct {
	// URL is the gateway endpoint (ws:// or wss://).
	URL string
	// Header is sent with the dial request (auth tokens etc.).
	Header http.Header
	// AllowedSenders restricts who may talk to the agent; empty allows all.
	AllowedSenders []string
	// Logger receives connection diagnostics; defaults to NoOpLogger.
	Logger logging.Logger
}

// WSConnection is a PlatformConnection for chat gateways that push messages
// over a websocket. It dials on Start, reads JSON envelopes in a loop and
// writes replies on the same socket.
//
// Unlike NATS, a websocket does not reconnect on its own: a dead read loop is
// reported on Failures so the ingester worker can fail and be restarted with
// a fresh dial.
type WSConnection struct {
	opts  WSOptions
	fatal chan error

	mu     sync.Mutex // guards conn writes and replacement
	conn   *websocket.Conn
	closed bool
}

// NewWSConnection returns an unconnected platform; Start dials.
func NewWSConnection(optFns ...func(o *WSOptions)) *WSConnection {
	opts := WSOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &WSConnection{opts: opts, fatal: make(chan error, 1)}
}

// PlatformName returns "websocket".
func (c *WSConnection) PlatformName() string { return "websocket" }

// Start dials the gateway and starts the read loop. The loop exits on read
// error (including Stop closing the socket) or ctx cancellation.
func (c *WSConnection) Start(ctx context.Context, onMessage func(msg InboundMessage)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.opts.URL, c.opts.Header)
	if err != nil {
		return fmt.Errorf("dial %q: %w", c.opts.URL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.closed = false
	c.mu.Unlock()

	go c.readLoop(ctx, conn, onMessage)
	return nil
}

// Failures reports read-loop death for errors other than Stop or ctx
// cancellation. The channel is never closed.
func (c *WSConnection) Failures() <-chan error {
	return c.fatal
}

func (c *WSConnection) readLoop(ctx context.Context, conn *websocket.Conn, onMessage func(msg InboundMessage)) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil && !c.isClosed() {
				c.opts.Logger.Warn("websocket read loop ended", "error", err)
				select {
				case c.fatal <- fmt.Errorf("websocket read loop: %w", err):
				default:
				}
			}
			return
		}
		onMessage(InboundMessage{
			Platform: c.PlatformName(),
			SenderID: env.Sender,
			ChatID:   env.Chat,
			Text:     env.Text,
		})
	}
}

// Stop closes the socket, ending the read loop.
func (c *WSConnection) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *WSConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Reply writes content back onto the socket.
func (c *WSConnection) Reply(_ context.Context, content string, msg InboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	if err := c.conn.WriteJSON(envelope{Sender: msg.SenderID, Chat: msg.ChatID, Text: content}); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

// IsAllowed permits everyone when no allowlist is configured, otherwise only
// listed sender ids.
func (c *WSConnection) IsAllowed(msg InboundMessage) bool {
	return senderAllowed(c.opts.AllowedSenders, msg.SenderID)
}

var (
	_ PlatformConnection = (*WSConnection)(nil)
	_ failureReporter    = (*WSConnection)(nil)
)
