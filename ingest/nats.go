package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/agenthub/logging"
	"github.com/nats-io/nats.go"
)

// envelope is the JSON wire shape shared by the NATS and WebSocket platforms.
type envelope struct {
	Sender string `json:"sender"`
	Chat   string `json:"chat"`
	Text   string `json:"text"`
}

// NATSOptions configures a NATSConnection.
type NATSOptions struct {
	// URL is the NATS server address.
	URL string
	// InboxSubject receives inbound user messages.
	InboxSubject string
	// OutboxPrefix is the reply subject prefix; replies go to
	// "<OutboxPrefix>.<chat>".
	OutboxPrefix string
	// AllowedSenders restricts who may talk to the agent; empty allows all.
	AllowedSenders []string
	// ConnectTimeout bounds the initial connect.
	ConnectTimeout time.Duration
	// Logger receives connection diagnostics; defaults to NoOpLogger.
	Logger logging.Logger
}

// NATSConnection is a PlatformConnection bridging a NATS subject pair:
// inbound envelopes on the inbox subject become messages, replies publish to
// a per-chat outbox subject.
type NATSConnection struct {
	conn *nats.Conn
	sub  *nats.Subscription
	opts NATSOptions
}

// NewNATSConnection connects to the server and returns the platform.
func NewNATSConnection(optFns ...func(o *NATSOptions)) (*NATSConnection, error) {
	opts := NATSOptions{
		URL:            nats.DefaultURL,
		InboxSubject:   "agenthub.inbox",
		OutboxPrefix:   "agenthub.outbox",
		ConnectTimeout: 10 * time.Second,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	conn, err := nats.Connect(opts.URL,
		nats.Timeout(opts.ConnectTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &NATSConnection{conn: conn, opts: opts}, nil
}

// PlatformName returns "nats".
func (c *NATSConnection) PlatformName() string { return "nats" }

// Start subscribes to the inbox subject and forwards decodable envelopes.
func (c *NATSConnection) Start(_ context.Context, onMessage func(msg InboundMessage)) error {
	sub, err := c.conn.Subscribe(c.opts.InboxSubject, func(m *nats.Msg) {
		var env envelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			c.opts.Logger.Warn("discarding undecodable inbox message", "subject", m.Subject, "error", err)
			return
		}
		onMessage(InboundMessage{
			Platform: c.PlatformName(),
			SenderID: env.Sender,
			ChatID:   env.Chat,
			Text:     env.Text,
		})
	})
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", c.opts.InboxSubject, err)
	}
	c.sub = sub
	return nil
}

// Stop unsubscribes and drains the connection.
func (c *NATSConnection) Stop() error {
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			return fmt.Errorf("unsubscribe: %w", err)
		}
		c.sub = nil
	}
	return c.conn.Drain()
}

// Reply publishes content to the message's per-chat outbox subject.
func (c *NATSConnection) Reply(_ context.Context, content string, msg InboundMessage) error {
	data, err := json.Marshal(envelope{Sender: msg.SenderID, Chat: msg.ChatID, Text: content})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", c.opts.OutboxPrefix, msg.ChatID)
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish reply to %q: %w", subject, err)
	}
	return nil
}

// IsAllowed permits everyone when no allowlist is configured, otherwise only
// listed sender ids.
func (c *NATSConnection) IsAllowed(msg InboundMessage) bool {
	return senderAllowed(c.opts.AllowedSenders, msg.SenderID)
}

func senderAllowed(allowlist []string, senderID string) bool {
	if len(allowlist) == 0 {
		return true
	}
	for _, id := range allowlist {
		if id == senderID {
			return true
		}
	}
	return false
}

var _ PlatformConnection = (*NATSConnection)(nil)
