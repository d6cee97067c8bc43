package ingest

import (
	"context"
	"fmt"

	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/logging"
	"github.com/hupe1980/agenthub/metrics"
)

// platformFrontend adapts a platform connection into a core.Frontend bound
// to one inbound message: session output and delegation visibility surface
// as replies in the originating chat. Delivery failures are logged and
// swallowed so they never crash the ingestion loop or the session turn.
type platformFrontend struct {
	conn    PlatformConnection
	msg     InboundMessage
	logger  logging.Logger
	metrics *metrics.Metrics
}

func newPlatformFrontend(conn PlatformConnection, msg InboundMessage, logger logging.Logger) *platformFrontend {
	return &platformFrontend{conn: conn, msg: msg, logger: logger, metrics: metrics.Shared()}
}

// Show sends text back to the originating chat.
func (f *platformFrontend) Show(ctx context.Context, text string) error {
	f.reply(ctx, text)
	return nil
}

// BeginDelegation surfaces the start of a recursive dispatch.
func (f *platformFrontend) BeginDelegation(ctx context.Context, agentID string) {
	f.reply(ctx, fmt.Sprintf("[delegating to %s]", agentID))
}

// EndDelegation surfaces the end of a recursive dispatch.
func (f *platformFrontend) EndDelegation(ctx context.Context, agentID string) {
	f.reply(ctx, fmt.Sprintf("[%s finished]", agentID))
}

func (f *platformFrontend) reply(ctx context.Context, content string) {
	if err := f.conn.Reply(ctx, content, f.msg); err != nil {
		f.logger.Warn("reply delivery failed", "platform", f.conn.PlatformName(), "chat_id", f.msg.ChatID, "error", err)
		f.metrics.ReplyErrors.WithLabelValues(f.conn.PlatformName()).Inc()
	}
}

var _ core.Frontend = (*platformFrontend)(nil)
