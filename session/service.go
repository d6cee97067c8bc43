package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/delegate"
	"github.com/hupe1980/agenthub/logging"
	"github.com/hupe1980/agenthub/model"
)

// delegatePrefix marks a model reply that requests a recursive dispatch.
// The directive format is "DELEGATE <agent_id>: <message>" on the first line.
const delegatePrefix = "DELEGATE "

// Options holds dependency + configuration overrides passed to NewService().
type Options struct {
	// BackgroundHistoryDepth caps how many prior messages a background-mode
	// turn sends to the model. Chat mode always sends the full history.
	BackgroundHistoryDepth int
	// Delegate handles delegation directives found in model replies. Nil
	// disables delegation.
	Delegate *delegate.Client
	// Logger receives session diagnostics; defaults to NoOpLogger.
	Logger logging.Logger
}

// Service is a volatile core.SessionService keeping per-session conversation
// history in a process-local map. It is safe for concurrent access and best
// suited for tests or single-process deployments; durable backends implement
// the same contract.
type Service struct {
	chatModel model.ChatModel

	backgroundHistoryDepth int
	delegate               *delegate.Client
	logger                 logging.Logger

	mu        sync.RWMutex
	histories map[string]*history
}

// NewService constructs a Service running turns against chatModel.
func NewService(chatModel model.ChatModel, optFns ...func(o *Options)) *Service {
	opts := Options{
		BackgroundHistoryDepth: 8,
		Logger:                 logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Service{
		chatModel:              chatModel,
		backgroundHistoryDepth: opts.BackgroundHistoryDepth,
		delegate:               opts.Delegate,
		logger:                 opts.Logger,
		histories:              make(map[string]*history),
	}
}

// Create starts a new session. An empty sessionID generates one; a non-empty
// id is adopted as-is, overwriting any previous history under that id.
func (s *Service) Create(_ context.Context, def *core.AgentDefinition, mode core.Mode, sessionID string) (core.Session, error) {
	if sessionID == "" {
		sessionID = core.NewID()
	}

	s.mu.Lock()
	h := &history{mode: mode}
	s.histories[sessionID] = h
	s.mu.Unlock()

	return &chatSession{service: s, def: def, mode: mode, id: sessionID, hist: h}, nil
}

// Resume reopens an existing session's history. The session keeps the mode it
// was created with, so a resumed background session still uses the capped
// history window.
func (s *Service) Resume(_ context.Context, def *core.AgentDefinition, sessionID string) (core.Session, error) {
	s.mu.RLock()
	h, ok := s.histories[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, core.ErrSessionNotFound)
	}
	return &chatSession{service: s, def: def, mode: h.mode, id: sessionID, hist: h}, nil
}

// Delete discards a session's history. Resuming the id afterwards fails with
// core.ErrSessionNotFound until a new session is created under it.
func (s *Service) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.histories, sessionID)
	s.mu.Unlock()
}

// history is the ordered list of prior turns for one session, together with
// the mode the session was created in.
type history struct {
	mode core.Mode

	mu    sync.Mutex
	turns []model.Message
}

// window returns up to depth most recent turns (0 = all) plus the space for
// the appended user message.
func (h *history) window(depth int) []model.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := h.turns
	if depth > 0 && len(turns) > depth {
		turns = turns[len(turns)-depth:]
	}
	out := make([]model.Message, len(turns))
	copy(out, turns)
	return out
}

func (h *history) append(turns ...model.Message) {
	h.mu.Lock()
	h.turns = append(h.turns, turns...)
	h.mu.Unlock()
}

// chatSession runs conversational turns for one session id. A session is
// owned by the single executor currently running it.
type chatSession struct {
	service *Service
	def     *core.AgentDefinition
	mode    core.Mode
	id      string
	hist    *history
}

// ID returns the session's stable identifier.
func (c *chatSession) ID() string { return c.id }

// Chat runs one turn: it sends the history window plus the user message to
// the model, resolves at most one delegation directive, records the exchange
// and surfaces the reply on the frontend.
func (c *chatSession) Chat(ctx context.Context, message string, frontend core.Frontend) (string, error) {
	if frontend == nil {
		frontend = core.SilentFrontend{}
	}

	depth := 0
	if c.mode == core.ModeBackground {
		depth = c.service.backgroundHistoryDepth
	}

	messages := append(c.hist.window(depth), model.Message{Role: "user", Text: message})

	reply, err := c.generate(ctx, messages)
	if err != nil {
		return "", err
	}

	if target, request, ok := parseDelegation(reply); ok && c.service.delegate != nil {
		reply, err = c.runDelegation(ctx, frontend, messages, reply, target, request)
		if err != nil {
			return "", err
		}
	}

	c.hist.append(
		model.Message{Role: "user", Text: message},
		model.Message{Role: "assistant", Text: reply},
	)

	if err := frontend.Show(ctx, reply); err != nil {
		c.service.logger.Warn("frontend delivery failed", "session_id", c.id, "error", err)
	}
	return reply, nil
}

// runDelegation dispatches the directive's request to the target agent and
// asks the model to finish the turn with the delegate's result (or its
// failure) in context.
func (c *chatSession) runDelegation(
	ctx context.Context,
	frontend core.Frontend,
	messages []model.Message,
	directive string,
	target, request string,
) (string, error) {
	c.service.logger.Info("session requested delegation", "session_id", c.id, "target", target)

	result, err := c.service.delegate.Dispatch(ctx, frontend, target, request)
	if err != nil {
		result = fmt.Sprintf("the delegation failed: %v", err)
	}

	followup := append(messages,
		model.Message{Role: "assistant", Text: directive},
		model.Message{Role: "user", Text: fmt.Sprintf("Result from agent %q: %s", target, result)},
	)
	return c.generate(ctx, followup)
}

func (c *chatSession) generate(ctx context.Context, messages []model.Message) (string, error) {
	resp, err := c.service.chatModel.Generate(ctx, &model.Request{
		Model:    c.def.Model,
		System:   c.def.Instruction,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	return resp.Text, nil
}

// parseDelegation recognizes a delegation directive in a model reply. The
// directive must be the reply's first line: "DELEGATE <agent_id>: <message>".
func parseDelegation(reply string) (agentID, message string, ok bool) {
	line, _, _ := strings.Cut(strings.TrimSpace(reply), "\n")
	if !strings.HasPrefix(line, delegatePrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(line, delegatePrefix)
	agentID, message, found := strings.Cut(rest, ":")
	agentID = strings.TrimSpace(agentID)
	message = strings.TrimSpace(message)
	if !found || agentID == "" || message == "" {
		return "", "", false
	}
	return agentID, message, true
}
