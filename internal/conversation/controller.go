package conversation

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"vectorchat/internal/completion"
	"vectorchat/internal/domain"
)

const DefaultSystemPrompt = "You are a helpful assistant that can answer questions based on provided context or general knowledge. " +
	"If context is provided, prioritize that information in your answers. " +
	"If no context is provided or the question is outside the scope of the context, " +
	"use your general knowledge to provide a helpful response. " +
	"Always be honest about what you know and don't know."

// ContextPreamble prefixes retrieved context injected as a system message.
const ContextPreamble = "Here is some relevant context to help answer the question. " +
	"Use this information if it's helpful for answering the question:\n"

// State is the phase of the current turn.
type State int

const (
	// StateIdle means no turn has run since the controller was created.
	StateIdle State = iota
	// StateAwaitingInput is entered after a turn finishes or the history is reset.
	StateAwaitingInput
	StateContextLookup
	StateAwaitingCompletion
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateContextLookup:
		return "context_lookup"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	}
	return "unknown"
}

// ResetMode selects what Reset keeps.
type ResetMode int

const (
	// ResetSoft keeps system messages.
	ResetSoft ResetMode = iota
	// ResetHard clears the whole history.
	ResetHard
)

// ContextRetriever supplies formatted context for a query.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, query string, topK int, scoreThreshold float64) (string, bool, error)
}

type Options struct {
	TopK           int
	ScoreThreshold float64
	// Temperature is sent with every completion request as is, zero included.
	Temperature float64
	// SystemPrompt seeds the history when non-empty.
	SystemPrompt string
	Logger       *log.Logger
}

// Reply is the outcome of one user turn.
type Reply struct {
	Content     string
	UsedContext bool
}

// Controller owns the message history of one chat session. It is not safe
// for concurrent use.
type Controller struct {
	completer completion.Completer
	retriever ContextRetriever
	opts      Options
	history   []domain.Message
	state     State
	sessionID string
	logger    *log.Logger
}

// New creates a controller. A nil retriever disables context lookup.
func New(completer completion.Completer, retriever ContextRetriever, opts Options) *Controller {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	sessionID := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Controller{
		completer: completer,
		retriever: retriever,
		opts:      opts,
		sessionID: sessionID,
		logger:    logger.With("session", sessionID),
	}
	if opts.SystemPrompt != "" {
		c.AddMessage(domain.RoleSystem, opts.SystemPrompt)
	}
	return c
}

func (c *Controller) SessionID() string { return c.sessionID }

func (c *Controller) State() State { return c.state }

// RetrievalEnabled reports whether turns look up context.
func (c *Controller) RetrievalEnabled() bool { return c.retriever != nil }

// AddMessage appends a message without validation.
func (c *Controller) AddMessage(role domain.Role, content string) {
	c.history = append(c.history, domain.Message{Role: role, Content: content})
}

// History returns a copy of the messages in order.
func (c *Controller) History() []domain.Message {
	out := make([]domain.Message, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Controller) Reset(mode ResetMode) {
	if mode == ResetHard {
		c.history = nil
	} else {
		kept := c.history[:0]
		for _, m := range c.history {
			if m.Role == domain.RoleSystem {
				kept = append(kept, m)
			}
		}
		c.history = kept
	}
	c.state = StateAwaitingInput
	c.logger.Debug("conversation reset", "hard", mode == ResetHard, "kept", len(c.history))
}

// GetResponse sends the full history and appends the reply on success.
// On failure the history is left untouched.
func (c *Controller) GetResponse(ctx context.Context, temperature float64) (string, error) {
	content, err := c.completer.Complete(ctx, c.History(), temperature)
	if err != nil {
		return "", errors.Wrap(err, "get response")
	}
	c.AddMessage(domain.RoleAssistant, content)
	return content, nil
}

// Turn handles one user query: it records the query, optionally injects
// retrieved context as a system message and requests a completion. A failed
// lookup is logged and the turn proceeds without context.
func (c *Controller) Turn(ctx context.Context, query string) (Reply, error) {
	defer func() { c.state = StateAwaitingInput }()

	c.AddMessage(domain.RoleUser, query)

	used := false
	if c.retriever != nil {
		c.state = StateContextLookup
		text, found, err := c.retriever.RetrieveContext(ctx, query, c.opts.TopK, c.opts.ScoreThreshold)
		switch {
		case err != nil:
			c.logger.Error("context lookup failed", "err", err)
		case found:
			c.AddMessage(domain.RoleSystem, ContextPreamble+text)
			used = true
		}
	}

	c.state = StateAwaitingCompletion
	content, err := c.GetResponse(ctx, c.opts.Temperature)
	if err != nil {
		c.logger.Error("error getting response", "err", err)
		return Reply{UsedContext: used}, err
	}
	return Reply{Content: content, UsedContext: used}, nil
}
