package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wheelhouse-ai/wheelhouse/internal/stream"
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

// AskHook instruments one Ask call. It receives the user input and
// returns a completion callback invoked exactly once with the final turn
// and error. The zero value (nil) disables instrumentation.
type AskHook func(ctx context.Context, input string) func(turn *models.Turn, err error)

// LoopConfig configures a conversation's agent loop.
type LoopConfig struct {
	// Model is the provider model identifier. Empty uses the provider
	// default.
	Model string

	// Instructions is the system prompt for every round.
	Instructions string

	// MaxRounds bounds the number of provider rounds per Ask call.
	// The natural termination condition, a final message with no tool
	// calls, is controlled by the model and could in principle never
	// trigger. Default: 8.
	MaxRounds int

	// MaxTokens is the per-round response token limit. Default: 4096.
	MaxTokens int

	// Executor configures tool execution.
	Executor ExecutorConfig

	// Hook instruments each Ask call at its boundary.
	Hook AskHook

	// Logger receives loop diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultLoopConfig returns the default loop configuration.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxRounds: 8,
		MaxTokens: 4096,
	}
}

// TurnUpdate is one progress emission from an Ask call: a cloned turn
// snapshot, or a terminal error on the last update.
type TurnUpdate struct {
	Turn *models.Turn
	Err  error
}

// Conversation drives the agent loop for one conversation's history.
//
// A conversation is processed strictly sequentially: a second Ask call
// blocks until the first finishes, because each round must observe the
// complete history of the previous one. Independent conversations share
// nothing and may run in parallel.
type Conversation struct {
	mu       sync.Mutex
	history  []models.Message
	provider Provider
	registry *ToolRegistry
	executor *Executor
	config   LoopConfig
	logger   *slog.Logger
}

// NewConversation creates a conversation bound to a provider and tool
// registry.
func NewConversation(provider Provider, registry *ToolRegistry, config LoopConfig) (*Conversation, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	if registry == nil {
		registry = NewToolRegistry()
	}
	if config.MaxRounds <= 0 {
		config.MaxRounds = DefaultLoopConfig().MaxRounds
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultLoopConfig().MaxTokens
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Conversation{
		history:  nil,
		provider: provider,
		registry: registry,
		executor: NewExecutor(registry, config.Executor, logger),
		config:   config,
		logger:   logger,
	}, nil
}

// History returns a deep copy of the conversation history.
func (c *Conversation) History() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.history))
	for i := range c.history {
		out[i] = *c.history[i].Clone()
	}
	return out
}

// Ask runs the agent loop for one user input.
//
// The returned channel carries cloned turn snapshots for live display:
// one after every stream event, one after every individual tool output,
// and a last update carrying the completed turn or the fatal error. The
// channel is closed when the Ask call is over. History gains the user
// message immediately and each assistant or tool-result message only
// after its round fully completes; a cancelled stream never commits a
// partially assembled message.
func (c *Conversation) Ask(ctx context.Context, input string) (<-chan TurnUpdate, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	updates := make(chan TurnUpdate)
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		defer close(updates)

		var done func(*models.Turn, error)
		if c.config.Hook != nil {
			done = c.config.Hook(ctx, input)
		}

		turn, err := c.ask(ctx, input, updates)
		if done != nil {
			done(turn, err)
		}

		final := TurnUpdate{Turn: turn.Clone(), Err: err}
		select {
		case updates <- final:
		case <-ctx.Done():
		}
	}()
	return updates, nil
}

func (c *Conversation) ask(ctx context.Context, input string, updates chan<- TurnUpdate) (*models.Turn, error) {
	c.history = append(c.history, models.Message{
		ID:        "user_" + uuid.NewString(),
		Role:      models.RoleUser,
		Content:   input,
		CreatedAt: time.Now().UTC(),
	})

	turn := &models.Turn{}
	emit := func() bool {
		select {
		case updates <- TurnUpdate{Turn: turn.Clone()}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for round := 1; ; round++ {
		if round > c.config.MaxRounds {
			return turn, &RoundError{Round: round, Phase: PhaseStream, Cause: ErrMaxRounds}
		}

		msg, err := c.streamRound(ctx, round, turn, emit)
		if err != nil {
			return turn, err
		}

		// Only the fully assembled message enters history.
		msg.CreatedAt = time.Now().UTC()
		c.history = append(c.history, *msg.Clone())
		UpdateTurn(turn, msg)
		if !emit() {
			return turn, ctx.Err()
		}

		if turn.Final != nil {
			c.logger.Debug("turn complete", "rounds", round, "steps", len(turn.Steps))
			return turn, nil
		}

		for _, step := range turn.PendingSteps() {
			toolMsg, err := c.executor.RunStep(ctx, step, func() { emit() })
			if err != nil {
				return turn, &RoundError{Round: round, Phase: PhaseExecuteTools, Cause: err}
			}
			c.history = append(c.history, *toolMsg.Clone())
		}
		if ctx.Err() != nil {
			return turn, ctx.Err()
		}
	}
}

// streamRound runs one provider call, folding its event stream through
// the assembler and yielding a snapshot after every event. It returns
// the authoritative assistant message for the round.
func (c *Conversation) streamRound(ctx context.Context, round int, turn *models.Turn, emit func() bool) (*models.Message, error) {
	req := &CompletionRequest{
		Model:        c.config.Model,
		Instructions: c.config.Instructions,
		Messages:     c.historySnapshot(),
		Tools:        c.registry.Defs(),
		MaxTokens:    c.config.MaxTokens,
	}

	events, err := c.provider.Stream(ctx, req)
	if err != nil {
		return nil, &RoundError{Round: round, Phase: PhaseStream, Cause: err}
	}

	asm := stream.NewAssembler()
	for pe := range events {
		if pe.Err != nil {
			return nil, &RoundError{Round: round, Phase: PhaseStream, Cause: pe.Err}
		}
		if pe.Event == nil {
			continue
		}
		snap, err := asm.AddEvent(*pe.Event)
		if err != nil {
			return nil, &RoundError{Round: round, Phase: PhaseStream, Cause: err}
		}

		// Re-translate the growing snapshot for live display. A
		// snapshot that does not translate yet is skipped, not fatal;
		// only the terminal response must translate.
		if msg, err := stream.ToMessage(snap); err == nil {
			UpdateTurn(turn, msg)
			if !emit() {
				return nil, ctx.Err()
			}
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	resp, err := asm.Response()
	if err != nil {
		return nil, &RoundError{Round: round, Phase: PhaseStream, Cause: err}
	}
	msg, err := stream.ToMessage(resp)
	if err != nil {
		return nil, &RoundError{Round: round, Phase: PhaseTranslate, Cause: err}
	}
	if msg.ID == "" {
		return nil, &RoundError{Round: round, Phase: PhaseTranslate,
			Cause: fmt.Errorf("provider response carries no message identifier")}
	}
	return msg, nil
}

func (c *Conversation) historySnapshot() []models.Message {
	out := make([]models.Message, len(c.history))
	for i := range c.history {
		out[i] = *c.history[i].Clone()
	}
	return out
}
