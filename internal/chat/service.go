package chat

import (
	"context"
	"log/slog"
	"time"

	"privacy-chatter/internal/gate"
	"privacy-chatter/internal/llm"
	"privacy-chatter/internal/storage"
)

const (
	RejectionMessage = "Prompt spoza zakresu aplikacji."
	NoAnswerMessage  = "Brak odpowiedzi"
	ApologyMessage   = "Przepraszam, nie udało się teraz uzyskać odpowiedzi. Spróbuj ponownie za chwilę."
)

// Store is the per-user conversation memory.
type Store interface {
	Ensure(userID string)
	Get(userID string) []llm.Message
	Append(userID, userText, assistantText string)
	Reset(userID string)
	Persona() string
}

// Turn is the result of one user message.
type Turn struct {
	Reply   string
	Outcome storage.Outcome
	// Decision is nil when a fast-path reply skipped the topic check.
	Decision *gate.Decision
}

type Options struct {
	// Model for the main completion; empty uses the client's default.
	Model    string
	Recorder storage.Recorder
	Logger   *slog.Logger
}

// Service answers user messages within the assistant's topic.
type Service struct {
	store    Store
	client   llm.Client
	gate     *gate.Gate
	model    string
	recorder storage.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func New(store Store, client llm.Client, g *gate.Gate, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:    store,
		client:   client,
		gate:     g,
		model:    opts.Model,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Chat runs one turn. It never returns an error: upstream failures become
// ApologyMessage and every turn, whatever its outcome, lands in history.
func (s *Service) Chat(ctx context.Context, userID, prompt string) Turn {
	log := s.logger.With("user_id", userID)
	s.store.Ensure(userID)

	if fast, ok := s.gate.FastPath(gate.Normalize(prompt)); ok {
		log.Info("fast-path reply", "kind", fast.Kind)
		outcome := storage.OutcomeGreeting
		if fast.Kind == gate.FastPurpose {
			outcome = storage.OutcomePurpose
		}
		return s.finish(userID, prompt, Turn{Reply: fast.Text, Outcome: outcome})
	}

	history := s.store.Get(userID)
	decision := s.gate.Check(ctx, history, prompt)
	log.Info("topic check", "allowed", decision.Allowed, "reason", decision.Reason, "confidence", decision.Confidence)
	if !decision.Allowed {
		return s.finish(userID, prompt, Turn{Reply: RejectionMessage, Outcome: storage.OutcomeRejected, Decision: &decision})
	}

	messages := append(history, llm.Message{Role: llm.RoleUser, Content: prompt})
	messages = s.withPersona(messages)
	log.Debug("main completion", "messages", len(messages), "prompt", prompt)

	resp, err := s.client.Complete(ctx, llm.ChatRequest{Model: s.model, Messages: messages})
	if err != nil {
		log.Error("main completion failed", "error", err, "network", llm.IsNetwork(err))
		return s.finish(userID, prompt, Turn{Reply: ApologyMessage, Outcome: storage.OutcomeFailed, Decision: &decision})
	}
	log.Info("llm response", "model", resp.Model, "prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens, "total_tokens", resp.TotalTokens)

	reply, ok := resp.FirstContent()
	if !ok {
		reply = NoAnswerMessage
	}
	return s.finish(userID, prompt, Turn{Reply: reply, Outcome: storage.OutcomeAnswered, Decision: &decision})
}

// Reply is Chat without the turn metadata.
func (s *Service) Reply(ctx context.Context, userID, prompt string) string {
	return s.Chat(ctx, userID, prompt).Reply
}

func (s *Service) Reset(userID string) {
	s.store.Reset(userID)
	s.logger.Info("conversation reset", "user_id", userID)
}

func (s *Service) History(userID string) []llm.Message {
	return s.store.Get(userID)
}

// withPersona puts the persona message first when no system message is present.
func (s *Service) withPersona(messages []llm.Message) []llm.Message {
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			return messages
		}
	}
	return append([]llm.Message{{Role: llm.RoleSystem, Content: s.store.Persona()}}, messages...)
}

func (s *Service) finish(userID, prompt string, turn Turn) Turn {
	s.store.Append(userID, prompt, turn.Reply)
	if s.recorder == nil {
		return turn
	}
	ev := storage.Event{
		Timestamp:         s.now().UTC(),
		UserID:            userID,
		UserMessage:       prompt,
		AssistantResponse: turn.Reply,
		Outcome:           turn.Outcome,
	}
	if turn.Decision != nil && turn.Decision.HasConfidence {
		c := turn.Decision.Confidence
		ev.Confidence = &c
	}
	if err := s.recorder.AppendInteraction(ev); err != nil {
		s.logger.Warn("failed to record interaction", "user_id", userID, "error", err)
	}
	return turn
}
