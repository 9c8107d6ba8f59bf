package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privacy-chatter/internal/gate"
	"privacy-chatter/internal/history"
	"privacy-chatter/internal/llm"
	"privacy-chatter/internal/storage"
)

// scriptedLLM answers topic checks with gateReply and main completions with mainReply.
type scriptedLLM struct {
	gateReply string
	gateErr   error
	mainReply string
	mainEmpty bool
	mainErr   error

	gateCalls []llm.ChatRequest
	mainCalls []llm.ChatRequest
}

func isGateRequest(req llm.ChatRequest) bool {
	return len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, `"confidence"`)
}

func (f *scriptedLLM) Complete(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if isGateRequest(req) {
		f.gateCalls = append(f.gateCalls, req)
		if f.gateErr != nil {
			return llm.ChatResponse{}, f.gateErr
		}
		return reply(f.gateReply), nil
	}
	f.mainCalls = append(f.mainCalls, req)
	if f.mainErr != nil {
		return llm.ChatResponse{}, f.mainErr
	}
	if f.mainEmpty {
		return llm.ChatResponse{}, nil
	}
	return reply(f.mainReply), nil
}

func (f *scriptedLLM) ListModels(context.Context) ([]string, error) { return nil, nil }

func reply(content string) llm.ChatResponse {
	return llm.ChatResponse{Choices: []llm.Choice{{Message: llm.Message{Role: llm.RoleAssistant, Content: content}}}}
}

func newService(f *scriptedLLM, rec storage.Recorder) (*Service, *history.Manager) {
	h := history.NewManager("")
	return New(h, f, gate.New(f, gate.Options{}), Options{Model: "main-model", Recorder: rec}), h
}

func TestGreetingShortCircuits(t *testing.T) {
	f := &scriptedLLM{}
	s, h := newService(f, nil)

	for _, prompt := range []string{"Hej", "Cześć", "dzień dobry "} {
		turn := s.Chat(context.Background(), "u1", prompt)
		assert.Equal(t, storage.OutcomeGreeting, turn.Outcome, prompt)
		assert.Nil(t, turn.Decision)
		assert.NotEmpty(t, turn.Reply)
	}
	assert.Empty(t, f.gateCalls, "greetings must not reach the topic check")
	assert.Empty(t, f.mainCalls)

	msgs := h.Get("u1")
	require.Len(t, msgs, 7)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "dzień dobry "}, msgs[5], "original text is stored")
}

func TestPurposeQueryShortCircuits(t *testing.T) {
	f := &scriptedLLM{}
	s, _ := newService(f, nil)

	turn := s.Chat(context.Background(), "u1", "Co potrafisz?")
	assert.Equal(t, storage.OutcomePurpose, turn.Outcome)
	assert.Empty(t, f.gateCalls)
	assert.Empty(t, f.mainCalls)
}

func TestOffTopicIsRejected(t *testing.T) {
	f := &scriptedLLM{gateReply: `{"confidence": 20}`}
	s, h := newService(f, nil)

	turn := s.Chat(context.Background(), "u1", "What's the weather?")
	assert.Equal(t, RejectionMessage, turn.Reply)
	assert.Equal(t, storage.OutcomeRejected, turn.Outcome)
	require.NotNil(t, turn.Decision)
	assert.Equal(t, 20, turn.Decision.Confidence)
	assert.Len(t, f.gateCalls, 1)
	assert.Empty(t, f.mainCalls, "rejected prompts must not reach the main completion")

	msgs := h.Get("u1")
	require.Len(t, msgs, 3)
	assert.Equal(t, RejectionMessage, msgs[2].Content)
}

func TestAcceptedTurnsGrowHistoryByTwo(t *testing.T) {
	f := &scriptedLLM{gateReply: `{"confidence": 75}`, mainReply: "Pseudonimizacja zastępuje identyfikatory..."}
	s, h := newService(f, nil)

	got := s.Reply(context.Background(), "u1", "Czym jest pseudonimizacja?")
	assert.Equal(t, "Pseudonimizacja zastępuje identyfikatory...", got)
	require.Len(t, h.Get("u1"), 3)

	require.Len(t, f.mainCalls, 1)
	main := f.mainCalls[0]
	assert.Equal(t, "main-model", main.Model)
	require.Len(t, main.Messages, 2)
	assert.Equal(t, llm.RoleSystem, main.Messages[0].Role)
	assert.Equal(t, history.DefaultPersona, main.Messages[0].Content)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "Czym jest pseudonimizacja?"}, main.Messages[1])

	f.mainReply = "Tak, na przykład hashowanie z solą."
	s.Reply(context.Background(), "u1", "A możesz podać przykład?")
	msgs := h.Get("u1")
	require.Len(t, msgs, 5)
	assert.Equal(t, []string{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant, llm.RoleUser, llm.RoleAssistant}, roles(msgs))

	// second main call carries the previous turn
	require.Len(t, f.mainCalls, 2)
	assert.Len(t, f.mainCalls[1].Messages, 4)
	// the topic check sees history before the new message
	require.Len(t, f.gateCalls, 2)
	assert.Len(t, f.gateCalls[1].Messages, 1+3+1)
}

func TestMainFailureReturnsApology(t *testing.T) {
	for _, err := range []error{
		fmt.Errorf("dial tcp: %w", llm.ErrNetwork),
		fmt.Errorf("status 500: %w", llm.ErrProtocol),
	} {
		f := &scriptedLLM{gateReply: `{"confidence": 90}`, mainErr: err}
		rec := storage.NewMemoryRecorder()
		s, h := newService(f, rec)

		turn := s.Chat(context.Background(), "u1", "Jak anonimizować adresy e-mail?")
		assert.Equal(t, ApologyMessage, turn.Reply)
		assert.Equal(t, storage.OutcomeFailed, turn.Outcome)

		msgs := h.Get("u1")
		require.Len(t, msgs, 3)
		assert.Equal(t, ApologyMessage, msgs[2].Content)

		events, _ := rec.LoadInteractions()
		require.Len(t, events, 1)
		assert.Equal(t, storage.OutcomeFailed, events[0].Outcome)
	}
}

func TestNoChoicesUsesPlaceholder(t *testing.T) {
	f := &scriptedLLM{gateReply: `{"confidence": 90}`, mainEmpty: true}
	s, _ := newService(f, nil)
	assert.Equal(t, NoAnswerMessage, s.Reply(context.Background(), "u1", "Co to jest RODO?"))
}

func TestGateFailureFailsOpen(t *testing.T) {
	f := &scriptedLLM{gateErr: llm.ErrNetwork, mainReply: "Odpowiedź"}
	s, _ := newService(f, nil)

	turn := s.Chat(context.Background(), "u1", "Jak maskować numery PESEL?")
	assert.Equal(t, "Odpowiedź", turn.Reply)
	require.NotNil(t, turn.Decision)
	assert.Equal(t, gate.ReasonFailOpen, turn.Decision.Reason)
	assert.Len(t, f.mainCalls, 1)
}

func TestUnparseableGateReplyFallsBackToKeywords(t *testing.T) {
	f := &scriptedLLM{gateReply: "I think it's fine", mainReply: "Odpowiedź"}
	s, _ := newService(f, nil)
	turn := s.Chat(context.Background(), "u1", "Czy mogę przechowywać IP?")
	assert.Equal(t, storage.OutcomeAnswered, turn.Outcome)
	assert.Equal(t, gate.ReasonKeywords, turn.Decision.Reason)

	f.gateReply = "Rejected, unrelated."
	turn = s.Chat(context.Background(), "u1", "Przepis na pierogi")
	assert.Equal(t, storage.OutcomeRejected, turn.Outcome)
}

// systemlessStore drops system messages to exercise persona reinjection.
type systemlessStore struct {
	*history.Manager
}

func (s systemlessStore) Get(userID string) []llm.Message {
	var out []llm.Message
	for _, m := range s.Manager.Get(userID) {
		if m.Role != llm.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

func TestPersonaIsReinjected(t *testing.T) {
	f := &scriptedLLM{gateReply: `{"confidence": 80}`, mainReply: "ok"}
	store := systemlessStore{history.NewManager("persona")}
	s := New(store, f, gate.New(f, gate.Options{}), Options{})

	s.Reply(context.Background(), "u1", "Czym jest k-anonimowość?")
	require.Len(t, f.mainCalls, 1)
	first := f.mainCalls[0].Messages[0]
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: "persona"}, first)
}

func TestRecorderCapturesOutcomesAndConfidence(t *testing.T) {
	f := &scriptedLLM{gateReply: `{"confidence": 64}`, mainReply: "Odpowiedź"}
	rec := storage.NewMemoryRecorder()
	s, _ := newService(f, rec)

	s.Reply(context.Background(), "u1", "hej")
	s.Reply(context.Background(), "u1", "Jak zanonimizować kolumnę nazwisko?")

	events, err := rec.LoadInteractions()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, storage.OutcomeGreeting, events[0].Outcome)
	assert.Nil(t, events[0].Confidence)
	assert.Equal(t, storage.OutcomeAnswered, events[1].Outcome)
	require.NotNil(t, events[1].Confidence)
	assert.Equal(t, 64, *events[1].Confidence)
}

type failingRecorder struct{}

func (failingRecorder) AppendInteraction(storage.Event) error { return errors.New("disk full") }
func (failingRecorder) LoadInteractions() ([]storage.Event, error) { return nil, nil }
func (failingRecorder) LoadRange(time.Time, time.Time) ([]storage.Event, error) {
	return nil, nil
}

func TestRecorderErrorsAreIgnored(t *testing.T) {
	f := &scriptedLLM{}
	s, h := newService(f, failingRecorder{})
	assert.NotEmpty(t, s.Reply(context.Background(), "u1", "cześć"))
	assert.Len(t, h.Get("u1"), 3)
}

func TestReset(t *testing.T) {
	f := &scriptedLLM{gateReply: `{"confidence": 99}`, mainReply: "x"}
	s, _ := newService(f, nil)
	s.Reply(context.Background(), "u1", "Co to jest anonimizacja?")
	s.Reply(context.Background(), "u1", "hej")
	require.Len(t, s.History("u1"), 5)

	s.Reset("u1")
	msgs := s.History("u1")
	require.Len(t, msgs, 1)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
}

func roles(msgs []llm.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}
