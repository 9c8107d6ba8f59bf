package llm

import (
	"context"
	"errors"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrNetwork marks connection failures and timeouts.
	ErrNetwork = errors.New("upstream network failure")
	// ErrProtocol marks non-success statuses and bodies that could not be decoded.
	ErrProtocol = errors.New("upstream protocol failure")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = fmt.Errorf("upstream unavailable: %w", ErrNetwork)
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	// Model empty means the client's default model.
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type Choice struct {
	Message Message `json:"message"`
}

type ChatResponse struct {
	Choices          []Choice `json:"choices"`
	Model            string   `json:"model"`
	PromptTokens     int      `json:"-"`
	CompletionTokens int      `json:"-"`
	TotalTokens      int      `json:"-"`
}

// FirstContent returns the content of the first choice, false when there is none.
func (r ChatResponse) FirstContent() (string, bool) {
	if len(r.Choices) == 0 {
		return "", false
	}
	return r.Choices[0].Message.Content, true
}

// Client issues one synchronous chat completion per call and never retries.
// Every returned error wraps either ErrNetwork or ErrProtocol.
type Client interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
	ListModels(ctx context.Context) ([]string, error)
}
