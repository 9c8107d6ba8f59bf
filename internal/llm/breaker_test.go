package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	calls int
	err   error
	resp  ChatResponse
}

func (s *stubClient) Complete(context.Context, ChatRequest) (ChatResponse, error) {
	s.calls++
	return s.resp, s.err
}

func (s *stubClient) ListModels(context.Context) ([]string, error) { return []string{"m"}, nil }

func TestBreakerPassesThrough(t *testing.T) {
	inner := &stubClient{resp: ChatResponse{Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: "ok"}}}}}
	b := NewBreakerClient(inner, BreakerConfig{}, slog.Default())

	resp, err := b.Complete(context.Background(), ChatRequest{})
	require.NoError(t, err)
	content, _ := resp.FirstContent()
	assert.Equal(t, "ok", content)
	assert.Equal(t, "closed", b.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubClient{err: fmt.Errorf("dial: %w", ErrNetwork)}
	b := NewBreakerClient(inner, BreakerConfig{MaxFailures: 2, Timeout: time.Minute}, slog.Default())

	for i := 0; i < 2; i++ {
		_, err := b.Complete(context.Background(), ChatRequest{})
		require.Error(t, err)
		assert.True(t, IsNetwork(err))
	}
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "open", b.State())

	_, err := b.Complete(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, IsNetwork(err), "open circuit counts as a network failure")
	assert.Equal(t, 2, inner.calls, "inner client must not be called while open")
}

func TestBreakerListModelsBypasses(t *testing.T) {
	inner := &stubClient{err: ErrProtocol}
	b := NewBreakerClient(inner, BreakerConfig{MaxFailures: 1}, nil)
	_, _ = b.Complete(context.Background(), ChatRequest{})
	require.Equal(t, "open", b.State())

	ids, err := b.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, ids)
}
