package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
	defaultBreakerInterval           = 60 * time.Second
)

type BreakerConfig struct {
	// MaxFailures consecutive upstream failures open the circuit.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a half-open probe.
	Timeout time.Duration
}

// BreakerClient fails fast with ErrUnavailable while the upstream keeps failing.
// It does not retry: a call either reaches the inner client once or not at all.
type BreakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker[ChatResponse]
}

func NewBreakerClient(inner Client, cfg BreakerConfig, logger *slog.Logger) *BreakerClient {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	cb := gobreaker.NewCircuitBreaker[ChatResponse](gobreaker.Settings{
		Name:        "llm-upstream",
		MaxRequests: 1,
		Interval:    defaultBreakerInterval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerClient{inner: inner, breaker: cb}
}

func (b *BreakerClient) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	resp, err := b.breaker.Execute(func() (ChatResponse, error) {
		return b.inner.Complete(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ChatResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, err
}

// ListModels bypasses the breaker so the connection test always reaches the provider.
func (b *BreakerClient) ListModels(ctx context.Context) ([]string, error) {
	return b.inner.ListModels(ctx)
}

func (b *BreakerClient) State() string { return b.breaker.State().String() }

var _ Client = (*BreakerClient)(nil)
