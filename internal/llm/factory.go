package llm

import (
	"fmt"
	"log/slog"
	"strings"

	"privacy-chatter/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderYandex = "yandex"
)

// NewClient creates the upstream client for the configured provider, wrapped in a circuit breaker.
func NewClient(cfg *config.Config, logger *slog.Logger) (*BreakerClient, error) {
	var inner Client
	switch strings.ToLower(string(cfg.LLMProvider)) {
	case ProviderOpenAI:
		inner = NewOpenAI(OpenAIOptions{
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    cfg.OpenAIModel,
			Timeout:  cfg.UpstreamTimeout,
			Referrer: cfg.OpenRouterReferrer,
			Title:    cfg.OpenRouterTitle,
		})
	case ProviderYandex:
		ya, err := NewYandex(cfg.YandexOAuthToken, cfg.YandexFolderID, cfg.UpstreamTimeout)
		if err != nil {
			return nil, err
		}
		inner = ya
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
	return NewBreakerClient(inner, BreakerConfig{
		MaxFailures: cfg.BreakerMaxFailures,
		Timeout:     cfg.BreakerOpenTimeout,
	}, logger), nil
}
