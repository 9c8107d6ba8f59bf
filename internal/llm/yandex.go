package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/Morwran/yagpt"
)

type YandexClient struct {
	ya       yagpt.YaGPTFace
	iamToken string
	timeout  time.Duration
}

func NewYandex(oauthToken, folderID string, timeout time.Duration) (*YandexClient, error) {
	// Create IAM token from OAuth token
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init yandex iam: %w", err)
	}
	resp, err := iam.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create iam token: %w", err)
	}

	// Create YaGPT client for a folder
	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to init yagpt: %w", err)
	}

	return &YandexClient{
		ya:       ya,
		iamToken: resp.IamToken,
		timeout:  timeout,
	}, nil
}

// Complete ignores req.Model: a folder is bound to a single YaGPT model.
func (c *YandexClient) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	messages := make([]yagpt.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, yagpt.Message{Role: m.Role, Content: m.Content})
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.ya.CompletionWithCtx(ctx, c.iamToken, messages)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("yagpt completion failed: %w", classify(err))
	}
	if resp == nil {
		return ChatResponse{}, fmt.Errorf("yagpt returned empty body: %w", ErrProtocol)
	}
	out := ChatResponse{Model: yagpt.YaModelLite}
	for _, alt := range resp.Alternatives {
		out.Choices = append(out.Choices, Choice{Message: Message{Role: RoleAssistant, Content: alt.Message.Content}})
	}
	out.PromptTokens = int(resp.Usage.InputTextTokens)
	out.CompletionTokens = int(resp.Usage.CompletionTokens)
	out.TotalTokens = int(resp.Usage.TotalTokens)
	return out, nil
}

func (c *YandexClient) ListModels(context.Context) ([]string, error) {
	return []string{yagpt.YaModelLite}, nil
}

var _ Client = (*YandexClient)(nil)
