package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/stellarlinkco/luma/internal/config"
	"github.com/stellarlinkco/luma/internal/memory"
)

// OpenAIClient implements Generator over any OpenAI-compatible chat
// completion endpoint.
type OpenAIClient struct {
	client openai.Client
	cfg    config.ProviderConfig
}

func NewOpenAIClient(cfg config.ProviderConfig) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt string, history []memory.Turn) (*Reply, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(systemPrompt))

	for _, turn := range history {
		if turn.Role == memory.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(turn.Content))
		} else {
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.cfg.Model),
		Messages:    messages,
		Temperature: openai.Opt(c.cfg.Temperature),
		TopP:        openai.Opt(c.cfg.TopP),
		MaxTokens:   openai.Opt(int64(c.cfg.MaxOutputTokens)),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty choices")
	}

	choice := resp.Choices[0]
	return &Reply{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:   int(resp.Usage.PromptTokens),
			ResponseTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:    int(resp.Usage.TotalTokens),
		},
	}, nil
}
