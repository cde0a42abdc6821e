// Package llm is the boundary to the external text generator. The engine
// talks to the Generator interface; the OpenAI-compatible client behind it is
// one implementation.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stellarlinkco/luma/internal/memory"
)

// ErrGeneration wraps any provider failure that survives the retry policy.
var ErrGeneration = errors.New("generation failed")

// Usage is the provider-reported token accounting for one call.
type Usage struct {
	PromptTokens   int `json:"prompt_tokens"`
	ResponseTokens int `json:"response_tokens"`
	TotalTokens    int `json:"total_tokens"`
}

// Reply is one generated response.
type Reply struct {
	Text         string `json:"text"`
	Usage        Usage  `json:"usage"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Generator produces one reply for a system prompt plus conversation history.
// The history already ends with the user's current message.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, history []memory.Turn) (*Reply, error)
}

const (
	maxAttempts     = 3
	initialInterval = 2 * time.Second
	maxInterval     = 10 * time.Second
)

// GenerateWithRetry wraps a Generate call in a bounded exponential backoff:
// three attempts, starting at two seconds, capped at ten. Context
// cancellation stops the retry loop immediately.
func GenerateWithRetry(ctx context.Context, g Generator, systemPrompt string, history []memory.Turn) (*Reply, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval

	reply, err := backoff.Retry(ctx, func() (*Reply, error) {
		return g.Generate(ctx, systemPrompt, history)
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(maxAttempts))
	if err != nil {
		return nil, errors.Join(ErrGeneration, err)
	}
	return reply, nil
}
