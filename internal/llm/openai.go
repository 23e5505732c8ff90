// Package llm wraps the text-generation and embedding collaborators. The
// pipeline only sees the two small interfaces; any transport failure,
// malformed output or empty response is reported as an error and handled by
// the caller's fallback policy.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Completer turns one prompt into one text response.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder turns one input text into a query embedding.
type Embedder interface {
	Embed(ctx context.Context, input string) ([]float32, error)
}

type OpenAIClient struct {
	client     *openai.Client
	chatModel  string
	embedModel string
	timeout    time.Duration
}

func NewOpenAIClient(apiKey, chatModel, embedModel string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is missing")
	}
	return &OpenAIClient{
		client:     openai.NewClient(apiKey),
		chatModel:  chatModel,
		embedModel: embedModel,
		timeout:    timeout,
	}, nil
}

// withTimeout bounds a single API call; a zero timeout leaves the caller's
// context as-is.
func (c *OpenAIClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, input string) ([]float32, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{input},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response is empty")
	}
	return resp.Data[0].Embedding, nil
}

// ExtractJSON cuts the first '{' .. last '}' span out of a raw completion,
// tolerating prose or code fences around the object.
func ExtractJSON(raw string) ([]byte, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		snippet := raw
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		return nil, fmt.Errorf("LLM did not return JSON: %q", snippet)
	}
	return []byte(raw[start : end+1]), nil
}

var (
	_ Completer = (*OpenAIClient)(nil)
	_ Embedder  = (*OpenAIClient)(nil)
)
