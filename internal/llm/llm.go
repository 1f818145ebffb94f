// Package llm provides the structured-output capability shared by query
// extraction, reranking, and explanation generation: send a prompt plus a
// JSON schema, get back a value conforming to that schema.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/recruitflow/talent-search/pkg/config"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
)

// Thinking controls effort/latency of the underlying call, not its contract.
type Thinking string

const (
	ThinkingFast     Thinking = "fast"
	ThinkingBalanced Thinking = "balanced"
	ThinkingAccurate Thinking = "accurate"
)

// ParseThinking normalizes a user-supplied thinking level, falling back to
// the given default for empty or unknown values.
func ParseThinking(s string, def Thinking) Thinking {
	switch Thinking(strings.ToLower(s)) {
	case ThinkingFast:
		return ThinkingFast
	case ThinkingBalanced:
		return ThinkingBalanced
	case ThinkingAccurate:
		return ThinkingAccurate
	}
	return def
}

// StructuredClient produces schema-conforming JSON from prompts.
type StructuredClient interface {
	StructuredOutput(ctx context.Context, prompt string, schemaName string, schema json.RawMessage, thinking Thinking, out any) error
}

// OpenAIClient implements StructuredClient over an OpenAI-compatible chat
// completions API with json_schema response format.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIClient creates the client from config.
func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: slog.Default().With("component", "llm", "model", cfg.Model),
	}
}

// StructuredOutput sends the prompt with a json_schema response format and
// unmarshals the reply into out.
func (c *OpenAIClient) StructuredOutput(ctx context.Context, prompt string, schemaName string, schema json.RawMessage, thinking Thinking, out any) error {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
			},
		},
	}
	if c.supportsReasoning() {
		req.ReasoningEffort = effortFor(thinking)
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: chat completion: %v", apperrors.ErrInternal, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return fmt.Errorf("%w: empty completion response", apperrors.ErrInternal)
	}

	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: decoding structured output: %v", apperrors.ErrInternal, err)
	}
	c.logger.Debug("structured output complete",
		"schema", schemaName,
		"thinking", string(thinking),
		"tokens", resp.Usage.TotalTokens,
	)
	return nil
}

// supportsReasoning reports whether the configured model accepts a
// reasoning_effort parameter.
func (c *OpenAIClient) supportsReasoning() bool {
	model := strings.ToLower(c.model)
	return strings.HasPrefix(model, "o1") ||
		strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "gpt-5")
}

func effortFor(t Thinking) string {
	switch t {
	case ThinkingFast:
		return "low"
	case ThinkingAccurate:
		return "high"
	default:
		return "medium"
	}
}
