package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/recruitflow/talent-search/pkg/config"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
	"github.com/recruitflow/talent-search/pkg/metrics"
)

// OpenAIDense is a dense embedding provider backed by an OpenAI-compatible
// embeddings API.
type OpenAIDense struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewOpenAIDense creates the provider from config. metrics may be nil.
func NewOpenAIDense(cfg config.EmbeddingConfig, m *metrics.Metrics) *OpenAIDense {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIDense{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		metrics:    m,
		logger:     slog.Default().With("component", "dense-embedder", "model", cfg.Model),
	}
}

// Embed returns the dense vector for text.
func (p *OpenAIDense) Embed(ctx context.Context, text string, inputType InputType) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          p.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if p.dimensions > 0 {
		req.Dimensions = p.dimensions
	}

	start := time.Now()
	resp, err := p.client.CreateEmbeddings(ctx, req)
	if p.metrics != nil {
		p.metrics.EmbeddingLatency.WithLabelValues("dense").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.EmbeddingErrorsTotal.WithLabelValues("dense").Inc()
		}
		return nil, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		if p.metrics != nil {
			p.metrics.EmbeddingErrorsTotal.WithLabelValues("dense").Inc()
		}
		return nil, fmt.Errorf("%w: empty embedding response", apperrors.ErrEmbedding)
	}

	p.logger.Debug("embedded text",
		"input_type", string(inputType),
		"tokens", resp.Usage.TotalTokens,
	)
	return resp.Data[0].Embedding, nil
}

// HealthCheck verifies API reachability via the models endpoint.
func (p *OpenAIDense) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a readable message from the API response, wrapping
// everything with the embedding sentinel for status-code mapping.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: API error %d: %s", apperrors.ErrEmbedding,
			reqErr.HTTPStatusCode, string(reqErr.Body))
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: API error %d: %s", apperrors.ErrEmbedding,
			apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrEmbedding, err)
}
