package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds configuration for the embedding service.
type Config struct {
	// BaseURL is the base URL for the embedding API
	// For TEI: http://localhost:8080/v1
	// For OpenAI: https://api.openai.com/v1
	BaseURL string

	// Model is the embedding model to use
	Model string

	// APIKey is the API key (required for OpenAI, optional for TEI)
	APIKey string

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Service provides rate-limited, instrumented embedding generation.
type Service struct {
	embedder embeddings.Embedder
	model    string
	limiter  *rate.Limiter
	metrics  *Metrics
}

// NewService creates a service backed by an OpenAI-compatible endpoint.
func NewService(config Config, metrics *Metrics) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// langchaingo requires a token, use placeholder for TEI
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return NewServiceWithEmbedder(embedder, config, metrics), nil
}

// NewServiceWithEmbedder wraps an existing embedder.
func NewServiceWithEmbedder(embedder embeddings.Embedder, config Config, metrics *Metrics) *Service {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}
	return &Service{
		embedder: embedder,
		model:    config.Model,
		limiter:  limiter,
		metrics:  metrics,
	}
}

// Embedder returns the underlying langchaingo Embedder.
func (s *Service) Embedder() embeddings.Embedder {
	return s.embedder
}

// Embed generates one vector per text.
//
// Returns ErrEmptyInput if texts is empty or nil.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	start := time.Now()
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	s.metrics.observe(ctx, s.model, len(texts), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding documents: got %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
