// Package coherence rates how well a new reasoning step follows from the
// steps before it by asking an OpenAI-compatible chat-completion endpoint.
package coherence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnparseableScore indicates the model reply carried no score.
	ErrUnparseableScore = errors.New("unparseable coherence score")
)

const (
	defaultModel        = "gpt-4o-mini"
	defaultTimeout      = 10 * time.Second
	defaultHistoryLimit = 5
)

const systemPrompt = "You grade reasoning. Reply with a single number between 0 and 1 " +
	"rating how coherently the final step follows from the earlier steps. " +
	"1 means it follows directly, 0 means it is unrelated or contradictory."

var scorePattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// Config holds configuration for the coherence scorer.
type Config struct {
	// BaseURL is the OpenAI-compatible API root, e.g. https://api.openai.com/v1.
	BaseURL string

	// Model is the chat model to use.
	Model string

	// APIKey authenticates against the endpoint.
	APIKey string

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64

	// Timeout bounds one scoring call.
	Timeout time.Duration

	// HistoryLimit is the number of earlier steps included in the prompt.
	HistoryLimit int
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Scorer implements integrated.Scorer.
type Scorer struct {
	client       *openai.Client
	model        string
	timeout      time.Duration
	historyLimit int
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// NewScorer creates a coherence scorer.
func NewScorer(cfg Config, logger *zap.Logger) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	s := &Scorer{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		timeout:      cfg.Timeout,
		historyLimit: cfg.HistoryLimit,
		limiter:      rate.NewLimiter(rate.Inf, 1),
		logger:       logger.Named("coherence"),
	}
	if s.model == "" {
		s.model = defaultModel
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.historyLimit <= 0 {
		s.historyLimit = defaultHistoryLimit
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return s, nil
}

// Name identifies the scorer in results.
func (s *Scorer) Name() string {
	return "coherence"
}

// Score returns nil when there is no history to compare against.
func (s *Scorer) Score(ctx context.Context, content string, history []string) (*float64, error) {
	if len(history) == 0 {
		return nil, nil
	}
	if len(history) > s.historyLimit {
		history = history[len(history)-s.historyLimit:]
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		MaxTokens:   8,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(content, history)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrUnparseableScore)
	}

	score, err := parseScore(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("coherence scored", zap.Float64("score", score), zap.Int("history", len(history)))
	return &score, nil
}

func buildPrompt(content string, history []string) string {
	var b strings.Builder
	b.WriteString("Earlier steps:\n")
	for i, h := range history {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h)
	}
	b.WriteString("\nFinal step:\n")
	b.WriteString(content)
	return b.String()
}

// parseScore extracts the first number in reply and clamps it to [0, 1].
func parseScore(reply string) (float64, error) {
	match := scorePattern.FindString(reply)
	if match == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableScore, reply)
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnparseableScore, err)
	}
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	return v, nil
}
