package embeddings

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Scorer implements integrated.Scorer using cosine similarity between the
// step and the centroid of its history, mapped onto [0, 1].
type Scorer struct {
	service *Service
	logger  *zap.Logger
}

// NewScorer creates a similarity scorer.
func NewScorer(service *Service, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{service: service, logger: logger.Named("embeddings")}
}

// Name identifies the scorer in results.
func (s *Scorer) Name() string {
	return "similarity"
}

// Score returns nil when there is no history to compare against.
func (s *Scorer) Score(ctx context.Context, content string, history []string) (*float64, error) {
	if len(history) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(history)+1)
	texts = append(texts, content)
	texts = append(texts, history...)

	vectors, err := s.service.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	centroid, err := mean(vectors[1:])
	if err != nil {
		return nil, err
	}
	cos, err := cosine(vectors[0], centroid)
	if err != nil {
		return nil, err
	}

	score := (cos + 1) / 2
	s.logger.Debug("similarity scored", zap.Float64("score", score), zap.Int("history", len(history)))
	return &score, nil
}

func mean(vectors [][]float32) ([]float64, error) {
	dim := len(vectors[0])
	out := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("dimension mismatch: %d != %d", len(v), dim)
		}
		for i, x := range v {
			out[i] += float64(x)
		}
	}
	for i := range out {
		out[i] /= float64(len(vectors))
	}
	return out, nil
}

// cosine returns 0 for zero vectors.
func cosine(a []float32, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d != %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		dot += x * b[i]
		na += x * x
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
