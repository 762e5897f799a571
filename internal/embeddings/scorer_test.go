package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

func TestScorer_Score(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float32{
		"same":     {1, 0},
		"history1": {1, 0},
		"history2": {1, 0},
		"opposite": {-1, 0},
		"ortho":    {0, 1},
	}}
	s := NewScorer(NewServiceWithEmbedder(fake, Config{Model: "m"}, nil), nil)
	ctx := context.Background()

	tests := []struct {
		content string
		want    float64
	}{
		{"same", 1},
		{"opposite", 0},
		{"ortho", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			score, err := s.Score(ctx, tt.content, []string{"history1", "history2"})
			require.NoError(t, err)
			require.NotNil(t, score)
			assert.InDelta(t, tt.want, *score, 1e-6)
		})
	}
}

func TestScorer_NoHistory(t *testing.T) {
	fake := &fakeEmbedder{}
	s := NewScorer(NewServiceWithEmbedder(fake, Config{}, nil), nil)

	score, err := s.Score(context.Background(), "first", nil)
	assert.NoError(t, err)
	assert.Nil(t, score)
	assert.Equal(t, 0, fake.calls, "no request without history")
}

func TestScorer_Errors(t *testing.T) {
	fake := &fakeEmbedder{err: errors.New("unavailable")}
	s := NewScorer(NewServiceWithEmbedder(fake, Config{}, nil), nil)
	_, err := s.Score(context.Background(), "a", []string{"b"})
	assert.Error(t, err)

	mismatched := &fakeEmbedder{vectors: map[string][]float32{"a": {1, 0, 0}, "b": {1, 0}}}
	s = NewScorer(NewServiceWithEmbedder(mismatched, Config{}, nil), nil)
	_, err = s.Score(context.Background(), "a", []string{"b"})
	assert.ErrorContains(t, err, "dimension mismatch")
}

func TestService_EmptyInput(t *testing.T) {
	svc := NewServiceWithEmbedder(&fakeEmbedder{}, Config{}, nil)
	_, err := svc.Embed(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrEmptyInput))
}

func TestConfig_Validate(t *testing.T) {
	assert.True(t, errors.Is(Config{}.Validate(), ErrInvalidConfig))
	assert.True(t, errors.Is(Config{BaseURL: "http://x"}.Validate(), ErrInvalidConfig))
	assert.NoError(t, Config{BaseURL: "http://x", Model: "m"}.Validate())

	_, err := NewService(Config{BaseURL: "http://x"}, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestNewService_OpenAICompatibleEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{1, float32(i)}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-embed",
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL + "/v1", Model: "test-embed"}, nil)
	require.NoError(t, err)

	vectors, err := svc.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 1}, vectors[1])
}
