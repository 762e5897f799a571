package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
	"github.com/fyrsmithlabs/thinkd/internal/thought"
)

func TestRegistry_LazyCreation(t *testing.T) {
	r := NewRegistry(nil, Config{})
	ctx := context.Background()

	_, ok := r.Lookup("")
	assert.False(t, ok)

	err := r.WithSession(ctx, "", func(s *Session) error {
		assert.Equal(t, DefaultID, s.ID())
		_, err := s.Thoughts().Submit(ctx, thought.Step{ThoughtNumber: 1, TotalThoughts: 2, Content: "a", NextThoughtNeeded: true})
		return err
	})
	require.NoError(t, err)

	view, ok := r.Lookup(DefaultID)
	require.True(t, ok)
	require.NotNil(t, view.Thought)
	assert.Nil(t, view.Draft, "draft chain is created on first use only")
	assert.Equal(t, 1, view.Thought.NodeCount)
	_, err = uuid.Parse(view.Thought.ChainID)
	assert.NoError(t, err)
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	r := NewRegistry(nil, Config{})
	ctx := context.Background()
	step := thought.Step{ThoughtNumber: 1, TotalThoughts: 1, Content: "done", NextThoughtNeeded: false}

	require.NoError(t, r.WithSession(ctx, "a", func(s *Session) error {
		_, err := s.Thoughts().Submit(ctx, step)
		return err
	}))
	require.NoError(t, r.WithSession(ctx, "b", func(s *Session) error {
		_, err := s.Thoughts().Submit(ctx, step)
		return err
	}), "completing session a does not close session b")

	a, _ := r.Lookup("a")
	b, _ := r.Lookup("b")
	assert.NotEqual(t, a.Thought.ChainID, b.Thought.ChainID)
	assert.Equal(t, chain.StatusCompleted, a.Thought.Status)
}

func TestRegistry_SerializesSession(t *testing.T) {
	r := NewRegistry(nil, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.WithSession(ctx, "shared", func(*Session) error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry(nil, Config{})
	ctx := context.Background()

	var firstID string
	require.NoError(t, r.WithSession(ctx, "s", func(s *Session) error {
		firstID = s.Drafts().ID()
		return nil
	}))

	assert.True(t, r.Reset("s"))
	assert.False(t, r.Reset("s"))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(SessionsActive))

	require.NoError(t, r.WithSession(ctx, "s", func(s *Session) error {
		assert.NotEqual(t, firstID, s.Drafts().ID(), "a reset session starts a fresh chain")
		return nil
	}))
}

func TestRegistry_MaxSessions(t *testing.T) {
	r := NewRegistry(nil, Config{MaxSessions: 1})
	ctx := context.Background()
	noop := func(*Session) error { return nil }

	require.NoError(t, r.WithSession(ctx, "one", noop))
	require.NoError(t, r.WithSession(ctx, "one", noop))
	err := r.WithSession(ctx, "two", noop)
	assert.True(t, errors.Is(err, ErrTooManySessions))
}

func TestRegistry_CanceledContext(t *testing.T) {
	r := NewRegistry(nil, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := r.WithSession(ctx, "x", func(*Session) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry(nil, Config{})
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, r.WithSession(ctx, id, func(*Session) error { return nil }))
	}

	views := r.List()
	require.Len(t, views, 3)
	assert.Equal(t, "a", views[0].ID)
	assert.Equal(t, "c", views[2].ID)
}

func TestObserveStep(t *testing.T) {
	before := testutil.ToFloat64(ChainStepsTotal.WithLabelValues("sequential", OutcomeFlagged))
	rejected := testutil.ToFloat64(ChainStepsTotal.WithLabelValues("sequential", OutcomeRejected))

	ObserveStep("sequential", 0.4, 1, nil)
	ObserveStep("sequential", 0, 0, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(ChainStepsTotal.WithLabelValues("sequential", OutcomeFlagged)))
	assert.Equal(t, rejected+1, testutil.ToFloat64(ChainStepsTotal.WithLabelValues("sequential", OutcomeRejected)))
}

func TestView_WithoutMetrics(t *testing.T) {
	r := NewRegistry(nil, Config{})
	ctx := context.Background()
	require.NoError(t, r.WithSession(ctx, "m", func(s *Session) error {
		_, err := s.Thoughts().Submit(ctx, thought.Step{ThoughtNumber: 1, TotalThoughts: 2, Content: "a", NextThoughtNeeded: true})
		return err
	}))

	view, ok := r.Lookup("m")
	require.True(t, ok)
	require.Equal(t, 1, view.Thought.Metrics.TotalSteps)

	stripped := view.WithoutMetrics()
	assert.Equal(t, chain.Metrics{}, stripped.Thought.Metrics)
	assert.Nil(t, stripped.Draft)
	assert.Equal(t, 1, view.Thought.Metrics.TotalSteps, "original view is unchanged")
	assert.Equal(t, view.Thought.NodeCount, stripped.Thought.NodeCount)
}
