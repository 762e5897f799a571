package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func newTestEngine(t *testing.T, mutate func(*chain.Config)) *Engine {
	t.Helper()
	cfg := chain.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(2 * time.Millisecond)
		return now
	}
	return NewEngine(cfg, WithID("drafts"), WithClock(clock))
}

func draftStep(n, total int, content string, next bool) Step {
	return Step{DraftNumber: n, TotalDrafts: total, Content: content, NextStepNeeded: next}
}

func TestEngine_DraftCritiqueRevisionCycle(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	r, err := e.Submit(ctx, draftStep(1, 3, "first cut", true))
	require.NoError(t, err)
	assert.Equal(t, CategoryInitial, r.Node.Category.Type)
	assert.Equal(t, chain.StatusInProgress, r.Status)

	critique := draftStep(2, 3, "too vague", true)
	critique.IsCritique = true
	critique.CritiqueFocus = "precision"
	critique.NeedsRevision = true
	r, err = e.Submit(ctx, critique)
	require.NoError(t, err)
	assert.Equal(t, CategoryCritique, r.Node.Category.Type)
	assert.Equal(t, 1, r.Node.Target, "a critique defaults to the newest draft")
	assert.Equal(t, chain.StatusBranching, r.Status)
	assert.Equal(t, []int{1}, r.PendingRevisions)

	revision := draftStep(3, 3, "precise cut", true)
	revision.IsRevision = true
	revision.RevisesDraft = intPtr(1)
	revision.Confidence = floatPtr(0.8)
	revision.ReasoningChain = []string{"tighten scope", "name the inputs"}
	r, err = e.Submit(ctx, revision)
	require.NoError(t, err)
	assert.Equal(t, CategoryRevision, r.Node.Category.Type)
	assert.Equal(t, chain.StatusRevising, r.Status)
	assert.Empty(t, r.PendingRevisions)
	assert.Equal(t, Efficiency{CritiqueCount: 1, RevisionCount: 1, DraftingEfficiency: 1}, r.Efficiency)
	require.Len(t, r.History, 3)
	assert.True(t, r.History[0].Superseded)

	final := draftStep(4, 4, "done", false)
	final.Confidence = floatPtr(0.9)
	r, err = e.Submit(ctx, final)
	require.NoError(t, err)
	assert.Equal(t, CategoryFinal, r.Node.Category.Type)
	assert.Equal(t, chain.StatusCompleted, r.Status)

	_, err = e.Submit(ctx, draftStep(5, 5, "again", true))
	assert.True(t, errors.Is(err, chain.ErrChainClosed))
	assert.Equal(t, 4, e.Len())

	m := e.Metrics()
	assert.Equal(t, 5, m.TotalSteps)
	assert.InDelta(t, 0.8, m.SuccessRate, 1e-9)
	assert.Equal(t, 0.9, m.LastConfidence)
}

func TestEngine_CritiqueWithoutDraft(t *testing.T) {
	e := newTestEngine(t, nil)

	s := draftStep(1, 2, "nothing to critique", true)
	s.IsCritique = true
	_, err := e.Submit(context.Background(), s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chain.ErrBranch))
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, chain.StatusEmpty, e.Status())
}

func TestEngine_CritiqueOfMissingDraft(t *testing.T) {
	e := newTestEngine(t, nil)
	_, err := e.Submit(context.Background(), draftStep(1, 2, "draft", true))
	require.NoError(t, err)

	s := draftStep(2, 2, "critique", true)
	s.IsCritique = true
	s.RevisesDraft = intPtr(9)
	_, err = e.Submit(context.Background(), s)
	var ce *chain.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, chain.CodeBranchOriginMissing, ce.Code)
	assert.Equal(t, 9, ce.Ref)
}

func TestEngine_CritiquesAreNotRevisionTargets(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	_, err := e.Submit(ctx, draftStep(1, 4, "draft", true))
	require.NoError(t, err)

	critique := draftStep(2, 4, "needs detail", true)
	critique.IsCritique = true
	_, err = e.Submit(ctx, critique)
	require.NoError(t, err)

	revision := draftStep(3, 4, "revising a critique", true)
	revision.IsRevision = true
	revision.RevisesDraft = intPtr(2)
	revision.Confidence = floatPtr(0.8)
	_, err = e.Submit(ctx, revision)
	var ce *chain.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, chain.KindRevision, ce.Kind)
	assert.Equal(t, chain.CodeRevisionTargetMissing, ce.Code)
	assert.Equal(t, []string{"revisesDraft"}, ce.Fields)

	second := draftStep(3, 4, "critiquing a critique", true)
	second.IsCritique = true
	second.RevisesDraft = intPtr(2)
	_, err = e.Submit(ctx, second)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, chain.KindBranch, ce.Kind)
	assert.Equal(t, chain.CodeBranchOriginMissing, ce.Code)
	assert.Equal(t, 2, ce.Ref)

	assert.Equal(t, 2, e.Len())
}

func TestEngine_CritiqueMayReuseImpliedTargetNumber(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	_, err := e.Submit(ctx, draftStep(1, 2, "draft", true))
	require.NoError(t, err)

	critique := draftStep(1, 2, "missing an example", true)
	critique.IsCritique = true
	r, err := e.Submit(ctx, critique)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Node.Target)
	assert.Equal(t, 2, e.Len())

	_, err = e.Submit(ctx, draftStep(1, 2, "plain draft reusing 1", true))
	var ce *chain.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, chain.CodeDuplicateNumber, ce.Code)
}

func TestEngine_RevisionBelowMinimumIsRejected(t *testing.T) {
	e := newTestEngine(t, func(c *chain.Config) { c.MinRevisionConfidence = 0.6 })
	_, err := e.Submit(context.Background(), draftStep(1, 2, "draft", true))
	require.NoError(t, err)

	s := draftStep(2, 2, "weak revision", true)
	s.IsRevision = true
	s.RevisesDraft = intPtr(1)
	s.Confidence = floatPtr(0.2)
	_, err = e.Submit(context.Background(), s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chain.ErrRevision))
	assert.Equal(t, 1, e.Len())
}

func TestEngine_StructuralErrors(t *testing.T) {
	tests := []struct {
		name   string
		step   Step
		code   string
		fields []string
	}{
		{
			name:   "critique and revision",
			step:   Step{DraftNumber: 2, TotalDrafts: 3, Content: "x", NextStepNeeded: true, IsCritique: true, IsRevision: true, RevisesDraft: intPtr(1)},
			code:   chain.CodeInconsistentFlag,
			fields: []string{"isRevision", "isCritique"},
		},
		{
			name:   "focus without critique",
			step:   Step{DraftNumber: 2, TotalDrafts: 3, Content: "x", NextStepNeeded: true, CritiqueFocus: "style"},
			code:   chain.CodeInconsistentFlag,
			fields: []string{"critiqueFocus", "isCritique"},
		},
		{
			name:   "target without flag",
			step:   Step{DraftNumber: 2, TotalDrafts: 3, Content: "x", NextStepNeeded: true, RevisesDraft: intPtr(1)},
			code:   chain.CodeInconsistentFlag,
			fields: []string{"revisesDraft", "isRevision"},
		},
		{
			name:   "duplicate",
			step:   draftStep(1, 3, "again", true),
			code:   chain.CodeDuplicateNumber,
			fields: []string{"draftNumber"},
		},
		{
			name:   "past total",
			step:   draftStep(5, 3, "over", true),
			code:   chain.CodeNumberOutOfRange,
			fields: []string{"draftNumber", "totalDrafts"},
		},
		{
			name:   "bad category",
			step:   Step{DraftNumber: 2, TotalDrafts: 3, Content: "x", Category: &Category{Type: "analysis"}},
			code:   chain.CodeInvalidField,
			fields: []string{"category.type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, nil)
			_, err := e.Submit(context.Background(), draftStep(1, 3, "draft", true))
			require.NoError(t, err)

			_, err = e.Submit(context.Background(), tt.step)
			require.Error(t, err)
			assert.True(t, errors.Is(err, chain.ErrStructural))
			var ce *chain.Error
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, tt.fields, ce.Fields)
			assert.Equal(t, 1, e.Len())
		})
	}
}

func TestEngine_AnnotationsMayOverflowTotal(t *testing.T) {
	e := newTestEngine(t, nil)
	_, err := e.Submit(context.Background(), draftStep(1, 1, "draft", true))
	require.NoError(t, err)

	s := draftStep(2, 1, "critique", true)
	s.IsCritique = true
	r, err := e.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 2, r.TotalDrafts)
}

func TestEngine_ConfidenceRegressionIsAdvisory(t *testing.T) {
	e := newTestEngine(t, func(c *chain.Config) { c.MinConfidenceGrowth = 0.1 })

	s := draftStep(1, 3, "strong", true)
	s.Confidence = floatPtr(0.9)
	_, err := e.Submit(context.Background(), s)
	require.NoError(t, err)

	critique := draftStep(2, 3, "doubt", true)
	critique.IsCritique = true
	critique.Confidence = floatPtr(0.1)
	r, err := e.Submit(context.Background(), critique)
	require.NoError(t, err)
	assert.Empty(t, r.Warnings, "critiques are exempt")

	s = draftStep(3, 3, "weaker", true)
	s.Confidence = floatPtr(0.5)
	r, err = e.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, r.Warnings, 1)
	assert.True(t, errors.Is(r.Warnings[0], chain.ErrConfidence))
	assert.Equal(t, 1, r.Warnings[0].Ref)
	assert.Equal(t, 3, e.Len())
}

func TestEngine_SnapshotAndPrepare(t *testing.T) {
	e := newTestEngine(t, nil)

	s := draftStep(1, 2, "draft", true)
	s.NeedsRevision = true
	plan, err := e.Prepare(s)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Len())

	_, err = e.Commit(plan)
	require.NoError(t, err)
	_, err = e.Commit(plan)
	assert.True(t, errors.Is(err, chain.ErrInternal), "a plan cannot be applied twice")

	snap := e.Snapshot()
	assert.Equal(t, 1, snap.NodeCount)
	assert.Equal(t, []int{1}, snap.PendingRevisions)
	assert.Equal(t, "drafts", snap.ChainID)
}

func TestEngine_DoesNotAliasReasoningChain(t *testing.T) {
	e := newTestEngine(t, nil)

	s := draftStep(1, 2, "draft", true)
	s.ReasoningChain = []string{"premise"}
	_, err := e.Submit(context.Background(), s)
	require.NoError(t, err)

	s.ReasoningChain[0] = "changed"
	assert.Equal(t, "premise", e.Nodes()[0].ReasoningChain[0])
}
