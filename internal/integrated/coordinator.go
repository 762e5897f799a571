package integrated

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
	"github.com/fyrsmithlabs/thinkd/internal/draft"
	"github.com/fyrsmithlabs/thinkd/internal/thought"
)

// Scorer rates content against recent history. A nil score means the
// scorer had nothing to say; the fused confidence is then left alone.
type Scorer interface {
	Name() string
	Score(ctx context.Context, content string, history []string) (*float64, error)
}

// Coordinator processes integrated requests against a pair of engines.
type Coordinator struct {
	cfg     *chain.Config
	scorers []Scorer
	clock   func() time.Time
	logger  *zap.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithScorers adds auxiliary scorers, consulted in order.
func WithScorers(scorers ...Scorer) Option {
	return func(c *Coordinator) {
		for _, s := range scorers {
			if s != nil {
				c.scorers = append(c.scorers, s)
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the clock used to time rejections.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewCoordinator creates a coordinator. A nil cfg uses chain.DefaultConfig.
func NewCoordinator(cfg *chain.Config, opts ...Option) *Coordinator {
	if cfg == nil {
		cfg = chain.DefaultConfig()
	}
	c := &Coordinator{
		cfg:    cfg,
		clock:  time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("integrated")
	return c
}

// Process validates req against both engines and commits it to both, or to
// neither. Callers must not submit to either engine concurrently with
// Process; the session registry guarantees this.
func (c *Coordinator) Process(ctx context.Context, thoughts *thought.Engine, drafts *draft.Engine, req Request) (*Result, error) {
	start := c.clock()

	if err := chain.ValidateStruct(&req); err != nil {
		return nil, err
	}
	if req.RevisesStep != nil && !req.IsRevision && !req.IsCritique {
		return nil, chain.NewStructuralError(chain.CodeInconsistentFlag,
			"revisesStep requires isRevision or isCritique",
			"revisesStep", "isRevision")
	}
	if req.NeedsMoreSteps && req.StepNumber > req.TotalSteps {
		req.TotalSteps = req.StepNumber
	}

	history := thoughts.RecentContent(c.cfg.ContextWindow)

	tplan, terr := thoughts.Prepare(req.thoughtStep())
	dplan, derr := drafts.Prepare(req.draftStep())
	if terr != nil || derr != nil {
		elapsed := c.clock().Sub(start)
		if terr != nil {
			thoughts.RecordRejection(elapsed)
		}
		if derr != nil {
			drafts.RecordRejection(elapsed)
		}
		engine, cause := "sequential", terr
		if terr == nil {
			engine, cause = "draft", derr
		}
		c.logger.Debug("integrated step rejected",
			zap.Int("step_number", req.StepNumber),
			zap.String("engine", engine),
			zap.Error(cause),
		)
		// Both engines agreeing on the failure is a failure of the request.
		if terr != nil && derr != nil && chain.KindOf(terr) == chain.KindOf(derr) {
			return nil, inRequestTerms(terr)
		}
		return nil, chain.NewCompositionError(engine, inRequestTerms(cause))
	}

	tres, err := thoughts.Commit(tplan)
	if err != nil {
		drafts.RecordRejection(c.clock().Sub(start))
		return nil, chain.NewCompositionError("sequential", inRequestTerms(err))
	}
	dres, err := drafts.Commit(dplan)
	if err != nil {
		return nil, chain.NewCompositionError("draft", inRequestTerms(err))
	}

	fused := fuse(tres.Node, dres.Node)
	scores := c.score(ctx, req.Content, history)
	fused.Confidence = blend(fused.Confidence, scores)

	result := &Result{
		Sequential: tres,
		Draft:      dres,
		Category:   fused,
		Context:    chain.MergeContexts(tres.Node.Context, dres.Node.Context),
		Enhancements: Enhancements{
			BranchingActive:  tres.Node.Line != thought.MainLine,
			RevisionActive:   req.IsRevision,
			CritiqueActive:   req.IsCritique,
			ParallelEligible: c.cfg.ParallelTasks && fused.Confidence > c.cfg.ConfidenceThreshold,
			Scores:           scores,
		},
	}
	result.Warnings = append(result.Warnings, tres.Warnings...)
	result.Warnings = append(result.Warnings, dres.Warnings...)

	c.logger.Debug("integrated step accepted",
		zap.Int("step_number", req.StepNumber),
		zap.String("category", fused.Type),
		zap.Float64("confidence", fused.Confidence),
		zap.Bool("parallel_eligible", result.Enhancements.ParallelEligible),
	)
	return result, nil
}

// score consults every scorer. Unavailable scores are skipped.
func (c *Coordinator) score(ctx context.Context, content string, history []string) map[string]float64 {
	if len(c.scorers) == 0 {
		return nil
	}
	var scores map[string]float64
	for _, s := range c.scorers {
		v, err := s.Score(ctx, content, history)
		if err != nil {
			c.logger.Warn("auxiliary scorer failed", zap.String("scorer", s.Name()), zap.Error(err))
			continue
		}
		if v == nil {
			continue
		}
		if scores == nil {
			scores = make(map[string]float64, len(c.scorers))
		}
		scores[s.Name()] = clamp(*v)
	}
	return scores
}
