package draft

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
)

// Engine owns one chain-of-draft sequence. It mirrors thought.Engine: steps
// are validated in full before anything is appended, and a rejected step
// leaves the sequence untouched.
type Engine struct {
	mu sync.Mutex

	id    string
	cfg   *chain.Config
	arena *chain.Arena[Node]

	lastDraft int         // position of the newest non-critique node, -1 when none
	drafts    map[int]int // draft number to its latest non-critique position
	critiques int
	revisions int
	pending   map[int]struct{}

	status  chain.Status
	total   int
	payload int
	version uint64

	metrics *chain.Aggregator
	clock   func() time.Time
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithID sets the chain identifier reported in results.
func WithID(id string) Option {
	return func(e *Engine) {
		e.id = id
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the clock used to time steps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine creates an empty draft chain. A nil cfg uses chain.DefaultConfig.
func NewEngine(cfg *chain.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = chain.DefaultConfig()
	}
	e := &Engine{
		id:        "draft",
		cfg:       cfg,
		arena:     chain.NewArena[Node](),
		lastDraft: -1,
		drafts:    make(map[int]int),
		pending:   make(map[int]struct{}),
		status:    chain.StatusEmpty,
		clock:     time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("draft")
	e.metrics = chain.NewAggregator(cfg.HistorySize)
	return e
}

// Plan is a validated draft step that has not yet been applied.
type Plan struct {
	node       Node
	warnings   []*chain.Error
	next       chain.Status
	supersedes int
	version    uint64
	started    time.Time
}

// Node returns the normalized node the plan would append.
func (p *Plan) Node() Node {
	return p.node
}

// Warnings returns the advisory findings attached to the plan.
func (p *Plan) Warnings() []*chain.Error {
	return p.warnings
}

// Submit validates step and appends it when accepted.
func (e *Engine) Submit(ctx context.Context, step Step) (*Result, error) {
	start := e.clock()

	e.mu.Lock()
	defer e.mu.Unlock()

	plan, err := e.prepare(step)
	if err != nil {
		e.reject(e.clock().Sub(start))
		e.logger.Debug("draft rejected",
			zap.String("chain_id", e.id),
			zap.Int("draft_number", step.DraftNumber),
			zap.Error(err),
		)
		return nil, err
	}
	plan.started = start
	return e.commit(plan)
}

// Prepare validates step against the current sequence without mutating it.
func (e *Engine) Prepare(step Step) (*Plan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prepare(step)
}

// Commit applies a plan returned by Prepare.
func (e *Engine) Commit(plan *Plan) (*Result, error) {
	if plan == nil {
		return nil, chain.NewInternalError(fmt.Errorf("nil plan"))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commit(plan)
}

// RecordRejection counts a step rejected outside Submit as a failed sample.
func (e *Engine) RecordRejection(elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reject(elapsed)
}

func (e *Engine) reject(elapsed time.Duration) {
	e.metrics.Record(chain.Sample{
		ProcessingTime: elapsed,
		Resource:       chain.EstimateResource(e.payload, e.arena.Len(), elapsed),
		Rejected:       true,
	})
}

func (e *Engine) prepare(step Step) (*Plan, error) {
	started := e.clock()

	if err := chain.ValidateStruct(&step); err != nil {
		return nil, err
	}
	if e.status.IsTerminal() {
		return nil, chain.NewChainClosedError(e.id)
	}
	if err := e.checkStructure(&step); err != nil {
		return nil, err
	}

	var categoryConf *float64
	if step.Category != nil {
		c := step.Category.Confidence
		categoryConf = &c
	}
	conf := chain.EffectiveConfidence(step.Confidence, categoryConf)

	supersedes, err := e.checkRevision(&step, conf)
	if err != nil {
		return nil, err
	}
	target, err := e.checkCritique(&step)
	if err != nil {
		return nil, err
	}
	if supersedes >= 0 {
		target = e.arena.NumberAt(supersedes)
	}

	node := Node{
		Step:     normalize(step, conf),
		Target:   target,
		Position: e.arena.Len(),
	}
	if node.DraftNumber > node.TotalDrafts {
		node.TotalDrafts = node.DraftNumber
	}

	next := chain.NextStatus(step.IsCritique, step.IsRevision, !step.NextStepNeeded)
	if !e.status.CanTransitionTo(next) {
		return nil, chain.NewInternalError(fmt.Errorf("invalid transition %s -> %s", e.status, next))
	}

	return &Plan{
		node:       node,
		warnings:   e.checkConfidence(node, conf),
		next:       next,
		supersedes: supersedes,
		version:    e.version,
		started:    started,
	}, nil
}

func (e *Engine) commit(plan *Plan) (*Result, error) {
	if plan.version != e.version {
		return nil, chain.NewInternalError(fmt.Errorf("stale plan for chain %s", e.id))
	}

	node := plan.node
	pos := e.arena.Append(node.DraftNumber, node)

	switch {
	case node.IsRevision:
		e.arena.Supersede(plan.supersedes, pos)
		e.revisions++
		e.lastDraft = pos
		e.drafts[node.DraftNumber] = pos
		delete(e.pending, node.Target)
	case node.IsCritique:
		e.critiques++
	default:
		e.lastDraft = pos
		e.drafts[node.DraftNumber] = pos
	}
	if node.NeedsRevision {
		flagged := node.DraftNumber
		if node.Target > 0 {
			flagged = node.Target
		}
		e.pending[flagged] = struct{}{}
	}

	e.status = plan.next
	e.total = node.TotalDrafts
	e.payload += len(node.Content) + len(node.CritiqueFocus) + node.Context.Bytes()
	for _, r := range node.ReasoningChain {
		e.payload += len(r)
	}
	e.version++

	elapsed := e.clock().Sub(plan.started)
	m := e.metrics.Record(chain.Sample{
		ProcessingTime: elapsed,
		Resource:       chain.EstimateResource(e.payload, e.arena.Len(), elapsed),
		Success:        len(plan.warnings) == 0,
		Confidence:     *node.Confidence,
	})

	for _, w := range plan.warnings {
		e.logger.Warn("confidence regression flagged",
			zap.String("chain_id", e.id),
			zap.Int("draft_number", node.DraftNumber),
			zap.Int("previous_draft", w.Ref),
			zap.String("message", w.Message),
		)
	}
	e.logger.Debug("draft accepted",
		zap.String("chain_id", e.id),
		zap.Int("draft_number", node.DraftNumber),
		zap.String("category", string(node.Category.Type)),
		zap.String("status", string(e.status)),
	)

	return &Result{
		ChainID:          e.id,
		Node:             node,
		Status:           e.status,
		TotalDrafts:      e.total,
		Warnings:         plan.warnings,
		Metrics:          &m,
		Efficiency:       e.efficiency(),
		History:          e.history(),
		PendingRevisions: e.pendingList(),
	}, nil
}

// ID returns the chain identifier.
func (e *Engine) ID() string {
	return e.id
}

// Status returns the current lifecycle state.
func (e *Engine) Status() chain.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Len returns the number of stored nodes, superseded ones included.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.Len()
}

// Nodes returns a copy of every stored node in arrival order.
func (e *Engine) Nodes() []Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.All()
}

// Metrics returns the current metrics snapshot.
func (e *Engine) Metrics() chain.Metrics {
	return e.metrics.Snapshot()
}

// RecentContent returns the content of up to n most recent nodes, oldest first.
func (e *Engine) RecentContent(n int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	nodes := e.arena.Tail(n)
	out := make([]string, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, node.Content)
	}
	return out
}

// Snapshot returns the structural view of the sequence.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	pending := e.pendingList()
	if pending == nil {
		pending = []int{}
	}
	return Snapshot{
		ChainID:          e.id,
		Status:           e.status,
		NodeCount:        e.arena.Len(),
		TotalDrafts:      e.total,
		PendingRevisions: pending,
		Efficiency:       e.efficiency(),
		Metrics:          e.metrics.Snapshot(),
	}
}

func (e *Engine) efficiency() Efficiency {
	eff := Efficiency{
		CritiqueCount: e.critiques,
		RevisionCount: e.revisions,
	}
	if e.critiques > 0 {
		eff.DraftingEfficiency = float64(e.revisions) / float64(e.critiques)
		if eff.DraftingEfficiency > 1 {
			eff.DraftingEfficiency = 1
		}
	}
	return eff
}

func (e *Engine) pendingList() []int {
	if len(e.pending) == 0 {
		return nil
	}
	out := make([]int, 0, len(e.pending))
	for n := range e.pending {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func (e *Engine) history() []Summary {
	nodes := e.arena.Tail(e.cfg.ContextWindow)
	out := make([]Summary, 0, len(nodes))
	for _, n := range nodes {
		_, superseded := e.arena.SupersededBy(n.Position)
		out = append(out, Summary{
			DraftNumber: n.DraftNumber,
			Category:    n.Category.Type,
			Confidence:  *n.Confidence,
			Target:      n.Target,
			Superseded:  superseded,
			Content:     n.Content,
		})
	}
	return out
}
