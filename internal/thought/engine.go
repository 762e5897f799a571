package thought

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
)

// Engine owns one sequential-thinking chain. Every method is safe for
// concurrent use, but callers that pair Prepare with Commit must serialize
// those calls themselves; a plan prepared against an older version of the
// chain is refused at commit.
type Engine struct {
	mu sync.Mutex

	id    string
	cfg   *chain.Config
	arena *chain.Arena[Node]

	mainLine  []int // positions of non-branch, non-revision nodes
	branches  map[string]*branch
	order     []string // branch ids in creation order
	revisions int

	status  chain.Status
	total   int
	payload int
	version uint64

	metrics *chain.Aggregator
	clock   func() time.Time
	logger  *zap.Logger
}

type branch struct {
	id        string
	from      int
	depth     int
	positions []int
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

// NewEngine creates an empty chain. A nil cfg uses chain.DefaultConfig.
func NewEngine(cfg *chain.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = chain.DefaultConfig()
	}
	e := &Engine{
		id:       "thought",
		cfg:      cfg,
		arena:    chain.NewArena[Node](),
		branches: make(map[string]*branch),
		status:   chain.StatusEmpty,
		clock:    time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("thought")
	e.metrics = chain.NewAggregator(cfg.HistorySize)
	return e
}

// Plan is a validated step that has not yet been applied.
type Plan struct {
	node       Node
	warnings   []*chain.Error
	next       chain.Status
	newBranch  *branch
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

// Submit validates step and, when it is accepted, appends it to the chain.
// A rejected step leaves the chain untouched and is counted as a failed
// sample in the metrics.
func (e *Engine) Submit(ctx context.Context, step Step) (*Result, error) {
	start := e.clock()

	e.mu.Lock()
	defer e.mu.Unlock()

	plan, err := e.prepare(step)
	if err != nil {
		e.reject(e.clock().Sub(start))
		e.logger.Debug("thought rejected",
			zap.String("chain_id", e.id),
			zap.Int("thought_number", step.ThoughtNumber),
			zap.Error(err),
		)
		return nil, err
	}
	plan.started = start
	return e.commit(plan)
}

// Prepare validates step against the current chain without mutating it.
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
	line, depth, nb, err := e.checkBranch(&step, supersedes)
	if err != nil {
		return nil, err
	}

	node := Node{
		Step:     normalize(step, conf),
		Line:     line,
		Depth:    depth,
		Position: e.arena.Len(),
	}
	if node.ThoughtNumber > node.TotalThoughts {
		node.TotalThoughts = node.ThoughtNumber
	}

	next := chain.NextStatus(step.BranchID != "", step.IsRevision, !step.NextThoughtNeeded)
	if !e.status.CanTransitionTo(next) {
		return nil, chain.NewInternalError(fmt.Errorf("invalid transition %s -> %s", e.status, next))
	}

	return &Plan{
		node:       node,
		warnings:   e.checkConfidence(node, conf),
		next:       next,
		newBranch:  nb,
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
	pos := e.arena.Append(node.ThoughtNumber, node)

	if plan.newBranch != nil {
		e.branches[plan.newBranch.id] = plan.newBranch
		e.order = append(e.order, plan.newBranch.id)
	}
	switch {
	case node.IsRevision:
		e.arena.Supersede(plan.supersedes, pos)
		e.revisions++
	case node.Line == MainLine:
		e.mainLine = append(e.mainLine, pos)
	default:
		b := e.branches[node.Line]
		b.positions = append(b.positions, pos)
	}

	e.status = plan.next
	e.total = node.TotalThoughts
	e.payload += len(node.Content) + node.Context.Bytes()
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
			zap.Int("thought_number", node.ThoughtNumber),
			zap.Int("previous_thought", w.Ref),
			zap.String("message", w.Message),
		)
	}
	e.logger.Debug("thought accepted",
		zap.String("chain_id", e.id),
		zap.Int("thought_number", node.ThoughtNumber),
		zap.String("line", node.Line),
		zap.String("status", string(e.status)),
	)

	return &Result{
		ChainID:       e.id,
		Node:          node,
		Status:        e.status,
		TotalThoughts: e.total,
		Warnings:      plan.warnings,
		Metrics:       &m,
		Efficiency:    e.efficiency(),
		History:       e.history(),
		Branches:      append([]string(nil), e.order...),
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

// Snapshot returns the structural view of the chain.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	branches := make([]BranchInfo, 0, len(e.order))
	for _, id := range e.order {
		b := e.branches[id]
		branches = append(branches, BranchInfo{
			ID:         b.id,
			FromNumber: b.from,
			Depth:      b.depth,
			Length:     len(b.positions),
		})
	}
	return Snapshot{
		ChainID:        e.id,
		Status:         e.status,
		NodeCount:      e.arena.Len(),
		MainLineLength: len(e.mainLine),
		TotalThoughts:  e.total,
		Branches:       branches,
		Efficiency:     e.efficiency(),
		Metrics:        e.metrics.Snapshot(),
	}
}

func (e *Engine) efficiency() Efficiency {
	eff := Efficiency{
		BranchCount:   len(e.branches),
		RevisionCount: e.revisions,
	}
	for _, b := range e.branches {
		if b.depth > eff.MaxBranchDepth {
			eff.MaxBranchDepth = b.depth
		}
	}
	if n := e.arena.Len(); n > 0 {
		eff.BranchingEfficiency = float64(len(e.mainLine)) / float64(n)
	}
	return eff
}

func (e *Engine) history() []Summary {
	nodes := e.arena.Tail(e.cfg.ContextWindow)
	out := make([]Summary, 0, len(nodes))
	for _, n := range nodes {
		_, superseded := e.arena.SupersededBy(n.Position)
		out = append(out, Summary{
			ThoughtNumber: n.ThoughtNumber,
			Line:          n.Line,
			Category:      n.Category.Type,
			Confidence:    *n.Confidence,
			IsRevision:    n.IsRevision,
			Superseded:    superseded,
			Content:       n.Content,
		})
	}
	return out
}
