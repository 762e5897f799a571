package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
	"github.com/fyrsmithlabs/thinkd/internal/draft"
	"github.com/fyrsmithlabs/thinkd/internal/features"
	"github.com/fyrsmithlabs/thinkd/internal/integrated"
	"github.com/fyrsmithlabs/thinkd/internal/logging"
	"github.com/fyrsmithlabs/thinkd/internal/session"
	"github.com/fyrsmithlabs/thinkd/internal/thought"
)

// Tool names.
const (
	ToolSequentialThought  = "sequentialThought"
	ToolChainOfDraft       = "chainOfDraft"
	ToolIntegratedThinking = "integratedThinking"
	ToolSetFeature         = "setFeature"
	ToolChainStatus        = "chainStatus"
	ToolResetSession       = "resetSession"
	ToolSearch             = "toolSearch"
	ToolList               = "toolList"
)

// Engine labels for chain step metrics.
const (
	engineSequential = "sequential"
	engineDraft      = "draft"
	engineIntegrated = "integrated"
)

// addTool registers h with the MCP server and its metadata with the registry.
func addTool[In any](s *Server, tool *mcp.Tool, category ToolCategory, keywords []string, h mcp.ToolHandlerFor[In, any]) {
	mcp.AddTool(s.mcp, tool, h)
	s.toolRegistry.Register(&ToolMetadata{
		Name:        tool.Name,
		Description: tool.Description,
		Category:    category,
		Keywords:    keywords,
	})
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() error {
	addTool(s, &mcp.Tool{
		Name: ToolSequentialThought,
		Description: "Submit one step of a sequential reasoning chain. Steps may open or continue named branches " +
			"from an earlier thought, or revise an earlier thought. Setting nextThoughtNeeded to false completes the chain.",
	}, CategoryReasoning, []string{"thought", "branch", "revision", "reasoning"}, s.handleSequentialThought)

	addTool(s, &mcp.Tool{
		Name: ToolChainOfDraft,
		Description: "Submit one step of a draft-critique-revise cycle. Critiques annotate a draft, revisions supersede it. " +
			"Setting nextStepNeeded to false completes the chain.",
	}, CategoryReasoning, []string{"draft", "critique", "revision"}, s.handleChainOfDraft)

	addTool(s, &mcp.Tool{
		Name: ToolIntegratedThinking,
		Description: "Submit one step to both the sequential and the draft chain at once. The step is accepted by both " +
			"or rejected by both, and the two classifications are fused into one.",
	}, CategoryReasoning, []string{"fused", "combined", "thought", "draft"}, s.handleIntegratedThinking)

	featureSchema, err := setFeatureSchema()
	if err != nil {
		return err
	}
	addTool(s, &mcp.Tool{
		Name:        ToolSetFeature,
		Description: "Enable or disable a runtime feature and return the resulting feature set.",
		InputSchema: featureSchema,
	}, CategoryConfig, []string{"feature", "toggle", "debug", "metrics"}, s.handleSetFeature)

	addTool(s, &mcp.Tool{
		Name:        ToolChainStatus,
		Description: "Show the structure and metrics of the session's chains without changing them.",
	}, CategorySession, []string{"status", "branches", "metrics", "inspect"}, s.handleChainStatus)

	addTool(s, &mcp.Tool{
		Name:        ToolResetSession,
		Description: "Discard the session's chains so the next step starts a new chain.",
	}, CategorySession, []string{"reset", "clear", "restart"}, s.handleResetSession)

	s.registerSearchTools()
	return nil
}

// ===== SHARED PLUMBING =====

// observe opens the span, metrics and debug logging for one tool call. The
// returned function closes them with the call's outcome.
func (s *Server) observe(ctx context.Context, tool, sessionID string, args any) (context.Context, func(error)) {
	start := time.Now()
	sessionID = session.Normalize(sessionID)
	ctx, span := startToolSpan(ctx, tool, sessionID)
	ctx = logging.WithTool(logging.WithSessionID(ctx, sessionID), tool)

	tracked := s.features.Enabled(features.MetricTracking)
	if tracked {
		s.metrics.IncrementActive(ctx, tool)
	}
	if s.features.Enabled(features.MCPDebug) {
		s.logger.Debug("tool called", append(logging.ContextFields(ctx), zap.Any("arguments", args))...)
	}

	return ctx, func(err error) {
		if tracked {
			s.metrics.DecrementActive(ctx, tool)
			s.metrics.RecordInvocation(ctx, tool, time.Since(start), err)
		}
		if err != nil && s.features.Enabled(features.ErrorCapture) {
			recordSpanError(span, err)
		}
		if s.features.Enabled(features.MCPDebug) {
			s.logger.Debug("tool finished", append(logging.ContextFields(ctx),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)...)
		}
		span.End()
	}
}

// observeStep feeds the prometheus chain counters.
func (s *Server) observeStep(engine string, confidence *float64, warnings int, err error) {
	if !s.features.Enabled(features.MetricTracking) {
		return
	}
	var c float64
	if confidence != nil {
		c = *confidence
	}
	session.ObserveStep(engine, c, warnings, err)
}

// publicError returns what the caller may see of err. Engine taxonomy errors
// pass through; anything else is replaced by a generic internal error.
func (s *Server) publicError(tool string, err error) *chain.Error {
	var ce *chain.Error
	if errors.As(err, &ce) && ce.Kind != chain.KindInternal {
		return ce
	}
	if errors.Is(err, session.ErrTooManySessions) {
		return &chain.Error{Kind: chain.KindInternal, Code: chain.CodeInternal, Message: err.Error(), Fields: []string{"sessionId"}}
	}
	if s.features.Enabled(features.ErrorCapture) {
		s.logger.Error("tool failed", zap.String("tool", tool), zap.Error(err))
	}
	return chain.NewInternalError(nil)
}

// errorResult reports err as a tool error. The structured content carries
// the code, fields and reference so callers can correct and retry.
func (s *Server) errorResult(tool string, err error) (*mcp.CallToolResult, any, error) {
	pub := s.publicError(tool, err)
	return &mcp.CallToolResult{
		IsError:           true,
		Content:           []mcp.Content{&mcp.TextContent{Text: pub.Error()}},
		StructuredContent: pub,
	}, nil, nil
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, v, nil
}

// ===== SEQUENTIAL THINKING =====

type sequentialThoughtInput struct {
	SessionID         string             `json:"sessionId,omitempty" jsonschema:"Session identifier (default: default)"`
	ThoughtNumber     int                `json:"thoughtNumber" jsonschema:"required,Number of this thought, starting at 1"`
	TotalThoughts     int                `json:"totalThoughts" jsonschema:"required,Current estimate of thoughts needed"`
	Content           string             `json:"content" jsonschema:"required,The thought"`
	NextThoughtNeeded bool               `json:"nextThoughtNeeded" jsonschema:"required,False completes the chain"`
	NeedsMoreThoughts bool               `json:"needsMoreThoughts,omitempty" jsonschema:"Raise totalThoughts to thoughtNumber if exceeded"`
	BranchID          string             `json:"branchId,omitempty" jsonschema:"Branch this thought belongs to"`
	BranchFromThought *int               `json:"branchFromThought,omitempty" jsonschema:"Thought number the branch forks from"`
	IsRevision        bool               `json:"isRevision,omitempty" jsonschema:"This thought revises an earlier one"`
	RevisesThought    *int               `json:"revisesThought,omitempty" jsonschema:"Thought number being revised"`
	Category          *thought.Category  `json:"category,omitempty" jsonschema:"Classification: analysis, hypothesis, verification, revision or solution, with its confidence"`
	Confidence        *float64           `json:"confidence,omitempty" jsonschema:"Confidence in [0,1]; overrides the category confidence"`
	Context           *chain.StepContext `json:"context,omitempty" jsonschema:"Problem scope, assumptions and constraints"`
}

func (in sequentialThoughtInput) step() thought.Step {
	return thought.Step{
		ThoughtNumber:     in.ThoughtNumber,
		TotalThoughts:     in.TotalThoughts,
		Content:           in.Content,
		NextThoughtNeeded: in.NextThoughtNeeded,
		NeedsMoreThoughts: in.NeedsMoreThoughts,
		BranchID:          in.BranchID,
		BranchFromThought: in.BranchFromThought,
		IsRevision:        in.IsRevision,
		RevisesThought:    in.RevisesThought,
		Category:          in.Category,
		Confidence:        in.Confidence,
		Context:           in.Context,
	}
}

func (s *Server) handleSequentialThought(ctx context.Context, _ *mcp.CallToolRequest, args sequentialThoughtInput) (*mcp.CallToolResult, any, error) {
	ctx, done := s.observe(ctx, ToolSequentialThought, args.SessionID, args)
	var toolErr error
	defer func() { done(toolErr) }()

	var res *thought.Result
	toolErr = s.sessions.WithSession(ctx, args.SessionID, func(sess *session.Session) error {
		var err error
		res, err = sess.Thoughts().Submit(ctx, args.step())
		return err
	})
	if toolErr != nil {
		s.observeStep(engineSequential, nil, 0, toolErr)
		return s.errorResult(ToolSequentialThought, toolErr)
	}
	s.observeStep(engineSequential, res.Node.Confidence, len(res.Warnings), nil)

	if !s.features.Enabled(features.PerformanceMonitoring) {
		res.Metrics = nil
	}
	return jsonResult(res)
}

// ===== CHAIN OF DRAFT =====

type chainOfDraftInput struct {
	SessionID      string             `json:"sessionId,omitempty" jsonschema:"Session identifier (default: default)"`
	DraftNumber    int                `json:"draftNumber" jsonschema:"required,Number of this step, starting at 1"`
	TotalDrafts    int                `json:"totalDrafts" jsonschema:"required,Current estimate of drafts needed"`
	Content        string             `json:"content" jsonschema:"required,The draft, critique or revision text"`
	NeedsRevision  bool               `json:"needsRevision" jsonschema:"required,The draft needs another revision"`
	NextStepNeeded bool               `json:"nextStepNeeded" jsonschema:"required,False completes the chain"`
	IsRevision     bool               `json:"isRevision,omitempty" jsonschema:"This step revises an earlier draft"`
	RevisesDraft   *int               `json:"revisesDraft,omitempty" jsonschema:"Draft number being revised or critiqued"`
	IsCritique     bool               `json:"isCritique,omitempty" jsonschema:"This step critiques a draft"`
	CritiqueFocus  string             `json:"critiqueFocus,omitempty" jsonschema:"What the critique examines"`
	ReasoningChain []string           `json:"reasoningChain,omitempty" jsonschema:"Supporting reasoning, in order"`
	Category       *draft.Category    `json:"category,omitempty" jsonschema:"Classification: initial, critique, revision or final, with its confidence"`
	Confidence     *float64           `json:"confidence,omitempty" jsonschema:"Confidence in [0,1]; overrides the category confidence"`
	Context        *chain.StepContext `json:"context,omitempty" jsonschema:"Problem scope, assumptions and constraints"`
}

func (in chainOfDraftInput) step() draft.Step {
	return draft.Step{
		DraftNumber:    in.DraftNumber,
		TotalDrafts:    in.TotalDrafts,
		Content:        in.Content,
		NeedsRevision:  in.NeedsRevision,
		NextStepNeeded: in.NextStepNeeded,
		IsRevision:     in.IsRevision,
		RevisesDraft:   in.RevisesDraft,
		IsCritique:     in.IsCritique,
		CritiqueFocus:  in.CritiqueFocus,
		ReasoningChain: in.ReasoningChain,
		Category:       in.Category,
		Confidence:     in.Confidence,
		Context:        in.Context,
	}
}

func (s *Server) handleChainOfDraft(ctx context.Context, _ *mcp.CallToolRequest, args chainOfDraftInput) (*mcp.CallToolResult, any, error) {
	ctx, done := s.observe(ctx, ToolChainOfDraft, args.SessionID, args)
	var toolErr error
	defer func() { done(toolErr) }()

	var res *draft.Result
	toolErr = s.sessions.WithSession(ctx, args.SessionID, func(sess *session.Session) error {
		var err error
		res, err = sess.Drafts().Submit(ctx, args.step())
		return err
	})
	if toolErr != nil {
		s.observeStep(engineDraft, nil, 0, toolErr)
		return s.errorResult(ToolChainOfDraft, toolErr)
	}
	s.observeStep(engineDraft, res.Node.Confidence, len(res.Warnings), nil)

	if !s.features.Enabled(features.PerformanceMonitoring) {
		res.Metrics = nil
	}
	return jsonResult(res)
}

// ===== INTEGRATED THINKING =====

type integratedThinkingInput struct {
	SessionID      string               `json:"sessionId,omitempty" jsonschema:"Session identifier (default: default)"`
	StepNumber     int                  `json:"stepNumber" jsonschema:"required,Number of this step, starting at 1"`
	TotalSteps     int                  `json:"totalSteps" jsonschema:"required,Current estimate of steps needed"`
	Content        string               `json:"content" jsonschema:"required,The step"`
	NextStepNeeded bool                 `json:"nextStepNeeded" jsonschema:"required,False completes both chains"`
	NeedsMoreSteps bool                 `json:"needsMoreSteps,omitempty" jsonschema:"Raise totalSteps to stepNumber if exceeded"`
	IsRevision     bool                 `json:"isRevision,omitempty" jsonschema:"This step revises an earlier one"`
	RevisesStep    *int                 `json:"revisesStep,omitempty" jsonschema:"Step number being revised or critiqued"`
	BranchFromStep *int                 `json:"branchFromStep,omitempty" jsonschema:"Step number the branch forks from (sequential chain only)"`
	BranchID       string               `json:"branchId,omitempty" jsonschema:"Branch this step belongs to (sequential chain only)"`
	IsCritique     bool                 `json:"isCritique,omitempty" jsonschema:"This step critiques a draft (draft chain only)"`
	CritiqueFocus  string               `json:"critiqueFocus,omitempty" jsonschema:"What the critique examines"`
	NeedsRevision  bool                 `json:"needsRevision,omitempty" jsonschema:"The draft needs another revision"`
	ReasoningChain []string             `json:"reasoningChain,omitempty" jsonschema:"Supporting reasoning, in order"`
	Category       *integrated.Category `json:"category,omitempty" jsonschema:"Classification from either chain's vocabulary, with its confidence"`
	Confidence     *float64             `json:"confidence,omitempty" jsonschema:"Confidence in [0,1]; overrides the category confidence"`
	Context        *chain.StepContext   `json:"context,omitempty" jsonschema:"Problem scope, assumptions and constraints"`
}

func (in integratedThinkingInput) request() integrated.Request {
	return integrated.Request{
		StepNumber:     in.StepNumber,
		TotalSteps:     in.TotalSteps,
		Content:        in.Content,
		NextStepNeeded: in.NextStepNeeded,
		NeedsMoreSteps: in.NeedsMoreSteps,
		IsRevision:     in.IsRevision,
		RevisesStep:    in.RevisesStep,
		BranchFromStep: in.BranchFromStep,
		BranchID:       in.BranchID,
		IsCritique:     in.IsCritique,
		CritiqueFocus:  in.CritiqueFocus,
		NeedsRevision:  in.NeedsRevision,
		ReasoningChain: in.ReasoningChain,
		Category:       in.Category,
		Confidence:     in.Confidence,
		Context:        in.Context,
	}
}

func (s *Server) handleIntegratedThinking(ctx context.Context, _ *mcp.CallToolRequest, args integratedThinkingInput) (*mcp.CallToolResult, any, error) {
	ctx, done := s.observe(ctx, ToolIntegratedThinking, args.SessionID, args)
	var toolErr error
	defer func() { done(toolErr) }()

	var res *integrated.Result
	toolErr = s.sessions.WithSession(ctx, args.SessionID, func(sess *session.Session) error {
		var err error
		res, err = s.coordinator.Process(ctx, sess.Thoughts(), sess.Drafts(), args.request())
		return err
	})
	if toolErr != nil {
		s.observeStep(engineIntegrated, nil, 0, toolErr)
		return s.errorResult(ToolIntegratedThinking, toolErr)
	}
	s.observeStep(engineIntegrated, &res.Category.Confidence, len(res.Warnings), nil)

	if !s.features.Enabled(features.PerformanceMonitoring) {
		res.Sequential.Metrics = nil
		res.Draft.Metrics = nil
	}
	return jsonResult(res)
}

// ===== FEATURES =====

type setFeatureInput struct {
	Feature string `json:"feature" jsonschema:"required,Feature to toggle"`
	Enabled bool   `json:"enabled" jsonschema:"required,New state of the feature"`
}

type setFeatureOutput struct {
	Feature  string         `json:"feature"`
	Enabled  bool           `json:"enabled"`
	Features features.Flags `json:"features"`
}

// setFeatureSchema constrains feature to the known names.
func setFeatureSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[setFeatureInput](nil)
	if err != nil {
		return nil, fmt.Errorf("inferring setFeature schema: %w", err)
	}
	prop, ok := schema.Properties["feature"]
	if !ok {
		return nil, fmt.Errorf("setFeature schema has no feature property")
	}
	prop.Enum = make([]any, 0, len(features.All))
	for _, f := range features.All {
		prop.Enum = append(prop.Enum, string(f))
	}
	return schema, nil
}

func (s *Server) handleSetFeature(ctx context.Context, _ *mcp.CallToolRequest, args setFeatureInput) (*mcp.CallToolResult, any, error) {
	_, done := s.observe(ctx, ToolSetFeature, "", args)
	var toolErr error
	defer func() { done(toolErr) }()

	feature, err := features.ParseFeature(args.Feature)
	if err != nil {
		toolErr = chain.NewStructuralError(chain.CodeInvalidField, err.Error(), "feature")
		return s.errorResult(ToolSetFeature, toolErr)
	}
	flags, err := s.features.Set(feature, args.Enabled)
	if err != nil {
		toolErr = err
		return s.errorResult(ToolSetFeature, toolErr)
	}

	s.logger.Info("feature toggled", zap.String("feature", string(feature)), zap.Bool("enabled", args.Enabled))
	return jsonResult(setFeatureOutput{Feature: string(feature), Enabled: args.Enabled, Features: flags})
}

// ===== SESSION =====

type sessionInput struct {
	SessionID string `json:"sessionId,omitempty" jsonschema:"Session identifier (default: default)"`
}

type chainStatusOutput struct {
	SessionID  string            `json:"sessionId"`
	Exists     bool              `json:"exists"`
	Sequential *thought.Snapshot `json:"sequential,omitempty"`
	Draft      *draft.Snapshot   `json:"draft,omitempty"`
}

func (s *Server) handleChainStatus(ctx context.Context, _ *mcp.CallToolRequest, args sessionInput) (*mcp.CallToolResult, any, error) {
	_, done := s.observe(ctx, ToolChainStatus, args.SessionID, args)
	defer done(nil)

	id := session.Normalize(args.SessionID)
	out := chainStatusOutput{SessionID: id}
	if view, ok := s.sessions.Lookup(id); ok {
		if !s.features.Enabled(features.PerformanceMonitoring) {
			view = view.WithoutMetrics()
		}
		out.Exists = true
		out.Sequential = view.Thought
		out.Draft = view.Draft
	}
	return jsonResult(out)
}

type resetSessionOutput struct {
	SessionID string `json:"sessionId"`
	Existed   bool   `json:"existed"`
}

func (s *Server) handleResetSession(ctx context.Context, _ *mcp.CallToolRequest, args sessionInput) (*mcp.CallToolResult, any, error) {
	_, done := s.observe(ctx, ToolResetSession, args.SessionID, args)
	defer done(nil)

	id := session.Normalize(args.SessionID)
	existed := s.sessions.Reset(id)
	s.logger.Info("session reset", zap.String("session_id", id), zap.Bool("existed", existed))
	return jsonResult(resetSessionOutput{SessionID: id, Existed: existed})
}
