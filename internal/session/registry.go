// Package session maps caller session identifiers to their reasoning
// chains. Each session lazily owns one sequential chain and one draft
// chain, and all work on a session is serialized.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
	"github.com/fyrsmithlabs/thinkd/internal/draft"
	"github.com/fyrsmithlabs/thinkd/internal/thought"
)

// DefaultID is used when a request carries no session identifier.
const DefaultID = "default"

// ErrTooManySessions is returned when a new session would exceed the limit.
var ErrTooManySessions = errors.New("session limit reached")

// Config bounds the registry.
type Config struct {
	// MaxSessions caps live sessions. Zero means unlimited.
	MaxSessions int `json:"maxSessions" koanf:"max_sessions" validate:"gte=0"`
}

// Session holds the chains of one caller session.
type Session struct {
	id       string
	mu       sync.Mutex
	cfg      *chain.Config
	logger   *zap.Logger
	clock    func() time.Time
	created  time.Time
	lastUsed time.Time
	thoughts *thought.Engine
	drafts   *draft.Engine
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Thoughts returns the sequential chain, creating it on first use.
func (s *Session) Thoughts() *thought.Engine {
	if s.thoughts == nil {
		s.thoughts = thought.NewEngine(s.cfg,
			thought.WithID(uuid.NewString()),
			thought.WithLogger(s.logger),
			thought.WithClock(s.clock),
		)
	}
	return s.thoughts
}

// Drafts returns the draft chain, creating it on first use.
func (s *Session) Drafts() *draft.Engine {
	if s.drafts == nil {
		s.drafts = draft.NewEngine(s.cfg,
			draft.WithID(uuid.NewString()),
			draft.WithLogger(s.logger),
			draft.WithClock(s.clock),
		)
	}
	return s.drafts
}

// View is a read-only picture of a session. A chain that was never
// started is nil.
type View struct {
	ID       string            `json:"sessionId"`
	Created  time.Time         `json:"createdAt"`
	LastUsed time.Time         `json:"lastUsedAt"`
	Thought  *thought.Snapshot `json:"sequential,omitempty"`
	Draft    *draft.Snapshot   `json:"draft,omitempty"`
}

func (s *Session) view() View {
	v := View{ID: s.id, Created: s.created, LastUsed: s.lastUsed}
	if s.thoughts != nil {
		snap := s.thoughts.Snapshot()
		v.Thought = &snap
	}
	if s.drafts != nil {
		snap := s.drafts.Snapshot()
		v.Draft = &snap
	}
	return v
}

// WithoutMetrics returns a copy of v with both metrics snapshots zeroed.
// The chains behind v are not touched.
func (v View) WithoutMetrics() View {
	if v.Thought != nil {
		snap := *v.Thought
		snap.Metrics = chain.Metrics{}
		v.Thought = &snap
	}
	if v.Draft != nil {
		snap := *v.Draft
		snap.Metrics = chain.Metrics{}
		v.Draft = &snap
	}
	return v
}

// Registry owns every live session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	chainCfg *chain.Config
	cfg      Config
	logger   *zap.Logger
	clock    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger handed to the registry and its engines.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the clock used by the registry and its engines.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRegistry creates an empty registry. Every chain it creates shares
// chainCfg by reference.
func NewRegistry(chainCfg *chain.Config, cfg Config, opts ...Option) *Registry {
	if chainCfg == nil {
		chainCfg = chain.DefaultConfig()
	}
	r := &Registry{
		sessions: make(map[string]*Session),
		chainCfg: chainCfg,
		cfg:      cfg,
		logger:   zap.NewNop(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("session")
	return r
}

// Normalize maps an empty identifier to DefaultID.
func Normalize(id string) string {
	if id == "" {
		return DefaultID
	}
	return id
}

// WithSession runs fn with exclusive access to the session, creating the
// session when it does not exist yet.
func (r *Registry) WithSession(ctx context.Context, id string, fn func(*Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := r.acquire(Normalize(id))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = r.clock()
	return fn(s)
}

func (r *Registry) acquire(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	if r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
		return nil, fmt.Errorf("%w: %d sessions", ErrTooManySessions, r.cfg.MaxSessions)
	}
	now := r.clock()
	s = &Session{
		id:       id,
		cfg:      r.chainCfg,
		logger:   r.logger.With(zap.String("session_id", id)),
		clock:    r.clock,
		created:  now,
		lastUsed: now,
	}
	r.sessions[id] = s
	SessionsActive.Set(float64(len(r.sessions)))
	r.logger.Debug("session created", zap.String("session_id", id))
	return s, nil
}

// Lookup returns a view of the session without creating it.
func (r *Registry) Lookup(id string) (View, bool) {
	r.mu.RLock()
	s, ok := r.sessions[Normalize(id)]
	r.mu.RUnlock()
	if !ok {
		return View{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), true
}

// Reset discards a session and its chains. It reports whether the session
// existed.
func (r *Registry) Reset(id string) bool {
	id = Normalize(id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	SessionsActive.Set(float64(len(r.sessions)))
	r.logger.Info("session reset", zap.String("session_id", id))
	return true
}

// List returns views of every session ordered by identifier.
func (r *Registry) List() []View {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].id < sessions[j].id })
	out := make([]View, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, s.view())
		s.mu.Unlock()
	}
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
