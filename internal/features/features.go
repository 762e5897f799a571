// Package features holds the runtime feature toggles that callers flip
// through the setFeature tool. A Store is built once from configuration
// and handed to the components that consult it.
package features

import (
	"errors"
	"fmt"
	"sync"
)

// Feature names a runtime toggle.
type Feature string

const (
	ErrorCapture          Feature = "errorCapture"
	MetricTracking        Feature = "metricTracking"
	PerformanceMonitoring Feature = "performanceMonitoring"
	MCPDebug              Feature = "mcpDebug"
)

// All lists every feature in a stable order.
var All = []Feature{ErrorCapture, MetricTracking, PerformanceMonitoring, MCPDebug}

// ErrUnknownFeature is returned for names outside All.
var ErrUnknownFeature = errors.New("unknown feature")

// Flags is the full toggle set.
type Flags struct {
	ErrorCapture          bool `json:"errorCapture" koanf:"error_capture"`
	MetricTracking        bool `json:"metricTracking" koanf:"metric_tracking"`
	PerformanceMonitoring bool `json:"performanceMonitoring" koanf:"performance_monitoring"`
	MCPDebug              bool `json:"mcpDebug" koanf:"mcp_debug"`
}

// DefaultFlags returns the flags a fresh server starts with.
func DefaultFlags() Flags {
	return Flags{
		ErrorCapture:          true,
		MetricTracking:        true,
		PerformanceMonitoring: true,
	}
}

// ParseFeature converts a caller-supplied name into a Feature.
func ParseFeature(name string) (Feature, error) {
	for _, f := range All {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFeature, name)
}

func (f *Flags) field(name Feature) *bool {
	switch name {
	case ErrorCapture:
		return &f.ErrorCapture
	case MetricTracking:
		return &f.MetricTracking
	case PerformanceMonitoring:
		return &f.PerformanceMonitoring
	case MCPDebug:
		return &f.MCPDebug
	}
	return nil
}

// Store is a concurrency-safe holder for Flags.
type Store struct {
	mu    sync.RWMutex
	flags Flags
}

// NewStore creates a store seeded with initial.
func NewStore(initial Flags) *Store {
	return &Store{flags: initial}
}

// Set updates one feature and returns the resulting flag set.
func (s *Store) Set(name Feature, enabled bool) (Flags, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.flags.field(name)
	if p == nil {
		return s.flags, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	*p = enabled
	return s.flags, nil
}

// Enabled reports whether name is on. Unknown names are off.
func (s *Store) Enabled(name Feature) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.flags.field(name)
	return p != nil && *p
}

// Snapshot returns a copy of the current flags.
func (s *Store) Snapshot() Flags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}
