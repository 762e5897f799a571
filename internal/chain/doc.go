// Package chain holds the pieces shared by every reasoning engine in thinkd.
//
// A chain is the ordered history of steps one session submits to one engine.
// The package provides:
//
//   - Config, the read-only tuning values every engine consumes
//   - Status and its transition table (empty, in_progress, branching, revising, completed)
//   - Error, the coded error taxonomy returned by engines
//   - Arena, the append-only node history addressed by step number
//   - Aggregator, the bounded rolling-statistics window behind Metrics
//   - ValidateStruct, the tag-driven structural validator for step payloads
//
// Engines never share mutable state. Each engine owns its own Arena and its
// own Aggregator, while a single *Config is shared by reference.
//
// # Error Handling
//
// Engines return *Error values. Use errors.Is against the Kind sentinels:
//
//	if errors.Is(err, chain.ErrChainClosed) {
//	    // start a new session
//	}
//
// Confidence regressions are advisory. They are reported as warnings on an
// accepted step and never returned as the call's error.
package chain
