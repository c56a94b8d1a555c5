// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for time-based behavior.
//
// Usage:
//
//	ctx, cancel := cli.SignalContext(duration.ShutdownGrace)
//	if elapsed > duration.SlowRender {
//
// DO NOT use hardcoded time.Duration values like `5 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// PROCESS LIFECYCLE
// ============================================================================

const (
	// ShutdownGrace is how long a second interrupt forces an immediate exit
	// after the first one started a graceful stop (5s)
	ShutdownGrace = 5 * time.Second
)

// ============================================================================
// FILE SYSTEM
// ============================================================================

const (
	// FileRetryInit is the first backoff of a retried file operation (10ms)
	FileRetryInit = 10 * time.Millisecond

	// FileRetryMax caps a single file operation backoff (100ms)
	FileRetryMax = 100 * time.Millisecond
)

// ============================================================================
// RENDERING
// ============================================================================

const (
	// SlowRender is the render time above which a warning is logged (10s)
	SlowRender = 10 * time.Second
)

// ============================================================================
// ASSESSMENT LIFECYCLE
// ============================================================================
//
// Calendar spans, expressed as durations for use with time.Since.
// ============================================================================

const (
	// Day is a calendar day for day-granularity flags such as -prune-days
	Day = 24 * time.Hour

	// StaleProgress marks an in-progress assessment untouched this long (90 days)
	StaleProgress = 90 * Day

	// ReviewCycle is the expected interval between two assessments of one
	// organization (365 days)
	ReviewCycle = 365 * Day
)

// Since reports whether t is older than d at now. A zero t is never older.
func Since(t, now time.Time, d time.Duration) bool {
	return !t.IsZero() && now.Sub(t) > d
}
