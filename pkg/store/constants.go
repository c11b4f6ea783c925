package store

import "time"

// Network/operation timeouts. Named after and matching
// ctk.core.constants exactly; most are unused by the store itself (they
// govern LLM-facing timeouts that live outside this module's scope) but
// are kept here as the single source of truth for callers that need them.
const (
	DefaultTimeout       = 120 * time.Second
	HealthCheckTimeout   = 5 * time.Second
	ModelListTimeout     = 30 * time.Second
	ShortTimeout         = 2 * time.Second
	EmbeddingTimeout     = 60 * time.Second
	MigrationLockTimeout = 30 * time.Second
)

// Database & query limits.
const (
	DefaultSearchLimit   = 1000
	DefaultTimelineLimit = 30
	SearchBuffer         = 100
	TitleMatchBoost      = 10
	AmbiguityCheckLimit  = 2
)

// Input validation limits.
const (
	MaxQueryLength = 10000
	MaxTitleLength = 1000
	MaxIDLength    = 200
	MaxResultLimit = 10000
)

// Display.
const (
	TitleTruncateWidth      = 60
	TitleTruncateWidthShort = 50
)

// Estimation.
const CharsPerToken = 4
