// Package memory is the learned pattern store: error→fix pairs and successful
// generation patterns, looked up by normalized error signature. Memory is a
// capability, not a dependency — the Noop implementation behaves identically
// to a real store that happens to contain nothing, and callers never branch on
// which one they hold.
package memory

import (
	"context"
	"time"
)

// FixTier identifies which repair tier produced a fix. The closed enumeration
// makes the store-on-success rule checkable: only tiers above TierAuto are
// ever persisted.
type FixTier int

const (
	TierAuto   FixTier = iota // deterministic rewrite, never persisted
	TierMemory                // memory-assisted model fix
	TierSearch                // web-search-assisted model fix
	TierVisual                // visual-feedback model fix
)

func (t FixTier) String() string {
	switch t {
	case TierAuto:
		return "auto"
	case TierMemory:
		return "memory"
	case TierSearch:
		return "search"
	case TierVisual:
		return "visual"
	default:
		return "unknown"
	}
}

// FixRecord is one persisted error→fix pair. Written only after the render
// that used FixedCode succeeded; never mutated afterwards.
type FixRecord struct {
	ID           string
	Signature    string
	ErrorSnippet string
	OriginalCode string
	FixedCode    string
	Topic        string
	SceneType    string
	Tier         FixTier
	CreatedAt    time.Time
}

// GenerationRecord is a successful first-shot generation pattern. Unlike a
// FixRecord it represents no render outcome, so it is not success-gated.
type GenerationRecord struct {
	ID        string
	Task      string
	Code      string
	Topic     string
	SceneType string
	CreatedAt time.Time
}

// Example is a (problem, solution) pair surfaced during generation to steer
// the model away from previously seen error classes.
type Example struct {
	Problem  string
	Solution string
}

// Stats summarizes store contents.
type Stats struct {
	Enabled               bool `json:"enabled"`
	TotalMemories         int  `json:"total_memories"`
	ErrorFixes            int  `json:"error_fixes"`
	SuccessfulGenerations int  `json:"successful_generations"`
}

// Memory is the pattern store capability. Implementations degrade internally:
// lookups on a broken store return nothing, stores return false, and no method
// ever forces a caller onto an error path.
type Memory interface {
	StoreFix(ctx context.Context, fix FixRecord) bool
	SearchSimilarFixes(ctx context.Context, errorMessage, codeExcerpt, topic, sceneType string, limit int) []FixRecord
	StoreSuccessfulGeneration(ctx context.Context, gen GenerationRecord) bool
	PreventiveExamples(ctx context.Context, task, topic, sceneType string, limit int) []Example
	Stats(ctx context.Context) Stats
	// Clear deletes everything. It refuses to act unless confirm is true.
	Clear(ctx context.Context, confirm bool) error
}

// Noop is the memory used when no store is configured.
type Noop struct{}

func (Noop) StoreFix(ctx context.Context, fix FixRecord) bool { return false }
func (Noop) SearchSimilarFixes(ctx context.Context, errorMessage, codeExcerpt, topic, sceneType string, limit int) []FixRecord {
	return nil
}
func (Noop) StoreSuccessfulGeneration(ctx context.Context, gen GenerationRecord) bool { return false }
func (Noop) PreventiveExamples(ctx context.Context, task, topic, sceneType string, limit int) []Example {
	return nil
}
func (Noop) Stats(ctx context.Context) Stats                 { return Stats{Enabled: false} }
func (Noop) Clear(ctx context.Context, confirm bool) error   { return nil }
