package emisconv

import (
	"runtime"

	"github.com/rs/zerolog"
)

// DedupPolicy selects how translation results are deduplicated.
// Switching policy is always re-derivable from the undeduplicated result
// set; it is never applied destructively to a prior deduplicated set.
type DedupPolicy string

const (
	// DedupUniqueByCode collapses all results sharing a resolved code into
	// one record; attribution sets are unioned.
	DedupUniqueByCode DedupPolicy = "unique-by-code"
	// DedupUniqueBySourceAndCode collapses only results sharing both the
	// same owning search/report and the same resolved code; a code
	// referenced from two different searches survives as two records.
	DedupUniqueBySourceAndCode DedupPolicy = "unique-by-source-and-code"
)

// Valid returns true if this is a known deduplication policy.
func (p DedupPolicy) Valid() bool {
	switch p {
	case DedupUniqueByCode, DedupUniqueBySourceAndCode:
		return true
	default:
		return false
	}
}

// Option configures the processing engine.
type Option func(*Options)

// Options holds all configuration for the processing engine.
type Options struct {
	// DedupPolicy is applied to the translation results of each request.
	DedupPolicy DedupPolicy

	// StrictMode promotes structural warnings to errors.
	StrictMode bool

	// MaxWarnings stops recording warnings past this many (0 = unlimited).
	// Processing itself continues; only recording is capped.
	MaxWarnings int

	// WorkerCount is the number of workers used by the batch pool.
	WorkerCount int

	// CollectMetrics enables performance metric collection.
	CollectMetrics bool

	// Logger receives stage-level debug output and anomaly summaries.
	Logger zerolog.Logger
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		DedupPolicy:    DedupUniqueByCode,
		StrictMode:     false,
		MaxWarnings:    0,
		WorkerCount:    runtime.NumCPU(),
		CollectMetrics: true,
		Logger:         zerolog.Nop(),
	}
}

// WithDedupPolicy sets the deduplication policy.
func WithDedupPolicy(policy DedupPolicy) Option {
	return func(o *Options) {
		o.DedupPolicy = policy
	}
}

// WithStrictMode promotes structural warnings to errors.
func WithStrictMode(strict bool) Option {
	return func(o *Options) {
		o.StrictMode = strict
	}
}

// WithMaxWarnings caps the number of recorded warnings.
func WithMaxWarnings(max int) Option {
	return func(o *Options) {
		o.MaxWarnings = max
	}
}

// WithWorkerCount sets the batch pool size.
func WithWorkerCount(workers int) Option {
	return func(o *Options) {
		if workers > 0 {
			o.WorkerCount = workers
		}
	}
}

// WithMetrics enables or disables metric collection.
func WithMetrics(collect bool) Option {
	return func(o *Options) {
		o.CollectMetrics = collect
	}
}

// WithLogger sets the logger used by the engine.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
