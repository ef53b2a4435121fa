package emisconv

import (
	"runtime"
	"testing"

	"github.com/rs/zerolog"
)

func TestDedupPolicy_Valid(t *testing.T) {
	tests := []struct {
		policy DedupPolicy
		want   bool
	}{
		{DedupUniqueByCode, true},
		{DedupUniqueBySourceAndCode, true},
		{"unique-by-table", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.policy.Valid(); got != tt.want {
			t.Errorf("DedupPolicy(%q).Valid() = %v; want %v", tt.policy, got, tt.want)
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.DedupPolicy != DedupUniqueByCode {
		t.Errorf("DedupPolicy = %q; want %q", opts.DedupPolicy, DedupUniqueByCode)
	}
	if opts.StrictMode {
		t.Error("StrictMode should default to false")
	}
	if opts.MaxWarnings != 0 {
		t.Errorf("MaxWarnings = %d; want 0 (unlimited)", opts.MaxWarnings)
	}
	if opts.WorkerCount != runtime.NumCPU() {
		t.Errorf("WorkerCount = %d; want %d", opts.WorkerCount, runtime.NumCPU())
	}
	if !opts.CollectMetrics {
		t.Error("CollectMetrics should default to true")
	}
}

func TestOptions_Apply(t *testing.T) {
	opts := DefaultOptions()
	for _, opt := range []Option{
		WithDedupPolicy(DedupUniqueBySourceAndCode),
		WithStrictMode(true),
		WithMaxWarnings(25),
		WithWorkerCount(4),
		WithMetrics(false),
		WithLogger(zerolog.Nop()),
	} {
		opt(opts)
	}

	if opts.DedupPolicy != DedupUniqueBySourceAndCode {
		t.Errorf("DedupPolicy = %q; want %q", opts.DedupPolicy, DedupUniqueBySourceAndCode)
	}
	if !opts.StrictMode {
		t.Error("StrictMode = false; want true")
	}
	if opts.MaxWarnings != 25 {
		t.Errorf("MaxWarnings = %d; want 25", opts.MaxWarnings)
	}
	if opts.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d; want 4", opts.WorkerCount)
	}
	if opts.CollectMetrics {
		t.Error("CollectMetrics = true; want false")
	}
}

func TestWithWorkerCount_Invalid(t *testing.T) {
	opts := DefaultOptions()
	WithWorkerCount(0)(opts)
	if opts.WorkerCount != runtime.NumCPU() {
		t.Errorf("WorkerCount = %d; want default %d for non-positive input", opts.WorkerCount, runtime.NumCPU())
	}
	WithWorkerCount(-3)(opts)
	if opts.WorkerCount != runtime.NumCPU() {
		t.Errorf("WorkerCount = %d; want default kept", opts.WorkerCount)
	}
}
