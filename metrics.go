package emisconv

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks processing performance using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	// Document counts
	documentsTotal  atomic.Uint64
	documentsFailed atomic.Uint64

	// Timing (stored as nanoseconds)
	processingTimeTotal atomic.Uint64
	processingTimeMin   atomic.Uint64
	processingTimeMax   atomic.Uint64

	// Translation counts
	codesTranslated atomic.Uint64
	resolutionHits  atomic.Uint64
	resolutionMiss  atomic.Uint64

	// Issue counts by severity
	errorsTotal   atomic.Uint64
	warningsTotal atomic.Uint64

	// Per-stage timing
	stageTiming sync.Map // map[string]*stageMetrics
}

// stageMetrics tracks metrics for a single pipeline stage.
type stageMetrics struct {
	invocations atomic.Uint64
	totalTime   atomic.Uint64 // nanoseconds
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// Initialize min to max uint64 so first value becomes the minimum
	m.processingTimeMin.Store(^uint64(0))
	return m
}

// RecordDocument records a completed processing request.
func (m *Metrics) RecordDocument(duration time.Duration, ok bool) {
	m.documentsTotal.Add(1)
	if !ok {
		m.documentsFailed.Add(1)
	}

	ns := uint64(duration.Nanoseconds())
	m.processingTimeTotal.Add(ns)

	// Update min (CAS loop)
	for {
		old := m.processingTimeMin.Load()
		if ns >= old {
			break
		}
		if m.processingTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}

	// Update max (CAS loop)
	for {
		old := m.processingTimeMax.Load()
		if ns <= old {
			break
		}
		if m.processingTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordStage records the duration of one pipeline stage invocation.
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	v, _ := m.stageTiming.LoadOrStore(stage, &stageMetrics{})
	sm := v.(*stageMetrics)
	sm.invocations.Add(1)
	sm.totalTime.Add(uint64(duration.Nanoseconds()))
}

// RecordResolution records one mapping-table lookup outcome.
func (m *Metrics) RecordResolution(hit bool) {
	m.codesTranslated.Add(1)
	if hit {
		m.resolutionHits.Add(1)
	} else {
		m.resolutionMiss.Add(1)
	}
}

// RecordIssue records an issue by severity.
func (m *Metrics) RecordIssue(severity Severity) {
	switch severity {
	case SeverityError, SeverityFatal:
		m.errorsTotal.Add(1)
	case SeverityWarning:
		m.warningsTotal.Add(1)
	}
}

// StageSnapshot holds the recorded timing for one pipeline stage.
type StageSnapshot struct {
	Invocations uint64        `json:"invocations"`
	TotalTime   time.Duration `json:"totalTime"`
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	DocumentsTotal  uint64 `json:"documentsTotal"`
	DocumentsFailed uint64 `json:"documentsFailed"`

	ProcessingTimeTotal time.Duration `json:"processingTimeTotal"`
	ProcessingTimeMin   time.Duration `json:"processingTimeMin"`
	ProcessingTimeMax   time.Duration `json:"processingTimeMax"`

	CodesTranslated uint64 `json:"codesTranslated"`
	ResolutionHits  uint64 `json:"resolutionHits"`
	ResolutionMiss  uint64 `json:"resolutionMiss"`

	ErrorsTotal   uint64 `json:"errorsTotal"`
	WarningsTotal uint64 `json:"warningsTotal"`

	Stages map[string]StageSnapshot `json:"stages,omitempty"`
}

// HitRate returns the fraction of lookups that resolved, in [0, 1].
func (s Snapshot) HitRate() float64 {
	if s.CodesTranslated == 0 {
		return 0
	}
	return float64(s.ResolutionHits) / float64(s.CodesTranslated)
}

// TakeSnapshot returns a point-in-time copy of all metrics.
func (m *Metrics) TakeSnapshot() Snapshot {
	s := Snapshot{
		DocumentsTotal:      m.documentsTotal.Load(),
		DocumentsFailed:     m.documentsFailed.Load(),
		ProcessingTimeTotal: time.Duration(m.processingTimeTotal.Load()),
		ProcessingTimeMax:   time.Duration(m.processingTimeMax.Load()),
		CodesTranslated:     m.codesTranslated.Load(),
		ResolutionHits:      m.resolutionHits.Load(),
		ResolutionMiss:      m.resolutionMiss.Load(),
		ErrorsTotal:         m.errorsTotal.Load(),
		WarningsTotal:       m.warningsTotal.Load(),
		Stages:              make(map[string]StageSnapshot),
	}

	min := m.processingTimeMin.Load()
	if min != ^uint64(0) {
		s.ProcessingTimeMin = time.Duration(min)
	}

	m.stageTiming.Range(func(key, value any) bool {
		sm := value.(*stageMetrics)
		s.Stages[key.(string)] = StageSnapshot{
			Invocations: sm.invocations.Load(),
			TotalTime:   time.Duration(sm.totalTime.Load()),
		}
		return true
	})

	return s
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.documentsTotal.Store(0)
	m.documentsFailed.Store(0)
	m.processingTimeTotal.Store(0)
	m.processingTimeMin.Store(^uint64(0))
	m.processingTimeMax.Store(0)
	m.codesTranslated.Store(0)
	m.resolutionHits.Store(0)
	m.resolutionMiss.Store(0)
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)
	m.stageTiming.Range(func(key, _ any) bool {
		m.stageTiming.Delete(key)
		return true
	})
}
