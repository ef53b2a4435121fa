package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/triplebob/emis-xml-convertor/engine"
)

type stubRunner struct {
	err error
}

func (s *stubRunner) Process(_ context.Context, _ []byte) (*engine.Output, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &engine.Output{}, nil
}

func TestPoolSubmitAndResults(t *testing.T) {
	pool := NewPool(&stubRunner{}, 2)
	defer pool.Close()

	for i := 0; i < 3; i++ {
		if !pool.Submit(Job{Document: []byte("<doc/>")}) {
			t.Fatalf("Submit() = false, want true")
		}
	}

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		result := <-pool.Results()
		if result.Error != nil {
			t.Errorf("result %d error = %v, want nil", i, result.Error)
		}
		if result.Output == nil {
			t.Errorf("result %d has nil output", i)
		}
		if result.ID == "" {
			t.Errorf("result %d has empty ID, want auto-assigned", i)
		}
		if seen[result.ID] {
			t.Errorf("duplicate result ID %q", result.ID)
		}
		seen[result.ID] = true
	}
}

func TestPoolPreservesJobID(t *testing.T) {
	pool := NewPool(&stubRunner{}, 1)
	defer pool.Close()

	if !pool.Submit(Job{ID: "custom-id", Document: []byte("<doc/>")}) {
		t.Fatal("Submit() = false, want true")
	}

	result := <-pool.Results()
	if result.ID != "custom-id" {
		t.Errorf("result ID = %q, want %q", result.ID, "custom-id")
	}
}

func TestPoolRunnerError(t *testing.T) {
	wantErr := errors.New("boom")
	pool := NewPool(&stubRunner{err: wantErr}, 1)
	defer pool.Close()

	pool.Submit(Job{Document: []byte("<doc/>")})

	result := <-pool.Results()
	if !errors.Is(result.Error, wantErr) {
		t.Errorf("result error = %v, want %v", result.Error, wantErr)
	}
	if result.Output != nil {
		t.Errorf("result output = %v, want nil on error", result.Output)
	}
}

func TestPoolNoRunner(t *testing.T) {
	pool := NewPool(nil, 1)
	defer pool.Close()

	pool.Submit(Job{Document: []byte("<doc/>")})

	result := <-pool.Results()
	if !errors.Is(result.Error, ErrNoRunner) {
		t.Errorf("result error = %v, want ErrNoRunner", result.Error)
	}
}

func TestPoolSubmitAfterClose(t *testing.T) {
	pool := NewPool(&stubRunner{}, 1)
	pool.Close()

	if pool.Submit(Job{Document: []byte("<doc/>")}) {
		t.Error("Submit() after Close = true, want false")
	}
	if pool.SubmitAsync(Job{Document: []byte("<doc/>")}) {
		t.Error("SubmitAsync() after Close = true, want false")
	}
}

func TestPoolCloseIdempotent(t *testing.T) {
	pool := NewPool(&stubRunner{}, 1)
	pool.Close()
	pool.Close()

	batch := pool.CloseAndWait()
	if batch.TotalJobs != 0 {
		t.Errorf("TotalJobs after double close = %d, want 0", batch.TotalJobs)
	}
}

func TestPoolCloseAndWait(t *testing.T) {
	failing := errors.New("bad document")
	pool := NewPool(&stubRunner{}, 2)

	for i := 0; i < 4; i++ {
		pool.Submit(Job{Document: []byte("<doc/>")})
	}

	// Drain before closing so every submitted job is known complete.
	results := make([]*JobResult, 0, 4)
	for i := 0; i < 4; i++ {
		results = append(results, <-pool.Results())
	}

	batch := pool.CloseAndWait()
	if batch.TotalJobs != 4 {
		t.Errorf("TotalJobs = %d, want 4", batch.TotalJobs)
	}
	if batch.CompletedJobs != 4 {
		t.Errorf("CompletedJobs = %d, want 4", batch.CompletedJobs)
	}
	if batch.FailedJobs != 0 {
		t.Errorf("FailedJobs = %d, want 0", batch.FailedJobs)
	}
	for _, r := range results {
		if errors.Is(r.Error, failing) {
			t.Errorf("unexpected failure: %v", r.Error)
		}
	}
}

func TestPoolStats(t *testing.T) {
	pool := NewPool(&stubRunner{}, 3)
	defer pool.Close()

	for i := 0; i < 2; i++ {
		pool.Submit(Job{Document: []byte("<doc/>")})
	}
	for i := 0; i < 2; i++ {
		<-pool.Results()
	}

	stats := pool.Stats()
	if stats.Workers != 3 {
		t.Errorf("Workers = %d, want 3", stats.Workers)
	}
	if stats.JobsSubmitted != 2 {
		t.Errorf("JobsSubmitted = %d, want 2", stats.JobsSubmitted)
	}
	if stats.JobsCompleted != 2 {
		t.Errorf("JobsCompleted = %d, want 2", stats.JobsCompleted)
	}
	if stats.AvgDuration < 0 {
		t.Errorf("AvgDuration = %v, want >= 0", stats.AvgDuration)
	}
}

func TestBatchRunOrder(t *testing.T) {
	calls := 0
	batch := NewBatch(func(_ context.Context, doc []byte) (*engine.Output, error) {
		calls++
		if string(doc) == "fail" {
			return nil, errors.New("bad document")
		}
		return &engine.Output{}, nil
	}, 1)

	result := batch.Run(context.Background(), [][]byte{
		[]byte("a"), []byte("fail"), []byte("c"),
	})

	if result.TotalJobs != 3 || result.CompletedJobs != 3 {
		t.Fatalf("TotalJobs/CompletedJobs = %d/%d, want 3/3", result.TotalJobs, result.CompletedJobs)
	}
	if result.FailedJobs != 1 {
		t.Errorf("FailedJobs = %d, want 1", result.FailedJobs)
	}
	if calls != 3 {
		t.Errorf("process calls = %d, want 3", calls)
	}
	if result.Results[1].Error == nil {
		t.Error("Results[1].Error = nil, want failure for second document")
	}
	if !result.HasErrors() {
		t.Error("HasErrors() = false, want true")
	}
}

func TestBatchRunParallel(t *testing.T) {
	batch := NewBatch(func(_ context.Context, _ []byte) (*engine.Output, error) {
		return &engine.Output{}, nil
	}, 4)

	docs := make([][]byte, 10)
	for i := range docs {
		docs[i] = []byte("<doc/>")
	}

	result := batch.Run(context.Background(), docs)
	if result.TotalJobs != 10 || result.CompletedJobs != 10 || result.FailedJobs != 0 {
		t.Fatalf("got %d/%d/%d, want 10/10/0", result.TotalJobs, result.CompletedJobs, result.FailedJobs)
	}
	for i, r := range result.Results {
		if r == nil {
			t.Fatalf("Results[%d] = nil", i)
		}
		if r.Error != nil {
			t.Errorf("Results[%d].Error = %v", i, r.Error)
		}
	}
	if result.HasErrors() {
		t.Error("HasErrors() = true, want false")
	}
}

func TestBatchRunEmpty(t *testing.T) {
	batch := NewBatch(func(_ context.Context, _ []byte) (*engine.Output, error) {
		return &engine.Output{}, nil
	}, 2)

	result := batch.Run(context.Background(), nil)
	if len(result.Results) != 0 || result.TotalJobs != 0 {
		t.Errorf("empty run: Results=%d TotalJobs=%d, want 0/0", len(result.Results), result.TotalJobs)
	}
}
