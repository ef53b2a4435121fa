package worker

import (
	"context"
	"runtime"
	"strconv"
	"sync"

	"github.com/triplebob/emis-xml-convertor/engine"
)

// ProcessFunc is the per-document processing function a batch runs.
type ProcessFunc func(ctx context.Context, doc []byte) (*engine.Output, error)

// Batch processes a fixed slice of documents and returns results in input
// order, unlike Pool's streaming results.
type Batch struct {
	process ProcessFunc
	workers int
}

// NewBatch creates a batch processor.
func NewBatch(process ProcessFunc, workers int) *Batch {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Batch{process: process, workers: workers}
}

// Run processes the documents. Cancelling the context stops scheduling new
// documents; documents already in flight still finish.
func (b *Batch) Run(ctx context.Context, documents [][]byte) *BatchResult {
	if len(documents) == 0 {
		return &BatchResult{Results: make([]*JobResult, 0)}
	}
	if len(documents) <= 2 {
		return b.runSequential(ctx, documents)
	}
	return b.runParallel(ctx, documents)
}

func (b *Batch) runSequential(ctx context.Context, documents [][]byte) *BatchResult {
	results := make([]*JobResult, 0, len(documents))
	failed := 0

	for i, doc := range documents {
		select {
		case <-ctx.Done():
			return &BatchResult{
				Results:       results,
				TotalJobs:     len(documents),
				CompletedJobs: len(results),
				FailedJobs:    failed,
			}
		default:
		}

		out, err := b.process(ctx, doc)
		if err != nil {
			failed++
		}
		results = append(results, &JobResult{ID: strconv.Itoa(i), Output: out, Error: err})
	}

	return &BatchResult{
		Results:       results,
		TotalJobs:     len(documents),
		CompletedJobs: len(results),
		FailedJobs:    failed,
	}
}

func (b *Batch) runParallel(ctx context.Context, documents [][]byte) *BatchResult {
	workers := b.workers
	if workers > len(documents) {
		workers = len(documents)
	}

	type indexedJob struct {
		index int
		doc   []byte
	}
	jobs := make(chan indexedJob, len(documents))
	results := make([]*JobResult, len(documents))
	var mu sync.Mutex
	completed, failed := 0, 0

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				out, err := b.process(ctx, job.doc)
				mu.Lock()
				results[job.index] = &JobResult{ID: strconv.Itoa(job.index), Output: out, Error: err}
				completed++
				if err != nil {
					failed++
				}
				mu.Unlock()
			}
		}()
	}

	for i, doc := range documents {
		jobs <- indexedJob{index: i, doc: doc}
	}
	close(jobs)
	wg.Wait()

	return &BatchResult{
		Results:       results,
		TotalJobs:     len(documents),
		CompletedJobs: completed,
		FailedJobs:    failed,
	}
}
