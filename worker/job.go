package worker

import (
	"github.com/triplebob/emis-xml-convertor/engine"
)

// Job is one document to process.
type Job struct {
	// ID identifies this job in results. Assigned automatically when
	// empty.
	ID string

	// Document is the raw document content.
	Document []byte
}

// JobResult is the outcome of one job.
type JobResult struct {
	// ID matches the Job.ID that produced this result.
	ID string

	// Output is the processing output, nil when Error is set.
	Output *engine.Output

	// Error holds a fatal-input or processing error.
	Error error

	// Duration is the processing time in nanoseconds.
	Duration int64
}

// BatchResult aggregates the results of a batch.
type BatchResult struct {
	Results       []*JobResult
	TotalJobs     int
	CompletedJobs int
	FailedJobs    int
	TotalDuration int64
}

// HasErrors reports whether any job failed or produced error issues.
func (br *BatchResult) HasErrors() bool {
	for _, r := range br.Results {
		if r == nil {
			continue
		}
		if r.Error != nil {
			return true
		}
		if r.Output != nil && r.Output.Result != nil && r.Output.Result.HasErrors() {
			return true
		}
	}
	return false
}

// ErrorCount returns the total number of error issues across all results.
func (br *BatchResult) ErrorCount() int {
	count := 0
	for _, r := range br.Results {
		if r != nil && r.Output != nil && r.Output.Result != nil {
			count += r.Output.Result.ErrorCount()
		}
	}
	return count
}
