package emisconv

import (
	"sync"
)

// Result accumulates the anomalies found while processing one document.
// Structural warnings and resolution misses are recorded here next to the
// successful output, so a caller sees both the best-effort model and the
// list of anomalies in a single place.
type Result struct {
	// Clean is true if no errors were found (warnings are allowed)
	Clean bool `json:"clean"`

	// Issues contains all issues recorded during processing
	Issues []Issue `json:"issues,omitempty"`

	// RequestID correlates the result with a processing request
	RequestID string `json:"requestId,omitempty"`

	// DocumentID is the id of the document that was processed
	DocumentID string `json:"documentId,omitempty"`

	// mu protects concurrent access to Issues
	mu sync.Mutex
}

// NewResult creates a new empty result.
func NewResult() *Result {
	return &Result{
		Clean:  true,
		Issues: make([]Issue, 0, 8),
	}
}

// Reset clears the result for reuse.
func (r *Result) Reset() {
	r.Clean = true
	r.Issues = r.Issues[:0]
	r.RequestID = ""
	r.DocumentID = ""
}

// AddIssue records a processing issue.
// This method is safe for concurrent use.
func (r *Result) AddIssue(issue Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Issues = append(r.Issues, issue)
	if issue.IsError() {
		r.Clean = false
	}
}

// AddIssues records multiple issues.
// This method is safe for concurrent use.
func (r *Result) AddIssues(issues []Issue) {
	if len(issues) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.Issues = append(r.Issues, issues...)
	for _, issue := range issues {
		if issue.IsError() {
			r.Clean = false
			break
		}
	}
}

// AddError is a convenience method to record an error issue.
func (r *Result) AddError(code IssueType, diagnostics, path string) {
	r.AddIssue(Issue{
		Severity:    SeverityError,
		Code:        code,
		Diagnostics: diagnostics,
		Path:        []string{path},
	})
}

// AddWarning is a convenience method to record a warning issue.
func (r *Result) AddWarning(code IssueType, diagnostics, path string) {
	r.AddIssue(Issue{
		Severity:    SeverityWarning,
		Code:        code,
		Diagnostics: diagnostics,
		Path:        []string{path},
	})
}

// HasErrors returns true if there are any error or fatal issues.
func (r *Result) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, issue := range r.Issues {
		if issue.IsError() {
			return true
		}
	}
	return false
}

// HasWarnings returns true if there are any warning issues.
func (r *Result) HasWarnings() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, issue := range r.Issues {
		if issue.IsWarning() {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error and fatal issues.
func (r *Result) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, issue := range r.Issues {
		if issue.IsError() {
			count++
		}
	}
	return count
}

// WarningCount returns the number of warning issues.
func (r *Result) WarningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, issue := range r.Issues {
		if issue.IsWarning() {
			count++
		}
	}
	return count
}

// MissCount returns the number of resolution-miss issues.
func (r *Result) MissCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, issue := range r.Issues {
		if issue.Code == IssueTypeCodeInvalid {
			count++
		}
	}
	return count
}

// Errors returns all error and fatal issues.
func (r *Result) Errors() []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errors []Issue
	for _, issue := range r.Issues {
		if issue.IsError() {
			errors = append(errors, issue)
		}
	}
	return errors
}

// Warnings returns all warning issues.
func (r *Result) Warnings() []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()

	var warnings []Issue
	for _, issue := range r.Issues {
		if issue.IsWarning() {
			warnings = append(warnings, issue)
		}
	}
	return warnings
}

// Merge combines another result into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}

	other.mu.Lock()
	issues := make([]Issue, len(other.Issues))
	copy(issues, other.Issues)
	other.mu.Unlock()

	r.AddIssues(issues)
}

// Clone creates a copy of the result.
func (r *Result) Clone() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := &Result{
		Clean:      r.Clean,
		Issues:     make([]Issue, len(r.Issues)),
		RequestID:  r.RequestID,
		DocumentID: r.DocumentID,
	}
	copy(clone.Issues, r.Issues)
	return clone
}
