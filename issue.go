package emisconv

// Severity represents the severity of a processing issue.
type Severity string

const (
	// SeverityFatal indicates the document is unusable and processing stopped.
	SeverityFatal Severity = "fatal"
	// SeverityError indicates a processing error.
	SeverityError Severity = "error"
	// SeverityWarning indicates a recoverable anomaly that should be reviewed.
	SeverityWarning Severity = "warning"
	// SeverityInformation indicates informational feedback.
	SeverityInformation Severity = "information"
)

// IssueType identifies the kind of processing issue.
type IssueType string

const (
	// IssueTypeStructure indicates a malformed or unexpected element subtree.
	IssueTypeStructure IssueType = "structure"
	// IssueTypeNotFound indicates a dangling reference, such as a linked
	// criterion or population pointing at a GUID not present in the document.
	IssueTypeNotFound IssueType = "not-found"
	// IssueTypeIncomplete indicates a report whose mandatory payload is
	// missing, such as an audit report with zero population references.
	IssueTypeIncomplete IssueType = "incomplete"
	// IssueTypeCodeInvalid indicates a raw identifier absent from the
	// mapping table (a resolution miss).
	IssueTypeCodeInvalid IssueType = "code-invalid"
	// IssueTypeUnrecognized indicates a definition element whose shape is
	// not usable, such as a folder declared without an id or name. Report
	// elements never receive it: an element with no family payload is a
	// search.
	IssueTypeUnrecognized IssueType = "unrecognized"
	// IssueTypeConflict indicates two classification signals disagreed and a
	// precedence rule decided the outcome.
	IssueTypeConflict IssueType = "conflict"
	// IssueTypeProcessing indicates an internal processing error.
	IssueTypeProcessing IssueType = "processing"
)

// Issue represents a single anomaly recorded while processing a document.
// Structural warnings and resolution misses accumulate alongside successful
// results; only fatal-input failures abort a request.
type Issue struct {
	// Severity of the issue
	Severity Severity `json:"severity"`

	// Code identifying the type of issue
	Code IssueType `json:"code"`

	// Diagnostics contains human-readable details about the issue
	Diagnostics string `json:"diagnostics,omitempty"`

	// Path locates the element(s) the issue refers to
	Path []string `json:"path,omitempty"`

	// Source is the GUID of the owning search or report, if known
	Source string `json:"source,omitempty"`

	// Stage is the pipeline stage that recorded the issue
	Stage string `json:"stage,omitempty"`
}

// IsError returns true if this is an error or fatal issue.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError || i.Severity == SeverityFatal
}

// IsWarning returns true if this is a warning.
func (i Issue) IsWarning() bool {
	return i.Severity == SeverityWarning
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	path := ""
	if len(i.Path) > 0 {
		path = " at " + i.Path[0]
	}
	return string(i.Severity) + ": " + i.Diagnostics + path
}

// IssueBuilder provides a fluent API for building issues.
type IssueBuilder struct {
	issue Issue
}

// NewIssue creates a new IssueBuilder.
func NewIssue(severity Severity, code IssueType) *IssueBuilder {
	return &IssueBuilder{
		issue: Issue{
			Severity: severity,
			Code:     code,
		},
	}
}

// Error creates an error issue.
func Error(code IssueType) *IssueBuilder {
	return NewIssue(SeverityError, code)
}

// Warning creates a warning issue.
func Warning(code IssueType) *IssueBuilder {
	return NewIssue(SeverityWarning, code)
}

// Info creates an informational issue.
func Info(code IssueType) *IssueBuilder {
	return NewIssue(SeverityInformation, code)
}

// Diagnostics sets the diagnostic message.
func (b *IssueBuilder) Diagnostics(msg string) *IssueBuilder {
	b.issue.Diagnostics = msg
	return b
}

// At sets the element path.
func (b *IssueBuilder) At(path string) *IssueBuilder {
	b.issue.Path = []string{path}
	return b
}

// AtPaths sets multiple element paths.
func (b *IssueBuilder) AtPaths(paths ...string) *IssueBuilder {
	b.issue.Path = paths
	return b
}

// Source sets the owning search/report GUID.
func (b *IssueBuilder) Source(guid string) *IssueBuilder {
	b.issue.Source = guid
	return b
}

// Stage sets the pipeline stage.
func (b *IssueBuilder) Stage(stage string) *IssueBuilder {
	b.issue.Stage = stage
	return b
}

// Build returns the constructed issue.
func (b *IssueBuilder) Build() Issue {
	return b.issue
}
