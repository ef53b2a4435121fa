// Package engine provides the document processor: one call takes a raw
// document and a mapping-table snapshot through classification, parsing,
// extraction, translation and deduplication.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	emisconv "github.com/triplebob/emis-xml-convertor"
	"github.com/triplebob/emis-xml-convertor/codes"
	"github.com/triplebob/emis-xml-convertor/document"
	"github.com/triplebob/emis-xml-convertor/lookup"
	"github.com/triplebob/emis-xml-convertor/report"
	"github.com/triplebob/emis-xml-convertor/translate"
	"github.com/triplebob/emis-xml-convertor/xmlq"
)

// Processor coordinates the processing pipeline. It is safe for concurrent
// use: per-request state lives in the request, the mapping-table snapshot is
// read-only.
type Processor struct {
	options *emisconv.Options
	table   *lookup.Table
	metrics *emisconv.Metrics
}

// New creates a Processor over an immutable mapping-table snapshot.
func New(table *lookup.Table, opts ...emisconv.Option) (*Processor, error) {
	options := emisconv.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if !options.DedupPolicy.Valid() {
		return nil, fmt.Errorf("invalid dedup policy %q", options.DedupPolicy)
	}
	if table == nil {
		return nil, fmt.Errorf("nil mapping table")
	}
	return &Processor{
		options: options,
		table:   table,
		metrics: emisconv.NewMetrics(),
	}, nil
}

// Metrics returns the processor's metrics collector.
func (p *Processor) Metrics() *emisconv.Metrics {
	return p.metrics
}

// Output is everything one processing request produces.
type Output struct {
	RequestID string

	Document         *document.ClassifiedDocument
	Searches         []*report.Search
	ListReports      []*report.List
	AuditReports     []*report.Audit
	AggregateReports []*report.Aggregate

	// Entries is the extracted occurrence list, Raw the undeduplicated
	// translation set. Translation is Raw deduplicated under the request's
	// policy; Rededuplicate re-derives it from Raw under another policy.
	Entries     []*codes.Entry
	Raw         *translate.Set
	Translation *translate.Set

	Result *emisconv.Result
}

// Process runs the full pipeline over one document. Cancellation is checked
// between documents, not mid-traversal: a context cancelled after processing
// starts does not interrupt the pass. A document whose root cannot be parsed
// is fatal and produces no partial output.
func (p *Processor) Process(ctx context.Context, doc []byte) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	out := &Output{
		RequestID: uuid.NewString(),
		Result:    emisconv.NewResult(),
	}
	out.Result.RequestID = out.RequestID
	log := p.options.Logger.With().Str("request_id", out.RequestID).Logger()

	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(doc); err != nil {
		p.record(start, true)
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if tree.Root() == nil {
		p.record(start, true)
		return nil, fmt.Errorf("parsing document: no root element")
	}

	res := xmlq.NewResolver()

	p.stage("classify", func() {
		out.Document = document.Classify(tree.Root(), res, out.Result)
	})
	out.Result.DocumentID = out.Document.ID
	log.Debug().
		Int("searches", len(out.Document.Searches)).
		Int("reports", out.Document.TotalElements()-len(out.Document.Searches)).
		Msg("document classified")

	p.stage("parse", func() {
		rp := report.NewParser(res, out.Result)
		for _, el := range out.Document.Searches {
			out.Searches = append(out.Searches, rp.ParseSearch(el))
		}
		for _, el := range out.Document.ListReports {
			out.ListReports = append(out.ListReports, rp.ParseList(el))
		}
		for _, el := range out.Document.AuditReports {
			out.AuditReports = append(out.AuditReports, rp.ParseAudit(el))
		}
		for _, el := range out.Document.AggregateReports {
			out.AggregateReports = append(out.AggregateReports, rp.ParseAggregate(el))
		}
	})

	p.stage("extract", func() {
		out.Entries = codes.Extract(codes.Input{
			Searches:   out.Searches,
			Lists:      out.ListReports,
			Audits:     out.AuditReports,
			Aggregates: out.AggregateReports,
		})
	})

	p.stage("translate", func() {
		tr := translate.NewTranslator(p.table,
			translate.WithResult(out.Result),
			translate.WithMetrics(p.collector()),
			translate.WithLogger(log),
		)
		out.Raw = tr.Translate(out.Entries)
	})

	p.stage("dedup", func() {
		out.Translation = translate.Deduplicate(out.Raw, p.options.DedupPolicy)
	})

	p.finish(out, log)
	p.record(start, false)
	return out, nil
}

// Rededuplicate re-derives the deduplicated set from the request's
// undeduplicated results under another policy. The output is unchanged
// except for the translation set.
func (p *Processor) Rededuplicate(out *Output, policy emisconv.DedupPolicy) *translate.Set {
	if out == nil {
		return nil
	}
	return translate.Deduplicate(out.Raw, policy)
}

// finish applies strict mode and the warning cap, then settles Clean.
func (p *Processor) finish(out *Output, log zerolog.Logger) {
	r := out.Result
	if p.options.StrictMode {
		for i := range r.Issues {
			if r.Issues[i].Severity == emisconv.SeverityWarning {
				r.Issues[i].Severity = emisconv.SeverityError
			}
		}
	}
	if max := p.options.MaxWarnings; max > 0 {
		kept := r.Issues[:0]
		warnings := 0
		for _, issue := range r.Issues {
			if issue.Severity == emisconv.SeverityWarning {
				warnings++
				if warnings > max {
					continue
				}
			}
			kept = append(kept, issue)
		}
		r.Issues = kept
	}
	r.Clean = !r.HasErrors()

	if p.metrics != nil {
		for _, issue := range r.Issues {
			p.metrics.RecordIssue(issue.Severity)
		}
	}
	log.Debug().
		Int("errors", r.ErrorCount()).
		Int("warnings", r.WarningCount()).
		Int("translated", out.Translation.Stats.Total).
		Msg("processing complete")
}

func (p *Processor) stage(name string, fn func()) {
	if p.metrics == nil || !p.options.CollectMetrics {
		fn()
		return
	}
	start := time.Now()
	fn()
	p.metrics.RecordStage(name, time.Since(start))
}

func (p *Processor) record(start time.Time, failed bool) {
	if p.metrics == nil || !p.options.CollectMetrics {
		return
	}
	p.metrics.RecordDocument(time.Since(start), !failed)
}

func (p *Processor) collector() *emisconv.Metrics {
	if !p.options.CollectMetrics {
		return nil
	}
	return p.metrics
}
