package codes

import (
	"github.com/triplebob/emis-xml-convertor/criteria"
	"github.com/triplebob/emis-xml-convertor/document"
	"github.com/triplebob/emis-xml-convertor/report"
)

// Attribution records one place a raw identifier was referenced from.
type Attribution struct {
	SourceGUID string        `json:"source_guid"`
	SourceName string        `json:"source_name"`
	SourceKind document.Kind `json:"source_kind"`

	CriterionID         string `json:"criterion_id,omitempty"`
	ValueSetGUID        string `json:"valueset_guid,omitempty"`
	ValueSetDescription string `json:"valueset_description,omitempty"`
	Table               string `json:"table,omitempty"`
	Column              string `json:"column,omitempty"`
}

// Entry is one occurrence of a raw code reference. The same raw identifier
// appears once per referencing site; merging across sites is the
// deduplication engine's job.
type Entry struct {
	RawID           string `json:"raw_id"`
	DisplayName     string `json:"display_name"`
	CodeSystem      string `json:"code_system"`
	IncludeChildren bool   `json:"include_children"`
	IsRefset        bool   `json:"is_refset"`
	IsLibraryItem   bool   `json:"is_library_item"`

	ValueSetGUID        string `json:"valueset_guid,omitempty"`
	ValueSetDescription string `json:"valueset_description,omitempty"`
	Table               string `json:"table,omitempty"`
	Column              string `json:"column,omitempty"`

	Attribution Attribution `json:"attribution"`
}

// Input bundles the parsed report-family models for one document.
type Input struct {
	Searches   []*report.Search
	Lists      []*report.List
	Audits     []*report.Audit
	Aggregates []*report.Aggregate
}

// Extract walks every value-set-bearing subtree reachable from the parsed
// models and returns the flat occurrence list in deterministic traversal
// order.
func Extract(in Input) []*Entry {
	w := &walker{visited: make(map[*criteria.Criterion]bool)}
	for _, s := range in.Searches {
		src := source(s.GUID, s.Name, document.KindSearch)
		for _, g := range s.Groups {
			w.group(g, src)
		}
	}
	for _, l := range in.Lists {
		src := source(l.GUID, l.Name, document.KindListReport)
		for _, cg := range l.ColumnGroups {
			for _, c := range cg.Criteria {
				w.criterion(c, src)
			}
		}
	}
	for _, a := range in.Audits {
		src := source(a.GUID, a.Name, document.KindAuditReport)
		for _, c := range a.Criteria {
			w.criterion(c, src)
		}
	}
	for _, a := range in.Aggregates {
		src := source(a.GUID, a.Name, document.KindAggregateReport)
		for _, c := range a.Criteria {
			w.criterion(c, src)
		}
	}
	return w.entries
}

func source(guid, name string, kind document.Kind) Attribution {
	return Attribution{SourceGUID: guid, SourceName: name, SourceKind: kind}
}

type walker struct {
	entries []*Entry
	// visited guards against re-walking a criterion reachable both as a
	// group member and as a resolved link target.
	visited map[*criteria.Criterion]bool
}

func (w *walker) group(g *criteria.Group, src Attribution) {
	if g == nil {
		return
	}
	for _, c := range g.Criteria {
		w.criterion(c, src)
	}
	for _, nested := range g.Groups {
		w.group(nested, src)
	}
}

func (w *walker) criterion(c *criteria.Criterion, src Attribution) {
	if c == nil || w.visited[c] {
		return
	}
	w.visited[c] = true

	at := src
	at.CriterionID = c.ID
	at.Table = c.Table

	for _, vs := range c.ValueSets {
		w.valueSet(vs, at)
	}
	for _, f := range c.ColumnFilters {
		w.filter(f, at)
	}
	if c.Restriction != nil {
		for _, f := range c.Restriction.Conditions {
			w.filter(f, at)
		}
	}
	if c.Linked != nil && c.Linked.Target != nil {
		w.criterion(c.Linked.Target, src)
	}
}

func (w *walker) filter(f *criteria.ColumnFilter, at Attribution) {
	if f == nil {
		return
	}
	at.Column = f.Column()
	for _, vs := range f.ValueSets {
		w.valueSet(vs, at)
	}
}

func (w *walker) valueSet(vs *criteria.ValueSet, at Attribution) {
	if vs == nil {
		return
	}
	at.ValueSetGUID = vs.GUID
	at.ValueSetDescription = vs.Description
	for _, e := range vs.Entries {
		w.entries = append(w.entries, &Entry{
			RawID:               e.Value,
			DisplayName:         e.DisplayName,
			CodeSystem:          vs.CodeSystem,
			IncludeChildren:     e.IncludeChildren,
			IsRefset:            e.IsRefset,
			IsLibraryItem:       e.IsLibraryItem,
			ValueSetGUID:        vs.GUID,
			ValueSetDescription: vs.Description,
			Table:               at.Table,
			Column:              at.Column,
			Attribution:         at,
		})
	}
}
