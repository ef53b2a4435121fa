package translate

import (
	"strings"

	"github.com/rs/zerolog"

	emisconv "github.com/triplebob/emis-xml-convertor"
	"github.com/triplebob/emis-xml-convertor/codes"
	"github.com/triplebob/emis-xml-convertor/criteria"
	"github.com/triplebob/emis-xml-convertor/lookup"
)

// Translator resolves extracted code occurrences against one mapping-table
// snapshot. The snapshot is read-only for the translator's lifetime.
type Translator struct {
	table   *lookup.Table
	result  *emisconv.Result
	metrics *emisconv.Metrics
	log     zerolog.Logger
}

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithResult accumulates resolution misses and structural issues on result.
func WithResult(result *emisconv.Result) TranslatorOption {
	return func(t *Translator) { t.result = result }
}

// WithMetrics records hit/miss counts on metrics.
func WithMetrics(m *emisconv.Metrics) TranslatorOption {
	return func(t *Translator) { t.metrics = m }
}

// WithLogger sets the translator's logger.
func WithLogger(log zerolog.Logger) TranslatorOption {
	return func(t *Translator) { t.log = log }
}

// NewTranslator creates a translator over the given snapshot.
func NewTranslator(table *lookup.Table, opts ...TranslatorOption) *Translator {
	t := &Translator{table: table, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate resolves every occurrence and returns the undeduplicated set in
// input order: container results first, then per-occurrence results.
func (t *Translator) Translate(entries []*codes.Entry) *Set {
	containers := t.findContainers(entries)

	var results []*Result
	for _, c := range containers.ordered {
		results = append(results, c.result)
	}
	for _, e := range entries {
		if r := t.translateEntry(e, containers); r != nil {
			results = append(results, r)
		}
	}
	results = append(results, t.mappingOnlyMembers(containers)...)

	set := &Set{Results: results, Stats: computeStats(results)}
	t.log.Debug().
		Int("total", set.Stats.Total).
		Int("unmatched", set.Stats.Unmatched).
		Int("containers", len(containers.ordered)).
		Msg("translation complete")
	return set
}

type container struct {
	result *Result
	record *lookup.Record
	// seen tracks document-declared members so mapping-enumerated members
	// are only added when the document did not already reference them.
	seen map[string]bool
}

type containerIndex struct {
	byValueSet map[string]*container
	ordered    []*container
}

// findContainers detects pseudo-refset value sets, either flagged as such in
// the mapping table or recognisable by their description pattern, and builds
// one non-directly-usable container result per value set.
func (t *Translator) findContainers(entries []*codes.Entry) *containerIndex {
	idx := &containerIndex{byValueSet: make(map[string]*container)}
	for _, e := range entries {
		// A true refset is its own resolvable concept; its value set is
		// never a container, however container-like the description reads.
		if e.ValueSetGUID == "" || e.IsRefset {
			continue
		}
		if _, done := idx.byValueSet[e.ValueSetGUID]; done {
			continue
		}

		rec, found := t.table.Lookup(e.ValueSetGUID)
		isContainer := found && rec.IsPseudoRefsetContainer()
		if !isContainer && IsPseudoRefsetPattern(e.ValueSetDescription) {
			isContainer = true
		}
		if !isContainer {
			continue
		}
		if !found {
			rec = nil
		}

		c := &container{
			record: rec,
			seen:   make(map[string]bool),
			result: &Result{
				RawID:               e.ValueSetGUID,
				Status:              StatusMatched,
				Category:            CategoryPseudoRefset,
				Description:         criteria.CleanRefsetDescription(e.ValueSetDescription),
				DirectlyUsable:      false,
				ValueSetGUID:        e.ValueSetGUID,
				ValueSetDescription: e.ValueSetDescription,
				Attributions:        []codes.Attribution{e.Attribution},
			},
		}
		if rec != nil && rec.SNOMEDCode != "" {
			c.result.SNOMEDCode = rec.SNOMEDCode
		}
		idx.byValueSet[e.ValueSetGUID] = c
		idx.ordered = append(idx.ordered, c)
	}
	return idx
}

func (t *Translator) translateEntry(e *codes.Entry, containers *containerIndex) *Result {
	if c, ok := containers.byValueSet[e.ValueSetGUID]; ok && !e.IsRefset {
		return t.translateMember(e, c)
	}
	if e.IsRefset {
		return t.translateRefset(e)
	}
	return t.translateStandalone(e)
}

// translateRefset handles true refsets: the raw identifier already is the
// SNOMED code, so resolution cannot miss and the table only enriches.
func (t *Translator) translateRefset(e *codes.Entry) *Result {
	r := baseResult(e)
	r.Status = StatusMatched
	r.Category = CategoryRefset
	r.SNOMEDCode = e.RawID
	r.DirectlyUsable = true
	r.Description = criteria.CleanRefsetDescription(e.ValueSetDescription)
	if rec, ok := t.table.BySnomed(e.RawID); ok {
		enrich(r, rec)
	}
	t.recordHit(true)
	return r
}

func (t *Translator) translateMember(e *codes.Entry, c *container) *Result {
	// Internal bookkeeping codes are never members. Marking them seen keeps
	// the mapping-table member list from re-adding them.
	if strings.EqualFold(e.CodeSystem, "EMISINTERNAL") {
		c.seen[e.RawID] = true
		return nil
	}

	c.seen[e.RawID] = true
	c.result.MemberCount++
	c.result.Attributions = appendAttribution(c.result.Attributions, e.Attribution)

	r := baseResult(e)
	r.Category = CategoryPseudoRefsetMember
	r.ContainerID = c.result.ValueSetGUID
	r.DirectlyUsable = true
	t.resolve(r, e)
	// A member keeps its container's attribution alongside its own.
	r.Attributions = appendAttribution(r.Attributions, c.result.Attributions[0])
	return r
}

func (t *Translator) translateStandalone(e *codes.Entry) *Result {
	r := baseResult(e)
	r.DirectlyUsable = true
	t.resolve(r, e)
	return r
}

// resolve looks the identifier up, fills enrichment fields and applies the
// category precedence: internal codes first, then the mapping table's
// medication verdict, then document context, clinical otherwise.
func (t *Translator) resolve(r *Result, e *codes.Entry) {
	if strings.EqualFold(e.CodeSystem, "EMISINTERNAL") {
		// Internal bookkeeping codes are never clinical and never
		// medication. A missing mapping is expected, not a miss.
		r.Category = CategoryInternal
		if rec, ok := t.table.Lookup(e.RawID); ok {
			r.Status = StatusMatched
			r.SNOMEDCode = rec.SNOMEDCode
		} else {
			r.Status = StatusUnmatched
		}
		return
	}

	rec, found := t.table.Lookup(e.RawID)
	if found {
		r.Status = StatusMatched
		r.SNOMEDCode = rec.SNOMEDCode
		enrich(r, rec)
	} else {
		r.Status = StatusUnmatched
		t.miss(e)
	}
	t.recordHit(found)

	memberCategory := r.Category == CategoryPseudoRefsetMember

	switch {
	case found && rec.IsMedication():
		if !memberCategory {
			r.Category = CategoryMedication
		}
		r.MedicationType = medicationTypeFlag(e.CodeSystem)
		if !contextIsMedication(e) {
			t.conflict(e, rec)
		}
	case contextIsMedication(e):
		if !memberCategory {
			r.Category = CategoryMedication
		}
		r.MedicationType = medicationTypeFlag(e.CodeSystem)
	default:
		if !memberCategory {
			r.Category = CategoryClinical
		}
	}
}

// mappingOnlyMembers emits results for container members the mapping table
// enumerates but the document never referenced directly. They attribute back
// to the container's source.
func (t *Translator) mappingOnlyMembers(containers *containerIndex) []*Result {
	var results []*Result
	for _, c := range containers.ordered {
		if c.record == nil {
			continue
		}
		for _, rawID := range c.record.Members {
			if rawID == "" || c.seen[rawID] {
				continue
			}
			c.seen[rawID] = true
			c.result.MemberCount++

			r := &Result{
				RawID:               rawID,
				Category:            CategoryPseudoRefsetMember,
				ContainerID:         c.result.ValueSetGUID,
				DirectlyUsable:      true,
				ValueSetGUID:        c.result.ValueSetGUID,
				ValueSetDescription: c.result.ValueSetDescription,
				Attributions:        append([]codes.Attribution(nil), c.result.Attributions[0]),
			}
			if rec, ok := t.table.Lookup(rawID); ok {
				r.Status = StatusMatched
				r.SNOMEDCode = rec.SNOMEDCode
				if rec.Description != "" {
					r.Description = rec.Description
				}
				enrich(r, rec)
				t.recordHit(true)
			} else {
				r.Status = StatusUnmatched
				t.recordHit(false)
				t.warnMiss(rawID, c.result.ValueSetGUID, "pseudo-refset member absent from mapping table")
			}
			results = append(results, r)
		}
	}
	return results
}

func baseResult(e *codes.Entry) *Result {
	desc := e.DisplayName
	if desc == "" {
		desc = "No display name in XML"
	}
	return &Result{
		RawID:               e.RawID,
		Description:         desc,
		CodeSystem:          e.CodeSystem,
		DisplayName:         e.DisplayName,
		IncludeChildren:     e.IncludeChildren,
		ValueSetGUID:        e.ValueSetGUID,
		ValueSetDescription: e.ValueSetDescription,
		Table:               e.Table,
		Column:              e.Column,
		Attributions:        []codes.Attribution{e.Attribution},
	}
}

func enrich(r *Result, rec *lookup.Record) {
	r.HasQualifier = rec.HasQualifier
	r.IsParent = rec.IsParent
	r.Descendants = rec.Descendants
	r.CodeType = rec.CodeType
}

func contextIsMedication(e *codes.Entry) bool {
	switch strings.ToUpper(e.CodeSystem) {
	case "EMISINTERNAL":
		return false
	case "SCT_CONST", "SCT_DRGGRP", "SCT_PREP":
		return true
	}
	table := strings.ToUpper(e.Table)
	if (table == "MEDICATION_ISSUES" || table == "MEDICATION_COURSES") &&
		strings.ToUpper(e.Column) == "DRUGCODE" {
		return true
	}
	return false
}

func medicationTypeFlag(codeSystem string) string {
	switch strings.ToUpper(codeSystem) {
	case "SCT_CONST":
		return "SCT_CONST (Constituent)"
	case "SCT_DRGGRP":
		return "SCT_DRGGRP (Drug Group)"
	case "SCT_PREP":
		return "SCT_PREP (Preparation)"
	default:
		return "Standard Medication"
	}
}

// pseudoRefsetPatterns are known container identifiers that predate the
// mapping table carrying an explicit category for them.
var pseudoRefsetPatterns = []string{"ASTTRT_COD", "ASTRES_COD", "AST_COD"}

// IsPseudoRefsetPattern reports whether a value-set description names a
// pseudo-refset container: a known identifier, or a non-numeric name ending
// in _COD.
func IsPseudoRefsetPattern(desc string) bool {
	upper := strings.ToUpper(desc)
	if upper == "" {
		return false
	}
	for _, p := range pseudoRefsetPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	if strings.HasSuffix(upper, "_COD") {
		stem := strings.ReplaceAll(strings.TrimSuffix(upper, "_COD"), "_", "")
		if stem != "" && !isDigits(stem) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func appendAttribution(list []codes.Attribution, at codes.Attribution) []codes.Attribution {
	for _, existing := range list {
		if existing == at {
			return list
		}
	}
	return append(list, at)
}

func (t *Translator) recordHit(hit bool) {
	if t.metrics != nil {
		t.metrics.RecordResolution(hit)
	}
}

func (t *Translator) miss(e *codes.Entry) {
	t.warnMiss(e.RawID, e.ValueSetGUID, "raw identifier absent from mapping table")
}

func (t *Translator) warnMiss(rawID, valueSetGUID, msg string) {
	if t.result == nil {
		return
	}
	t.result.AddIssue(emisconv.Warning(emisconv.IssueTypeCodeInvalid).
		Diagnostics(msg+": "+rawID).
		At("valueSet["+valueSetGUID+"]").
		Stage("translate").
		Build())
}

func (t *Translator) conflict(e *codes.Entry, rec *lookup.Record) {
	if t.result == nil {
		return
	}
	t.result.AddIssue(emisconv.Info(emisconv.IssueTypeConflict).
		Diagnostics("mapping table classifies "+e.RawID+" as "+rec.SourceType+
			" but document context does not; mapping classification kept").
		At("valueSet["+e.ValueSetGUID+"]").
		Stage("translate").
		Build())
}
