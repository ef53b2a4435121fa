package translate

import (
	"testing"

	emisconv "github.com/triplebob/emis-xml-convertor"
	"github.com/triplebob/emis-xml-convertor/codes"
	"github.com/triplebob/emis-xml-convertor/document"
	"github.com/triplebob/emis-xml-convertor/lookup"
)

func entry(rawID, system, table, column, sourceGUID string) *codes.Entry {
	return &codes.Entry{
		RawID:      rawID,
		CodeSystem: system,
		Table:      table,
		Column:     column,
		Attribution: codes.Attribution{
			SourceGUID: sourceGUID,
			SourceName: "Search " + sourceGUID,
			SourceKind: document.KindSearch,
			Table:      table,
			Column:     column,
		},
	}
}

func testTable(records ...*lookup.Record) *lookup.Table {
	return lookup.NewTable(records)
}

func find(set *Set, rawID string) *Result {
	for _, r := range set.Results {
		if r.RawID == rawID {
			return r
		}
	}
	return nil
}

func TestTranslateClinicalMatch(t *testing.T) {
	table := testTable(&lookup.Record{
		EMISGUID: "guid-1", SNOMEDCode: "195967001", SourceType: "Clinical",
		HasQualifier: "No", IsParent: "Yes", Descendants: "12", CodeType: "Concept",
	})
	result := emisconv.NewResult()
	tr := NewTranslator(table, WithResult(result))

	e := entry("guid-1", "SNOMED_CONCEPT", "EVENTS", "READCODE", "s1")
	e.DisplayName = "Asthma"
	set := tr.Translate([]*codes.Entry{e})

	r := find(set, "guid-1")
	if r == nil || !r.Matched() || r.SNOMEDCode != "195967001" {
		t.Fatalf("result = %+v", r)
	}
	if r.Category != CategoryClinical {
		t.Errorf("category = %v, want clinical", r.Category)
	}
	if r.HasQualifier != "No" || r.IsParent != "Yes" || r.Descendants != "12" {
		t.Errorf("enrichment = %+v", r)
	}
	if !r.DirectlyUsable {
		t.Error("standalone clinical code should be directly usable")
	}
	if set.Stats.Matched != 1 || set.Stats.Unmatched != 0 {
		t.Errorf("stats = %+v", set.Stats)
	}
}

func TestTranslateMissIsExplicit(t *testing.T) {
	result := emisconv.NewResult()
	tr := NewTranslator(testTable(), WithResult(result))

	set := tr.Translate([]*codes.Entry{entry("unknown-guid", "SNOMED_CONCEPT", "EVENTS", "", "s1")})

	r := find(set, "unknown-guid")
	if r == nil {
		t.Fatal("miss must yield an explicit unmatched result, not omission")
	}
	if r.Matched() || r.SNOMEDCode != "" {
		t.Errorf("unmatched result = %+v", r)
	}
	if result.MissCount() != 1 {
		t.Errorf("miss count = %d, want 1", result.MissCount())
	}
	if result.HasErrors() {
		t.Error("a resolution miss is a warning, never an error")
	}
	if set.Stats.SuccessRate() != 0 {
		t.Errorf("success rate = %v", set.Stats.SuccessRate())
	}
}

func TestTranslateMappingMedicationWins(t *testing.T) {
	// Mapping table says medication; document context says plain clinical.
	table := testTable(&lookup.Record{
		EMISGUID: "guid-1", SNOMEDCode: "322236009", SourceType: lookup.SourceMedication,
	})
	result := emisconv.NewResult()
	tr := NewTranslator(table, WithResult(result))

	set := tr.Translate([]*codes.Entry{entry("guid-1", "SNOMED_CONCEPT", "EVENTS", "READCODE", "s1")})

	r := find(set, "guid-1")
	if r.Category != CategoryMedication {
		t.Fatalf("category = %v, want medication (mapping table wins)", r.Category)
	}
	if r.MedicationType != "Standard Medication" {
		t.Errorf("medication type = %q", r.MedicationType)
	}
	conflict := false
	for _, issue := range result.Issues {
		if issue.Code == emisconv.IssueTypeConflict && issue.Severity == emisconv.SeverityInformation {
			conflict = true
		}
	}
	if !conflict {
		t.Error("mapping/context disagreement should record an information conflict issue")
	}
}

func TestTranslateContextMedication(t *testing.T) {
	tests := []struct {
		name  string
		entry *codes.Entry
		want  string
	}{
		{"constituent system", entry("g1", "SCT_CONST", "EVENTS", "", "s1"), "SCT_CONST (Constituent)"},
		{"drug group system", entry("g2", "SCT_DRGGRP", "EVENTS", "", "s1"), "SCT_DRGGRP (Drug Group)"},
		{"preparation system", entry("g3", "SCT_PREP", "EVENTS", "", "s1"), "SCT_PREP (Preparation)"},
		{"issues drugcode", entry("g4", "SNOMED_CONCEPT", "MEDICATION_ISSUES", "DRUGCODE", "s1"), "Standard Medication"},
		{"courses drugcode", entry("g5", "SNOMED_CONCEPT", "MEDICATION_COURSES", "DRUGCODE", "s1"), "Standard Medication"},
	}
	tr := NewTranslator(testTable())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := tr.Translate([]*codes.Entry{tt.entry})
			r := set.Results[0]
			if r.Category != CategoryMedication {
				t.Fatalf("category = %v, want medication", r.Category)
			}
			if r.MedicationType != tt.want {
				t.Errorf("medication type = %q, want %q", r.MedicationType, tt.want)
			}
		})
	}
}

func TestTranslateMedicationTableNonDrugColumn(t *testing.T) {
	// Medication table but a status column: not a medication context.
	tr := NewTranslator(testTable())
	set := tr.Translate([]*codes.Entry{entry("g1", "SNOMED_CONCEPT", "MEDICATION_ISSUES", "STATUS", "s1")})

	if set.Results[0].Category != CategoryClinical {
		t.Errorf("category = %v, want clinical", set.Results[0].Category)
	}
}

func TestTranslateInternalCode(t *testing.T) {
	// An EMISINTERNAL code in full medication context stays internal.
	result := emisconv.NewResult()
	tr := NewTranslator(testTable(), WithResult(result))

	set := tr.Translate([]*codes.Entry{entry("status-guid", "EMISINTERNAL", "MEDICATION_ISSUES", "DRUGCODE", "s1")})

	r := find(set, "status-guid")
	if r == nil {
		t.Fatal("internal codes are surfaced, not dropped")
	}
	if r.Category != CategoryInternal {
		t.Errorf("category = %v, want internal", r.Category)
	}
	if set.Stats.Medication != 0 {
		t.Error("internal code must never count as medication")
	}
	if result.MissCount() != 0 {
		t.Error("missing mapping for an internal code is not a resolution miss")
	}
}

func TestTranslateRefsetRawIsCode(t *testing.T) {
	tr := NewTranslator(testTable())
	e := entry("999012891000230104", "SNOMED_CONCEPT", "EVENTS", "", "s1")
	e.IsRefset = true
	e.ValueSetGUID = "vs-1"
	e.ValueSetDescription = "Refset: DM_COD"
	set := tr.Translate([]*codes.Entry{e})

	r := find(set, "999012891000230104")
	if r == nil || r.Category != CategoryRefset {
		t.Fatalf("result = %+v", r)
	}
	if !r.Matched() || r.SNOMEDCode != "999012891000230104" {
		t.Error("a true refset's raw identifier is its SNOMED code, no lookup needed")
	}
	if r.Description != "DM_COD" {
		t.Errorf("description = %q, want cleaned refset name", r.Description)
	}
	// The container-like description must not spawn a container result
	// alongside the refset.
	if set.Stats.Total != 1 {
		t.Errorf("Stats.Total = %d, want 1", set.Stats.Total)
	}
	if set.Stats.PseudoRefsets != 0 {
		t.Errorf("Stats.PseudoRefsets = %d, want 0", set.Stats.PseudoRefsets)
	}
	if set.Stats.Refsets != 1 {
		t.Errorf("Stats.Refsets = %d, want 1", set.Stats.Refsets)
	}
}

func TestTranslatePseudoRefset(t *testing.T) {
	// Scenario: a container with two document members plus one member only
	// the mapping table knows about.
	table := testTable(
		&lookup.Record{
			EMISGUID: "vs-cont", SourceType: lookup.SourcePseudoRefset,
			Members: []string{"m1", "m2", "m3"},
		},
		&lookup.Record{EMISGUID: "m1", SNOMEDCode: "111", SourceType: "Clinical"},
		&lookup.Record{EMISGUID: "m2", SNOMEDCode: "222", SourceType: "Clinical"},
		&lookup.Record{EMISGUID: "m3", SNOMEDCode: "333", SourceType: "Clinical", Description: "Third member"},
	)
	result := emisconv.NewResult()
	tr := NewTranslator(table, WithResult(result))

	e1 := entry("m1", "SNOMED_CONCEPT", "EVENTS", "", "s1")
	e1.ValueSetGUID, e1.ValueSetDescription = "vs-cont", "ASTTRT_COD"
	e2 := entry("m2", "SNOMED_CONCEPT", "EVENTS", "", "s1")
	e2.ValueSetGUID, e2.ValueSetDescription = "vs-cont", "ASTTRT_COD"
	set := tr.Translate([]*codes.Entry{e1, e2})

	container := find(set, "vs-cont")
	if container == nil {
		t.Fatal("container result missing")
	}
	if container.DirectlyUsable {
		t.Error("pseudo-refset container must not be directly usable")
	}
	if container.Category != CategoryPseudoRefset || container.MemberCount != 3 {
		t.Errorf("container = %+v", container)
	}

	for _, rawID := range []string{"m1", "m2", "m3"} {
		m := find(set, rawID)
		if m == nil {
			t.Fatalf("member %s missing", rawID)
		}
		if m.Category != CategoryPseudoRefsetMember || !m.DirectlyUsable {
			t.Errorf("member %s = %+v", rawID, m)
		}
		if m.ContainerID != "vs-cont" {
			t.Errorf("member %s container = %q", rawID, m.ContainerID)
		}
		if len(m.Attributions) == 0 || m.Attributions[len(m.Attributions)-1].SourceGUID != "s1" {
			t.Errorf("member %s should carry the container's source attribution", rawID)
		}
	}
	if m3 := find(set, "m3"); m3.Description != "Third member" {
		t.Errorf("mapping-only member description = %q", m3.Description)
	}
}

func TestTranslateInternalCodeInContainerSkipped(t *testing.T) {
	table := testTable(
		&lookup.Record{
			EMISGUID: "vs-cont", SourceType: lookup.SourcePseudoRefset,
			Members: []string{"m1", "int1"},
		},
		&lookup.Record{EMISGUID: "m1", SNOMEDCode: "111", SourceType: "Clinical"},
	)
	tr := NewTranslator(table)

	e1 := entry("m1", "SNOMED_CONCEPT", "EVENTS", "", "s1")
	e1.ValueSetGUID, e1.ValueSetDescription = "vs-cont", "ASTTRT_COD"
	e2 := entry("int1", "EMISINTERNAL", "EVENTS", "", "s1")
	e2.ValueSetGUID, e2.ValueSetDescription = "vs-cont", "ASTTRT_COD"
	set := tr.Translate([]*codes.Entry{e1, e2})

	// The internal code is not a member: no result, no member count, and
	// the mapping-table member list must not re-add it.
	if r := find(set, "int1"); r != nil {
		t.Fatalf("internal code yielded a result: %+v", r)
	}
	container := find(set, "vs-cont")
	if container == nil {
		t.Fatal("container result missing")
	}
	if container.MemberCount != 1 {
		t.Errorf("MemberCount = %d, want 1", container.MemberCount)
	}
	if set.Stats.PseudoRefsetMembers != 1 {
		t.Errorf("Stats.PseudoRefsetMembers = %d, want 1", set.Stats.PseudoRefsetMembers)
	}
	if set.Stats.Internal != 0 {
		t.Errorf("Stats.Internal = %d, want 0", set.Stats.Internal)
	}
}

func TestTranslateContainerByPatternOnly(t *testing.T) {
	// No mapping record for the value set: the description pattern alone
	// marks it a container.
	tr := NewTranslator(testTable(
		&lookup.Record{EMISGUID: "m1", SNOMEDCode: "111", SourceType: "Clinical"},
	))
	e := entry("m1", "SNOMED_CONCEPT", "EVENTS", "", "s1")
	e.ValueSetGUID, e.ValueSetDescription = "vs-x", "DMTYPE_COD"
	set := tr.Translate([]*codes.Entry{e})

	if c := find(set, "vs-x"); c == nil || c.Category != CategoryPseudoRefset {
		t.Fatalf("pattern-detected container = %+v", c)
	}
	if m := find(set, "m1"); m.Category != CategoryPseudoRefsetMember {
		t.Errorf("member category = %v", m.Category)
	}
}

func TestIsPseudoRefsetPattern(t *testing.T) {
	tests := []struct {
		desc string
		want bool
	}{
		{"ASTTRT_COD", true},
		{"Refset containing ASTRES_COD items", true},
		{"DM_COD", true},
		{"dm_cod", true},
		{"123_COD", false},
		{"Asthma codes", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsPseudoRefsetPattern(tt.desc); got != tt.want {
			t.Errorf("IsPseudoRefsetPattern(%q) = %v, want %v", tt.desc, got, tt.want)
		}
	}
}

func TestTranslateMetrics(t *testing.T) {
	m := emisconv.NewMetrics()
	tr := NewTranslator(testTable(
		&lookup.Record{EMISGUID: "hit", SNOMEDCode: "1", SourceType: "Clinical"},
	), WithMetrics(m))

	tr.Translate([]*codes.Entry{
		entry("hit", "SNOMED_CONCEPT", "EVENTS", "", "s1"),
		entry("miss", "SNOMED_CONCEPT", "EVENTS", "", "s1"),
	})

	snap := m.TakeSnapshot()
	if snap.ResolutionHits != 1 || snap.ResolutionMiss != 1 {
		t.Errorf("resolution metrics = %d/%d", snap.ResolutionHits, snap.ResolutionMiss)
	}
}
