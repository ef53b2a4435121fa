package lookup

import "strings"

// Source types carried by mapping records. Medication subtypes win over any
// contextual classification downstream.
const (
	SourceMedication   = "Medication"
	SourceConstituent  = "Constituent"
	SourceDMD          = "DM+D"
	SourceRefset       = "Refset"
	SourcePseudoRefset = "Pseudo-Refset"
	SourceUnknown      = "Unknown"
)

// Record maps one raw source identifier to its resolved SNOMED code and
// classification metadata. HasQualifier and IsParent are tri-state: the
// upstream extract does not know the answer for every concept, so "Unknown"
// is preserved rather than collapsed to false.
type Record struct {
	EMISGUID     string `json:"emis_guid"`
	SNOMEDCode   string `json:"snomed_code"`
	Description  string `json:"description,omitempty"`
	SourceType   string `json:"source_type"`
	HasQualifier string `json:"has_qualifier,omitempty"`
	IsParent     string `json:"is_parent,omitempty"`
	Descendants  string `json:"descendants,omitempty"`
	CodeType     string `json:"code_type,omitempty"`

	// Members enumerates the raw identifiers grouped by a pseudo-refset
	// container. Empty for every other source type.
	Members []string `json:"members,omitempty"`
}

// IsMedication reports whether the mapping classifies this record as a
// medication subtype.
func (r *Record) IsMedication() bool {
	switch r.SourceType {
	case SourceMedication, SourceConstituent, SourceDMD:
		return true
	}
	return false
}

// IsPseudoRefsetContainer reports whether this record is a pseudo-refset
// container, usable only through its enumerated members.
func (r *Record) IsPseudoRefsetContainer() bool {
	return r.SourceType == SourcePseudoRefset
}

// Table is an immutable mapping-table snapshot indexed both ways.
type Table struct {
	byGUID   map[string]*Record
	bySnomed map[string]*Record
	records  []*Record
}

// NewTable indexes the given records. Later duplicates of the same raw
// identifier are ignored so the first occurrence wins deterministically.
func NewTable(records []*Record) *Table {
	t := &Table{
		byGUID:   make(map[string]*Record, len(records)),
		bySnomed: make(map[string]*Record, len(records)),
	}
	for _, r := range records {
		if r == nil || r.EMISGUID == "" {
			continue
		}
		normalize(r)
		if _, dup := t.byGUID[r.EMISGUID]; dup {
			continue
		}
		t.byGUID[r.EMISGUID] = r
		t.records = append(t.records, r)
		if r.SNOMEDCode != "" {
			if _, dup := t.bySnomed[r.SNOMEDCode]; !dup {
				t.bySnomed[r.SNOMEDCode] = r
			}
		}
	}
	return t
}

func normalize(r *Record) {
	r.EMISGUID = strings.TrimSpace(r.EMISGUID)
	r.SNOMEDCode = strings.TrimSpace(r.SNOMEDCode)
	if r.SourceType == "" {
		r.SourceType = SourceUnknown
	}
	if r.HasQualifier == "" {
		r.HasQualifier = SourceUnknown
	}
	if r.IsParent == "" {
		r.IsParent = SourceUnknown
	}
	if r.Descendants == "" {
		r.Descendants = "0"
	}
	if r.CodeType == "" {
		r.CodeType = SourceUnknown
	}
}

// Lookup resolves a raw identifier.
func (t *Table) Lookup(rawID string) (*Record, bool) {
	r, ok := t.byGUID[rawID]
	return r, ok
}

// BySnomed resolves a SNOMED code back to its mapping record. Used for
// enriching true refsets, whose raw identifier already is the SNOMED code.
func (t *Table) BySnomed(code string) (*Record, bool) {
	r, ok := t.bySnomed[code]
	return r, ok
}

// Len returns the number of indexed records.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns the indexed records in insertion order. The slice is
// shared; callers must not mutate it.
func (t *Table) Records() []*Record {
	return t.records
}
