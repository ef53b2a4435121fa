package translate

import (
	emisconv "github.com/triplebob/emis-xml-convertor"
	"github.com/triplebob/emis-xml-convertor/codes"
)

// Status is the resolution outcome for one raw identifier.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusUnmatched Status = "unmatched"
)

// Category classifies a translated code.
type Category string

const (
	CategoryClinical   Category = "clinical"
	CategoryMedication Category = "medication"
	CategoryRefset     Category = "refset"
	// CategoryPseudoRefset marks a container identifier that groups member
	// codes but cannot be used directly itself.
	CategoryPseudoRefset Category = "pseudo-refset"
	// CategoryPseudoRefsetMember marks an individually usable member of a
	// pseudo-refset container.
	CategoryPseudoRefsetMember Category = "pseudo-refset-member"
	// CategoryInternal marks source-system bookkeeping codes (status,
	// episode, consultation-heading markers). Never clinical, never
	// medication.
	CategoryInternal Category = "internal"
)

// Result is the translation record for one raw identifier occurrence.
type Result struct {
	RawID       string   `json:"raw_id"`
	SNOMEDCode  string   `json:"snomed_code,omitempty"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status"`
	Category    Category `json:"category"`

	CodeSystem      string `json:"code_system,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`
	IncludeChildren bool   `json:"include_children,omitempty"`

	// Medication subtype flag, set for medication results only.
	MedicationType string `json:"medication_type,omitempty"`

	// Mapping-table enrichment, "Unknown" when the table does not know.
	HasQualifier string `json:"has_qualifier,omitempty"`
	IsParent     string `json:"is_parent,omitempty"`
	Descendants  string `json:"descendants,omitempty"`
	CodeType     string `json:"code_type,omitempty"`

	// DirectlyUsable is false only for pseudo-refset containers, whose
	// enumerated members carry the usable codes.
	DirectlyUsable bool `json:"directly_usable"`

	// ContainerID links a pseudo-refset member back to its container's
	// value set. MemberCount is set on the container itself.
	ContainerID string `json:"container_id,omitempty"`
	MemberCount int    `json:"member_count,omitempty"`

	ValueSetGUID        string `json:"valueset_guid,omitempty"`
	ValueSetDescription string `json:"valueset_description,omitempty"`
	Table               string `json:"table,omitempty"`
	Column              string `json:"column,omitempty"`

	Attributions []codes.Attribution `json:"attributions"`
}

// Matched reports whether the identifier resolved.
func (r *Result) Matched() bool {
	return r.Status == StatusMatched
}

// Stats summarises a translation set.
type Stats struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`

	Clinical            int `json:"clinical"`
	Medication          int `json:"medication"`
	Refsets             int `json:"refsets"`
	PseudoRefsets       int `json:"pseudo_refsets"`
	PseudoRefsetMembers int `json:"pseudo_refset_members"`
	Internal            int `json:"internal"`
}

// SuccessRate returns the matched fraction, zero for an empty set.
func (s Stats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Total)
}

// Set is a collection of translation results. Policy is empty for the raw
// undeduplicated set and names the applied policy after deduplication.
type Set struct {
	Policy  emisconv.DedupPolicy `json:"policy,omitempty"`
	Results []*Result            `json:"results"`
	Stats   Stats                `json:"stats"`
}

func computeStats(results []*Result) Stats {
	var s Stats
	s.Total = len(results)
	for _, r := range results {
		if r.Matched() {
			s.Matched++
		} else {
			s.Unmatched++
		}
		switch r.Category {
		case CategoryClinical:
			s.Clinical++
		case CategoryMedication:
			s.Medication++
		case CategoryRefset:
			s.Refsets++
		case CategoryPseudoRefset:
			s.PseudoRefsets++
		case CategoryPseudoRefsetMember:
			s.PseudoRefsetMembers++
		case CategoryInternal:
			s.Internal++
		}
	}
	return s
}
