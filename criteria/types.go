package criteria

import "fmt"

// Group is a boolean-combined set of criteria. A group owns its criteria and
// any nested groups; polarity is resolved at parse time and never left for
// downstream consumers to infer.
type Group struct {
	ID             string
	MemberOperator string // AND or OR
	ActionIfTrue   string // SELECT, REJECT or NEXT
	ActionIfFalse  string
	Negation       bool

	// Include is the group's effective polarity: its own negation flag XOR
	// the parent's effective polarity. Root groups default to include.
	Include bool

	Criteria       []*Criterion
	Groups         []*Group
	PopulationRefs []PopulationRef
}

// PopulationRef points at another search whose result population feeds this
// group.
type PopulationRef struct {
	ID         string
	ReportGUID string
}

// Criterion is a single filter over one logical table.
type Criterion struct {
	ID            string
	Table         string
	DisplayName   string
	Description   string
	Negation      bool
	ExceptionCode string

	ValueSets     []*ValueSet
	ColumnFilters []*ColumnFilter
	Restriction   *Restriction
	Linked        *LinkedCriterion
}

// HasContent reports whether the criterion carries any filtering payload.
// Criteria without content are empty shells that never affect a population.
func (c *Criterion) HasContent() bool {
	return len(c.ValueSets) > 0 || len(c.ColumnFilters) > 0 ||
		c.Restriction != nil || c.Linked != nil
}

// ValueSet is a document-declared set of code references.
type ValueSet struct {
	GUID        string
	CodeSystem  string
	Description string
	Entries     []Entry
}

// Entry is one raw code reference inside a value set. IncludeChildren is
// preserved verbatim as document-declared; descendant discovery belongs to
// the terminology-expansion collaborator.
type Entry struct {
	Value           string
	DisplayName     string
	IncludeChildren bool
	IsRefset        bool
	IsLibraryItem   bool
}

// ColumnFilter constrains one or more columns of the criterion's table.
type ColumnFilter struct {
	ID          string
	Columns     []string
	DisplayName string
	InNotIn     string // IN or NOT IN
	Range       *Range
	Parameter   *Parameter
	ValueSets   []*ValueSet
}

// Column returns the first constrained column name, or "".
func (f *ColumnFilter) Column() string {
	if len(f.Columns) == 0 {
		return ""
	}
	return f.Columns[0]
}

// Range is a bounded or half-open value range.
type Range struct {
	RelativeTo string
	From       *Boundary
	To         *Boundary
}

// Boundary is one end of a range.
type Boundary struct {
	Operator string
	Value    string
	Unit     string
	Relation string
}

// Parameter marks a column filter whose value is supplied at run time.
type Parameter struct {
	Name        string
	AllowGlobal bool
}

// Restriction is a cardinality/ordering constraint on a criterion's
// matches. A Count of zero means unbounded: an absent restriction count is
// "no limit", never zero.
type Restriction struct {
	Count      int
	Direction  string // DESC for latest, ASC for earliest
	Conditions []*ColumnFilter
}

// Unbounded reports whether the restriction carries no cardinality bound.
func (r *Restriction) Unbounded() bool {
	return r.Count == 0
}

// Describe renders the restriction the way EMIS presents it, e.g.
// "Latest 1" or "Latest 3 where numeric value >= 130".
func (r *Restriction) Describe() string {
	if r.Unbounded() {
		if len(r.Conditions) > 0 {
			return "where " + describeConditions(r.Conditions)
		}
		return "no limit"
	}
	word := "Earliest"
	if r.Direction == "DESC" {
		word = "Latest"
	}
	base := fmt.Sprintf("%s %d", word, r.Count)
	if len(r.Conditions) > 0 {
		return base + " where " + describeConditions(r.Conditions)
	}
	return base
}

func describeConditions(conds []*ColumnFilter) string {
	out := ""
	for i, c := range conds {
		if i > 0 {
			out += " and "
		}
		out += c.Column()
		if c.InNotIn != "" {
			out += " " + c.InNotIn
		}
	}
	return out
}

// LinkedCriterion joins its owning criterion to a second criterion on
// another table under a relational constraint. The target is either inline
// or a reference to a criterion elsewhere in the same group tree; dangling
// references surface as structural warnings, never hard failures.
type LinkedCriterion struct {
	Relationship Relationship
	Target       *Criterion
	TargetID     string
}

// Resolved reports whether the target criterion is available.
func (l *LinkedCriterion) Resolved() bool {
	return l.Target != nil
}

// Relationship describes how a linked criterion pair is joined, typically a
// temporal constraint between two date columns.
type Relationship struct {
	ParentColumn        string
	ParentColumnDisplay string
	ChildColumn         string
	ChildColumnDisplay  string
	Range               *Range
}
