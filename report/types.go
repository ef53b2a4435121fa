package report

import (
	"github.com/triplebob/emis-xml-convertor/criteria"
)

// SearchDateBaseline is the default reference date for searches that do not
// declare one.
const SearchDateBaseline = "BASELINE"

// Association ties a report to an organisation for enterprise reporting.
type Association struct {
	OrganisationGUID string
	Type             string
}

// Metadata is the shared header carried by every report family.
type Metadata struct {
	GUID         string
	Name         string
	Description  string
	Author       string
	CreationTime string

	ParentType string
	ParentGUID string
	FolderID   string
	Sequence   int

	SearchDate     string
	PopulationType string

	// Enterprise reporting fields, absent outside enterprise documents.
	EnterpriseLevel        string
	VersionIndependentGUID string
	QMASIndicator          string
	Associations           []Association

	// Dependencies lists GUIDs of other reports this one references: the
	// parent search plus any audit population references.
	Dependencies []string
}

// Search is a population search: criteria groups over a parent population.
type Search struct {
	Metadata
	Groups []*criteria.Group
}

// SortConfig is a list report column ordering.
type SortConfig struct {
	ColumnID  string
	Direction string
}

// Column is one output column of a list report column group.
type Column struct {
	ID          string
	Source      string
	DisplayName string
}

// ColumnGroup is a list report output table: columns over one logical table,
// optionally filtered by embedded criteria.
type ColumnGroup struct {
	ID           string
	LogicalTable string
	DisplayName  string
	Columns      []Column
	Sort         *SortConfig
	Criteria     []*criteria.Criterion
}

// List is a list report.
type List struct {
	Metadata
	ColumnGroups []*ColumnGroup

	// Incomplete is set when the report declares no column groups.
	Incomplete bool
}

// AggregateGroup is a named grouping dimension of an aggregate or custom
// aggregate definition.
type AggregateGroup struct {
	ID              string
	DisplayName     string
	GroupingColumns []string
	SubTotals       bool
	RepeatHeader    bool
}

// Axis assigns a grouping dimension to the rows or columns of a cross-tab.
// GroupName is resolved from the group definitions; unresolvable IDs keep a
// placeholder name.
type Axis struct {
	GroupID   string
	GroupName string
}

// Calculation is the result cell definition of a cross-tab.
type Calculation struct {
	Source          string
	CalculationType string
}

// CustomAggregate is the aggregation payload an audit report may embed.
type CustomAggregate struct {
	LogicalTable string
	Groups       []*AggregateGroup
	Rows         *Axis
	Result       *Calculation
}

// Audit is an audit report: one or more population references plus optional
// custom aggregation.
type Audit struct {
	Metadata
	PopulationGUIDs []string
	CustomAggregate *CustomAggregate
	Criteria        []*criteria.Criterion

	// Incomplete is set when the report references no populations.
	Incomplete bool
}

// Aggregate is an aggregate report: grouping dimensions, cross-tab axes and
// optional built-in filter criteria.
type Aggregate struct {
	Metadata
	LogicalTable string
	Groups       []*AggregateGroup
	Rows         *Axis
	Columns      *Axis
	Result       *Calculation
	Criteria     []*criteria.Criterion

	// Incomplete is set when the report declares neither grouping
	// dimensions nor axes.
	Incomplete bool
}
