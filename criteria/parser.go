package criteria

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	emisconv "github.com/triplebob/emis-xml-convertor"
	"github.com/triplebob/emis-xml-convertor/xmlq"
)

// CodeSystemLibraryItem tags value sets synthesised from <libraryItem>
// references to internal EMIS libraries.
const CodeSystemLibraryItem = "LIBRARY_ITEM"

// Parser converts criterion subtrees into typed criteria. Structural
// anomalies are recorded on the supplied result and never abort parsing.
type Parser struct {
	res    *xmlq.Resolver
	result *emisconv.Result
	source string
}

// NewParser creates a parser recording issues against the given owning
// search/report GUID.
func NewParser(res *xmlq.Resolver, result *emisconv.Result, source string) *Parser {
	return &Parser{res: res, result: result, source: source}
}

// ParseGroup parses a criteriaGroup element. parentInclude is the effective
// polarity of the enclosing group; pass true for root groups.
func (p *Parser) ParseGroup(el *etree.Element, parentInclude bool) *Group {
	if el == nil {
		return nil
	}
	res := p.res

	g := &Group{
		ID:            res.Attr(el, "id", res.ChildText(el, "id", "")),
		ActionIfTrue:  res.ChildText(el, "actionIfTrue", "SELECT"),
		ActionIfFalse: res.ChildText(el, "actionIfFalse", "REJECT"),
		Negation:      res.BoolChild(el, "negation"),
	}
	// Polarity is fixed here, never re-derived downstream.
	g.Include = parentInclude != g.Negation

	def := res.Find(el, "definition")
	if def == nil {
		p.warn(emisconv.IssueTypeStructure, "criteria group has no definition", "criteriaGroup["+g.ID+"]")
		return g
	}
	g.MemberOperator = strings.ToUpper(res.ChildText(def, "memberOperator", "AND"))

	criteriaEl := res.Find(def, "criteria")
	if criteriaEl == nil {
		criteriaEl = def
	}
	for _, critEl := range res.FindAll(criteriaEl, "criterion") {
		if c := p.ParseCriterion(critEl); c != nil {
			g.Criteria = append(g.Criteria, c)
		}
	}
	for _, nested := range res.FindAll(def, "criteriaGroup") {
		if ng := p.ParseGroup(nested, g.Include); ng != nil {
			g.Groups = append(g.Groups, ng)
		}
	}
	for _, popEl := range res.Descendants(def, "populationCriterion") {
		ref := PopulationRef{
			ID:         res.Attr(popEl, "id", res.ChildText(popEl, "id", "")),
			ReportGUID: res.Attr(popEl, "reportGuid", res.ChildText(popEl, "reportGuid", "")),
		}
		if ref.ReportGUID == "" {
			p.warn(emisconv.IssueTypeStructure, "population criterion has no report reference", "criteriaGroup["+g.ID+"]")
			continue
		}
		g.PopulationRefs = append(g.PopulationRefs, ref)
	}

	return g
}

// ParseCriterion parses a single criterion element.
func (p *Parser) ParseCriterion(el *etree.Element) *Criterion {
	if el == nil {
		return nil
	}
	res := p.res

	c := &Criterion{
		ID:            res.ChildText(el, "id", ""),
		Table:         res.ChildText(el, "table", ""),
		DisplayName:   res.ChildText(el, "displayName", ""),
		Description:   res.ChildText(el, "description", ""),
		ExceptionCode: res.ChildText(el, "exceptionCode", ""),
		Negation:      res.BoolChild(el, "negation"),
	}
	path := "criterion[" + c.ID + "]"

	// Column filters live under filterAttribute/columnValue. Value sets
	// nested inside a columnValue stay attached to that filter so the code
	// extractor sees each reference exactly once, with its column context.
	var restrictions []*etree.Element
	for _, fa := range res.FindAll(el, "filterAttribute") {
		for _, cv := range res.FindAll(fa, "columnValue") {
			if f := p.parseColumnFilter(cv); f != nil {
				c.ColumnFilters = append(c.ColumnFilters, f)
			}
		}
		restrictions = append(restrictions, res.FindAll(fa, "restriction")...)
	}
	restrictions = append(restrictions, res.FindAll(el, "restriction")...)

	// Value sets declared via baseCriteriaGroup attach to the criterion
	// itself: the nested definition only scopes the codes, the codes still
	// belong to this criterion.
	for _, bg := range res.FindAll(el, "baseCriteriaGroup") {
		if def := res.Find(bg, "definition"); def != nil {
			for _, vsEl := range res.Descendants(def, "valueSet") {
				if vs := p.parseValueSet(vsEl); vs != nil {
					c.ValueSets = append(c.ValueSets, vs)
				}
			}
		}
	}
	for _, libEl := range res.Descendants(el, "libraryItem") {
		if underFilterAttribute(libEl, el) {
			// Already attached to its column filter above.
			continue
		}
		if vs := p.parseLibraryItem(libEl); vs != nil {
			c.ValueSets = append(c.ValueSets, vs)
		}
	}

	if len(restrictions) > 0 {
		c.Restriction = p.parseRestriction(restrictions[0], path)
		if len(restrictions) > 1 {
			p.warn(emisconv.IssueTypeStructure,
				fmt.Sprintf("criterion declares %d restrictions, only the first applies", len(restrictions)), path)
		}
	}

	linked := res.FindAll(el, "linkedCriterion")
	if len(linked) > 0 {
		c.Linked = p.parseLinked(linked[0])
		if len(linked) > 1 {
			p.warn(emisconv.IssueTypeStructure,
				fmt.Sprintf("criterion declares %d linked criteria, only the first applies", len(linked)), path)
		}
	}

	return c
}

func (p *Parser) parseColumnFilter(el *etree.Element) *ColumnFilter {
	res := p.res

	f := &ColumnFilter{
		ID:          res.ChildText(el, "id", ""),
		DisplayName: res.ChildText(el, "displayName", ""),
		InNotIn:     res.ChildText(el, "inNotIn", ""),
	}
	for _, colEl := range res.FindAll(el, "column") {
		if name := res.Text(colEl, ""); name != "" {
			f.Columns = append(f.Columns, name)
		}
	}
	if rangeEl := res.Find(el, "rangeValue"); rangeEl != nil {
		f.Range = p.parseRange(rangeEl)
	}
	if paramEl := res.Find(el, "parameter"); paramEl != nil {
		f.Parameter = &Parameter{
			Name:        res.ChildText(paramEl, "name", ""),
			AllowGlobal: res.BoolChild(paramEl, "allowGlobal"),
		}
	}
	for _, vsEl := range res.FindAll(el, "valueSet") {
		if vs := p.parseValueSet(vsEl); vs != nil {
			f.ValueSets = append(f.ValueSets, vs)
		}
	}
	for _, libEl := range res.FindAll(el, "libraryItem") {
		if vs := p.parseLibraryItem(libEl); vs != nil {
			f.ValueSets = append(f.ValueSets, vs)
		}
	}
	return f
}

func (p *Parser) parseRange(el *etree.Element) *Range {
	res := p.res

	r := &Range{RelativeTo: res.Attr(el, "relativeTo", "")}
	if from := res.Find(el, "rangeFrom"); from != nil {
		r.From = p.parseBoundary(from)
	}
	if to := res.Find(el, "rangeTo"); to != nil {
		r.To = p.parseBoundary(to)
	}
	return r
}

func (p *Parser) parseBoundary(el *etree.Element) *Boundary {
	res := p.res

	b := &Boundary{Operator: res.ChildText(el, "operator", "")}
	valueEl := res.Find(el, "value")
	if valueEl == nil {
		return b
	}
	b.Value = res.Text(valueEl, "")
	if b.Value == "" {
		// Some dialects nest the value one level deeper.
		if nested := res.FindAll(valueEl, "value"); len(nested) > 0 {
			parts := make([]string, 0, len(nested))
			for _, n := range nested {
				if v := res.Text(n, ""); v != "" {
					parts = append(parts, v)
				}
			}
			b.Value = strings.Join(parts, ", ")
		}
	}
	b.Unit = res.ChildText(valueEl, "unit", res.Attr(valueEl, "unit", ""))
	b.Relation = res.ChildText(valueEl, "relation", res.Attr(valueEl, "relation", ""))
	return b
}

// parseRestriction reads a cardinality bound and an optional conditional
// test. A missing recordCount means unbounded, never zero.
func (p *Parser) parseRestriction(el *etree.Element, path string) *Restriction {
	res := p.res

	r := &Restriction{}
	if order := res.Find(el, "columnOrder"); order != nil {
		count := res.IntChild(order, "recordCount", 0)
		if count < 0 {
			p.warn(emisconv.IssueTypeStructure,
				fmt.Sprintf("restriction record count %d is invalid, treating as unbounded", count), path)
			count = 0
		}
		r.Count = count
		if cols := res.Find(order, "columns"); cols != nil {
			r.Direction = res.ChildText(cols, "direction", "")
		}
	}
	if test := res.Find(el, "testAttribute"); test != nil {
		for _, cv := range res.FindAll(test, "columnValue") {
			if f := p.parseColumnFilter(cv); f != nil {
				r.Conditions = append(r.Conditions, f)
			}
		}
	}
	return r
}

func (p *Parser) parseLinked(el *etree.Element) *LinkedCriterion {
	res := p.res

	l := &LinkedCriterion{}
	if relEl := res.Find(el, "relationship"); relEl != nil {
		l.Relationship = Relationship{
			ParentColumn:        res.ChildText(relEl, "parentColumn", ""),
			ParentColumnDisplay: res.ChildText(relEl, "parentColumnDisplayName", ""),
			ChildColumn:         res.ChildText(relEl, "childColumn", ""),
			ChildColumnDisplay:  res.ChildText(relEl, "childColumnDisplayName", ""),
		}
		if rangeEl := res.Find(relEl, "rangeValue"); rangeEl != nil {
			l.Relationship.Range = p.parseRange(rangeEl)
		}
	}
	if critEl := res.Find(el, "criterion"); critEl != nil {
		l.Target = p.ParseCriterion(critEl)
	} else {
		l.TargetID = res.ChildText(el, "criterionId", res.Attr(el, "criterionId", ""))
	}
	return l
}

func (p *Parser) parseValueSet(el *etree.Element) *ValueSet {
	res := p.res

	vs := &ValueSet{
		GUID:        res.ChildText(el, "id", ""),
		CodeSystem:  res.ChildText(el, "codeSystem", ""),
		Description: res.ChildText(el, "description", ""),
	}

	valuesEls := res.Descendants(el, "values")
	if all := res.Find(el, "allValues"); all != nil {
		if vs.CodeSystem == "" {
			vs.CodeSystem = res.ChildText(all, "codeSystem", "")
		}
	}
	for _, valuesEl := range valuesEls {
		includeChildren := res.BoolChild(valuesEl, "includeChildren")
		isRefset := res.BoolChild(valuesEl, "isRefset")
		groupDisplay := res.ChildText(valuesEl, "displayName", "")
		for _, valueEl := range res.FindAll(valuesEl, "value") {
			raw := res.Text(valueEl, "")
			if raw == "" {
				continue
			}
			display := res.ChildText(valueEl, "displayName", groupDisplay)
			if isRefset {
				// Refsets carry no per-value display name; the value set
				// description names the refset.
				display = vs.Description
			}
			vs.Entries = append(vs.Entries, Entry{
				Value:           raw,
				DisplayName:     display,
				IncludeChildren: includeChildren,
				IsRefset:        isRefset,
			})
		}
	}

	// Fall back to the first entry's display name when the value set has no
	// description of its own.
	if vs.Description == "" {
		for _, e := range vs.Entries {
			if e.DisplayName != "" {
				vs.Description = e.DisplayName
				break
			}
		}
	}
	vs.Description = CleanRefsetDescription(vs.Description)

	if len(vs.Entries) == 0 {
		return nil
	}
	return vs
}

func (p *Parser) parseLibraryItem(el *etree.Element) *ValueSet {
	guid := p.res.Text(el, "")
	if guid == "" {
		return nil
	}
	return &ValueSet{
		GUID:        guid,
		CodeSystem:  CodeSystemLibraryItem,
		Description: "Library item " + guid,
		Entries: []Entry{{
			Value:         guid,
			DisplayName:   "Library item " + guid,
			IsLibraryItem: true,
		}},
	}
}

func underFilterAttribute(el, stop *etree.Element) bool {
	for parent := el.Parent(); parent != nil && parent != stop; parent = parent.Parent() {
		if parent.Tag == "filterAttribute" {
			return true
		}
	}
	return false
}

func (p *Parser) warn(code emisconv.IssueType, msg, path string) {
	if p.result == nil {
		return
	}
	p.result.AddIssue(emisconv.Warning(code).
		Diagnostics(msg).
		At(path).
		Source(p.source).
		Stage("parse").
		Build())
}

var (
	refsetBracketed = regexp.MustCompile(`^Refset:\s*([^\[\]]+)\[.*\]$`)
	refsetPlain     = regexp.MustCompile(`^Refset:\s*(.+)$`)
)

// CleanRefsetDescription strips the "Refset: NAME[id]" wrapper some
// documents put around refset descriptions, leaving just the name.
func CleanRefsetDescription(desc string) string {
	if desc == "" {
		return desc
	}
	if m := refsetBracketed.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := refsetPlain.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1])
	}
	return desc
}
