package report

import (
	"strings"

	"github.com/beevik/etree"

	emisconv "github.com/triplebob/emis-xml-convertor"
	"github.com/triplebob/emis-xml-convertor/criteria"
	"github.com/triplebob/emis-xml-convertor/xmlq"
)

// Parser decodes classified report elements into their family models.
type Parser struct {
	res    *xmlq.Resolver
	result *emisconv.Result
}

func NewParser(res *xmlq.Resolver, result *emisconv.Result) *Parser {
	return &Parser{res: res, result: result}
}

// ParseSearch decodes a search-shaped element: metadata plus population
// criteria groups, with linked-criterion references resolved within the
// search.
func (p *Parser) ParseSearch(el *etree.Element) *Search {
	s := &Search{Metadata: p.parseMetadata(el)}
	cp := criteria.NewParser(p.res, p.result, s.GUID)

	scope := p.res.Find(el, "population")
	if scope == nil {
		scope = el
	}
	for _, groupEl := range p.res.FindAll(scope, "criteriaGroup") {
		if g := cp.ParseGroup(groupEl, true); g != nil {
			s.Groups = append(s.Groups, g)
		}
	}
	criteria.ResolveLinks(s.Groups, p.result, s.GUID)

	for _, g := range s.Groups {
		for _, ref := range g.PopulationRefs {
			s.Dependencies = appendUnique(s.Dependencies, ref.ReportGUID)
		}
	}
	return s
}

// ParseList decodes a list report's column groups and embedded filters.
func (p *Parser) ParseList(el *etree.Element) *List {
	l := &List{Metadata: p.parseMetadata(el)}
	listEl := p.res.Find(el, "listReport")
	if listEl == nil {
		l.Incomplete = true
		p.incomplete(l.GUID, "list report has no listReport payload")
		return l
	}

	cp := criteria.NewParser(p.res, p.result, l.GUID)
	for _, groupEl := range p.res.Descendants(listEl, "columnGroup") {
		g := &ColumnGroup{
			ID:           p.res.Attr(groupEl, "id", ""),
			LogicalTable: p.res.ChildText(groupEl, "logicalTableName", ""),
			DisplayName:  p.res.ChildText(groupEl, "displayName", ""),
		}
		if sortEl := p.res.Find(groupEl, "sort"); sortEl != nil {
			g.Sort = &SortConfig{
				ColumnID:  p.res.ChildText(sortEl, "columnId", ""),
				Direction: p.res.ChildText(sortEl, "direction", ""),
			}
		}
		if columnar := p.res.Find(groupEl, "columnar"); columnar != nil {
			for _, colEl := range p.res.FindAll(columnar, "listColumn") {
				g.Columns = append(g.Columns, Column{
					ID:          p.res.Attr(colEl, "id", ""),
					Source:      p.res.ChildText(colEl, "column", ""),
					DisplayName: p.res.ChildText(colEl, "displayName", ""),
				})
			}
		}
		if criteriaEl := p.res.Find(groupEl, "criteria"); criteriaEl != nil {
			for _, critEl := range p.res.FindAll(criteriaEl, "criterion") {
				if c := cp.ParseCriterion(critEl); c != nil {
					g.Criteria = append(g.Criteria, c)
				}
			}
		}
		l.ColumnGroups = append(l.ColumnGroups, g)
	}

	if len(l.ColumnGroups) == 0 {
		l.Incomplete = true
		p.incomplete(l.GUID, "list report declares no column groups")
	}
	return l
}

// ParseAudit decodes an audit report: its population references, optional
// custom aggregation and embedded criteria. Zero population references marks
// the report incomplete but still emits it.
func (p *Parser) ParseAudit(el *etree.Element) *Audit {
	a := &Audit{Metadata: p.parseMetadata(el)}
	auditEl := p.res.Find(el, "auditReport")
	if auditEl == nil {
		a.Incomplete = true
		p.incomplete(a.GUID, "audit report has no auditReport payload")
		return a
	}

	for _, popEl := range p.res.FindAll(auditEl, "population") {
		if guid := strings.TrimSpace(p.res.Text(popEl, "")); guid != "" {
			a.PopulationGUIDs = append(a.PopulationGUIDs, guid)
			a.Dependencies = appendUnique(a.Dependencies, guid)
		}
	}

	if caEl := p.res.Find(auditEl, "customAggregate"); caEl != nil {
		ca := &CustomAggregate{
			LogicalTable: p.res.ChildText(caEl, "logicalTable", ""),
			Groups:       p.parseAggregateGroups(caEl),
		}
		lookup := groupNames(ca.Groups)
		if rowsEl := p.res.Find(caEl, "rows"); rowsEl != nil {
			ca.Rows = p.parseAxis(rowsEl, lookup)
		}
		if resultEl := p.res.Find(caEl, "result"); resultEl != nil {
			ca.Result = &Calculation{
				Source:          p.res.ChildText(resultEl, "source", ""),
				CalculationType: p.res.ChildText(resultEl, "calculationType", ""),
			}
		}
		a.CustomAggregate = ca

		cp := criteria.NewParser(p.res, p.result, a.GUID)
		if criteriaEl := p.res.Find(caEl, "criteria"); criteriaEl != nil {
			for _, critEl := range p.res.FindAll(criteriaEl, "criterion") {
				if c := cp.ParseCriterion(critEl); c != nil {
					a.Criteria = append(a.Criteria, c)
				}
			}
		}
	}

	if len(a.PopulationGUIDs) == 0 {
		a.Incomplete = true
		p.incomplete(a.GUID, "audit report references no populations")
	}
	return a
}

// ParseAggregate decodes an aggregate report's grouping dimensions, cross-tab
// axes and built-in filter criteria.
func (p *Parser) ParseAggregate(el *etree.Element) *Aggregate {
	a := &Aggregate{Metadata: p.parseMetadata(el)}
	aggEl := p.res.Find(el, "aggregateReport")
	if aggEl == nil {
		a.Incomplete = true
		p.incomplete(a.GUID, "aggregate report has no aggregateReport payload")
		return a
	}

	a.LogicalTable = p.res.ChildText(aggEl, "logicalTable", "")
	a.Groups = p.parseAggregateGroups(aggEl)

	lookup := groupNames(a.Groups)
	if rowsEl := p.res.Find(aggEl, "rows"); rowsEl != nil {
		a.Rows = p.parseAxis(rowsEl, lookup)
	}
	if colsEl := p.res.Find(aggEl, "columns"); colsEl != nil {
		a.Columns = p.parseAxis(colsEl, lookup)
	}
	if resultEl := p.res.Find(aggEl, "result"); resultEl != nil {
		a.Result = &Calculation{
			Source:          p.res.ChildText(resultEl, "source", ""),
			CalculationType: p.res.ChildText(resultEl, "calculationType", ""),
		}
	}

	cp := criteria.NewParser(p.res, p.result, a.GUID)
	if criteriaEl := p.res.Find(aggEl, "criteria"); criteriaEl != nil {
		for _, critEl := range p.res.FindAll(criteriaEl, "criterion") {
			if c := cp.ParseCriterion(critEl); c != nil {
				a.Criteria = append(a.Criteria, c)
			}
		}
	}

	if len(a.Groups) == 0 && a.Rows == nil && a.Columns == nil {
		a.Incomplete = true
		p.incomplete(a.GUID, "aggregate report declares no grouping dimensions")
	}
	return a
}

func (p *Parser) parseAggregateGroups(el *etree.Element) []*AggregateGroup {
	var groups []*AggregateGroup
	for _, groupEl := range p.res.FindAll(el, "group") {
		g := &AggregateGroup{
			ID:           p.res.ChildText(groupEl, "id", p.res.Attr(groupEl, "id", "")),
			DisplayName:  p.res.ChildText(groupEl, "displayName", ""),
			SubTotals:    p.res.BoolChild(groupEl, "subTotals"),
			RepeatHeader: p.res.BoolChild(groupEl, "repeatHeader"),
		}
		for _, colEl := range p.res.FindAll(groupEl, "groupingColumn") {
			if col := p.res.Text(colEl, ""); col != "" {
				g.GroupingColumns = append(g.GroupingColumns, col)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

func (p *Parser) parseAxis(el *etree.Element, lookup map[string]string) *Axis {
	id := p.res.ChildText(el, "groupId", "")
	name, ok := lookup[id]
	if !ok {
		name = "Group " + id
	}
	return &Axis{GroupID: id, GroupName: name}
}

func groupNames(groups []*AggregateGroup) map[string]string {
	lookup := make(map[string]string, len(groups))
	for _, g := range groups {
		if g.ID != "" && g.DisplayName != "" {
			lookup[g.ID] = g.DisplayName
		}
	}
	return lookup
}

func (p *Parser) parseMetadata(el *etree.Element) Metadata {
	res := p.res

	m := Metadata{
		GUID:           res.ChildText(el, "id", "unknown"),
		Name:           res.ChildText(el, "name", "Unknown"),
		Description:    res.ChildText(el, "description", ""),
		CreationTime:   res.ChildText(el, "creationTime", ""),
		FolderID:       res.ChildText(el, "folder", ""),
		Sequence:       res.IntChild(el, "sequence", 1),
		SearchDate:     res.ChildText(el, "searchDate", SearchDateBaseline),
		PopulationType: res.ChildText(el, "populationType", ""),
	}

	if parentEl := res.Find(el, "parent"); parentEl != nil {
		m.ParentType = res.Attr(parentEl, "parentType", "")
		if searchID := res.Find(parentEl, "SearchIdentifier"); searchID != nil {
			m.ParentGUID = res.Attr(searchID, "reportGuid", "")
		}
	}
	if m.ParentGUID != "" {
		m.Dependencies = appendUnique(m.Dependencies, m.ParentGUID)
	}

	if authorEl := res.Find(el, "author"); authorEl != nil {
		m.Author = res.ChildText(authorEl, "authorName", "")
		if m.Author == "" {
			if role := res.ChildText(authorEl, "userInRole", ""); role != "" {
				m.Author = "User Role: " + role
			}
		}
	}

	// Enterprise elements sit at varying depths across document vintages.
	m.EnterpriseLevel = res.Text(res.FindPath(el, ".//enterpriseReportingLevel"), "")
	m.VersionIndependentGUID = res.Text(res.FindPath(el, ".//VersionIndependentGUID"), "")
	m.QMASIndicator = res.Text(res.FindPath(el, ".//qmasIndicator"), "")
	for _, assocEl := range res.Descendants(el, "association") {
		if org := res.ChildText(assocEl, "organisation", ""); org != "" {
			m.Associations = append(m.Associations, Association{
				OrganisationGUID: org,
				Type:             res.Attr(assocEl, "type", "unknown"),
			})
		}
	}

	return m
}

func (p *Parser) incomplete(guid, msg string) {
	if p.result == nil {
		return
	}
	p.result.AddIssue(emisconv.Warning(emisconv.IssueTypeIncomplete).
		Diagnostics(msg).
		At("report[" + guid + "]").
		Source(guid).
		Stage("parse").
		Build())
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
