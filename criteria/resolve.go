package criteria

import (
	emisconv "github.com/triplebob/emis-xml-convertor"
)

// ResolveLinks resolves by-reference linked criteria across a set of parsed
// groups. Links that name a criterion outside the set stay unresolved and
// produce a structural warning; the referring criterion is kept.
func ResolveLinks(groups []*Group, result *emisconv.Result, source string) {
	index := make(map[string]*Criterion)
	for _, g := range groups {
		indexGroup(g, index)
	}
	for _, g := range groups {
		resolveGroup(g, index, result, source)
	}
}

func indexGroup(g *Group, index map[string]*Criterion) {
	if g == nil {
		return
	}
	for _, c := range g.Criteria {
		indexCriterion(c, index)
	}
	for _, ng := range g.Groups {
		indexGroup(ng, index)
	}
}

func indexCriterion(c *Criterion, index map[string]*Criterion) {
	if c == nil {
		return
	}
	if c.ID != "" {
		index[c.ID] = c
	}
	if c.Linked != nil && c.Linked.Target != nil {
		indexCriterion(c.Linked.Target, index)
	}
}

func resolveGroup(g *Group, index map[string]*Criterion, result *emisconv.Result, source string) {
	if g == nil {
		return
	}
	for _, c := range g.Criteria {
		resolveCriterion(c, index, result, source)
	}
	for _, ng := range g.Groups {
		resolveGroup(ng, index, result, source)
	}
}

func resolveCriterion(c *Criterion, index map[string]*Criterion, result *emisconv.Result, source string) {
	if c == nil || c.Linked == nil {
		return
	}
	l := c.Linked
	if l.Target != nil {
		resolveCriterion(l.Target, index, result, source)
		return
	}
	if l.TargetID == "" {
		return
	}
	if target, ok := index[l.TargetID]; ok {
		l.Target = target
		return
	}
	if result != nil {
		result.AddIssue(emisconv.Warning(emisconv.IssueTypeNotFound).
			Diagnostics("linked criterion references unknown criterion " + l.TargetID).
			At("criterion[" + c.ID + "]").
			Source(source).
			Stage("parse").
			Build())
	}
}
