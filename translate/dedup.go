package translate

import (
	emisconv "github.com/triplebob/emis-xml-convertor"
	"github.com/triplebob/emis-xml-convertor/codes"
)

// Deduplicate collapses a translation set under the given policy. The input
// set is never mutated; re-deduplicating under a different policy always
// starts from the same undeduplicated results. Invalid policies fall back to
// unique-by-code.
func Deduplicate(set *Set, policy emisconv.DedupPolicy) *Set {
	if set == nil {
		return nil
	}
	if !policy.Valid() {
		policy = emisconv.DedupUniqueByCode
	}

	merged := make(map[string]*Result)
	var order []string

	add := func(key string, r *Result) {
		existing, ok := merged[key]
		if !ok {
			merged[key] = r
			order = append(order, key)
			return
		}
		mergeInto(existing, r)
	}

	for _, r := range set.Results {
		if policy == emisconv.DedupUniqueBySourceAndCode {
			for _, sub := range splitBySource(r) {
				add(sourceOf(sub)+"\x00"+identityKey(sub), sub)
			}
			continue
		}
		add(identityKey(r), clone(r))
	}

	results := make([]*Result, 0, len(order))
	for _, key := range order {
		results = append(results, merged[key])
	}
	return &Set{Policy: policy, Results: results, Stats: computeStats(results)}
}

// identityKey is the merge key within one source: the resolved code when
// matched, the raw identifier otherwise, scoped by category so a container
// and an identically coded member never collapse together.
func identityKey(r *Result) string {
	code := r.RawID
	if r.Matched() && r.SNOMEDCode != "" {
		code = r.SNOMEDCode
	}
	return string(r.Category) + "\x00" + code
}

func sourceOf(r *Result) string {
	if len(r.Attributions) > 0 {
		return r.Attributions[0].SourceGUID
	}
	return ""
}

// splitBySource fans a result out into one sub-result per attributing
// source, so the per-source policy can keep a code referenced by two
// searches as two records.
func splitBySource(r *Result) []*Result {
	if len(r.Attributions) <= 1 {
		return []*Result{clone(r)}
	}
	groups := make(map[string][]codes.Attribution)
	var order []string
	for _, at := range r.Attributions {
		if _, ok := groups[at.SourceGUID]; !ok {
			order = append(order, at.SourceGUID)
		}
		groups[at.SourceGUID] = append(groups[at.SourceGUID], at)
	}
	subs := make([]*Result, 0, len(order))
	for _, src := range order {
		sub := clone(r)
		sub.Attributions = groups[src]
		subs = append(subs, sub)
	}
	return subs
}

func clone(r *Result) *Result {
	c := *r
	c.Attributions = append([]codes.Attribution(nil), r.Attributions...)
	return &c
}

// mergeInto folds src into dst: attributions union, descriptive fields from
// whichever record carries more context, flags widened.
func mergeInto(dst, src *Result) {
	for _, at := range src.Attributions {
		dst.Attributions = appendAttribution(dst.Attributions, at)
	}
	if completeness(src) > completeness(dst) {
		dst.ValueSetGUID = src.ValueSetGUID
		dst.ValueSetDescription = src.ValueSetDescription
		dst.DisplayName = src.DisplayName
		dst.Description = src.Description
		dst.Table = src.Table
		dst.Column = src.Column
	}
	if src.IncludeChildren {
		dst.IncludeChildren = true
	}
	if src.MemberCount > dst.MemberCount {
		dst.MemberCount = src.MemberCount
	}
	if src.Matched() && !dst.Matched() {
		dst.Status = StatusMatched
		dst.SNOMEDCode = src.SNOMEDCode
	}
	if dst.MedicationType == "" {
		dst.MedicationType = src.MedicationType
	}
}

// completeness scores how much source context a record carries, so merging
// keeps the best-documented occurrence's fields.
func completeness(r *Result) int {
	score := 0
	if r.ValueSetGUID != "" {
		score += 20
	}
	if r.ValueSetDescription != "" {
		score += 10
	}
	if r.DisplayName != "" {
		score += 5
	}
	if r.Table != "" {
		score += 2
	}
	if r.Column != "" {
		score += 1
	}
	return score
}
