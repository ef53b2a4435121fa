package document

import (
	"github.com/beevik/etree"

	emisconv "github.com/triplebob/emis-xml-convertor"
	"github.com/triplebob/emis-xml-convertor/xmlq"
)

// Kind identifies which report family a definition element belongs to.
type Kind string

const (
	KindSearch          Kind = "search"
	KindListReport      Kind = "list"
	KindAuditReport     Kind = "audit"
	KindAggregateReport Kind = "aggregate"
)

// Folder is a named report folder from the document's folder hierarchy.
type Folder struct {
	ID       string
	Name     string
	ParentID string
}

// FolderNode is a folder with its resolved children.
type FolderNode struct {
	Folder
	Children []*FolderNode
}

// ClassifiedDocument holds the outcome of one classification pass. It is
// immutable after Classify returns; reclassifying means re-running over the
// original document.
type ClassifiedDocument struct {
	ID           string
	CreationTime string
	Version      string

	Searches         []*etree.Element
	ListReports      []*etree.Element
	AuditReports     []*etree.Element
	AggregateReports []*etree.Element

	Folders     []Folder
	FolderRoots []*FolderNode

	kinds map[*etree.Element]Kind
}

// Summary reports per-family element counts.
type Summary struct {
	DocumentID       string `json:"document_id"`
	Searches         int    `json:"searches"`
	ListReports      int    `json:"list_reports"`
	AuditReports     int    `json:"audit_reports"`
	AggregateReports int    `json:"aggregate_reports"`
	Folders          int    `json:"folders"`
}

// KindOf returns the family assigned to a classified element.
func (d *ClassifiedDocument) KindOf(el *etree.Element) (Kind, bool) {
	k, ok := d.kinds[el]
	return k, ok
}

// TotalElements returns the number of classified definition elements.
func (d *ClassifiedDocument) TotalElements() int {
	return len(d.Searches) + len(d.ListReports) + len(d.AuditReports) + len(d.AggregateReports)
}

// Summarize returns per-family counts for reporting.
func (d *ClassifiedDocument) Summarize() Summary {
	return Summary{
		DocumentID:       d.ID,
		Searches:         len(d.Searches),
		ListReports:      len(d.ListReports),
		AuditReports:     len(d.AuditReports),
		AggregateReports: len(d.AggregateReports),
		Folders:          len(d.Folders),
	}
}

// Classify runs the single classification traversal over a parsed document
// root. Definition elements carrying no family-specific payload fall through
// to the search family; classification itself never fails.
func Classify(root *etree.Element, res *xmlq.Resolver, result *emisconv.Result) *ClassifiedDocument {
	d := &ClassifiedDocument{kinds: make(map[*etree.Element]Kind)}
	if root == nil {
		if result != nil {
			result.AddError(emisconv.IssueTypeStructure, "document has no root element", "")
		}
		return d
	}

	d.ID = res.ChildText(root, "id", "unknown")
	d.CreationTime = res.ChildText(root, "creationTime", "")
	d.Version = res.ChildText(root, "version", "")

	classifyFolders(d, root, res, result)
	classifyReports(d, root, res, result)

	return d
}

func classifyFolders(d *ClassifiedDocument, root *etree.Element, res *xmlq.Resolver, result *emisconv.Result) {
	folderEls := res.Descendants(root, "reportFolder")
	// The fallback dialect reuses <folder> for both definitions and
	// references, so shape warnings are only reliable for reportFolder.
	definitions := len(folderEls) > 0
	if !definitions {
		folderEls = res.Descendants(root, "folder")
	}
	for _, el := range folderEls {
		id := res.ChildText(el, "id", "")
		name := res.ChildText(el, "name", "")
		if id == "" || name == "" {
			if definitions && result != nil {
				result.AddIssue(emisconv.Warning(emisconv.IssueTypeUnrecognized).
					Diagnostics("folder element missing id or name").
					At("folder[" + id + "]").
					Stage("classify").
					Build())
			}
			continue
		}
		d.Folders = append(d.Folders, Folder{
			ID:       id,
			Name:     name,
			ParentID: res.ChildText(el, "parentFolder", ""),
		})
	}
	d.FolderRoots = buildFolderTree(d.Folders)
}

func buildFolderTree(folders []Folder) []*FolderNode {
	if len(folders) == 0 {
		return nil
	}
	nodes := make(map[string]*FolderNode, len(folders))
	for _, f := range folders {
		nodes[f.ID] = &FolderNode{Folder: f}
	}
	var roots []*FolderNode
	// Input order is preserved at every level so classification stays
	// deterministic.
	for _, f := range folders {
		node := nodes[f.ID]
		if f.ParentID == "" {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[f.ParentID]
		if !ok || parent == node {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}

func classifyReports(d *ClassifiedDocument, root *etree.Element, res *xmlq.Resolver, result *emisconv.Result) {
	for _, el := range res.Descendants(root, "report") {
		switch kind := determineKind(el, res); kind {
		case KindListReport:
			d.ListReports = append(d.ListReports, el)
			d.kinds[el] = kind
		case KindAuditReport:
			d.AuditReports = append(d.AuditReports, el)
			d.kinds[el] = kind
		case KindAggregateReport:
			d.AggregateReports = append(d.AggregateReports, el)
			d.kinds[el] = kind
		case KindSearch:
			d.Searches = append(d.Searches, el)
			d.kinds[el] = kind
		}
	}
}

// determineKind applies the family discriminators in fixed order so an
// element satisfying more than one signature lands in the most specific
// family. Only child presence is checked, never values: parentType and
// similar hints describe relationships, not the element itself.
func determineKind(el *etree.Element, res *xmlq.Resolver) Kind {
	switch {
	case res.Find(el, "listReport") != nil:
		return KindListReport
	case res.Find(el, "auditReport") != nil:
		return KindAuditReport
	case res.Find(el, "aggregateReport") != nil:
		return KindAggregateReport
	default:
		// A population child, criteria groups, or nothing at all: the
		// element is search-shaped.
		return KindSearch
	}
}
