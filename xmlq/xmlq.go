package xmlq

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// EmisNamespace is the namespace URI used by namespaced EMIS documents.
const EmisNamespace = "http://www.e-mis.com/emisopen"

// Resolver locates child elements and attribute values by logical name,
// regardless of whether the document uses a namespace prefix.
// The zero value is not usable; call NewResolver.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Find returns the first child of parent whose local name matches name.
// Unprefixed children are preferred over namespaced ones. Returns nil when
// no child matches.
func (r *Resolver) Find(parent *etree.Element, name string) *etree.Element {
	if parent == nil {
		return nil
	}
	var prefixed *etree.Element
	for _, ch := range parent.ChildElements() {
		if ch.Tag != name {
			continue
		}
		if ch.Space == "" {
			return ch
		}
		if prefixed == nil {
			prefixed = ch
		}
	}
	return prefixed
}

// FindAll returns every child of parent whose local name matches name,
// unprefixed matches first, then namespaced ones, each in document order.
func (r *Resolver) FindAll(parent *etree.Element, name string) []*etree.Element {
	if parent == nil {
		return nil
	}
	var plain, prefixed []*etree.Element
	for _, ch := range parent.ChildElements() {
		if ch.Tag != name {
			continue
		}
		if ch.Space == "" {
			plain = append(plain, ch)
		} else {
			prefixed = append(prefixed, ch)
		}
	}
	return append(plain, prefixed...)
}

// FindPath walks a slash-separated path of logical names from parent,
// applying the dual unprefixed/namespaced lookup at every segment. A
// leading ".//" makes the first segment a descendant search. Returns nil
// when any segment is absent.
func (r *Resolver) FindPath(parent *etree.Element, path string) *etree.Element {
	segs, descend := splitPath(path)
	if len(segs) == 0 {
		return parent
	}
	current := parent
	for i, seg := range segs {
		if current == nil {
			return nil
		}
		if i == 0 && descend {
			matches := r.Descendants(current, seg)
			if len(matches) == 0 {
				return nil
			}
			current = matches[0]
			continue
		}
		current = r.Find(current, seg)
	}
	return current
}

// FindAllPath is the multi-result variant of FindPath: it returns every
// element reachable by the path, applying the dual lookup at each segment.
func (r *Resolver) FindAllPath(parent *etree.Element, path string) []*etree.Element {
	segs, descend := splitPath(path)
	if parent == nil || len(segs) == 0 {
		return nil
	}
	current := []*etree.Element{parent}
	for i, seg := range segs {
		var next []*etree.Element
		for _, el := range current {
			if i == 0 && descend {
				next = append(next, r.Descendants(el, seg)...)
			} else {
				next = append(next, r.FindAll(el, seg)...)
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// Descendants returns every descendant of parent (at any depth) whose local
// name matches name, unprefixed matches before namespaced ones.
func (r *Resolver) Descendants(parent *etree.Element, name string) []*etree.Element {
	if parent == nil {
		return nil
	}
	var plain, prefixed []*etree.Element
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, ch := range el.ChildElements() {
			if ch.Tag == name {
				if ch.Space == "" {
					plain = append(plain, ch)
				} else {
					prefixed = append(prefixed, ch)
				}
			}
			walk(ch)
		}
	}
	walk(parent)
	return append(plain, prefixed...)
}

// Text returns the trimmed text content of el, or def when el is nil or
// empty.
func (r *Resolver) Text(el *etree.Element, def string) string {
	if el == nil {
		return def
	}
	text := strings.TrimSpace(el.Text())
	if text == "" {
		return def
	}
	return text
}

// ChildText returns the trimmed text of the named child, or def when the
// child is absent or empty.
func (r *Resolver) ChildText(parent *etree.Element, name, def string) string {
	return r.Text(r.Find(parent, name), def)
}

// Attr returns the named attribute of el, or def when absent.
func (r *Resolver) Attr(el *etree.Element, key, def string) string {
	if el == nil {
		return def
	}
	if a := el.SelectAttr(key); a != nil && a.Value != "" {
		return a.Value
	}
	return def
}

// BoolAttr reports whether the named attribute holds a truthy value
// ("true", "1", "yes", case-insensitive).
func (r *Resolver) BoolAttr(el *etree.Element, key string) bool {
	return isTruthy(r.Attr(el, key, ""))
}

// BoolChild reports whether the named child element's text holds a truthy
// value. Absent children are false.
func (r *Resolver) BoolChild(parent *etree.Element, name string) bool {
	return isTruthy(r.ChildText(parent, name, ""))
}

// IntChild returns the named child element's text parsed as an integer, or
// def when absent or unparseable.
func (r *Resolver) IntChild(parent *etree.Element, name string, def int) int {
	text := r.ChildText(parent, name, "")
	if text == "" {
		return def
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return def
	}
	return n
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// splitPath splits a slash-separated path into segments and reports whether
// it started with a descendant marker (".//").
func splitPath(path string) ([]string, bool) {
	descend := false
	if strings.HasPrefix(path, ".//") {
		descend = true
		path = path[3:]
	} else if strings.HasPrefix(path, "./") {
		path = path[2:]
	}
	var segs []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" && seg != "." {
			segs = append(segs, seg)
		}
	}
	return segs, descend
}
