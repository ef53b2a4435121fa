package xmlq

import (
	"testing"

	"github.com/beevik/etree"
)

func parse(t *testing.T, data string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc.Root()
}

func TestFindPrefersUnprefixed(t *testing.T) {
	root := parse(t, `<root xmlns:emis="http://www.e-mis.com/emisopen">
		<emis:name>namespaced</emis:name>
		<name>plain</name>
	</root>`)

	r := NewResolver()
	el := r.Find(root, "name")
	if el == nil {
		t.Fatal("expected element")
	}
	if got := r.Text(el, ""); got != "plain" {
		t.Errorf("expected unprefixed element first, got %q", got)
	}
}

func TestFindNamespacedFallback(t *testing.T) {
	root := parse(t, `<root xmlns:emis="http://www.e-mis.com/emisopen">
		<emis:table>EVENTS</emis:table>
	</root>`)

	r := NewResolver()
	if got := r.ChildText(root, "table", ""); got != "EVENTS" {
		t.Errorf("ChildText = %q, want EVENTS", got)
	}
}

func TestFindAbsentReturnsNil(t *testing.T) {
	root := parse(t, `<root><child/></root>`)

	r := NewResolver()
	if el := r.Find(root, "missing"); el != nil {
		t.Errorf("expected nil for absent element, got %v", el)
	}
	if got := r.ChildText(root, "missing", "fallback"); got != "fallback" {
		t.Errorf("ChildText default = %q, want fallback", got)
	}
}

func TestFindAllMixedDialects(t *testing.T) {
	root := parse(t, `<root xmlns:emis="http://www.e-mis.com/emisopen">
		<criterion><id>a</id></criterion>
		<emis:criterion><emis:id>b</emis:id></emis:criterion>
		<criterion><id>c</id></criterion>
	</root>`)

	r := NewResolver()
	els := r.FindAll(root, "criterion")
	if len(els) != 3 {
		t.Fatalf("FindAll returned %d elements, want 3", len(els))
	}
	// Unprefixed elements come first, then namespaced.
	want := []string{"a", "c", "b"}
	for i, el := range els {
		if got := r.ChildText(el, "id", ""); got != want[i] {
			t.Errorf("element %d id = %q, want %q", i, got, want[i])
		}
	}
}

func TestFindPath(t *testing.T) {
	root := parse(t, `<root xmlns:emis="http://www.e-mis.com/emisopen">
		<emis:definition>
			<criteria>
				<emis:criterion><id>x</id></emis:criterion>
			</criteria>
		</emis:definition>
	</root>`)

	r := NewResolver()
	el := r.FindPath(root, "definition/criteria/criterion")
	if el == nil {
		t.Fatal("expected element via mixed-dialect path")
	}
	if got := r.ChildText(el, "id", ""); got != "x" {
		t.Errorf("id = %q, want x", got)
	}
	if el := r.FindPath(root, "definition/missing/criterion"); el != nil {
		t.Error("expected nil for broken path")
	}
}

func TestFindAllPathDescendants(t *testing.T) {
	root := parse(t, `<root xmlns:emis="http://www.e-mis.com/emisopen">
		<a><emis:valueSet><id>1</id></emis:valueSet></a>
		<b><c><valueSet><id>2</id></valueSet></c></b>
	</root>`)

	r := NewResolver()
	els := r.FindAllPath(root, ".//valueSet")
	if len(els) != 2 {
		t.Fatalf("descendant search returned %d elements, want 2", len(els))
	}
}

func TestBoolChild(t *testing.T) {
	root := parse(t, `<root>
		<yes>true</yes>
		<also>TRUE</also>
		<no>false</no>
	</root>`)

	r := NewResolver()
	tests := []struct {
		name string
		want bool
	}{
		{"yes", true},
		{"also", true},
		{"no", false},
		{"missing", false},
	}
	for _, tt := range tests {
		if got := r.BoolChild(root, tt.name); got != tt.want {
			t.Errorf("BoolChild(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIntChild(t *testing.T) {
	root := parse(t, `<root><count>3</count><bad>x</bad></root>`)

	r := NewResolver()
	if got := r.IntChild(root, "count", 0); got != 3 {
		t.Errorf("IntChild(count) = %d, want 3", got)
	}
	if got := r.IntChild(root, "bad", -1); got != -1 {
		t.Errorf("IntChild(bad) = %d, want -1", got)
	}
	if got := r.IntChild(root, "missing", 7); got != 7 {
		t.Errorf("IntChild(missing) = %d, want 7", got)
	}
}
