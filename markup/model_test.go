package markup

import (
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// testElem declares what an element of testModel may hold.
type testElem struct {
	children []string
	text     bool
	attrs    []string
}

// testModel is a minimal ContentModel backed by literal tables.
type testModel struct {
	root     testElem
	elems    map[string]testElem
	fold     bool
	entities []string
}

func (m *testModel) IgnoreCase() bool { return m.fold }

func (m *testModel) TagName(name string) string {
	if !m.fold {
		return name
	}
	for k := range m.elems {
		if strings.EqualFold(k, name) {
			return k
		}
	}
	return name
}

func (m *testModel) AttrName(tag, attr string) string {
	if !m.fold {
		return attr
	}
	for _, a := range m.elems[tag].attrs {
		if strings.EqualFold(a, attr) {
			return a
		}
	}
	return attr
}

func (m *testModel) IsKnownTag(name string) bool {
	_, ok := m.elems[name]
	return ok
}

func (m *testModel) RetainKnownAttributes(t *Tag) {
	declared := m.elems[t.Name].attrs
	t.Retain(func(a Attribute) bool { return slices.Contains(declared, a.Key) })
}

func (m *testModel) CanContain(parent *Tag, child Token) bool {
	e := m.root
	if parent != nil {
		e = m.elems[parent.Name]
	}
	switch c := child.(type) {
	case *Text:
		return e.text
	case *Tag:
		return slices.Contains(e.children, c.Name)
	}
	return false
}

func (m *testModel) EntityRef(name string) (string, bool) {
	for _, e := range m.entities {
		if e == name || (m.fold && strings.EqualFold(e, name)) {
			return e, true
		}
	}
	return "", false
}

// abcModel: the root holds a; a holds b and c; b and c hold text.
func abcModel() *testModel {
	return &testModel{
		root: testElem{children: []string{"a"}},
		elems: map[string]testElem{
			"a": {children: []string{"b", "c"}, attrs: []string{"id"}},
			"b": {text: true},
			"c": {text: true},
		},
	}
}

var tokenOpts = cmp.Options{cmpopts.EquateEmpty()}

func open(name string, attr ...Attribute) *Tag {
	return &Tag{Name: name, Attr: attr, Kind: Open}
}

func closeTag(name string) *Tag {
	return &Tag{Name: name, Kind: Close}
}

func empty(name string, attr ...Attribute) *Tag {
	return &Tag{Name: name, Attr: attr, Kind: Empty}
}

func text(raw string) *Text {
	return NewText(raw, nil)
}

func render(toks []Token) string {
	var sb strings.Builder
	_ = Render(&sb, toks, nil)
	return sb.String()
}
