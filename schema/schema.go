// Package schema provides content models for the markup repair engine. A
// content model declares which tags are known, which attributes they take,
// what they may contain and which named entities are recognized.
//
// Grammars are written as lists of items per key:
//
//	@ROOT     = html
//	_inline   = #TEXT b i a
//	p         = _inline $class $id
//	@ENTITIES = nbsp copy
//
// Keys starting with "_" are groups that other keys include by name, "$name"
// declares an attribute, "#TEXT" allows character data, and the @ROOT key
// describes the document root. Includes are resolved when the grammar is
// loaded.
package schema

import (
	"strings"

	"github.com/dpotapov/xmlbs/markup"
	"golang.org/x/net/html"
)

// Element is the resolved declaration of one tag.
type Element struct {
	Name string
	// Text reports whether the element may contain character data.
	Text bool

	children    map[string]bool
	attrs       map[string]*Attr
	foldedAttrs map[string]string
}

func newElement(name string) *Element {
	return &Element{
		Name:        name,
		children:    map[string]bool{},
		attrs:       map[string]*Attr{},
		foldedAttrs: map[string]string{},
	}
}

func (e *Element) fill(items []string) {
	for _, it := range items {
		switch {
		case it == textItem:
			e.Text = true
		case strings.HasPrefix(it, attrPrefix):
			name := it[len(attrPrefix):]
			if _, ok := e.attrs[name]; !ok {
				e.attrs[name] = &Attr{Name: name}
				e.foldedAttrs[strings.ToLower(name)] = name
			}
		default:
			e.children[it] = true
		}
	}
}

// CanHold reports whether a tag named name may appear inside e.
func (e *Element) CanHold(name string) bool {
	return e.children[name]
}

// Attr returns the declaration of the attribute named name.
func (e *Element) Attr(name string) (*Attr, bool) {
	a, ok := e.attrs[name]
	return a, ok
}

// Schema is a content model loaded from a grammar. It is safe for concurrent
// use once loaded, provided the Set methods are not called concurrently.
type Schema struct {
	root     *Element
	elems    map[string]*Element
	folded   map[string]string
	entities map[string]string

	ignoreCase   bool
	htmlEntities bool
}

var (
	_ markup.ContentModel   = (*Schema)(nil)
	_ markup.EntityResolver = (*Schema)(nil)
)

// SetIgnoreCase switches case-insensitive matching of tag, attribute and
// entity names on or off.
func (s *Schema) SetIgnoreCase(on bool) {
	s.ignoreCase = on
}

// SetHTMLEntities makes the schema recognize all HTML5 named entities in
// addition to the declared ones.
func (s *Schema) SetHTMLEntities(on bool) {
	s.htmlEntities = on
}

func (s *Schema) IgnoreCase() bool {
	return s.ignoreCase
}

// Element returns the declaration of the named tag.
func (s *Schema) Element(name string) (*Element, bool) {
	e := s.lookup(name)
	return e, e != nil
}

// Root returns the declaration of the document root.
func (s *Schema) Root() *Element {
	return s.root
}

// Tags returns the number of declared tags.
func (s *Schema) Tags() int {
	return len(s.elems)
}

func (s *Schema) lookup(name string) *Element {
	if e, ok := s.elems[name]; ok {
		return e
	}
	if s.ignoreCase {
		if canon, ok := s.folded[strings.ToLower(name)]; ok {
			return s.elems[canon]
		}
	}
	return nil
}

func (s *Schema) TagName(name string) string {
	if e := s.lookup(name); e != nil {
		return e.Name
	}
	return name
}

func (s *Schema) AttrName(tag, attr string) string {
	e := s.lookup(tag)
	if e == nil {
		return attr
	}
	if _, ok := e.attrs[attr]; ok {
		return attr
	}
	if s.ignoreCase {
		if canon, ok := e.foldedAttrs[strings.ToLower(attr)]; ok {
			return canon
		}
	}
	return attr
}

func (s *Schema) IsKnownTag(name string) bool {
	return s.lookup(name) != nil
}

// RetainKnownAttributes drops the attributes of t that are not declared for
// it, and those whose value fails the declared check.
func (s *Schema) RetainKnownAttributes(t *markup.Tag) {
	e := s.lookup(t.Name)
	if e == nil {
		t.Retain(func(markup.Attribute) bool { return false })
		return
	}
	t.Retain(func(a markup.Attribute) bool {
		decl, ok := e.attrs[s.AttrName(e.Name, a.Key)]
		return ok && decl.Allows(e.Name, a.Val)
	})
}

// CanContain reports whether child may appear directly inside parent, or at
// the document root when parent is nil. Text made of white space only may
// appear anywhere, as may comments and CDATA sections.
func (s *Schema) CanContain(parent *markup.Tag, child markup.Token) bool {
	e := s.root
	if parent != nil {
		if e = s.lookup(parent.Name); e == nil {
			return false
		}
	}
	switch c := child.(type) {
	case *markup.Text:
		return e.Text || c.IsWhitespace()
	case *markup.Tag:
		return e.children[s.TagName(c.Name)]
	case *markup.Comment, *markup.CData:
		return true
	}
	return false
}

// EntityRef returns the canonical name of a declared entity. With HTML
// entities enabled, any HTML5 named character reference is accepted as is.
func (s *Schema) EntityRef(name string) (string, bool) {
	if canon, ok := s.entities[name]; ok {
		return canon, true
	}
	if s.ignoreCase {
		for canon := range s.entities {
			if strings.EqualFold(canon, name) {
				return canon, true
			}
		}
	}
	if s.htmlEntities && isHTMLEntity(name) {
		return name, true
	}
	return "", false
}

// isHTMLEntity reports whether &name; is a complete HTML5 named character
// reference. UnescapeString also expands known prefixes, so a reference only
// counts when nothing of it is left over.
func isHTMLEntity(name string) bool {
	ref := "&" + name + ";"
	res := html.UnescapeString(ref)
	return res != ref && (res == ";" || !strings.Contains(res, ";"))
}
