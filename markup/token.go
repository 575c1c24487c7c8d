package markup

import (
	"slices"
	"strings"
)

// Token is one lexical unit of a markup document. The set of implementations
// is closed: *Tag, *Text, *Comment and *CData.
type Token interface {
	String() string
	isToken()
}

// TagKind distinguishes the three tag forms.
type TagKind int

const (
	Open TagKind = iota
	Close
	Empty
)

func (k TagKind) String() string {
	switch k {
	case Open:
		return "open"
	case Close:
		return "close"
	case Empty:
		return "empty"
	}
	return "unknown"
}

// Attribute is a single name/value pair of a tag. The value is kept
// unescaped.
type Attribute struct {
	Key string
	Val string
}

// Tag is an open, close or empty (self-closing) tag.
type Tag struct {
	Name string
	// Attr keeps attributes in the order they appeared in the source. It is
	// always empty for Close tags.
	Attr []Attribute
	Kind TagKind
}

// Text is character data. Raw is the data as read from the source, Escaped
// is its XML-safe form.
type Text struct {
	Raw     string
	Escaped string
}

// Comment is the payload of <!--...-->.
type Comment struct {
	Data string
}

// CData is the payload of <![CDATA[...]]>.
type CData struct {
	Data string
}

func (*Tag) isToken()     {}
func (*Text) isToken()    {}
func (*Comment) isToken() {}
func (*CData) isToken()   {}

// NewText creates a text token. Entity references in raw are preserved when
// er resolves them; er may be nil.
func NewText(raw string, er EntityResolver) *Text {
	return &Text{Raw: raw, Escaped: Escape(raw, er)}
}

// IsWhitespace reports whether the text consists of white space only.
func (t *Text) IsWhitespace() bool {
	return strings.TrimLeft(t.Raw, whitespace) == ""
}

func (t *Text) String() string { return t.Escaped }

func (c *Comment) String() string { return "<!--" + c.Data + "-->" }

func (c *CData) String() string { return "<![CDATA[" + c.Data + "]]>" }

// CloseTag returns the close tag matching t. Attributes are not carried over.
func (t *Tag) CloseTag() *Tag {
	return &Tag{Name: t.Name, Kind: Close}
}

// EmptyTag returns the self-closing form of t.
func (t *Tag) EmptyTag() *Tag {
	return &Tag{Name: t.Name, Attr: slices.Clone(t.Attr), Kind: Empty}
}

// SameTag reports whether t and o have the same name. When fold is set the
// names are compared case-insensitively.
func (t *Tag) SameTag(o *Tag, fold bool) bool {
	if o == nil {
		return false
	}
	if fold {
		return strings.EqualFold(t.Name, o.Name)
	}
	return t.Name == o.Name
}

// Get returns the value of the attribute named key.
func (t *Tag) Get(key string) (string, bool) {
	for _, a := range t.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Retain keeps only the attributes for which keep returns true.
func (t *Tag) Retain(keep func(Attribute) bool) {
	attr := t.Attr[:0]
	for _, a := range t.Attr {
		if keep(a) {
			attr = append(attr, a)
		}
	}
	for i := len(attr); i < len(t.Attr); i++ {
		t.Attr[i] = Attribute{}
	}
	t.Attr = attr
}

// String renders the tag with attribute values escaped. Only the predefined
// XML entities are preserved in attribute values; use Render to preserve the
// entities known to a content model.
func (t *Tag) String() string {
	var sb strings.Builder
	writeTag(&sb, t, nil)
	return sb.String()
}

func writeTag(sb *strings.Builder, t *Tag, er EntityResolver) {
	sb.WriteByte('<')
	if t.Kind == Close {
		sb.WriteByte('/')
		sb.WriteString(t.Name)
		sb.WriteByte('>')
		return
	}
	sb.WriteString(t.Name)
	for _, a := range t.Attr {
		sb.WriteByte(' ')
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(Escape(a.Val, er))
		sb.WriteByte('"')
	}
	if t.Kind == Empty {
		sb.WriteByte('/')
	}
	sb.WriteByte('>')
}

const whitespace = " \t\r\n\f"
