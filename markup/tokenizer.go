package markup

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
)

// Lexical patterns for tag bodies, i.e. the text between '<' and '>'.
var (
	closeTagRe = regexp.MustCompile(`^\s*/`)
	emptyTagRe = regexp.MustCompile(`/\s*$`)
	tagNameRe  = regexp.MustCompile(`^\s*/?\s*([A-Za-z0-9:][-A-Za-z0-9:_.]*)`)
	attrNameRe = regexp.MustCompile(`\s([A-Za-z_:][-A-Za-z0-9_:.]*)\s*=`)

	// attribute value forms, tried in order
	attrValRes = []*regexp.Regexp{
		regexp.MustCompile(`^\s*=\s*'([^']*)'`),
		regexp.MustCompile(`^\s*=\s*"([^"]*)"`),
		regexp.MustCompile("^\\s*=\\s*([^\\s\"'<>=`]+)"),
	}
)

// A Tokenizer splits a markup document into tokens. Anything that does not
// form a recognizable tag, comment or CDATA section is returned as text, so
// tokenizing never fails on malformed input; only read errors are reported.
//
// A Tokenizer reads its input once and cannot be restarted.
type Tokenizer struct {
	src *source
	cm  ContentModel
	er  EntityResolver
	// holdBack is a token read ahead while text was pending.
	holdBack Token
	err      error
}

// NewTokenizer returns a Tokenizer reading from r. Tag and attribute names
// are canonicalized through cm, which may be nil.
func NewTokenizer(r io.Reader, cm ContentModel) *Tokenizer {
	return &Tokenizer{
		src: newSource(r),
		cm:  cm,
		er:  Entities(cm),
	}
}

// Tokenize reads all tokens from r.
func Tokenize(r io.Reader, cm ContentModel) ([]Token, error) {
	z := NewTokenizer(r, cm)
	var toks []Token
	for {
		tok, err := z.Next()
		if err == io.EOF {
			return toks, nil
		}
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
	}
}

// Next returns the next token. It returns io.EOF when the input is
// exhausted, or the error encountered while reading.
func (z *Tokenizer) Next() (Token, error) {
	if z.holdBack != nil {
		tok := z.holdBack
		z.holdBack = nil
		return tok, nil
	}
	if z.err != nil {
		return nil, z.err
	}

	var text strings.Builder
	for {
		c, err := z.src.read()
		if err != nil {
			if err != io.EOF {
				z.err = fmt.Errorf("read markup: %w", err)
				return nil, z.err
			}
			z.err = io.EOF
			if text.Len() > 0 {
				return NewText(text.String(), z.er), nil
			}
			return nil, io.EOF
		}

		if c != '<' {
			text.WriteRune(c)
			continue
		}

		p := z.src.mark()
		tok, err := z.lex()
		if err != nil {
			z.err = fmt.Errorf("read markup: %w", err)
			return nil, z.err
		}
		if tok == nil {
			// stray '<'
			z.src.reset(p)
			text.WriteByte('<')
			continue
		}
		z.src.release()

		if text.Len() > 0 {
			z.holdBack = tok
			return NewText(text.String(), z.er), nil
		}
		return tok, nil
	}
}

// lex tries the sub-lexers on the input following '<'. A nil token means
// no construct was recognized. Only read errors other than io.EOF are
// returned.
func (z *Tokenizer) lex() (Token, error) {
	c, err := z.src.read()
	if err != nil {
		return nil, ignoreEOF(err)
	}
	switch {
	case c == '/' || unicode.IsLetter(c):
		return z.lexTag(c)
	case c == '!':
		return z.lexDecl()
	case c == '?':
		return z.lexProcInst()
	}
	return nil, nil
}

func (z *Tokenizer) lexTag(first rune) (Token, error) {
	var sb strings.Builder
	sb.WriteRune(first)
	for {
		c, err := z.src.read()
		if err != nil {
			// unterminated tag
			return nil, ignoreEOF(err)
		}
		if c == '<' {
			return nil, nil
		}
		if c == '>' {
			break
		}
		sb.WriteRune(c)
	}
	if tag := z.parseTag(sb.String()); tag != nil {
		return tag, nil
	}
	return nil, nil
}

// lexProcInst is where processing instructions would be read. They are not
// supported and end up as text.
func (z *Tokenizer) lexProcInst() (Token, error) {
	return nil, nil
}

func (z *Tokenizer) lexDecl() (Token, error) {
	c, err := z.src.read()
	if err != nil {
		return nil, ignoreEOF(err)
	}
	switch c {
	case '-':
		c, err = z.src.read()
		if err != nil || c != '-' {
			return nil, ignoreEOF(err)
		}
		data, ok, err := z.scanUntil("-->")
		if !ok {
			return nil, err
		}
		return &Comment{Data: data}, nil
	case '[':
		for _, want := range "CDATA[" {
			c, err = z.src.read()
			if err != nil || c != want {
				return nil, ignoreEOF(err)
			}
		}
		data, ok, err := z.scanUntil("]]>")
		if !ok {
			return nil, err
		}
		return &CData{Data: data}, nil
	}
	return nil, nil
}

// scanUntil reads up to and including term and returns what came before it.
// It reports false when the input ends first.
func (z *Tokenizer) scanUntil(term string) (string, bool, error) {
	var sb strings.Builder
	for {
		c, err := z.src.read()
		if err != nil {
			return "", false, ignoreEOF(err)
		}
		sb.WriteRune(c)
		if c == rune(term[len(term)-1]) && strings.HasSuffix(sb.String(), term) {
			s := sb.String()
			return s[:len(s)-len(term)], true, nil
		}
	}
}

// parseTag builds a tag from its raw body. It returns nil when the body has
// no tag name.
func (z *Tokenizer) parseTag(raw string) *Tag {
	m := tagNameRe.FindStringSubmatchIndex(raw)
	if m == nil {
		return nil
	}
	tag := &Tag{Name: raw[m[2]:m[3]]}
	if z.cm != nil {
		tag.Name = z.cm.TagName(tag.Name)
	}

	switch {
	case closeTagRe.MatchString(raw):
		tag.Kind = Close
		return tag
	case emptyTagRe.MatchString(raw):
		tag.Kind = Empty
		raw = emptyTagRe.ReplaceAllString(raw, "")
	default:
		tag.Kind = Open
	}

	if m[1] <= len(raw) {
		tag.Attr = z.parseAttrs(tag.Name, raw[m[1]:])
	}
	return tag
}

// parseAttrs extracts attributes from the part of a tag body that follows
// the tag name. Extraction stops at the first attribute whose value cannot
// be read; whatever follows is dropped.
func (z *Tokenizer) parseAttrs(tagName, s string) []Attribute {
	var attrs []Attribute
	seen := map[string]bool{}
	for pos := 0; pos < len(s); {
		m := attrNameRe.FindStringSubmatchIndex(s[pos:])
		if m == nil {
			break
		}
		key := s[pos+m[2] : pos+m[3]]
		pos += m[3]

		var val string
		found := false
		for _, re := range attrValRes {
			if vm := re.FindStringSubmatchIndex(s[pos:]); vm != nil {
				val = s[pos+vm[2] : pos+vm[3]]
				pos += vm[1]
				found = true
				break
			}
		}
		if !found {
			break
		}

		if z.cm != nil {
			key = z.cm.AttrName(tagName, key)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		attrs = append(attrs, Attribute{Key: key, Val: val})
	}
	return attrs
}

func ignoreEOF(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}
