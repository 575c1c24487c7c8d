package markup

import (
	"io"
	"strings"
)

// Flatten turns t back into a token sequence in document order. Every open
// tag is followed by a close tag synthesized from it after its content, or
// is emitted in its self-closing form when it has no content. Close tags
// left in the tree are not emitted.
func Flatten(t *Tree) []Token {
	var out []Token
	var walk func(n NodeID)
	walk = func(n NodeID) {
		switch tok := t.Payload(n).(type) {
		case nil:
			for _, c := range t.Children(n) {
				walk(c)
			}
		case *Tag:
			switch tok.Kind {
			case Open:
				children := t.Children(n)
				if len(children) == 0 {
					out = append(out, tok.EmptyTag())
					return
				}
				out = append(out, tok)
				for _, c := range children {
					walk(c)
				}
				out = append(out, tok.CloseTag())
			case Empty:
				out = append(out, tok)
			}
		default:
			out = append(out, tok)
		}
	}
	walk(Root)
	return out
}

// Render writes tokens as markup. Attribute values are escaped with the
// entities known to er preserved; er may be nil.
func Render(w io.Writer, tokens []Token, er EntityResolver) error {
	var sb strings.Builder
	for _, tok := range tokens {
		switch tok := tok.(type) {
		case *Tag:
			writeTag(&sb, tok, er)
		default:
			sb.WriteString(tok.String())
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
