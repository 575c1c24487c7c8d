package markup

import (
	"regexp"
	"strings"
)

var (
	entityRefRe = regexp.MustCompile(`^&([A-Za-z_:][A-Za-z0-9._:-]*);`)
	charRefRe   = regexp.MustCompile(`^&#([0-9]+|[xX][0-9a-fA-F]+);`)
)

// predefined are the entities every XML processor recognizes.
var predefined = map[string]bool{
	"amp":  true,
	"lt":   true,
	"gt":   true,
	"quot": true,
	"apos": true,
}

// Escape returns s with markup characters replaced by references. Character
// references and entity references known to er (or predefined by XML) are
// kept as they are; any other ampersand is escaped.
func Escape(s string, er EntityResolver) string {
	if !strings.ContainsAny(s, `<>"'&`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '"':
			sb.WriteString("&#034;")
		case '\'':
			sb.WriteString("&#039;")
		case '&':
			n := entityLen(s[i:], er, &sb)
			if n == 0 {
				sb.WriteString("&amp;")
				continue
			}
			i += n - 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// entityLen writes the reference at the start of s to sb and returns its
// length, or returns 0 when s does not start with a reference worth keeping.
func entityLen(s string, er EntityResolver, sb *strings.Builder) int {
	if m := charRefRe.FindStringSubmatch(s); m != nil {
		sb.WriteString(m[0])
		return len(m[0])
	}
	m := entityRefRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	name := m[1]
	if er != nil {
		if canon, ok := er.EntityRef(name); ok {
			sb.WriteByte('&')
			sb.WriteString(canon)
			sb.WriteByte(';')
			return len(m[0])
		}
	}
	if predefined[name] {
		sb.WriteString(m[0])
		return len(m[0])
	}
	return 0
}
