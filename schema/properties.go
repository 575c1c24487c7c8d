package schema

import (
	"fmt"
	"io"
	"strings"

	"github.com/magiconair/properties"
)

// LoadProperties reads a grammar in Java properties syntax, one key per
// line:
//
//	@ROOT = html
//	html  = head body $lang
//
// Values are split on white space. Long lists may be continued on the next
// line with a trailing backslash.
func LoadProperties(r io.Reader) (*Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}
	p, err := properties.Load(data, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("parse grammar: %w", err)
	}

	g := newGrammar()
	for _, key := range p.Keys() {
		v, _ := p.Get(key)
		g.rules[key] = strings.Fields(v)
	}

	s, err := g.compile()
	if err != nil {
		return nil, fmt.Errorf("compile grammar: %w", err)
	}
	return s, nil
}
