package schema

import (
	"bytes"
	_ "embed"
)

//go:embed xhtml.properties
var xhtmlGrammar []byte

// XHTML returns a fresh copy of the built-in XHTML 1.0 Transitional schema
// with case-insensitive matching and the HTML5 entity table enabled.
func XHTML() *Schema {
	s, err := LoadProperties(bytes.NewReader(xhtmlGrammar))
	if err != nil {
		// the embedded grammar is covered by tests
		panic("schema: load XHTML grammar: " + err.Error())
	}
	s.SetIgnoreCase(true)
	s.SetHTMLEntities(true)
	return s
}
