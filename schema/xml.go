package schema

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// LoadXML reads a grammar written as XML:
//
//	<schema ignore-case="true">
//	  <root>html</root>
//	  <group name="_inline">#TEXT b i a</group>
//	  <element name="img">$src $alt
//	    <attr name="width" check='value matches "^[0-9]+%?$"'/>
//	  </element>
//	  <entities html="true">nbsp</entities>
//	</schema>
//
// Element content uses the same items as the properties syntax. An attr
// child declares an attribute, optionally with a check expression over tag,
// attr and value that must evaluate to a bool.
func LoadXML(r io.Reader) (*Schema, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}
	root := doc.SelectElement("schema")
	if root == nil {
		return nil, fmt.Errorf("read grammar: missing <schema> element")
	}

	g := newGrammar()
	var err error
	if g.ignoreCase, err = boolAttr(root, "ignore-case"); err != nil {
		return nil, err
	}

	for _, el := range root.ChildElements() {
		items := strings.Fields(charData(el))
		switch el.Tag {
		case "root":
			g.rules[rootKey] = append(g.rules[rootKey], items...)
		case "entities":
			g.rules[entitiesKey] = append(g.rules[entitiesKey], items...)
			if g.htmlEntities, err = boolAttr(el, "html"); err != nil {
				return nil, err
			}
		case "group":
			name := el.SelectAttrValue("name", "")
			if !strings.HasPrefix(name, groupPrefix) {
				return nil, fmt.Errorf("%s: group name %q must start with %q", el.GetPath(), name, groupPrefix)
			}
			g.rules[name] = append(g.rules[name], items...)
		case "element":
			name := el.SelectAttrValue("name", "")
			if name == "" || strings.HasPrefix(name, groupPrefix) || strings.HasPrefix(name, "@") {
				return nil, fmt.Errorf("%s: invalid element name %q", el.GetPath(), name)
			}
			for _, a := range el.SelectElements("attr") {
				attr := a.SelectAttrValue("name", "")
				if attr == "" {
					return nil, fmt.Errorf("%s: attr without name", a.GetPath())
				}
				items = append(items, attrPrefix+attr)
				if check := a.SelectAttrValue("check", ""); check != "" {
					g.addCheck(name, attr, check)
				}
			}
			g.rules[name] = append(g.rules[name], items...)
		default:
			return nil, fmt.Errorf("%s: unexpected element", el.GetPath())
		}
	}

	s, err := g.compile()
	if err != nil {
		return nil, fmt.Errorf("compile grammar: %w", err)
	}
	return s, nil
}

// charData returns the text of el without that of its child elements.
func charData(el *etree.Element) string {
	var sb strings.Builder
	for _, t := range el.Child {
		if cd, ok := t.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func boolAttr(el *etree.Element, key string) (bool, error) {
	v := el.SelectAttrValue(key, "")
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: attribute %s: %w", el.GetPath(), key, err)
	}
	return b, nil
}
