package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Reserved grammar keys and items.
const (
	rootKey     = "@ROOT"
	entitiesKey = "@ENTITIES"
	textItem    = "#TEXT"
	groupPrefix = "_"
	attrPrefix  = "$"
)

var (
	// ErrIncludeCycle is returned when a group includes itself, directly or
	// through other groups.
	ErrIncludeCycle = errors.New("include cycle")

	// ErrUnknownGroup is returned when an item refers to an undeclared group.
	ErrUnknownGroup = errors.New("unknown group")
)

// grammar is the raw form of a schema as read from its source: every key
// maps to a list of items which may still refer to groups.
type grammar struct {
	rules map[string][]string
	// checks holds attribute check expressions by tag and attribute name.
	checks       map[string]map[string]string
	ignoreCase   bool
	htmlEntities bool
}

func newGrammar() *grammar {
	return &grammar{
		rules:  map[string][]string{},
		checks: map[string]map[string]string{},
	}
}

func (g *grammar) addCheck(tag, attr, src string) {
	if g.checks[tag] == nil {
		g.checks[tag] = map[string]string{}
	}
	g.checks[tag][attr] = src
}

// include returns the items of key with all group references replaced by
// the items of the referenced groups.
func (g *grammar) include(key string, stack []string) ([]string, error) {
	for _, k := range stack {
		if k == key {
			return nil, fmt.Errorf("resolve %s: %w: %s", key, ErrIncludeCycle, strings.Join(append(stack, key), " -> "))
		}
	}
	items, ok := g.rules[key]
	if !ok {
		return nil, fmt.Errorf("resolve %s: %w", key, ErrUnknownGroup)
	}
	stack = append(stack, key)

	var out []string
	for _, it := range items {
		if !strings.HasPrefix(it, groupPrefix) {
			out = append(out, it)
			continue
		}
		sub, err := g.include(it, stack)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// compile resolves all includes and builds the lookup tables of a Schema.
func (g *grammar) compile() (*Schema, error) {
	s := &Schema{
		root:         newElement(""),
		elems:        map[string]*Element{},
		folded:       map[string]string{},
		entities:     map[string]string{},
		ignoreCase:   g.ignoreCase,
		htmlEntities: g.htmlEntities,
	}

	keys := make([]string, 0, len(g.rules))
	for k := range g.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	if _, ok := g.rules[rootKey]; !ok {
		errs = append(errs, fmt.Errorf("missing %s declaration", rootKey))
	}
	for _, key := range keys {
		if strings.HasPrefix(key, groupPrefix) {
			continue
		}
		items, err := g.include(key, nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		switch key {
		case entitiesKey:
			for _, name := range items {
				s.entities[name] = name
			}
			continue
		case rootKey:
			s.root.fill(items)
			continue
		}
		if strings.HasPrefix(key, "@") {
			errs = append(errs, fmt.Errorf("unknown reserved key %q", key))
			continue
		}

		e := newElement(key)
		e.fill(items)
		for attr, src := range g.checks[key] {
			a, ok := e.attrs[attr]
			if !ok {
				a = &Attr{Name: attr}
				e.attrs[attr] = a
				e.foldedAttrs[strings.ToLower(attr)] = attr
			}
			if err := a.compile(key, src); err != nil {
				errs = append(errs, err)
			}
		}
		s.elems[key] = e
		s.folded[strings.ToLower(key)] = key
	}

	for tag := range g.checks {
		if _, ok := s.elems[tag]; !ok {
			errs = append(errs, fmt.Errorf("attribute check for undeclared tag %q", tag))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}
