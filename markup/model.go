package markup

// ContentModel is the schema a document is repaired against. It is queried
// only and never mutated by this package.
type ContentModel interface {
	// IgnoreCase reports whether tag and attribute names are matched
	// case-insensitively.
	IgnoreCase() bool

	// TagName returns the canonical spelling of a tag name, or name itself
	// when the tag is not declared.
	TagName(name string) string

	// AttrName returns the canonical spelling of an attribute of tag, or attr
	// itself when it is not declared.
	AttrName(tag, attr string) string

	// IsKnownTag reports whether a tag with the given name is declared.
	IsKnownTag(name string) bool

	// RetainKnownAttributes drops the attributes of t that are not declared
	// for its name.
	RetainKnownAttributes(t *Tag)

	// CanContain reports whether child may appear directly inside parent. A
	// nil parent stands for the document root.
	CanContain(parent *Tag, child Token) bool
}

// EntityResolver is an optional capability of a ContentModel. EntityRef
// returns the canonical name of a named entity reference, or false when the
// entity is unknown.
type EntityResolver interface {
	EntityRef(name string) (string, bool)
}

func foldCase(cm ContentModel) bool {
	return cm != nil && cm.IgnoreCase()
}

// Entities returns the entity resolver of cm, or nil when cm has none.
func Entities(cm ContentModel) EntityResolver {
	if er, ok := cm.(EntityResolver); ok {
		return er
	}
	return nil
}
