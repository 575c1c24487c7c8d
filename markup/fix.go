package markup

import "strings"

// AnnotationMarker starts the text of every comment inserted in annotate
// mode.
const AnnotationMarker = "XMLBS!"

// FixKind classifies a recovery action taken on a malformed document.
type FixKind int

const (
	// UnknownTag is a tag not declared by the content model; it is dropped.
	UnknownTag FixKind = iota
	// StrayClose is a close tag without a matching open tag; it is dropped.
	StrayClose
	// Relocated is a subtree moved up to the nearest ancestor that may
	// contain it.
	Relocated
	// Dropped is a subtree no ancestor may contain; it is removed.
	Dropped
)

func (k FixKind) String() string {
	switch k {
	case UnknownTag:
		return "UNKNOWN TAG"
	case StrayClose:
		return "STRAY CLOSE TAG"
	case Relocated:
		return "RELOCATED"
	case Dropped:
		return "ILLEGAL CONTENT"
	}
	return "UNKNOWN"
}

// Fix records one recovery action and the token it was applied to.
type Fix struct {
	Kind  FixKind
	Token Token
}

func (f Fix) String() string {
	return f.Kind.String() + ": " + f.Token.String()
}

// Comment returns the annotation standing in for the fixed token. Double
// hyphens are broken up to keep the comment well-formed.
func (f Fix) Comment() *Comment {
	data := AnnotationMarker + ": " + f.String()
	for strings.Contains(data, "--") {
		data = strings.ReplaceAll(data, "--", "- -")
	}
	if strings.HasSuffix(data, "-") {
		data += " "
	}
	return &Comment{Data: data}
}
