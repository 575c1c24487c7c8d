package markup

// Build folds tokens into a tree. Open tags descend, a close tag ascends past
// the nearest open ancestor with the same name and is itself discarded. A
// close tag without such an ancestor is kept as a leaf. Tags still open at
// the end are closed implicitly by Flatten.
//
// cm supplies the case-folding rule for matching names and may be nil.
func Build(tokens []Token, cm ContentModel) *Tree {
	t := NewTree()
	fold := foldCase(cm)
	current := Root
	for _, tok := range tokens {
		tag, ok := tok.(*Tag)
		if !ok {
			t.Append(current, tok)
			continue
		}
		switch tag.Kind {
		case Open:
			current = t.Append(current, tok)
		case Close:
			open := t.Closest(current, func(n NodeID) bool {
				p, ok := t.Payload(n).(*Tag)
				return ok && p.Kind == Open && p.SameTag(tag, fold)
			})
			if open != None {
				current = t.Parent(open)
			} else {
				t.Append(current, tok)
			}
		default:
			t.Append(current, tok)
		}
	}
	return t
}
