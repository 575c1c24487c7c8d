package markup

import "slices"

type balancer struct {
	t        *Tree
	cm       ContentModel
	record   func(Fix)
	annotate bool
}

// BalanceOption configures Balance.
type BalanceOption func(*balancer)

// WithRecorder registers fn to be called for every recovery action.
func WithRecorder(fn func(Fix)) BalanceOption {
	return func(b *balancer) { b.record = fn }
}

// WithAnnotate makes Balance leave a comment in place of every dropped
// subtree instead of removing it without a trace.
func WithAnnotate() BalanceOption {
	return func(b *balancer) { b.annotate = true }
}

// Balance repairs containment violations in t. A node its parent may not
// contain is moved with its subtree to the nearest ancestor that may contain
// it, or dropped when there is none. Leftover close tags are dropped.
// Comments and CDATA sections are left where they are.
//
// Every node is checked against its parent before its own children are
// balanced, so a relocated subtree is balanced once, in its new place.
func Balance(t *Tree, cm ContentModel, opts ...BalanceOption) {
	b := &balancer{t: t, cm: cm, record: func(Fix) {}}
	for _, opt := range opts {
		opt(b)
	}
	b.balance(Root)
}

func (b *balancer) balance(n NodeID) {
	parent, _ := b.t.Payload(n).(*Tag)

	for _, c := range slices.Clone(b.t.Children(n)) {
		tok := b.t.Payload(c)
		switch tok := tok.(type) {
		case *Comment, *CData:
			continue
		case *Tag:
			if tok.Kind == Close {
				b.drop(c, StrayClose)
				continue
			}
		}

		if !b.cm.CanContain(parent, tok) {
			dest := b.t.FindAncestor(n, func(a NodeID) bool {
				return b.canContain(a, tok)
			})
			if dest == None {
				b.drop(c, Dropped)
				continue
			}
			if err := b.t.Move(c, dest); err != nil {
				panic(err)
			}
			b.record(Fix{Kind: Relocated, Token: tok})
		}

		if tag, ok := tok.(*Tag); ok && tag.Kind == Open {
			b.balance(c)
		}
	}
}

func (b *balancer) canContain(n NodeID, child Token) bool {
	switch p := b.t.Payload(n).(type) {
	case nil:
		return b.cm.CanContain(nil, child)
	case *Tag:
		return p.Kind == Open && b.cm.CanContain(p, child)
	}
	return false
}

func (b *balancer) drop(n NodeID, kind FixKind) {
	fix := Fix{Kind: kind, Token: b.t.Payload(n)}
	b.record(fix)
	if !b.annotate {
		b.t.Remove(n)
		return
	}
	for _, c := range slices.Clone(b.t.Children(n)) {
		b.t.Remove(c)
	}
	b.t.Replace(n, fix.Comment())
}
