package markup

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// NodeID addresses a node within a Tree.
type NodeID int

const (
	// Root is the synthetic document node of every tree. It has no payload
	// and no parent.
	Root NodeID = 0

	// None is returned where no node applies.
	None NodeID = -1
)

// ErrNotAncestor is returned by Move when the destination is not an ancestor
// of the moved node.
var ErrNotAncestor = errors.New("destination is not an ancestor")

type node struct {
	parent   NodeID
	children []NodeID
	payload  Token
}

// Tree is an ordered n-ary tree of tokens. Nodes live in an arena and refer
// to each other by index. Removed nodes stay in the arena, detached.
type Tree struct {
	nodes []node
}

// NewTree returns a tree holding only the root node.
func NewTree() *Tree {
	return &Tree{nodes: []node{{parent: None}}}
}

// Len returns the number of nodes ever created, detached ones included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Append adds a node holding tok as the last child of parent and returns it.
func (t *Tree) Append(parent NodeID, tok Token) NodeID {
	t.check(parent)
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{parent: parent, payload: tok})
	t.nodes[parent].children = append(t.nodes[parent].children, id)
	return id
}

// Parent returns the parent of n, or None for the root and detached nodes.
func (t *Tree) Parent(n NodeID) NodeID {
	t.check(n)
	return t.nodes[n].parent
}

// Children returns the children of n in document order. The slice is owned
// by the tree and changes with it; clone it before mutating the tree.
func (t *Tree) Children(n NodeID) []NodeID {
	t.check(n)
	return t.nodes[n].children
}

// Payload returns the token held by n; it is nil for the root.
func (t *Tree) Payload(n NodeID) Token {
	t.check(n)
	return t.nodes[n].payload
}

// Replace swaps the token held by n.
func (t *Tree) Replace(n NodeID, tok Token) {
	if n == Root {
		panic("markup: Replace called for the root node")
	}
	t.check(n)
	t.nodes[n].payload = tok
}

// Closest returns the first node satisfying pred, walking from n itself up
// to the root.
func (t *Tree) Closest(n NodeID, pred func(NodeID) bool) NodeID {
	t.check(n)
	for ; n != None; n = t.nodes[n].parent {
		if pred(n) {
			return n
		}
	}
	return None
}

// FindAncestor is like Closest but starts at the parent of n.
func (t *Tree) FindAncestor(n NodeID, pred func(NodeID) bool) NodeID {
	t.check(n)
	if p := t.nodes[n].parent; p != None {
		return t.Closest(p, pred)
	}
	return None
}

// IsAncestor reports whether a is a strict ancestor of n.
func (t *Tree) IsAncestor(a, n NodeID) bool {
	return t.FindAncestor(n, func(id NodeID) bool { return id == a }) != None
}

// Attached reports whether n is reachable from the root.
func (t *Tree) Attached(n NodeID) bool {
	return n == Root || t.IsAncestor(Root, n)
}

// Move detaches n with its subtree and appends it as the last child of dest.
// Dest must be a strict ancestor of n, which rules out cycles.
func (t *Tree) Move(n, dest NodeID) error {
	t.check(dest)
	if !t.IsAncestor(dest, n) {
		return fmt.Errorf("move node %d to %d: %w", n, dest, ErrNotAncestor)
	}
	t.unlink(n)
	t.nodes[n].parent = dest
	t.nodes[dest].children = append(t.nodes[dest].children, n)
	return nil
}

// Remove detaches n with its subtree. Removing a detached node is a no-op.
func (t *Tree) Remove(n NodeID) {
	if n == Root {
		panic("markup: Remove called for the root node")
	}
	t.check(n)
	t.unlink(n)
	t.nodes[n].parent = None
}

func (t *Tree) unlink(n NodeID) {
	p := t.nodes[n].parent
	if p == None {
		return
	}
	siblings := t.nodes[p].children
	if i := slices.Index(siblings, n); i >= 0 {
		t.nodes[p].children = slices.Delete(siblings, i, i+1)
	}
}

// Depth returns the number of levels of the subtree rooted at n, counting n.
func (t *Tree) Depth(n NodeID) int {
	t.check(n)
	depth := 0
	for _, c := range t.nodes[n].children {
		depth = max(depth, t.Depth(c))
	}
	return depth + 1
}

func (t *Tree) check(n NodeID) {
	if n < 0 || int(n) >= len(t.nodes) {
		panic(fmt.Sprintf("markup: node %d out of range", n))
	}
}

// String dumps the attached tree, one node per line, indented by depth.
func (t *Tree) String() string {
	var sb strings.Builder
	var dump func(n NodeID, level int)
	dump = func(n NodeID, level int) {
		sb.WriteString(strings.Repeat("  ", level))
		if tok := t.nodes[n].payload; tok != nil {
			sb.WriteString(tok.String())
		} else {
			sb.WriteString("#root")
		}
		sb.WriteByte('\n')
		for _, c := range t.nodes[n].children {
			dump(c, level+1)
		}
	}
	dump(Root, 0)
	return sb.String()
}
