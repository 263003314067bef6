package parse

import (
	"strconv"
	"strings"

	"github.com/Thihup/parjac2-sub001/diag"
	"github.com/Thihup/parjac2-sub001/grammar"
)

// Span is the source range covered by a node.
type Span struct {
	Start diag.ParsePosition
	End   diag.ParsePosition
}

// Node is a parse tree node. Leaves carry a Token; interior nodes carry the
// Rule that matched their children.
type Node struct {
	Rule     *grammar.Rule
	Token    *grammar.Token
	Text     string
	Span     Span
	Children []*Node
}

// IsTerminal returns true if this is a leaf node (token).
func (n *Node) IsTerminal() bool {
	return n.Token != nil
}

// Name is the rule name for interior nodes and the token name for leaves.
func (n *Node) Name() string {
	if n.Token != nil {
		return n.Token.Name
	}
	if n.Rule != nil {
		return n.Rule.Name
	}
	return ""
}

// AddChild appends a child node and updates the span.
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	n.Children = append(n.Children, child)
	if len(n.Children) == 1 {
		n.Span.Start = child.Span.Start
	}
	n.Span.End = child.Span.End
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the children of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Tokens returns the leaves under n in source order.
func (n *Node) Tokens() []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.IsTerminal() {
			out = append(out, c)
		}
		return true
	})
	return out
}

func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb, 0)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	if n.IsTerminal() {
		sb.WriteString(n.Token.String())
		if n.Text != "" && n.Text != n.Token.Name {
			sb.WriteByte(' ')
			sb.WriteString(strconv.Quote(n.Text))
		}
		sb.WriteByte('\n')
		return
	}
	sb.WriteString(n.Name())
	sb.WriteByte('\n')
	for _, c := range n.Children {
		c.write(sb, depth+1)
	}
}

// Tree is the result of a successful parse. Root matches the goal rule, so
// its first child is the start symbol and its last is END_OF_INPUT.
type Tree struct {
	Grammar *grammar.Grammar
	Path    string
	Root    *Node
}

// Start returns the node of the start symbol.
func (t *Tree) Start() *Node {
	if t.Root == nil || len(t.Root.Children) == 0 {
		return nil
	}
	return t.Root.Children[0]
}

func (t *Tree) String() string {
	if s := t.Start(); s != nil {
		return s.String()
	}
	return ""
}
