// Package conftree builds a navigable tree out of the lines of a network
// device configuration, using indentation (IOS, IOS-XR, EOS) or braces
// (Junos) as the only structural signal.
package conftree

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/psaab/conftree/pkg/addr"
)

// Node represents a single line of a configuration document.
//
// Nodes are created by Parse and never change afterwards. A parent owns its
// children; the parent pointer is a back reference used only to walk upward.
type Node struct {
	line     int
	text     string
	parent   *Node
	children []*Node

	addrOnce sync.Once
	addrs    addr.Record
}

func newNode(line int, text string) *Node {
	return &Node{line: line, text: text}
}

// attach makes n the last child of parent. Only the builder calls this.
func (n *Node) attach(parent *Node) {
	n.parent = parent
	parent.children = append(parent.children, n)
}

// LineNumber returns the 1-based position of the line in the input.
func (n *Node) LineNumber() int { return n.line }

// Text returns the line with trailing whitespace removed and leading
// whitespace intact.
func (n *Node) Text() string { return n.text }

// String implements fmt.Stringer and returns Text.
func (n *Node) String() string { return n.text }

// GoString renders the node for debugging output.
func (n *Node) GoString() string {
	return fmt.Sprintf("<Node gen=%d children=%d line=%d: %q>",
		n.Generation(), len(n.children), n.line, n.text)
}

// Parent returns the enclosing node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.parent == nil }

// Children returns the immediate children in source order.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// NumChildren returns the number of immediate children.
func (n *Node) NumChildren() int { return len(n.children) }

// Generation is 1 for a root, 2 for its children, and so on.
func (n *Node) Generation() int {
	gen := 1
	for p := n.parent; p != nil; p = p.parent {
		gen++
	}
	return gen
}

// Ancestors returns the chain of parents ordered from the root down to the
// immediate parent.
func (n *Node) Ancestors() []*Node {
	var result []*Node
	for p := n.parent; p != nil; p = p.parent {
		result = append(result, p)
	}
	slices.Reverse(result)
	return result
}

// Descendants returns every node below n in pre-order: each child is
// followed by its own descendants before the next sibling.
func (n *Node) Descendants() []*Node {
	var result []*Node
	// Explicit stack keeps very deep documents off the call stack.
	stack := make([]*Node, 0, len(n.children))
	for i := len(n.children) - 1; i >= 0; i-- {
		stack = append(stack, n.children[i])
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		result = append(result, cur)
		for i := len(cur.children) - 1; i >= 0; i-- {
			stack = append(stack, cur.children[i])
		}
	}
	return result
}

// TrimmedText returns the text without leading whitespace.
func (n *Node) TrimmedText() string {
	return strings.TrimLeft(n.text, " \t")
}

// Indent returns the number of leading spaces.
func (n *Node) Indent() int {
	return leadingSpaces(n.text)
}

// Fields splits the text on whitespace.
func (n *Node) Fields() []string {
	return strings.Fields(n.text)
}

// HasPrefix reports whether the trimmed text starts with prefix.
func (n *Node) HasPrefix(prefix string) bool {
	return strings.HasPrefix(n.TrimmedText(), prefix)
}

// Contains reports whether substr occurs anywhere in the text.
func (n *Node) Contains(substr string) bool {
	return strings.Contains(n.text, substr)
}

// IsComment reports whether the line is a '!' or '#' comment.
func (n *Node) IsComment() bool {
	return isComment(n.text)
}

// Addresses returns the IP addresses and networks found in the text. The
// scan runs once per node; later calls return the cached record.
func (n *Node) Addresses() addr.Record {
	n.addrOnce.Do(func() {
		n.addrs = addr.Extract(n.text)
	})
	return n.addrs
}

// HasAddress reports whether the node refers to q, which must be a
// netip.Addr, netip.Prefix or addr.Interface.
func (n *Node) HasAddress(q any) (bool, error) {
	return n.Addresses().Has(q)
}

func leadingSpaces(s string) int {
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

func isComment(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "!") || strings.HasPrefix(t, "#")
}
