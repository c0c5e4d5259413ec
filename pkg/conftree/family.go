package conftree

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeCousinDepth is returned when FamilyOptions.CousinDepth < 0.
	ErrNegativeCousinDepth = errors.New("cousin depth must not be negative")

	// ErrNoMatchingAncestor is returned when no node on the path to the
	// root satisfies FamilyOptions.CousinUntil.
	ErrNoMatchingAncestor = errors.New("no ancestor satisfies predicate")
)

// FamilyOptions selects which relatives Family returns.
type FamilyOptions struct {
	Ancestors      bool
	Self           bool
	Children       bool
	AllDescendants bool // supersedes Children

	// CousinDepth climbs this many parents before expanding; the node
	// reached is returned with its whole subtree. Climbing stops quietly
	// at a root.
	CousinDepth *int

	// CousinUntil climbs until the predicate matches, starting with the
	// node itself. Ignored when CousinDepth is set.
	CousinUntil func(*Node) bool
}

// DefaultFamily returns options selecting ancestors, the node itself and
// all of its descendants.
func DefaultFamily() FamilyOptions {
	return FamilyOptions{Ancestors: true, Self: true, Children: true, AllDescendants: true}
}

// Depth is a helper for FamilyOptions.CousinDepth.
func Depth(n int) *int { return &n }

// Any reports whether any relative beyond the node itself is selected.
func (o FamilyOptions) Any() bool {
	return o.Ancestors || o.Children || o.AllDescendants || o.CousinDepth != nil || o.CousinUntil != nil
}

// Family returns the selected relatives of n in document order: ancestors,
// then the subject, then its children or descendants.
func (n *Node) Family(opts FamilyOptions) ([]*Node, error) {
	subject := n
	switch {
	case opts.CousinDepth != nil:
		depth := *opts.CousinDepth
		if depth < 0 {
			return nil, fmt.Errorf("family of line %d: %w (got %d)", n.line, ErrNegativeCousinDepth, depth)
		}
		for i := 0; i < depth && subject.parent != nil; i++ {
			subject = subject.parent
		}
		opts.AllDescendants = true
	case opts.CousinUntil != nil:
		for !opts.CousinUntil(subject) {
			if subject.parent == nil {
				return nil, fmt.Errorf("family of line %d: %w", n.line, ErrNoMatchingAncestor)
			}
			subject = subject.parent
		}
		opts.AllDescendants = true
	}

	var result []*Node
	if opts.Ancestors {
		result = append(result, subject.Ancestors()...)
	}
	if opts.Self {
		result = append(result, subject)
	}
	if opts.AllDescendants {
		result = append(result, subject.Descendants()...)
	} else if opts.Children {
		result = append(result, subject.children...)
	}
	return result, nil
}
