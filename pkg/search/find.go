// Package search locates configuration lines with chained predicates and
// expands the matches to their structural relatives.
package search

import (
	"github.com/psaab/conftree/pkg/conftree"
)

// Option configures a search.
type Option func(*config)

type config struct {
	family   conftree.FamilyOptions
	recurse  bool
	suppress bool
}

func newConfig(opts []Option) config {
	c := config{recurse: true, suppress: true}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// WithAncestors includes the ancestors of every match.
func WithAncestors() Option { return func(c *config) { c.family.Ancestors = true } }

// WithChildren includes the immediate children of every match.
func WithChildren() Option { return func(c *config) { c.family.Children = true } }

// WithAllDescendants includes the whole subtree of every match.
func WithAllDescendants() Option { return func(c *config) { c.family.AllDescendants = true } }

// WithCousinDepth climbs n parents from every match and includes the
// subtree found there.
func WithCousinDepth(n int) Option {
	return func(c *config) { c.family.CousinDepth = conftree.Depth(n) }
}

// WithCousinUntil climbs from every match to the first node satisfying p
// and includes the subtree found there.
func WithCousinUntil(p Predicate) Option {
	return func(c *config) { c.family.CousinUntil = p }
}

// NoRecurse restricts every chain stage after the first to the immediate
// children of the previous stage's matches.
func NoRecurse() Option { return func(c *config) { c.recurse = false } }

// KeepCommonAncestors disables adjacent duplicate suppression in
// flattened results.
func KeepCommonAncestors() Option { return func(c *config) { c.suppress = false } }

// Find runs the predicate chain over nodes and returns the matches expanded
// to their selected family, flattened into one list. found is false when any
// stage of the chain matched nothing.
func Find(nodes []*conftree.Node, spec []Predicate, opts ...Option) ([]*conftree.Node, bool, error) {
	return FindMap(nodes, spec, Identity, Identity, opts...)
}

// FindGrouped is Find without flattening: one list per final match.
// Suppression never applies to grouped results.
func FindGrouped(nodes []*conftree.Node, spec []Predicate, opts ...Option) ([][]*conftree.Node, bool, error) {
	c := newConfig(opts)
	matches, found, err := chain(nodes, spec, c.recurse)
	if err != nil || !found {
		return nil, found, err
	}
	groups, err := expand(matches, c.family)
	if err != nil {
		return nil, false, err
	}
	return groups, true, nil
}

// FindMap is Find with conversion: final matches are passed through
// onMatch and the other family members through onOther.
func FindMap[T any](nodes []*conftree.Node, spec []Predicate, onMatch, onOther func(*conftree.Node) T, opts ...Option) ([]T, bool, error) {
	c := newConfig(opts)
	matches, found, err := chain(nodes, spec, c.recurse)
	if err != nil || !found {
		return nil, found, err
	}
	groups, err := expand(matches, c.family)
	if err != nil {
		return nil, false, err
	}

	matched := make(map[*conftree.Node]bool, len(matches))
	for _, m := range matches {
		matched[m] = true
	}

	var s suppressor
	var result []T
	for _, g := range groups {
		if c.suppress {
			g = s.next(g)
		}
		for _, n := range g {
			if matched[n] {
				result = append(result, onMatch(n))
			} else {
				result = append(result, onOther(n))
			}
		}
	}
	return result, true, nil
}

// Identity returns n unchanged; it is the default conversion for FindMap.
func Identity(n *conftree.Node) *conftree.Node { return n }

// FindRegex compiles each pattern and runs Find with the resulting chain.
func FindRegex(nodes []*conftree.Node, patterns []string, opts ...Option) ([]*conftree.Node, bool, error) {
	terms := make([]any, len(patterns))
	for i, p := range patterns {
		terms[i] = p
	}
	spec, err := Terms(terms...)
	if err != nil {
		return nil, false, err
	}
	return Find(nodes, spec, opts...)
}

// chain narrows nodes stage by stage and returns the final predicate's
// matches in candidate order.
func chain(nodes []*conftree.Node, spec []Predicate, recurse bool) ([]*conftree.Node, bool, error) {
	if err := validate(spec); err != nil {
		return nil, false, err
	}
	candidates := nodes
	for _, pred := range spec[:len(spec)-1] {
		var next []*conftree.Node
		seen := make(map[*conftree.Node]bool)
		for _, n := range filter(candidates, pred) {
			below := n.Children()
			if recurse {
				below = n.Descendants()
			}
			for _, d := range below {
				if !seen[d] {
					seen[d] = true
					next = append(next, d)
				}
			}
		}
		if len(next) == 0 {
			return nil, false, nil
		}
		candidates = next
	}
	matches := filter(candidates, spec[len(spec)-1])
	return matches, len(matches) > 0, nil
}

func filter(nodes []*conftree.Node, pred Predicate) []*conftree.Node {
	var out []*conftree.Node
	for _, n := range nodes {
		if pred(n) {
			out = append(out, n)
		}
	}
	return out
}

// expand turns every match into its family list. Without any family
// option each match stands alone.
func expand(matches []*conftree.Node, opts conftree.FamilyOptions) ([][]*conftree.Node, error) {
	groups := make([][]*conftree.Node, 0, len(matches))
	if !opts.Any() {
		for _, m := range matches {
			groups = append(groups, []*conftree.Node{m})
		}
		return groups, nil
	}
	opts.Self = true
	for _, m := range matches {
		fam, err := m.Family(opts)
		if err != nil {
			return nil, err
		}
		groups = append(groups, fam)
	}
	return groups, nil
}
