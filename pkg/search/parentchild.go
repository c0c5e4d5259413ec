package search

import (
	"fmt"
	"regexp"

	"github.com/psaab/conftree/pkg/conftree"
)

// FindParents returns the nodes matching parentSpec that have at least one
// descendant (only children when recurse is false) matching childSpec. With
// negate the parents with no such descendant are returned instead.
//
// parentSpec and childSpec take any term accepted by Terms. The pair may
// also be passed as parentSpec alone: a two-element []string,
// []*regexp.Regexp or []any, with childSpec nil.
func FindParents(nodes []*conftree.Node, parentSpec, childSpec any, recurse, negate bool) ([]*conftree.Node, error) {
	parent, child, err := pair(parentSpec, childSpec)
	if err != nil {
		return nil, err
	}
	var result []*conftree.Node
	for _, n := range nodes {
		if !parent(n) {
			continue
		}
		below := n.Children()
		if recurse {
			below = n.Descendants()
		}
		hit := false
		for _, d := range below {
			if child(d) {
				hit = true
				break
			}
		}
		if hit != negate {
			result = append(result, n)
		}
	}
	return result, nil
}

// FindParentsWithoutChild returns the nodes matching parentSpec that have no
// descendant matching childSpec.
func FindParentsWithoutChild(nodes []*conftree.Node, parentSpec, childSpec any, recurse bool) ([]*conftree.Node, error) {
	return FindParents(nodes, parentSpec, childSpec, recurse, true)
}

// FindChildren returns the descendants (only children when recurse is
// false) matching childSpec of the nodes matching parentSpec.
func FindChildren(nodes []*conftree.Node, parentSpec, childSpec any, recurse bool) ([]*conftree.Node, error) {
	parent, child, err := pair(parentSpec, childSpec)
	if err != nil {
		return nil, err
	}
	var opts []Option
	if !recurse {
		opts = append(opts, NoRecurse())
	}
	result, _, err := Find(nodes, []Predicate{parent, child}, opts...)
	return result, err
}

// FindObjects returns the nodes matching spec, which is a single term or a
// chain given as []string, []*regexp.Regexp, []Predicate or []any.
func FindObjects(nodes []*conftree.Node, spec any) ([]*conftree.Node, error) {
	terms, err := chainTerms(spec)
	if err != nil {
		return nil, err
	}
	preds, err := Terms(terms...)
	if err != nil {
		return nil, err
	}
	result, _, err := Find(nodes, preds)
	return result, err
}

// pair resolves the parent and child terms of a parent/child query.
func pair(parentSpec, childSpec any) (Predicate, Predicate, error) {
	if list, ok := asList(parentSpec); ok {
		if childSpec != nil {
			return nil, nil, fmt.Errorf("%w: parent spec is a pair and child spec is set", ErrAmbiguousSpec)
		}
		if len(list) != 2 {
			return nil, nil, fmt.Errorf("%w: parent/child pair has %d elements", ErrInvalidSpec, len(list))
		}
		parentSpec, childSpec = list[0], list[1]
	}
	if childSpec == nil {
		return nil, nil, fmt.Errorf("%w: missing child spec", ErrInvalidSpec)
	}
	parent, err := term(parentSpec)
	if err != nil {
		return nil, nil, fmt.Errorf("parent: %w", err)
	}
	child, err := term(childSpec)
	if err != nil {
		return nil, nil, fmt.Errorf("child: %w", err)
	}
	return parent, child, nil
}

func chainTerms(spec any) ([]any, error) {
	if list, ok := asList(spec); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: empty chain", ErrInvalidSpec)
		}
		return list, nil
	}
	if ps, ok := spec.([]Predicate); ok {
		list := make([]any, len(ps))
		for i, p := range ps {
			list[i] = p
		}
		return list, nil
	}
	return []any{spec}, nil
}

// asList unpacks the slice forms accepted for chains and pairs.
func asList(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		list := make([]any, len(s))
		for i, x := range s {
			list[i] = x
		}
		return list, true
	case []*regexp.Regexp:
		list := make([]any, len(s))
		for i, x := range s {
			list[i] = x
		}
		return list, true
	}
	return nil, false
}
