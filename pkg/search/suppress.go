package search

import "github.com/psaab/conftree/pkg/conftree"

// SuppressCommon returns the nodes of cur that are not in prev, keeping
// their order.
func SuppressCommon(prev, cur []*conftree.Node) []*conftree.Node {
	if len(prev) == 0 {
		return cur
	}
	seen := make(map[*conftree.Node]struct{}, len(prev))
	for _, n := range prev {
		seen[n] = struct{}{}
	}
	out := make([]*conftree.Node, 0, len(cur))
	for _, n := range cur {
		if _, ok := seen[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// suppressor folds SuppressCommon over consecutive family lists. Only the
// immediately preceding list counts, and it is remembered unfiltered.
type suppressor struct {
	prev []*conftree.Node
}

func (s *suppressor) next(cur []*conftree.Node) []*conftree.Node {
	out := SuppressCommon(s.prev, cur)
	s.prev = cur
	return out
}
