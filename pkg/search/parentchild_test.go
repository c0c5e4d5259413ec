package search

import (
	"errors"
	"regexp"
	"slices"
	"testing"

	"github.com/psaab/conftree/pkg/conftree"
)

func TestFindParents(t *testing.T) {
	doc := parse(t, notebookConfig)

	tests := []struct {
		name    string
		parent  any
		child   any
		recurse bool
		negate  bool
		want    []int
	}{
		{"descendant match", "^router isis", "passive", true, false, []int{11}},
		{"children only", "^router isis", "passive", false, false, nil},
		{"negated children only", "^router isis", "passive", false, true, []int{11}},
		{"nested interfaces", "^ interface ", "circuit-type", true, false, []int{19, 25}},
		{"without child", "^ interface ", "circuit-type", true, true, []int{33, 35, 39, 41, 51, 53}},
		{"pair of strings", []string{"^interface ", "ipv4 address"}, nil, true, false, []int{0, 7}},
		{"pair of regexps", []*regexp.Regexp{regexp.MustCompile("^interface "), regexp.MustCompile("cdp")}, nil, false, false, []int{0}},
		{"mixed pair", []any{"^mpls ", Predicate(func(n *conftree.Node) bool { return n.HasPrefix("router-id") })}, nil, true, false, []int{44}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindParents(doc.Lines, tt.parent, tt.child, tt.recurse, tt.negate)
			if err != nil {
				t.Fatalf("FindParents: %v", err)
			}
			if want := pick(doc, tt.want...); !slices.Equal(got, want) {
				t.Errorf("got %v\nwant %v", got, want)
			}
		})
	}
}

func TestFindParentsWithoutChild(t *testing.T) {
	doc := parse(t, notebookConfig)
	got, err := FindParentsWithoutChild(doc.Lines, "^interface ", "cdp", true)
	if err != nil {
		t.Fatalf("FindParentsWithoutChild: %v", err)
	}
	if want := pick(doc, 7); !slices.Equal(got, want) {
		t.Errorf("got %v", got)
	}
}

func TestFindChildren(t *testing.T) {
	doc := parse(t, notebookConfig)

	got, err := FindChildren(doc.Lines, "^router isis", "interface", true)
	if err != nil {
		t.Fatalf("FindChildren: %v", err)
	}
	if want := pick(doc, 19, 25); !slices.Equal(got, want) {
		t.Errorf("got %v", got)
	}

	got, err = FindChildren(doc.Lines, []string{"^router isis", "address-family"}, nil, false)
	if err != nil {
		t.Fatalf("FindChildren: %v", err)
	}
	if want := pick(doc, 14); !slices.Equal(got, want) {
		t.Errorf("children only: got %v", got)
	}

	got, err = FindChildren(doc.Lines, "^rsvp", "passive", true)
	if err != nil || got != nil {
		t.Errorf("no match: got %v, %v", got, err)
	}
}

func TestFindObjects(t *testing.T) {
	doc := parse(t, notebookConfig)

	tests := []struct {
		name string
		spec any
		want []int
	}{
		{"single regex", "^interface", []int{0, 7}},
		{"compiled", regexp.MustCompile("^rsvp"), []int{32}},
		{"chain", []string{"^mpls ldp", "interface"}, []int{51, 53}},
		{"predicates", []Predicate{func(n *conftree.Node) bool { return n.Generation() == 3 && n.Contains("metric") }}, []int{15}},
		{"no match", "nothing here", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindObjects(doc.Lines, tt.spec)
			if err != nil {
				t.Fatalf("FindObjects: %v", err)
			}
			if want := pick(doc, tt.want...); !slices.Equal(got, want) {
				t.Errorf("got %v", got)
			}
		})
	}
}

func TestParentChildSpecErrors(t *testing.T) {
	doc := parse(t, notebookConfig)

	tests := []struct {
		name   string
		parent any
		child  any
		want   error
	}{
		{"pair and child", []string{"a", "b"}, "c", ErrAmbiguousSpec},
		{"short pair", []string{"a"}, nil, ErrInvalidSpec},
		{"long pair", []any{"a", "b", "c"}, nil, ErrInvalidSpec},
		{"missing child", "a", nil, ErrInvalidSpec},
		{"bad parent type", 7, "b", ErrInvalidSpec},
		{"bad child regex", "a", "(", ErrInvalidSpec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FindParents(doc.Lines, tt.parent, tt.child, true, false); !errors.Is(err, tt.want) {
				t.Errorf("FindParents error = %v, want %v", err, tt.want)
			}
			if _, err := FindChildren(doc.Lines, tt.parent, tt.child, true); !errors.Is(err, tt.want) {
				t.Errorf("FindChildren error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := FindObjects(doc.Lines, []string{}); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("FindObjects(empty) error = %v", err)
	}
	if _, err := FindObjects(doc.Lines, 3.5); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("FindObjects(float) error = %v", err)
	}
}
