package search

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/psaab/conftree/pkg/conftree"
)

var (
	// ErrInvalidSpec is returned for a search term of an unsupported type,
	// an empty chain, or a nil predicate.
	ErrInvalidSpec = errors.New("invalid search spec")

	// ErrAmbiguousSpec is returned when a parent/child pair is given both
	// as a two-element list and with an explicit child term.
	ErrAmbiguousSpec = errors.New("ambiguous parent/child spec")
)

// Predicate reports whether a node matches.
type Predicate func(*conftree.Node) bool

// Match returns a predicate testing whether re matches anywhere in the
// node's text, leading whitespace included.
func Match(re *regexp.Regexp) Predicate {
	return func(n *conftree.Node) bool {
		return re.MatchString(n.Text())
	}
}

// Regex compiles pattern and returns the predicate built by Match.
func Regex(pattern string) (Predicate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	return Match(re), nil
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(n *conftree.Node) bool { return !p(n) }
}

// Terms converts a chain of search terms into predicates. Each term may be
// a regular expression string, a *regexp.Regexp, a Predicate or a plain
// func(*conftree.Node) bool.
func Terms(terms ...any) ([]Predicate, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no terms", ErrInvalidSpec)
	}
	spec := make([]Predicate, 0, len(terms))
	for i, t := range terms {
		p, err := term(t)
		if err != nil {
			return nil, fmt.Errorf("term %d: %w", i, err)
		}
		spec = append(spec, p)
	}
	return spec, nil
}

func term(t any) (Predicate, error) {
	switch v := t.(type) {
	case string:
		return Regex(v)
	case *regexp.Regexp:
		if v == nil {
			return nil, fmt.Errorf("%w: nil regexp", ErrInvalidSpec)
		}
		return Match(v), nil
	case Predicate:
		if v == nil {
			return nil, fmt.Errorf("%w: nil predicate", ErrInvalidSpec)
		}
		return v, nil
	case func(*conftree.Node) bool:
		if v == nil {
			return nil, fmt.Errorf("%w: nil predicate", ErrInvalidSpec)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unsupported term type %T", ErrInvalidSpec, t)
	}
}

func validate(spec []Predicate) error {
	if len(spec) == 0 {
		return fmt.Errorf("%w: empty chain", ErrInvalidSpec)
	}
	for i, p := range spec {
		if p == nil {
			return fmt.Errorf("%w: predicate %d is nil", ErrInvalidSpec, i)
		}
	}
	return nil
}
