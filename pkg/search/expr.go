package search

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/psaab/conftree/pkg/addr"
	"github.com/psaab/conftree/pkg/conftree"
)

// Env is the evaluation environment of an Expr predicate. One is built per
// node; the exported fields are visible to the expression by name.
type Env struct {
	Text     string
	Trimmed  string
	Line     int
	Gen      int
	Children int
	Indent   int

	node *conftree.Node
}

// NewEnv builds the environment describing n.
func NewEnv(n *conftree.Node) Env {
	return Env{
		Text:     n.Text(),
		Trimmed:  n.TrimmedText(),
		Line:     n.LineNumber(),
		Gen:      n.Generation(),
		Children: n.NumChildren(),
		Indent:   n.Indent(),
		node:     n,
	}
}

// HasIP reports whether the node refers to the address, network or
// interface written in q. Unparseable input never matches.
func (e Env) HasIP(q string) bool {
	if e.node == nil {
		return false
	}
	v, err := addr.ParseQuery(q)
	if err != nil {
		return false
	}
	ok, _ := e.node.HasAddress(v)
	return ok
}

// HasPrefix reports whether the trimmed text starts with s.
func (e Env) HasPrefix(s string) bool {
	if e.node == nil {
		return false
	}
	return e.node.HasPrefix(s)
}

// Expr compiles a boolean expression into a predicate, for example
//
//	Gen == 2 && HasIP("192.0.2.0/24")
//	Trimmed matches "^neighbor " and Children > 0
func Expr(src string) (Predicate, error) {
	prg, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: compile expression: %w", ErrInvalidSpec, err)
	}
	return exprPredicate(prg), nil
}

func exprPredicate(prg *vm.Program) Predicate {
	return func(n *conftree.Node) bool {
		out, err := expr.Run(prg, NewEnv(n))
		if err != nil {
			return false
		}
		ok, _ := out.(bool)
		return ok
	}
}
