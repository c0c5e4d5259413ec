// Package cmdtree defines the conftree shell command tree.
//
// The tree drives tab completion, '?' help and command resolution in
// pkg/cli. When adding a command, add it here and it appears in all three.
package cmdtree

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/psaab/conftree/pkg/conftree"
)

// Node defines a completion tree node with description, children, and optional dynamic values.
type Node struct {
	Desc      string
	Args      string // argument synopsis shown by help
	Children  map[string]*Node
	DynamicFn func(doc *conftree.Document) []string
}

// Candidate holds a command name and its description for display.
type Candidate struct {
	Name string
	Desc string
}

var modeNodes = map[string]*Node{
	"auto":   {Desc: "Detect indentation or braces"},
	"indent": {Desc: "Indentation-structured (IOS style)"},
	"braced": {Desc: "Brace-delimited (Junos style)"},
}

// ShellTree is the command tree of the interactive shell.
var ShellTree = map[string]*Node{
	"load": {
		Desc:      "Load a configuration file",
		Args:      "<file> [auto|indent|braced]",
		Children:  modeNodes,
		DynamicFn: func(*conftree.Document) []string { return ConfigFiles(".") },
	},
	"reload":   {Desc: "Reload the current file"},
	"rollback": {Desc: "Return to an earlier load", Args: "[n]"},
	"show": {Desc: "Show document information", Children: map[string]*Node{
		"lines":       {Desc: "Show lines with numbers", Args: "[from [to]]"},
		"line":        {Desc: "Show one line and its relatives", Args: "<n>"},
		"roots":       {Desc: "Show top-level lines"},
		"tree":        {Desc: "Show lines indented by generation", Args: "[from [to]]"},
		"diagnostics": {Desc: "Show structural anomalies"},
		"log":         {Desc: "Show recent warnings", Args: "[n]"},
		"stats":       {Desc: "Show document statistics"},
		"history":     {Desc: "Show earlier loads"},
		"compare":     {Desc: "Compare with an earlier load", Args: "[n]"},
	}},
	"find": {
		Desc:      "Find lines matching a chain of patterns",
		Args:      "<re>...",
		DynamicFn: RootKeywords,
	},
	"family": {
		Desc:      "Find matches with ancestors and descendants",
		Args:      "<re>...",
		DynamicFn: RootKeywords,
	},
	"children": {
		Desc:      "Find matching children of matching parents",
		Args:      "<parent-re> <child-re>",
		DynamicFn: RootKeywords,
	},
	"grouped": {
		Desc:      "Find families, one block per match",
		Args:      "<re>...",
		DynamicFn: RootKeywords,
	},
	"cousins": {
		Desc: "Find matches and everything under an ancestor",
		Args: "<depth> <re>...",
	},
	"parents": {
		Desc:      "Find parents having a matching child",
		Args:      "<parent-re> <child-re>",
		DynamicFn: RootKeywords,
	},
	"orphans": {
		Desc:      "Find parents lacking a matching child",
		Args:      "<parent-re> <child-re>",
		DynamicFn: RootKeywords,
	},
	"address": {
		Desc: "Find lines containing an address or network",
		Args: "<ip|prefix|ip/len>",
	},
	"where": {
		Desc: "Find lines matching an expression",
		Args: "<expr>",
	},
	"help": {Desc: "Show available commands"},
	"quit": {Desc: "Exit the shell"},
	"exit": {Desc: "Exit the shell"},
}

// RootKeywords returns the distinct first words of the document's
// top-level lines, sorted.
func RootKeywords(doc *conftree.Document) []string {
	if doc == nil {
		return nil
	}
	seen := make(map[string]bool)
	var words []string
	for _, n := range doc.Roots() {
		if n.IsComment() {
			continue
		}
		f := n.Fields()
		if len(f) == 0 || seen[f[0]] {
			continue
		}
		seen[f[0]] = true
		words = append(words, f[0])
	}
	sort.Strings(words)
	return words
}

var configExts = []string{".cfg", ".conf", ".txt", ".ios", ".junos"}

// ConfigFiles lists files in dir that look like configurations.
func ConfigFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(configExts, strings.ToLower(filepath.Ext(e.Name()))) {
			names = append(names, e.Name())
		}
	}
	return names
}

// Lookup returns the node for a command path, or nil.
func Lookup(tree map[string]*Node, path ...string) *Node {
	current := tree
	var node *Node
	for _, p := range path {
		n, ok := current[p]
		if !ok {
			return nil
		}
		node = n
		current = n.Children
	}
	return node
}

// Resolve expands an unambiguous prefix of a command name. It returns the
// name unchanged when it is an exact key, and an error when the prefix
// matches nothing or more than one command.
func Resolve(tree map[string]*Node, word string) (string, error) {
	if _, ok := tree[word]; ok {
		return word, nil
	}
	matches := FilterPrefix(KeysFromTree(tree), word)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("unknown command: %s", word)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous command %q: %s", word, strings.Join(matches, ", "))
	}
}

// --- Helper functions ---

// KeysFromTree returns a sorted list of keys from a Node map.
func KeysFromTree(tree map[string]*Node) []string {
	keys := KeysOf(tree)
	sort.Strings(keys)
	return keys
}

// HelpCandidates returns Candidates from a tree's children for help display.
func HelpCandidates(tree map[string]*Node) []Candidate {
	candidates := make([]Candidate, 0, len(tree))
	for name, node := range tree {
		candidates = append(candidates, Candidate{Name: name, Desc: node.Desc})
	}
	return candidates
}

// walk follows words through the tree. It returns the children reached,
// the last static node, whether the last word was a dynamic value, and
// whether the walk ended on a leaf.
func walk(tree map[string]*Node, words []string) (current map[string]*Node, node *Node, dynamicConsumed, leaf, ok bool) {
	current = tree
	for _, w := range words {
		dynamicConsumed = false
		next, found := current[w]
		if !found {
			// Not a static child: a dynamic value keeps us at the same level.
			if node != nil && node.DynamicFn != nil {
				dynamicConsumed = true
				continue
			}
			return nil, nil, false, false, false
		}
		node = next
		if next.Children == nil {
			return nil, node, false, true, true
		}
		current = next.Children
	}
	return current, node, dynamicConsumed, false, true
}

// CompleteFromTree walks the tree to find completion candidates for the given words and partial.
func CompleteFromTree(tree map[string]*Node, words []string, partial string, doc *conftree.Document) []string {
	var names []string
	for _, c := range CompleteFromTreeWithDesc(tree, words, partial, doc) {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// CompleteFromTreeWithDesc walks the tree returning name+description pairs.
func CompleteFromTreeWithDesc(tree map[string]*Node, words []string, partial string, doc *conftree.Document) []Candidate {
	current, node, dynamicConsumed, leaf, ok := walk(tree, words)
	if !ok {
		return nil
	}

	var candidates []Candidate
	addDynamic := func() {
		for _, name := range node.DynamicFn(doc) {
			if strings.HasPrefix(name, partial) {
				candidates = append(candidates, Candidate{Name: name, Desc: "(document)"})
			}
		}
	}

	if leaf {
		if node.DynamicFn != nil {
			addDynamic()
		}
		return candidates
	}
	for name, n := range current {
		if strings.HasPrefix(name, partial) {
			candidates = append(candidates, Candidate{Name: name, Desc: n.Desc})
		}
	}
	// After a dynamic value the next word is a keyword, not another value.
	if !dynamicConsumed && node != nil && node.DynamicFn != nil {
		addDynamic()
	}
	return candidates
}

// WriteHelp prints aligned completion candidates to w.
// The entire output is built as a single string and written in one call
// so that readline's wrapWriter triggers only one Refresh cycle.
func WriteHelp(w io.Writer, candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	maxWidth := 20
	for _, c := range candidates {
		if len(c.Name)+2 > maxWidth {
			maxWidth = len(c.Name) + 2
		}
	}
	var sb strings.Builder
	sb.WriteString("Possible completions:\n")
	for _, c := range candidates {
		if c.Desc != "" {
			fmt.Fprintf(&sb, "  %-*s %s\n", maxWidth, c.Name, c.Desc)
		} else {
			fmt.Fprintf(&sb, "  %s\n", c.Name)
		}
	}
	io.WriteString(w, sb.String())
}

// WriteUsage prints each command of tree with its argument synopsis.
func WriteUsage(w io.Writer, tree map[string]*Node, path ...string) {
	current := tree
	prefix := ""
	for _, p := range path {
		node, ok := current[p]
		if !ok || node.Children == nil {
			return
		}
		current = node.Children
		prefix += p + " "
	}
	var sb strings.Builder
	for _, name := range KeysFromTree(current) {
		n := current[name]
		usage := prefix + name
		if n.Args != "" {
			usage += " " + n.Args
		}
		fmt.Fprintf(&sb, "  %-36s %s\n", usage, n.Desc)
	}
	io.WriteString(w, sb.String())
}

// CommonPrefix returns the longest shared prefix among the given strings.
func CommonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

// KeysOf returns an unsorted list of keys from a Node map.
func KeysOf(m map[string]*Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// FilterPrefix returns only items that start with the given prefix.
func FilterPrefix(items []string, prefix string) []string {
	if prefix == "" {
		return items
	}
	var result []string
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			result = append(result, item)
		}
	}
	return result
}
