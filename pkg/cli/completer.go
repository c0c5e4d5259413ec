package cli

import (
	"sort"
	"strings"

	"github.com/psaab/conftree/pkg/cmdtree"
)

// completer implements readline.AutoCompleter over cmdtree.ShellTree.
type completer struct {
	shell *Shell
}

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	return complete(string(line[:pos]), c.shell)
}

func complete(text string, s *Shell) ([][]rune, int) {
	words := strings.Fields(text)
	trailingSpace := len(text) > 0 && text[len(text)-1] == ' '
	var partial string
	if !trailingSpace && len(words) > 0 {
		partial = words[len(words)-1]
		words = words[:len(words)-1]
	}

	var names []string
	if filters, ok := completePipeFilter(text); ok {
		names = filters
	} else {
		names = cmdtree.CompleteFromTree(cmdtree.ShellTree, words, partial, s.store.Document())
	}
	if len(names) == 0 {
		return nil, 0
	}

	var result [][]rune
	for _, name := range names {
		result = append(result, []rune(name[len(partial):]+" "))
	}
	return result, len(partial)
}

// completePipeFilter returns pipe filter names matching the word after the
// last "|". handled is false when the line has no pipe.
func completePipeFilter(text string) (names []string, handled bool) {
	idx := strings.LastIndex(text, " |")
	if idx < 0 {
		return nil, false
	}
	after := text[idx+2:]
	if after != "" && after[0] != ' ' {
		// "a|b" inside a pattern, not a pipe
		return nil, false
	}
	after = strings.TrimLeft(after, " ")
	if strings.Contains(after, " ") {
		// The filter name is complete; its argument is free-form.
		return nil, true
	}
	for name := range pipeFilters {
		if strings.HasPrefix(name, after) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, true
}
