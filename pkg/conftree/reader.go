package conftree

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineLen bounds a single configuration line (certificates and long
// banners can exceed bufio's 64KB default).
const maxLineLen = 1 << 20

// ReadLines splits r into lines without their terminators.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLen)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return lines, nil
}

// ParseReader reads all lines from r and parses them.
func ParseReader(r io.Reader, opts Options) (*Document, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	return Parse(lines, opts), nil
}

// ParseFile reads and parses the configuration at path.
func ParseFile(path string, opts Options) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	doc, err := ParseReader(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return doc, nil
}

// ParseString parses s. A final newline does not produce an empty node.
func ParseString(s string, opts Options) *Document {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return Parse(nil, opts)
	}
	return Parse(strings.Split(s, "\n"), opts)
}
