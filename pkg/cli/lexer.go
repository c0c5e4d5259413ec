package cli

import (
	"fmt"
	"strings"
)

// tokenType represents the type of a shell token.
type tokenType int

const (
	tokenWord   tokenType = iota // unquoted word
	tokenString                  // "quoted string" or 'raw string'
	tokenPipe                    // | standing alone
)

func (t tokenType) String() string {
	switch t {
	case tokenWord:
		return "word"
	case tokenString:
		return "string"
	case tokenPipe:
		return "'|'"
	default:
		return "unknown"
	}
}

// token is a single shell token. col is the 1-based column it starts at.
type token struct {
	typ   tokenType
	value string
	col   int
}

// lexer splits a command line into words. Words are separated by
// whitespace; double quotes group words and honour \" \\ and \t escapes,
// single quotes group words verbatim. A bare "|" is a pipe; a "|" inside
// a word (a|b) is part of the word.
type lexer struct {
	input string
	pos   int
}

// tokenize returns every token of line.
func tokenize(line string) ([]token, error) {
	l := &lexer{input: line}
	var toks []token
	for {
		tok, ok, err := l.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

func (l *lexer) next() (token, bool, error) {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return token{}, false, nil
	}
	col := l.pos + 1
	switch l.input[l.pos] {
	case '"':
		s, err := l.readString(col)
		return token{typ: tokenString, value: s, col: col}, true, err
	case '\'':
		s, err := l.readRaw(col)
		return token{typ: tokenString, value: s, col: col}, true, err
	}
	w := l.readWord()
	if w == "|" {
		return token{typ: tokenPipe, value: w, col: col}, true, nil
	}
	return token{typ: tokenWord, value: w, col: col}, true, nil
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *lexer) readString(col int) (string, error) {
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			switch l.input[l.pos] {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 't':
				b.WriteByte('\t')
			default:
				// Keep regex escapes such as \d and \s intact.
				b.WriteByte('\\')
				b.WriteByte(l.input[l.pos])
			}
			l.pos++
			continue
		}
		if ch == '"' {
			l.pos++
			return b.String(), nil
		}
		b.WriteByte(ch)
		l.pos++
	}
	return "", fmt.Errorf("unterminated string at column %d", col)
}

func (l *lexer) readRaw(col int) (string, error) {
	l.pos++
	end := strings.IndexByte(l.input[l.pos:], '\'')
	if end < 0 {
		return "", fmt.Errorf("unterminated string at column %d", col)
	}
	s := l.input[l.pos : l.pos+end]
	l.pos += end + 1
	return s, nil
}

func (l *lexer) readWord() string {
	start := l.pos
	for l.pos < len(l.input) && !isSpace(l.input[l.pos]) {
		l.pos++
	}
	return l.input[start:l.pos]
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// values returns the token values.
func values(toks []token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.value
	}
	return out
}
