// Package cli implements the interactive conftree shell.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/psaab/conftree/pkg/cmdtree"
	"github.com/psaab/conftree/pkg/configstore"
	"github.com/psaab/conftree/pkg/logging"
	"github.com/psaab/conftree/pkg/metrics"
)

// ErrExit is returned by Execute for quit and exit.
var ErrExit = errors.New("exit")

// Config configures a Shell.
type Config struct {
	Store    *configstore.Store
	Recorder *metrics.Recorder   // optional
	Diag     *logging.DiagBuffer // optional, backs "show log"
	Logger   *slog.Logger        // nil means slog.Default()
	Color    string              // auto, always or never
	Out      io.Writer           // nil means os.Stdout
}

// Shell runs commands against the documents held by a configstore.Store.
type Shell struct {
	store    *configstore.Store
	recorder *metrics.Recorder
	diag     *logging.DiagBuffer
	logger   *slog.Logger
	out      io.Writer
	pal      palette
}

// New creates a Shell.
func New(cfg Config) *Shell {
	s := &Shell{
		store:    cfg.Store,
		recorder: cfg.Recorder,
		diag:     cfg.Diag,
		logger:   cfg.Logger,
		out:      cfg.Out,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if colorEnabled(cfg.Color, s.out) {
		s.pal = newPalette()
	}
	return s
}

// Execute runs one command line, applying any pipe filters, and writes the
// result. It returns ErrExit for quit and exit.
func (s *Shell) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasSuffix(line, "?") {
		s.contextHelp(strings.TrimSuffix(line, "?"))
		return nil
	}

	toks, err := tokenize(line)
	if err != nil {
		return err
	}
	cmdToks, filters, err := splitPipes(toks)
	if err != nil {
		return err
	}
	if len(cmdToks) == 0 {
		return fmt.Errorf("missing command before '|'")
	}

	var raw string
	if len(cmdToks) > 1 {
		end := len(line)
		if len(filters) > 0 {
			end = toks[len(cmdToks)].col - 1
		}
		raw = strings.TrimSpace(line[cmdToks[1].col-1 : end])
	}

	var o output
	cmdErr := s.dispatch(&o, values(cmdToks), raw)
	lines := o.lines
	for _, f := range filters {
		lines = f.apply(lines)
	}
	if err := s.pal.render(s.out, lines); err != nil {
		return err
	}
	return cmdErr
}

// Run reads commands with readline until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, prompt, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    &completer{shell: s},
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	fmt.Fprintln(s.out, "conftree - configuration tree shell")
	fmt.Fprintln(s.out, "Type '?' for help")
	fmt.Fprintln(s.out)

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF || ctx.Err() != nil {
				break
			}
			return err
		}

		if err := s.Execute(line); err != nil {
			if errors.Is(err, ErrExit) {
				return nil
			}
			fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
		}
	}
	return nil
}

// observe records a query with the metrics recorder, if any.
func (s *Shell) observe(command string, found bool, err error, start time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveQuery(command, found, err, time.Since(start))
	}
	s.logger.Debug("query", "command", command, "found", found, "duration", time.Since(start))
}

// contextHelp prints the candidates for the word being typed.
func (s *Shell) contextHelp(prefix string) {
	words := strings.Fields(prefix)
	partial := ""
	if prefix != "" && !strings.HasSuffix(prefix, " ") && len(words) > 0 {
		partial = words[len(words)-1]
		words = words[:len(words)-1]
	}
	candidates := cmdtree.CompleteFromTreeWithDesc(cmdtree.ShellTree, words, partial, s.store.Document())
	if len(candidates) == 0 {
		if n := cmdtree.Lookup(cmdtree.ShellTree, words...); n != nil && n.Args != "" {
			fmt.Fprintf(s.out, "  %s %s\n", strings.Join(words, " "), n.Args)
			return
		}
		fmt.Fprintln(s.out, "  (no help available)")
		return
	}
	cmdtree.WriteHelp(s.out, candidates)
}
