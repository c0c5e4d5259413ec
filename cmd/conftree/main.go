// conftree loads a network device configuration and answers structural
// questions about it.
//
// With no -e commands it starts an interactive shell. A file argument of
// "-" reads the configuration from standard input.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psaab/conftree/pkg/api"
	"github.com/psaab/conftree/pkg/cli"
	"github.com/psaab/conftree/pkg/configstore"
	"github.com/psaab/conftree/pkg/conftree"
	"github.com/psaab/conftree/pkg/logging"
	"github.com/psaab/conftree/pkg/metrics"
	"github.com/psaab/conftree/pkg/settings"
)

// commandList collects repeated -e flags.
type commandList []string

func (c *commandList) String() string { return strings.Join(*c, "; ") }

func (c *commandList) Set(v string) error {
	*c = append(*c, v)
	return nil
}

type options struct {
	file     string
	commands []string
	watch    bool
}

func main() {
	os.Exit(start())
}

// start runs the program and returns its exit status. Deferred cleanup
// runs before main exits.
func start() int {
	settingsFile := flag.String("settings", os.Getenv("CONFTREE_SETTINGS"), "settings file path (YAML)")
	mode := flag.String("mode", "", "parse mode: auto, indent or braced")
	var commands commandList
	flag.Var(&commands, "e", "run a command and exit (repeatable)")
	watch := flag.Bool("watch", false, "reload the file when it changes on disk")
	listen := flag.String("listen", "", "HTTP API and /metrics listen address")
	debug := flag.Bool("debug", false, "enable debug logging")
	noColor := flag.Bool("no-color", false, "disable match highlighting")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [file|-]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := settings.LoadWithEnvOverrides(*settingsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "conftree: %v\n", err)
		return 1
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if *noColor {
		cfg.Color = cli.ColorNever
	}
	if err := settings.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "conftree: %v\n", err)
		return 2
	}

	// Warnings and errors are also kept for "show log" and /api/v1/logs.
	diag := logging.NewDiagBuffer(cfg.LogBuffer)
	var base slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	if cfg.SyslogAddr != "" {
		client, err := logging.NewSyslogClient(cfg.SyslogAddr, "conftree")
		if err != nil {
			fmt.Fprintf(os.Stderr, "conftree: %v\n", err)
			return 1
		}
		defer client.Close()
		base = logging.NewSyslogHandler(base, client, cfg.SyslogSlogLevel())
	}
	logger := slog.New(logging.NewHandler(base, diag, slog.LevelWarn))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts := options{file: flag.Arg(0), commands: commands, watch: *watch}
	if err := run(ctx, cfg, opts, logger, diag); err != nil {
		fmt.Fprintf(os.Stderr, "conftree: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *settings.Settings, opts options, logger *slog.Logger, diag *logging.DiagBuffer) error {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	store := configstore.New(conftree.Options{
		Mode:     cfg.ParseMode(),
		Logger:   logger,
		Observer: rec,
	})

	if opts.file != "" {
		var snap *configstore.Snapshot
		var err error
		if opts.file == "-" {
			snap, err = store.LoadReader("-", os.Stdin, cfg.ParseMode())
		} else {
			snap, err = store.Load(opts.file, cfg.ParseMode())
		}
		if err != nil {
			return err
		}
		logger.Debug("document loaded", "path", snap.Path, "mode", snap.Doc.Mode, "lines", snap.Doc.Len())
	}

	if cfg.ListenAddr != "" {
		srv := api.NewServer(api.Config{
			Addr:     cfg.ListenAddr,
			Auth:     api.NewAuthConfig(cfg.APIKeys),
			Store:    store,
			Diag:     diag,
			Recorder: rec,
			Registry: reg,
			Logger:   logger,
		})
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("API server failed", "error", err)
			}
		}()
	}

	if opts.watch {
		w := configstore.NewWatcher(store, cfg.WatchDebounce, logger)
		go func() {
			if err := w.Watch(ctx); err != nil {
				logger.Error("watch stopped", "error", err)
			}
		}()
	}

	shell := cli.New(cli.Config{
		Store:    store,
		Recorder: rec,
		Diag:     diag,
		Logger:   logger,
		Color:    cfg.Color,
	})

	if len(opts.commands) > 0 {
		return runCommands(shell, opts.commands)
	}
	return shell.Run(ctx, cfg.Prompt, cfg.HistoryFile)
}

// runCommands executes lines in order, stopping at the first error or at
// quit.
func runCommands(shell *cli.Shell, lines []string) error {
	for _, line := range lines {
		if err := shell.Execute(line); err != nil {
			if errors.Is(err, cli.ErrExit) {
				return nil
			}
			return fmt.Errorf("%s: %w", line, err)
		}
	}
	return nil
}
