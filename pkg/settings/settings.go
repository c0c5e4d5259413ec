// Package settings loads the YAML settings file of the conftree shell.
package settings

import (
	"log/slog"
	"strings"
	"time"

	"github.com/psaab/conftree/pkg/conftree"
)

// Settings holds the shell's persistent preferences. Command-line flags
// override them.
type Settings struct {
	// Mode is the default parse mode: auto, indent or braced.
	Mode string `yaml:"mode"`

	// Color controls match highlighting: auto, always or never.
	Color string `yaml:"color"`

	HistoryFile string `yaml:"history_file"`
	Prompt      string `yaml:"prompt"`

	// ListenAddr serves /metrics and the read-only HTTP API. Empty disables it.
	ListenAddr string `yaml:"listen_addr"`

	// APIKeys, when non-empty, are required on /api/ requests.
	APIKeys []string `yaml:"api_keys"`

	// WatchDebounce delays a reload after the watched file changes.
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	LogLevel  string `yaml:"log_level"`
	LogBuffer int    `yaml:"log_buffer"`

	// SyslogAddr, as host:port, forwards log records over UDP. Empty
	// disables forwarding.
	SyslogAddr  string `yaml:"syslog_addr"`
	SyslogLevel string `yaml:"syslog_level"`
}

// Default values for settings fields.
const (
	DefaultMode          = "auto"
	DefaultColor         = "auto"
	DefaultHistoryFile   = ".conftree_history"
	DefaultPrompt        = "conftree> "
	DefaultWatchDebounce = 250 * time.Millisecond
	DefaultLogLevel      = "info"
	DefaultLogBuffer     = 256
	DefaultSyslogLevel   = "warn"
)

// Default returns settings with every field at its default value.
func Default() *Settings {
	s := &Settings{}
	ApplyDefaults(s)
	return s
}

// ApplyDefaults fills in zero-valued fields.
func ApplyDefaults(s *Settings) {
	if s.Mode == "" {
		s.Mode = DefaultMode
	}
	if s.Color == "" {
		s.Color = DefaultColor
	}
	if s.HistoryFile == "" {
		s.HistoryFile = DefaultHistoryFile
	}
	if s.Prompt == "" {
		s.Prompt = DefaultPrompt
	}
	if s.WatchDebounce == 0 {
		s.WatchDebounce = DefaultWatchDebounce
	}
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
	if s.LogBuffer == 0 {
		s.LogBuffer = DefaultLogBuffer
	}
	if s.SyslogLevel == "" {
		s.SyslogLevel = DefaultSyslogLevel
	}
}

// ParseMode returns Mode as a conftree.Mode. Validate guarantees it parses.
func (s *Settings) ParseMode() conftree.Mode {
	m, _ := conftree.ParseMode(s.Mode)
	return m
}

// SlogLevel returns LogLevel as an slog.Level.
func (s *Settings) SlogLevel() slog.Level {
	l, _ := parseLevel(s.LogLevel)
	return l
}

// SyslogSlogLevel returns SyslogLevel as an slog.Level.
func (s *Settings) SyslogSlogLevel() slog.Level {
	l, _ := parseLevel(s.SyslogLevel)
	return l
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
