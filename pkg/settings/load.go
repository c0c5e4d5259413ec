package settings

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads settings from a YAML file, applies defaults and validates the
// result. An empty path yields the defaults.
func Load(path string) (*Settings, error) {
	var s Settings
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read settings file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse settings file %q: %w", path, err)
		}
	}

	ApplyDefaults(&s)

	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadWithEnvOverrides is Load followed by environment overrides. Variables
// are named CONFTREE_FIELD (e.g. CONFTREE_LISTEN_ADDR) and always win over
// the file.
func LoadWithEnvOverrides(path string) (*Settings, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(s)

	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("after environment overrides: %w", err)
	}
	return s, nil
}

func applyEnvOverrides(s *Settings) {
	if val := os.Getenv("CONFTREE_MODE"); val != "" {
		s.Mode = val
	}
	if val := os.Getenv("CONFTREE_COLOR"); val != "" {
		s.Color = val
	}
	if val := os.Getenv("CONFTREE_HISTORY_FILE"); val != "" {
		s.HistoryFile = val
	}
	if val := os.Getenv("CONFTREE_PROMPT"); val != "" {
		s.Prompt = val
	}
	if val := os.Getenv("CONFTREE_LISTEN_ADDR"); val != "" {
		s.ListenAddr = val
	}
	if val := os.Getenv("CONFTREE_API_KEYS"); val != "" {
		s.APIKeys = strings.Split(val, ",")
	}
	if val := os.Getenv("CONFTREE_WATCH_DEBOUNCE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			s.WatchDebounce = d
		}
	}
	if val := os.Getenv("CONFTREE_LOG_LEVEL"); val != "" {
		s.LogLevel = val
	}
	if val := os.Getenv("CONFTREE_LOG_BUFFER"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			s.LogBuffer = i
		}
	}
	if val := os.Getenv("CONFTREE_SYSLOG_ADDR"); val != "" {
		s.SyslogAddr = val
	}
	if val := os.Getenv("CONFTREE_SYSLOG_LEVEL"); val != "" {
		s.SyslogLevel = val
	}
}
