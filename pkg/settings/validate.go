package settings

import (
	"fmt"
	"net"
	"strings"

	"github.com/psaab/conftree/pkg/conftree"
)

// FieldError is a validation error for one settings field.
type FieldError struct {
	Field   string // YAML key, e.g. "watch_debounce"
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found by Validate.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "invalid settings: " + e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid settings (%d errors):", len(e.Errors))
	for _, err := range e.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Validate checks every field and returns a ValidationError listing all
// problems, or nil.
func Validate(s *Settings) error {
	var errs []FieldError

	if _, err := conftree.ParseMode(s.Mode); err != nil {
		errs = append(errs, FieldError{Field: "mode", Message: "must be auto, indent or braced"})
	}
	switch s.Color {
	case "auto", "always", "never":
	default:
		errs = append(errs, FieldError{Field: "color", Message: "must be auto, always or never"})
	}
	if s.WatchDebounce < 0 {
		errs = append(errs, FieldError{Field: "watch_debounce", Message: "must not be negative"})
	}
	if _, ok := parseLevel(s.LogLevel); !ok {
		errs = append(errs, FieldError{Field: "log_level", Message: "must be debug, info, warn or error"})
	}
	if s.LogBuffer < 1 {
		errs = append(errs, FieldError{Field: "log_buffer", Message: "must be at least 1"})
	}
	if s.SyslogAddr != "" {
		if _, port, err := net.SplitHostPort(s.SyslogAddr); err != nil || port == "" {
			errs = append(errs, FieldError{Field: "syslog_addr", Message: "must be host:port"})
		}
	}
	if _, ok := parseLevel(s.SyslogLevel); !ok {
		errs = append(errs, FieldError{Field: "syslog_level", Message: "must be debug, info, warn or error"})
	}
	for _, k := range s.APIKeys {
		if strings.TrimSpace(k) == "" {
			errs = append(errs, FieldError{Field: "api_keys", Message: "keys must not be empty"})
			break
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
