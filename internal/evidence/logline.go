package evidence

import (
	"regexp"
	"strings"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes terminal colour codes emitted by console-format loggers.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// LogLine is one raw log line plus flags derived from its text.
type LogLine struct {
	Text         string `json:"text" yaml:"text"`
	IsError      bool   `json:"is_error,omitempty" yaml:"is_error,omitempty"`
	IsWarning    bool   `json:"is_warning,omitempty" yaml:"is_warning,omitempty"`
	MentionsCall bool   `json:"mentions_call,omitempty" yaml:"mentions_call,omitempty"`
}

// NewLogLine classifies text relative to callID.
func NewLogLine(text, callID string) LogLine {
	return LogLine{
		Text:         text,
		IsError:      IsErrorLine(text),
		IsWarning:    IsWarningLine(text),
		MentionsCall: callID != "" && strings.Contains(text, callID),
	}
}

// FilterLines keeps the lines of raw that contain callID as a literal
// substring, in their original order.
func FilterLines(raw, callID string) []LogLine {
	if callID == "" {
		return nil
	}
	var out []LogLine
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || !strings.Contains(line, callID) {
			continue
		}
		out = append(out, NewLogLine(line, callID))
	}
	return out
}

// IsErrorLine matches "error" case-insensitively, except for a literal
// zero-count phrase ("0 errors") and known benign ARI lookups.
func IsErrorLine(line string) bool {
	l := strings.ToLower(line)
	if !strings.Contains(l, "error") || strings.Contains(l, "0 error") {
		return false
	}
	return !isBenignErrorLine(l)
}

// IsWarningLine matches "warning" or "warn" case-insensitively.
func IsWarningLine(line string) bool {
	return strings.Contains(strings.ToLower(line), "warn")
}

// isBenignErrorLine expects a lowercased line. Missing channel variable reads
// in ARI (404 "Provided variable was not found") are routine.
func isBenignErrorLine(l string) bool {
	return strings.Contains(l, "ari command failed") &&
		strings.Contains(l, "status=404") &&
		strings.Contains(l, "provided variable was not found") &&
		strings.Contains(l, "/variable")
}
