package analysis

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	// "2024-01-01 [info     ] event text [module] key=value"
	consoleEvent = regexp.MustCompile(`\]\s+([^\[]+?)\s+\[`)
	consolePair  = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_]*)=('[^']*'|"[^"]*"|\S+)`)
)

// parseFields splits a structlog line, JSON or console rendered, into its
// event text and scalar fields.
func parseFields(line string) (string, map[string]string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	if strings.HasPrefix(line, "{") {
		if fields, ok := jsonFields(line); ok {
			event := fields["event"]
			delete(fields, "event")
			return event, fields
		}
	}
	return consoleFields(line)
}

func jsonFields(line string) (map[string]string, bool) {
	var entry map[string]any
	dec := json.NewDecoder(bytes.NewReader([]byte(line)))
	dec.UseNumber()
	if err := dec.Decode(&entry); err != nil {
		return nil, false
	}

	out := make(map[string]string, len(entry))
	for key, raw := range entry {
		switch v := raw.(type) {
		case string:
			out[key] = v
		case json.Number:
			out[key] = v.String()
		case bool:
			out[key] = strconv.FormatBool(v)
		}
	}
	return out, true
}

func consoleFields(line string) (string, map[string]string) {
	event := line
	if m := consoleEvent.FindStringSubmatch(line); m != nil {
		event = strings.TrimSpace(m[1])
	}
	pairs := consolePair.FindAllStringSubmatch(line, -1)
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		out[p[1]] = unquote(p[2])
	}
	return event, out
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if n := len(s); n >= 2 && (s[0] == '"' || s[0] == '\'') && s[n-1] == s[0] {
		return s[1 : n-1]
	}
	return s
}
