package analysis

import (
	"strings"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
)

// summaryEvents are the engine log events whose fields are worth surfacing.
var summaryEvents = []string{
	"streaming tuning summary",
	"streaming segment bytes summary",
	"provider segment bytes",
	"call summary",
}

// Fields that identify the line rather than describe the call.
var skipFields = map[string]bool{
	"call_id":   true,
	"logger":    true,
	"level":     true,
	"timestamp": true,
	"component": true,
	"service":   true,
}

// extractMetrics copies flat fields from summary lines into metrics. Later
// lines overwrite earlier ones so the map reflects the final state.
func extractMetrics(lines []evidence.LogLine, metrics map[string]string) {
	for _, line := range lines {
		lower := strings.ToLower(line.Text)
		matched := false
		for _, ev := range summaryEvents {
			if strings.Contains(lower, ev) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		_, fields := parseFields(line.Text)
		for k, v := range fields {
			if skipFields[k] || v == "" {
				continue
			}
			metrics[k] = v
		}
	}
}
