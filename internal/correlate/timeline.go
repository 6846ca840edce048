package correlate

import (
	"strings"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
)

var markerPatterns = []struct {
	marker   evidence.Marker
	contains []string
}{
	{evidence.MarkerWarmUp, []string{"warm-up complete", "warmup complete", "warm up complete"}},
	{evidence.MarkerStreamFlush, []string{"stream flush", "flush ack", "flush acknowledged"}},
	{evidence.MarkerTuningSummary, []string{"streaming tuning summary"}},
	{evidence.MarkerCallSummary, []string{"call summary", "call_summary", "rca_call_end"}},
}

// ExtractTimeline returns one event per line that names a lifecycle marker,
// in log order. A line matches at most one marker.
func ExtractTimeline(lines []evidence.LogLine) []evidence.TimelineEvent {
	var events []evidence.TimelineEvent
	for _, line := range lines {
		lower := strings.ToLower(line.Text)
		for _, p := range markerPatterns {
			if containsAny(lower, p.contains) {
				events = append(events, evidence.TimelineEvent{Marker: p.marker, RawLine: line.Text})
				break
			}
		}
	}
	return events
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
