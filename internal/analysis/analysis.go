// Package analysis classifies the log lines collected for one call into
// errors, warnings, pipeline stage activity and audio symptoms.
package analysis

import (
	"strconv"
	"strings"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
)

// PipelineFlags are OR-accumulated over every line; once set they stay set.
type PipelineFlags struct {
	AudioTransportActive bool `json:"audio_transport_active"`
	TranscriptionActive  bool `json:"transcription_active"`
	PlaybackActive       bool `json:"playback_active"`
}

// Analysis is the read-only classification result for one call.
type Analysis struct {
	CallID         string            `json:"call_id"`
	Errors         []string          `json:"errors,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	AudioIssues    []string          `json:"audio_issues,omitempty"`
	Metrics        map[string]string `json:"metrics,omitempty"`
	Pipeline       PipelineFlags     `json:"pipeline"`
	AudioTransport string            `json:"audio_transport,omitempty"`
	Header         *Header           `json:"header,omitempty"`
	ToolCalls      []ToolCall        `json:"tool_calls,omitempty"`
}

// Finding texts appended per matching line.
const (
	IssueUnderflow = "Jitter buffer underflow detected"
	IssueQuality   = "Audio quality issue detected"
	IssueEcho      = "Echo detected"
)

var transportKeywords = map[string]string{
	"audiosocket":    "audiosocket",
	"externalmedia":  "externalmedia",
	"external_media": "externalmedia",
}

// Analyze classifies the session's logs. It never fails: a session without
// logs yields an Analysis with empty collections.
func Analyze(s *evidence.Session) *Analysis {
	a := &Analysis{
		CallID:  s.CallID,
		Metrics: make(map[string]string),
	}

	transportHits := make(map[string]bool)
	for _, line := range s.Logs {
		lower := strings.ToLower(line.Text)

		if line.IsError {
			a.Errors = append(a.Errors, line.Text)
		}
		if line.IsWarning {
			a.Warnings = append(a.Warnings, line.Text)
		}

		for keyword, transport := range transportKeywords {
			if strings.Contains(lower, keyword) {
				a.Pipeline.AudioTransportActive = true
				transportHits[transport] = true
			}
		}
		if strings.Contains(lower, "transcription") || strings.Contains(lower, "transcript") {
			a.Pipeline.TranscriptionActive = true
		}
		if strings.Contains(lower, "playback") || strings.Contains(lower, "playing") {
			a.Pipeline.PlaybackActive = true
		}

		if strings.Contains(lower, "underflow") {
			a.AudioIssues = append(a.AudioIssues, IssueUnderflow)
		}
		if strings.Contains(lower, "garbled") || strings.Contains(lower, "distorted") {
			a.AudioIssues = append(a.AudioIssues, IssueQuality)
		}
		if strings.Contains(lower, "echo") {
			a.AudioIssues = append(a.AudioIssues, IssueEcho)
		}
	}

	a.Header = extractHeader(s.Logs)
	a.AudioTransport = detectTransport(transportHits, a.Header)
	extractMetrics(s.Logs, a.Metrics)
	a.ToolCalls = extractToolCalls(s.Logs)
	a.Metrics["log_lines"] = strconv.Itoa(len(s.Logs))
	a.Metrics["error_count"] = strconv.Itoa(len(a.Errors))
	a.Metrics["warning_count"] = strconv.Itoa(len(a.Warnings))
	return a
}

// detectTransport prefers unambiguous log evidence and falls back to the
// configured transport from the call-start header.
func detectTransport(hits map[string]bool, h *Header) string {
	if len(hits) == 1 {
		for t := range hits {
			return t
		}
	}
	if h != nil && h.AudioTransport != "" {
		return h.AudioTransport
	}
	return ""
}
