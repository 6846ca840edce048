package report

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/analysis"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/llm"
)

const (
	maxErrors   = 5
	maxWarnings = 3
	maxLineLen  = 100
)

// Report bundles everything rendered for one run. Session and Diagnosis may
// be nil.
type Report struct {
	Analysis  *analysis.Analysis
	Session   *evidence.Session
	Diagnosis *llm.Diagnosis
	Rules     Rules
}

// Render writes the human-readable report.
func (p *Printer) Render(r Report) {
	a := r.Analysis
	p.Banner("📊 RCA · call " + a.CallID)
	p.Println()

	if h := a.Header; h != nil {
		p.renderHeader(h)
	}
	p.renderPipeline(a)

	if len(a.AudioIssues) > 0 {
		p.Errorf("Audio Issues Found (%d):\n", len(a.AudioIssues))
		for _, issue := range a.AudioIssues {
			p.Printf("  • %s\n", issue)
		}
		p.Println()
	}
	if len(a.Errors) > 0 {
		p.Errorf("Errors (%d):\n", len(a.Errors))
		p.renderCapped(a.Errors, maxErrors)
	}
	if len(a.Warnings) > 0 {
		p.Warnf("Warnings (%d):\n", len(a.Warnings))
		p.renderCapped(a.Warnings, maxWarnings)
	}

	p.renderToolCalls(a.ToolCalls)
	p.renderMetrics(a.Metrics)
	if s := r.Session; s != nil {
		p.renderTimeline(s.Timeline)
		p.renderCollection(s)
	}
	if d := r.Diagnosis; d != nil {
		p.section("🤖 AI DIAGNOSIS (" + d.Provider + " - " + d.Model + ")")
		p.Println()
		p.Println(d.Analysis)
		p.Println()
	}

	p.Println("Recommendations:")
	recs := r.Rules.Recommendations(a)
	if len(recs) == 0 {
		p.Successf("  ✅ No issues detected\n")
	}
	for _, rec := range recs {
		p.Printf("  • %s\n", rec)
	}
	p.Println()
}

func (p *Printer) renderHeader(h *analysis.Header) {
	p.Println("Call:")
	field := func(label, value string) {
		if value != "" {
			p.Printf("  %-10s %s\n", label+":", value)
		}
	}
	field("Caller", h.CallerNumber)
	field("Called", h.CalledNumber)
	field("Context", h.ContextName)
	field("Provider", h.ProviderName)
	field("Pipeline", h.PipelineName)
	field("Transport", h.AudioTransport)
	p.Println()
}

func (p *Printer) renderPipeline(a *analysis.Analysis) {
	p.Println("Pipeline Status:")
	switch strings.ToLower(a.AudioTransport) {
	case "audiosocket":
		p.Successf("  ✅ Transport: AudioSocket\n")
	case "externalmedia":
		p.Successf("  ✅ Transport: ExternalMedia RTP\n")
	default:
		p.Warnf("  ⚠️  Transport: Unknown\n")
	}
	if a.Pipeline.AudioTransportActive {
		p.Successf("  ✅ Audio transport: Active\n")
	} else {
		p.Errorf("  ❌ Audio transport: Not detected\n")
	}
	if a.Pipeline.TranscriptionActive {
		p.Successf("  ✅ Transcription: Active\n")
	} else {
		p.Warnf("  ⚠️  Transcription: Not detected\n")
	}
	if a.Pipeline.PlaybackActive {
		p.Successf("  ✅ Playback: Active\n")
	} else {
		p.Warnf("  ⚠️  Playback: Not detected\n")
	}
	p.Println()
}

// renderCapped prints the first limit items and an exact overflow count.
func (p *Printer) renderCapped(items []string, limit int) {
	for i, item := range items {
		if i == limit {
			break
		}
		p.Printf("  %d. %s\n", i+1, truncate(item, maxLineLen))
	}
	if len(items) > limit {
		p.Printf("  ... and %d more\n", len(items)-limit)
	}
	p.Println()
}

func (p *Printer) renderToolCalls(calls []analysis.ToolCall) {
	if len(calls) == 0 {
		return
	}
	p.Infof("Tool Calls (%d):\n", len(calls))
	for i, tc := range calls {
		if i == maxErrors {
			p.Printf("  ... and %d more\n", len(calls)-maxErrors)
			break
		}
		line := fmt.Sprintf("  %d. %s", i+1, tc.Name)
		if tc.Status != "" {
			line += " → " + tc.Status
		}
		if tc.Message != "" {
			line += " (" + truncate(tc.Message, 80) + ")"
		} else if tc.Arguments != "" {
			line += " args=" + truncate(tc.Arguments, 80)
		}
		p.Println(line)
	}
	p.Println()
}

func (p *Printer) renderMetrics(metrics map[string]string) {
	if len(metrics) == 0 {
		return
	}
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p.Println("Metrics:")
	for _, k := range keys {
		p.Printf("  %s: %s\n", k, metrics[k])
	}
	p.Println()
}

func (p *Printer) renderTimeline(events []evidence.TimelineEvent) {
	if len(events) == 0 {
		return
	}
	p.Printf("Timeline (%d):\n", len(events))
	for _, e := range events {
		p.Printf("  [%s] %s\n", e.Marker, truncate(strings.TrimSpace(e.RawLine), maxLineLen))
	}
	p.Println()
}

func (p *Printer) renderCollection(s *evidence.Session) {
	p.Println("Collection:")
	if s.WorkDir != "" {
		p.Printf("  Work dir: %s\n", s.WorkDir)
	}
	if s.Remote {
		p.Printf("  %s\n", s.CollectionSummary())
	}
	for _, r := range s.Reports {
		p.Printf("  Report: %s\n", r)
	}
	for _, n := range s.Degraded() {
		p.Warnf("  ⚠️  %s\n", n)
	}
	p.Println()
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
