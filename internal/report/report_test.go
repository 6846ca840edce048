package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/analysis"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/config"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/discovery"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
)

func testPrinter() (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(&out, &errOut, true, true), &out, &errOut
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %d", prefix, i+1)
	}
	return out
}

func TestRenderCapsErrorsAndWarnings(t *testing.T) {
	t.Parallel()

	p, out, _ := testPrinter()
	a := &analysis.Analysis{
		CallID:   "1.2",
		Errors:   numbered("error", 8),
		Warnings: numbered("warn", 7),
	}
	p.Render(Report{Analysis: a})

	text := out.String()
	if !strings.Contains(text, "error 5") || strings.Contains(text, "error 6") {
		t.Fatalf("errors not capped at 5:\n%s", text)
	}
	if !strings.Contains(text, "... and 3 more") {
		t.Fatalf("missing error overflow notice:\n%s", text)
	}
	if !strings.Contains(text, "warn 3") || strings.Contains(text, "warn 4") {
		t.Fatalf("warnings not capped at 3:\n%s", text)
	}
	if !strings.Contains(text, "... and 4 more") {
		t.Fatalf("missing warning overflow notice:\n%s", text)
	}
}

func TestRenderNoOverflowNoticeAtCap(t *testing.T) {
	t.Parallel()

	p, out, _ := testPrinter()
	p.Render(Report{Analysis: &analysis.Analysis{CallID: "1.2", Errors: numbered("error", 5)}})
	if strings.Contains(out.String(), "more") {
		t.Fatalf("unexpected overflow notice:\n%s", out.String())
	}
}

func TestRenderFullAudioIssueList(t *testing.T) {
	t.Parallel()

	issues := []string{analysis.IssueUnderflow, analysis.IssueUnderflow, analysis.IssueEcho, analysis.IssueQuality, analysis.IssueEcho, analysis.IssueUnderflow}
	p, out, _ := testPrinter()
	p.Render(Report{Analysis: &analysis.Analysis{CallID: "1.2", AudioIssues: issues}})
	if got := strings.Count(out.String(), "• "+analysis.IssueUnderflow); got != 3 {
		t.Fatalf("expected all 3 underflow findings rendered, got %d", got)
	}
}

func TestRenderSessionDetails(t *testing.T) {
	t.Parallel()

	s := &evidence.Session{
		CallID:             "1.2",
		WorkDir:            "/tmp/rca-x",
		Remote:             true,
		ArtifactsExpected:  3,
		ArtifactsRetrieved: 1,
		Timeline:           []evidence.TimelineEvent{{Marker: evidence.MarkerWarmUp, RawLine: "call_id=1.2 warm-up complete"}},
	}
	s.Degrade("recordings", evidence.ErrArtifactMissing)

	p, out, _ := testPrinter()
	p.Render(Report{Analysis: &analysis.Analysis{CallID: "1.2"}, Session: s})
	text := out.String()
	for _, want := range []string{"1 of 3 expected artifacts retrieved", "[warm_up]", "recordings: degraded", "call 1.2"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
}

func TestRecommendations(t *testing.T) {
	t.Parallel()

	agent := &config.AgentSnapshot{AudioTransport: "audiosocket"}
	agent.AudioSocket.Port = 9092
	agent.Streaming.JitterBufferMs = 60

	cases := []struct {
		name  string
		rules Rules
		a     analysis.Analysis
		want  []string
		none  bool
	}{
		{
			name:  "transport inactive uses agent port",
			rules: Rules{Agent: agent},
			a:     analysis.Analysis{},
			want:  []string{"Check if AudioSocket is configured correctly", "Verify AudioSocket port 9092 is reachable from Asterisk"},
		},
		{
			name:  "unknown transport",
			rules: Rules{},
			a:     analysis.Analysis{},
			want:  []string{"Check which transport you're using (audiosocket vs externalmedia)"},
		},
		{
			name:  "audio issues",
			rules: Rules{Agent: agent},
			a:     analysis.Analysis{Pipeline: analysis.PipelineFlags{AudioTransportActive: true}, AudioIssues: []string{analysis.IssueEcho}},
			want:  []string{"Run: agent check (for detailed diagnostics)", "Check jitter_buffer_ms settings (currently 60)", "Verify network stability"},
		},
		{
			name:  "error threshold",
			rules: Rules{ErrorThreshold: 2, Container: "engine"},
			a:     analysis.Analysis{CallID: "1.2", Pipeline: analysis.PipelineFlags{AudioTransportActive: true}, Errors: numbered("e", 3)},
			want:  []string{"High error count - check container logs", "Run: docker logs engine 2>&1 | grep 1.2 | grep ERROR"},
		},
		{
			name:  "healthy",
			rules: Rules{ErrorThreshold: 2},
			a:     analysis.Analysis{Pipeline: analysis.PipelineFlags{AudioTransportActive: true}, Errors: numbered("e", 2)},
			none:  true,
		},
	}
	for _, tc := range cases {
		got := tc.rules.Recommendations(&tc.a)
		if tc.none {
			if len(got) != 0 {
				t.Fatalf("%s: expected no recommendations, got %v", tc.name, got)
			}
			continue
		}
		joined := strings.Join(got, "\n")
		for _, w := range tc.want {
			if !strings.Contains(joined, w) {
				t.Fatalf("%s: missing %q in %v", tc.name, w, got)
			}
		}
	}
}

func TestRenderCallsAndNoCalls(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := []discovery.CallRecord{
		{ID: "1700000000.2", FirstSeen: now.Add(-2 * time.Minute), Duration: 31 * time.Second},
		{ID: "1700000000.1", FirstSeen: now.Add(-3 * time.Hour)},
	}
	p, out, _ := testPrinter()
	p.RenderCalls(calls, now)
	text := out.String()
	for _, want := range []string{" 1. 1700000000.2 - 2m ago (duration: 31s)", " 2. 1700000000.1 - 3h ago"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}

	p2, out2, _ := testPrinter()
	running := false
	p2.NoCalls("ai_engine", &running)
	if !strings.Contains(out2.String(), "No recent calls found") || !strings.Contains(out2.String(), "not running") {
		t.Fatalf("unexpected no-calls output:\n%s", out2.String())
	}
}

func TestRenderCallsShowsLogTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := []discovery.CallRecord{
		{ID: "1700000000.2", FirstSeen: now, LogTime: now.Add(-time.Minute)},
		{ID: "1700000000.1", FirstSeen: now, LogTime: now.Add(-3 * time.Hour)},
		{ID: "1700000000.0", FirstSeen: now},
	}
	p, out, _ := testPrinter()
	p.RenderCalls(calls, now)
	lines := strings.Split(out.String(), "\n")

	find := func(id string) string {
		for _, l := range lines {
			if strings.Contains(l, id) {
				return l
			}
		}
		t.Fatalf("call %s not listed:\n%s", id, out.String())
		return ""
	}
	if l := find("1700000000.2"); !strings.Contains(l, "(logged ") || !strings.HasSuffix(l, ", 1m ago)") {
		t.Fatalf("unexpected line: %q", l)
	}
	if l := find("1700000000.1"); !strings.HasSuffix(l, ", 3h ago)") {
		t.Fatalf("unexpected line: %q", l)
	}
	if l := find("1700000000.0"); strings.Contains(l, "logged") {
		t.Fatalf("call without log time shows one: %q", l)
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("🎛️ tuning ", 20)
	got := truncate(s, 7)
	if !utf8.ValidString(got) {
		t.Fatalf("invalid UTF-8: %q", got)
	}
	if want := string([]rune(s)[:7]) + "..."; got != want {
		t.Fatalf("truncate = %q, want %q", got, want)
	}
	if truncate("short", 10) != "short" {
		t.Fatalf("short strings must be unchanged")
	}
}

func TestFailureTips(t *testing.T) {
	t.Parallel()

	p, out, _ := testPrinter()
	p.Failure(fmt.Errorf("%w: ssh: exit 255", evidence.ErrTransferFailed), "ai_engine", nil)
	text := out.String()
	if !strings.Contains(text, "remote host") || !strings.Contains(text, "Check SSH access") {
		t.Fatalf("unexpected failure output:\n%s", text)
	}
}

func TestPickCall(t *testing.T) {
	t.Parallel()

	now := time.Now()
	calls := []discovery.CallRecord{{ID: "3.0", FirstSeen: now}, {ID: "2.0", FirstSeen: now}}

	cases := map[string]string{"2\n": "2.0", "\n": "3.0", "9\n": "3.0", "": "3.0"}
	for input, want := range cases {
		p, _, _ := testPrinter()
		got, err := p.PickCall(strings.NewReader(input), calls, now)
		if err != nil {
			t.Fatalf("PickCall(%q): %v", input, err)
		}
		if got.ID != want {
			t.Fatalf("PickCall(%q) = %s, want %s", input, got.ID, want)
		}
	}
}

func TestDebugfOnlyWhenVerbose(t *testing.T) {
	t.Parallel()

	p, _, errOut := testPrinter()
	p.Debugf("fetched %d lines", 3)
	if errOut.String() != "[DEBUG] fetched 3 lines\n" {
		t.Fatalf("unexpected debug output %q", errOut.String())
	}

	var quiet bytes.Buffer
	q := NewPrinter(&bytes.Buffer{}, &quiet, false, true)
	q.Debugf("hidden")
	if quiet.Len() != 0 {
		t.Fatalf("debug printed without verbose")
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	s := &evidence.Session{CallID: "1.2", WorkDir: "/tmp/w", Remote: true, ArtifactsExpected: 2, ArtifactsRetrieved: 2}
	doc := NewDocument(Report{Analysis: &analysis.Analysis{CallID: "1.2"}, Session: s})

	var buf bytes.Buffer
	if err := WriteJSON(&buf, doc); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["call_id"] != "1.2" || decoded["collected"] != "2 of 2 expected artifacts retrieved" {
		t.Fatalf("unexpected document %v", decoded)
	}
	if _, ok := decoded["recommendations"]; !ok {
		t.Fatalf("recommendations missing from %v", decoded)
	}
}
