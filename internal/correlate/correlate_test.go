package correlate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/usage"
)

type fakeAnalyzer struct {
	calls [][]string
	fail  map[string]error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, outPath string, frameMs int, files []string) error {
	f.calls = append(f.calls, files)
	if err := f.fail[filepath.Base(outPath)]; err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte(fmt.Sprintf(`{"frame_ms":%d}`, frameMs)), 0o644)
}

type fakeUsage struct {
	configured bool
	err        error
	start, end time.Time
}

func (f *fakeUsage) Configured() bool { return f.configured }

func (f *fakeUsage) FetchUsage(_ context.Context, start, end time.Time, _ string) ([]usage.Record, []byte, error) {
	f.start, f.end = start, end
	if f.err != nil {
		return nil, nil, f.err
	}
	return nil, []byte(`{"requests":[]}`), nil
}

func lines(text ...string) []evidence.LogLine {
	out := make([]evidence.LogLine, 0, len(text))
	for _, t := range text {
		out = append(out, evidence.NewLogLine(t, "1.2"))
	}
	return out
}

func TestExtractTimeline(t *testing.T) {
	t.Parallel()

	got := ExtractTimeline(lines(
		"call_id=1.2 provider warm-up complete",
		"call_id=1.2 frame received",
		"call_id=1.2 Stream flush acknowledged",
		"call_id=1.2 STREAMING TUNING SUMMARY drift_pct=1.0",
		"call_id=1.2 Call summary duration=31s",
	))
	want := []evidence.Marker{
		evidence.MarkerWarmUp,
		evidence.MarkerStreamFlush,
		evidence.MarkerTuningSummary,
		evidence.MarkerCallSummary,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), got)
	}
	for i := range want {
		if got[i].Marker != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], got[i].Marker)
		}
	}
	if !strings.Contains(got[0].RawLine, "warm-up") {
		t.Fatalf("raw line not kept: %q", got[0].RawLine)
	}
}

func TestExtractTimelineNoMarkers(t *testing.T) {
	t.Parallel()

	if got := ExtractTimeline(lines("call_id=1.2 hello")); len(got) != 0 {
		t.Fatalf("expected no events, got %+v", got)
	}
}

func sessionWithArtifacts(t *testing.T) *evidence.Session {
	t.Helper()
	return &evidence.Session{
		CallID:  "1.2",
		WorkDir: t.TempDir(),
		Logs:    lines("call_id=1.2 warmup complete"),
		Artifacts: []evidence.Artifact{
			{Kind: evidence.KindTap, Path: "/w/taps/in.wav", CallID: "1.2"},
			{Kind: evidence.KindTap, Path: "/w/taps/out.wav", CallID: "1.2"},
			{Kind: evidence.KindRecording, Path: "/w/recordings/r.wav", CallID: "1.2"},
		},
	}
}

func TestCorrelateRunsAnalyzerPerKind(t *testing.T) {
	t.Parallel()

	s := sessionWithArtifacts(t)
	a := &fakeAnalyzer{}
	c := &Correlator{Analyzer: a}
	if err := c.Correlate(context.Background(), s); err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if len(a.calls) != 2 || len(a.calls[0]) != 2 || len(a.calls[1]) != 1 {
		t.Fatalf("expected one call per kind over the full set, got %v", a.calls)
	}
	if len(s.Reports) != 2 {
		t.Fatalf("expected 2 reports, got %v", s.Reports)
	}
	if _, err := os.Stat(filepath.Join(s.WorkDir, "wav_report_taps.json")); err != nil {
		t.Fatalf("taps report missing: %v", err)
	}
	if len(s.Timeline) != 1 {
		t.Fatalf("timeline not populated")
	}
}

func TestCorrelateAnalyzerFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	s := sessionWithArtifacts(t)
	a := &fakeAnalyzer{fail: map[string]error{"wav_report_taps.json": evidence.ErrAnalyzerInvocationFailed}}
	c := &Correlator{Analyzer: a}
	if err := c.Correlate(context.Background(), s); err != nil {
		t.Fatalf("analyzer failure should not fail correlate: %v", err)
	}
	degraded := s.Degraded()
	if len(degraded) != 1 || !strings.Contains(degraded[0].Step, "tap") {
		t.Fatalf("expected tap analysis degraded, got %v", s.Notes)
	}
	if len(s.Reports) != 1 {
		t.Fatalf("recordings report should still be written, got %v", s.Reports)
	}
}

func TestCorrelateNoArtifactsSkipsAnalyzer(t *testing.T) {
	t.Parallel()

	s := &evidence.Session{CallID: "1.2", WorkDir: t.TempDir()}
	a := &fakeAnalyzer{}
	if err := (&Correlator{Analyzer: a}).Correlate(context.Background(), s); err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if len(a.calls) != 0 {
		t.Fatalf("analyzer invoked without artifacts")
	}
}

func TestCorrelateUsage(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &evidence.Session{CallID: "1.2", WorkDir: t.TempDir()}
	u := &fakeUsage{configured: true}
	c := &Correlator{Usage: u, Window: 2 * time.Hour, Now: func() time.Time { return now }}
	if err := c.Correlate(context.Background(), s); err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if !u.start.Equal(now.Add(-2*time.Hour)) || !u.end.Equal(now) {
		t.Fatalf("unexpected usage window %s..%s", u.start, u.end)
	}
	if _, err := os.Stat(filepath.Join(s.WorkDir, "deepgram_usage.json")); err != nil {
		t.Fatalf("usage report not written: %v", err)
	}

	skipped := &evidence.Session{CallID: "1.2", WorkDir: t.TempDir()}
	if err := (&Correlator{Usage: &fakeUsage{}}).Correlate(context.Background(), skipped); err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if len(skipped.Notes) != 0 || len(skipped.Reports) != 0 {
		t.Fatalf("unconfigured usage should be silent, got %v", skipped.Notes)
	}

	failing := &evidence.Session{CallID: "1.2", WorkDir: t.TempDir()}
	if err := (&Correlator{Usage: &fakeUsage{configured: true, err: errors.New("503")}}).Correlate(context.Background(), failing); err != nil {
		t.Fatalf("usage failure should not fail correlate: %v", err)
	}
	if len(failing.Degraded()) != 1 {
		t.Fatalf("expected usage degraded note, got %v", failing.Notes)
	}
}

type scriptedRunner struct {
	name string
	args []string
	err  error
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.name, r.args = name, args
	return nil, r.err
}

func TestScriptAnalyzer(t *testing.T) {
	t.Parallel()

	script := filepath.Join(t.TempDir(), "wav_quality_analyzer.py")
	if err := os.WriteFile(script, []byte("print()"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	r := &scriptedRunner{}
	a := &ScriptAnalyzer{Runner: r, Script: script}
	if err := a.Analyze(context.Background(), "/out.json", 20, []string{"a.wav", "b.wav"}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := []string{script, "--json", "/out.json", "--frame-ms", "20", "a.wav", "b.wav"}
	if r.name != "python3" || strings.Join(r.args, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected invocation %s %v", r.name, r.args)
	}

	r.err = errors.New("exit status 1")
	if err := a.Analyze(context.Background(), "/out.json", 20, []string{"a.wav"}); !errors.Is(err, evidence.ErrAnalyzerInvocationFailed) {
		t.Fatalf("expected ErrAnalyzerInvocationFailed, got %v", err)
	}

	missing := &ScriptAnalyzer{Runner: r, Script: filepath.Join(t.TempDir(), "absent.py")}
	if err := missing.Analyze(context.Background(), "/out.json", 20, nil); !errors.Is(err, evidence.ErrAnalyzerInvocationFailed) {
		t.Fatalf("expected ErrAnalyzerInvocationFailed for missing script, got %v", err)
	}
}
