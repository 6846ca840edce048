package evidence

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsErrorLine(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line string
		want bool
	}{
		{"2024 call_id=1700000000.1 ERROR: audiosocket disconnect", true},
		{"Error: timeout", true},
		{"stream closed with 0 errors", false},
		{"transcription started", false},
		{"[error    ] ARI command failed [src.ari_client] reason='{\"message\":\"Provided variable was not found\"}' status=404 url=https://127.0.0.1:8089/ari/channels/1769719558.1020/variable", false},
		{"[error    ] ARI command failed status=500 url=https://127.0.0.1:8089/ari/channels/1769719558.1020/variable", true},
	}
	for _, tc := range cases {
		if got := IsErrorLine(tc.line); got != tc.want {
			t.Fatalf("IsErrorLine(%q)=%v want %v", tc.line, got, tc.want)
		}
	}
}

func TestIsWarningLine(t *testing.T) {
	t.Parallel()

	if !IsWarningLine("[warning  ] jitter buffer low") {
		t.Fatalf("expected warning")
	}
	if !IsWarningLine("WARN provider slow") {
		t.Fatalf("expected warn")
	}
	if IsWarningLine("call answered") {
		t.Fatalf("unexpected warning")
	}
}

func TestFilterLinesKeepsOrderAndContainment(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"a call_id=1700000000.1 first",
		"b call_id=1700000000.2 other",
		"",
		"c call_id=1700000000.1 ERROR second",
	}, "\n")

	lines := FilterLines(raw, "1700000000.1")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "a call_id=1700000000.1 first" || lines[1].Text != "c call_id=1700000000.1 ERROR second" {
		t.Fatalf("order not preserved: %+v", lines)
	}
	for _, l := range lines {
		if !strings.Contains(l.Text, "1700000000.1") || !l.MentionsCall {
			t.Fatalf("line does not mention call: %+v", l)
		}
	}
	if !lines[1].IsError || lines[0].IsError {
		t.Fatalf("error flags wrong: %+v", lines)
	}
}

func TestFilterLinesEmptyID(t *testing.T) {
	t.Parallel()

	if got := FilterLines("call_id=1.2", ""); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestStripANSI(t *testing.T) {
	t.Parallel()

	if got := StripANSI("\x1b[32minfo\x1b[0m call_id=1.2"); got != "info call_id=1.2" {
		t.Fatalf("got %q", got)
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	if !IsFatal(fmt.Errorf("collect: %w", ErrTransferFailed)) {
		t.Fatalf("transfer failure must be fatal")
	}
	if IsFatal(fmt.Errorf("taps: %w", ErrArtifactMissing)) {
		t.Fatalf("missing artifact must not be fatal")
	}
	if IsFatal(errors.New("other")) {
		t.Fatalf("unknown errors are not classified fatal")
	}
}

func TestSessionNotes(t *testing.T) {
	t.Parallel()

	s := &Session{CallID: "1.2", ArtifactsExpected: 3, ArtifactsRetrieved: 1}
	s.Succeed("logs")
	s.Degrade("taps", fmt.Errorf("%w: no taps", ErrArtifactMissing))
	if len(s.Degraded()) != 1 {
		t.Fatalf("degraded=%v", s.Degraded())
	}
	if s.CollectionSummary() != "1 of 3 expected artifacts retrieved" {
		t.Fatalf("summary=%q", s.CollectionSummary())
	}
}
