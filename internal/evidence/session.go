package evidence

import (
	"fmt"
	"strings"
	"time"
)

// ArtifactKind distinguishes engine-side taps from PBX-side recordings.
type ArtifactKind string

const (
	KindTap       ArtifactKind = "tap"
	KindRecording ArtifactKind = "recording"
)

// Artifact is an audio file fetched for one call.
type Artifact struct {
	Kind   ArtifactKind `json:"kind" yaml:"kind"`
	Path   string       `json:"path" yaml:"path"`
	CallID string       `json:"call_id" yaml:"call_id"`
}

// Marker names a notable pipeline lifecycle event found in the logs.
type Marker string

const (
	MarkerWarmUp        Marker = "warm_up"
	MarkerStreamFlush   Marker = "stream_flush"
	MarkerCallSummary   Marker = "call_summary"
	MarkerTuningSummary Marker = "tuning_summary"
)

// TimelineEvent is one marker hit, kept in log order.
type TimelineEvent struct {
	Marker  Marker `json:"marker" yaml:"marker"`
	RawLine string `json:"raw_line" yaml:"raw_line"`
}

// StepStatus is the outcome of one best-effort collection step.
type StepStatus string

const (
	StepSuccess  StepStatus = "success"
	StepDegraded StepStatus = "degraded"
	StepFatal    StepStatus = "fatal"
)

// StepResult records what happened to one step.
type StepResult struct {
	Step   string     `json:"step" yaml:"step"`
	Status StepStatus `json:"status" yaml:"status"`
	Reason string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (r StepResult) String() string {
	if r.Reason == "" {
		return fmt.Sprintf("%s: %s", r.Step, r.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Step, r.Status, r.Reason)
}

// Session is everything collected for one call during one run. The work
// directory belongs to this run only.
type Session struct {
	RunID     string
	CallID    string
	WorkDir   string
	CreatedAt time.Time
	Remote    bool

	Logs      []LogLine
	Artifacts []Artifact
	Timeline  []TimelineEvent
	Reports   []string
	Notes     []StepResult

	// ArtifactsExpected counts optional artifact fetches attempted;
	// ArtifactsRetrieved counts those that succeeded.
	ArtifactsExpected  int
	ArtifactsRetrieved int
}

// Succeed records a successful step.
func (s *Session) Succeed(step string) {
	s.Notes = append(s.Notes, StepResult{Step: step, Status: StepSuccess})
}

// Degrade records a non-fatal gap.
func (s *Session) Degrade(step string, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	s.Notes = append(s.Notes, StepResult{Step: step, Status: StepDegraded, Reason: reason})
}

// Degraded returns the non-fatal gaps recorded so far.
func (s *Session) Degraded() []StepResult {
	var out []StepResult
	for _, n := range s.Notes {
		if n.Status == StepDegraded {
			out = append(out, n)
		}
	}
	return out
}

// ArtifactsOf returns artifacts of one kind, in collection order.
func (s *Session) ArtifactsOf(kind ArtifactKind) []Artifact {
	var out []Artifact
	for _, a := range s.Artifacts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// LogText joins the filtered lines back into text.
func (s *Session) LogText() string {
	lines := make([]string, 0, len(s.Logs))
	for _, l := range s.Logs {
		lines = append(lines, l.Text)
	}
	return strings.Join(lines, "\n")
}

// CollectionSummary renders the "N of M expected artifacts retrieved" line.
func (s *Session) CollectionSummary() string {
	return fmt.Sprintf("%d of %d expected artifacts retrieved", s.ArtifactsRetrieved, s.ArtifactsExpected)
}
