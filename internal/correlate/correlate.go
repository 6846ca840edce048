// Package correlate lines up the collected logs with audio quality reports
// and provider usage for the same call.
package correlate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/shell"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/usage"
)

const (
	tapsReport       = "wav_report_taps.json"
	recordingsReport = "wav_report_recordings.json"
	usageReport      = "deepgram_usage.json"

	DefaultFrameMs = 20
)

// QualityAnalyzer writes a JSON quality report for a set of audio files.
type QualityAnalyzer interface {
	Analyze(ctx context.Context, outPath string, frameMs int, files []string) error
}

// UsageAPI fetches provider request records.
type UsageAPI interface {
	Configured() bool
	FetchUsage(ctx context.Context, start, end time.Time, status string) ([]usage.Record, []byte, error)
}

// ScriptAnalyzer runs the bundled WAV quality script.
type ScriptAnalyzer struct {
	Runner shell.Runner
	Python string
	Script string
}

func (a *ScriptAnalyzer) Analyze(ctx context.Context, outPath string, frameMs int, files []string) error {
	if _, err := os.Stat(a.Script); err != nil {
		return fmt.Errorf("%w: script %s: %w", evidence.ErrAnalyzerInvocationFailed, a.Script, err)
	}
	python := a.Python
	if python == "" {
		python = "python3"
	}
	args := []string{a.Script, "--json", outPath, "--frame-ms", strconv.Itoa(frameMs)}
	args = append(args, files...)
	if _, err := a.Runner.Run(ctx, python, args...); err != nil {
		return fmt.Errorf("%w: %w", evidence.ErrAnalyzerInvocationFailed, err)
	}
	return nil
}

// Correlator enriches a session with its timeline and external reports.
type Correlator struct {
	Analyzer QualityAnalyzer
	Usage    UsageAPI
	FrameMs  int
	// Window is how far back from Now usage records are requested.
	Window time.Duration
	Now    func() time.Time
}

// Correlate fills s.Timeline and s.Reports. Analyzer and usage failures are
// recorded on the session and never returned; only cancellation is.
func (c *Correlator) Correlate(ctx context.Context, s *evidence.Session) error {
	s.Timeline = ExtractTimeline(s.Logs)

	if c.Analyzer != nil {
		c.analyze(ctx, s, evidence.KindTap, tapsReport)
		c.analyze(ctx, s, evidence.KindRecording, recordingsReport)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.fetchUsage(ctx, s)
	return ctx.Err()
}

func (c *Correlator) analyze(ctx context.Context, s *evidence.Session, kind evidence.ArtifactKind, name string) {
	artifacts := s.ArtifactsOf(kind)
	if len(artifacts) == 0 || ctx.Err() != nil {
		return
	}
	files := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		files = append(files, a.Path)
	}
	out := filepath.Join(s.WorkDir, name)
	step := "wav analysis (" + string(kind) + ")"
	if err := c.Analyzer.Analyze(ctx, out, c.frameMs(), files); err != nil {
		s.Degrade(step, err)
		return
	}
	s.Reports = append(s.Reports, out)
	s.Succeed(step)
}

func (c *Correlator) fetchUsage(ctx context.Context, s *evidence.Session) {
	if c.Usage == nil || !c.Usage.Configured() {
		return
	}
	end := time.Now()
	if c.Now != nil {
		end = c.Now()
	}
	window := c.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	_, raw, err := c.Usage.FetchUsage(ctx, end.Add(-window), end, "")
	if err != nil {
		s.Degrade("provider usage", err)
		return
	}
	out := filepath.Join(s.WorkDir, usageReport)
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		s.Degrade("provider usage", err)
		return
	}
	s.Reports = append(s.Reports, out)
	s.Succeed("provider usage")
}

func (c *Correlator) frameMs() int {
	if c.FrameMs <= 0 {
		return DefaultFrameMs
	}
	return c.FrameMs
}
