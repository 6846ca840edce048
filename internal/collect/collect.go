// Package collect gathers every piece of evidence for one call into a fresh
// per-run directory: the filtered log snapshot and, when a remote host is
// configured, the engine taps and PBX recordings.
package collect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/discovery"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/logsource"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/remote"
)

const (
	DefaultTapsDir       = "/tmp/ai-engine-taps"
	DefaultRecordingsDir = "/var/spool/asterisk/monitor"
	DefaultMaxRecordings = 3

	rawLogFile     = "ai-engine.log"
	tapsSubdir     = "taps"
	recordingsDir  = "recordings"
	maxParallelism = 4
)

// Collector pulls logs and artifacts for one call.
type Collector struct {
	Source logsource.Source
	// Transfer is nil when no remote host is configured.
	Transfer      remote.Transfer
	OutputDir     string
	TapsDir       string
	RecordingsDir string
	MaxRecordings int

	Now    func() time.Time
	Debugf func(format string, args ...any)
}

// Collect fetches the log window, filters it to callID and, when remote, pulls
// audio artifacts. callID may be empty or "last" to mean the newest call in
// the window; any other value must be a "seconds.sequence" identifier. Only
// the log leg can fail the collection.
func (c *Collector) Collect(ctx context.Context, callID string, window time.Duration) (*evidence.Session, error) {
	explicit := callID != "" && callID != "last"
	if explicit && !discovery.ValidID(callID) {
		return nil, fmt.Errorf("%w: invalid call id %q", evidence.ErrNoCallsFound, callID)
	}

	raw, err := c.Source.Fetch(ctx, window)
	if err != nil {
		if c.Transfer != nil {
			return nil, fmt.Errorf("%w: log leg: %w", evidence.ErrTransferFailed, err)
		}
		return nil, err
	}
	clean := evidence.StripANSI(raw)

	now := c.now()
	if !explicit {
		latest, err := discovery.Latest(clean, now)
		if err != nil {
			return nil, err
		}
		callID = latest.ID
		c.debugf("Confirmed most recent call from logs: %s", callID)
	}

	workDir, err := c.newWorkDir(callID, now)
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	s := &evidence.Session{
		RunID:     uuid.NewString(),
		CallID:    callID,
		WorkDir:   workDir,
		CreatedAt: now,
		Remote:    c.Transfer != nil,
		Logs:      evidence.FilterLines(clean, callID),
	}

	if err := c.writeLogs(s, clean); err != nil {
		s.Degrade("log snapshot", err)
	} else {
		s.Succeed("log snapshot")
	}
	c.debugf("Filtered %d log lines for call %s", len(s.Logs), callID)

	if c.Transfer != nil {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		c.collectArtifacts(ctx, s)
	}
	return s, nil
}

// legResult is what one artifact leg reports back. Legs never return errors
// to the group so a failing leg cannot cancel its siblings.
type legResult struct {
	step      string
	artifacts []evidence.Artifact
	expected  int
	err       error
}

func (c *Collector) collectArtifacts(ctx context.Context, s *evidence.Session) {
	var (
		g       errgroup.Group
		taps    legResult
		records legResult
	)
	g.SetLimit(maxParallelism)
	g.Go(func() error {
		taps = c.collectTaps(ctx, s.CallID, s.WorkDir)
		return nil
	})
	g.Go(func() error {
		records = c.collectRecordings(ctx, s.CallID, s.WorkDir)
		return nil
	})
	_ = g.Wait()

	for _, leg := range []legResult{taps, records} {
		s.Artifacts = append(s.Artifacts, leg.artifacts...)
		s.ArtifactsExpected += leg.expected
		s.ArtifactsRetrieved += len(leg.artifacts)
		if leg.err != nil {
			s.Degrade(leg.step, leg.err)
			c.debugf("%s degraded: %v", leg.step, leg.err)
		} else {
			s.Succeed(leg.step)
		}
	}
}

func (c *Collector) collectTaps(ctx context.Context, callID, workDir string) legResult {
	res := legResult{step: "taps", expected: 1}
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	archive, err := c.Transfer.Archive(ctx, callID, c.tapsDir())
	if err != nil {
		res.err = err
		return res
	}
	local, err := c.Transfer.Fetch(ctx, archive, workDir)
	if err != nil {
		res.err = fmt.Errorf("%w: %w", evidence.ErrArtifactMissing, err)
		return res
	}
	files, err := extractArchive(local, filepath.Join(workDir, tapsSubdir))
	if err != nil {
		res.err = fmt.Errorf("%w: extract taps: %w", evidence.ErrArtifactMissing, err)
		return res
	}
	res.expected = len(files)
	for _, f := range files {
		res.artifacts = append(res.artifacts, evidence.Artifact{Kind: evidence.KindTap, Path: f, CallID: callID})
	}
	if len(files) == 0 {
		res.expected = 1
		res.err = fmt.Errorf("%w: tap archive was empty", evidence.ErrArtifactMissing)
	}
	return res
}

func (c *Collector) collectRecordings(ctx context.Context, callID, workDir string) legResult {
	res := legResult{step: "recordings"}
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	files, err := c.Transfer.List(ctx, callID, c.recordingsDir())
	if err != nil {
		res.expected = 1
		res.err = err
		return res
	}
	if limit := c.maxRecordings(); len(files) > limit {
		files = files[:limit]
	}
	res.expected = len(files)

	dest := filepath.Join(workDir, recordingsDir)
	fetched := make([]string, len(files))
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(maxParallelism)
	for i, f := range files {
		g.Go(func() error {
			local, err := c.Transfer.Fetch(ctx, f, dest)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			fetched[i] = local
			return nil
		})
	}
	_ = g.Wait()

	for _, local := range fetched {
		if local != "" {
			res.artifacts = append(res.artifacts, evidence.Artifact{Kind: evidence.KindRecording, Path: local, CallID: callID})
		}
	}
	if len(errs) > 0 {
		res.err = fmt.Errorf("%w: %d of %d recordings failed: %w", evidence.ErrArtifactMissing, len(errs), len(files), errors.Join(errs...))
	}
	return res
}

// newWorkDir creates a directory namespaced by run timestamp. An existing
// directory is never reused.
func (c *Collector) newWorkDir(callID string, now time.Time) (string, error) {
	base := c.OutputDir
	if base == "" {
		base = filepath.Join("logs", "remote")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("rca-%s-%s", now.Format("20060102-150405"), callID)
	for i := 1; ; i++ {
		dir := filepath.Join(base, name)
		if i > 1 {
			dir = fmt.Sprintf("%s-%d", dir, i)
		}
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) || i > 100 {
			return "", err
		}
	}
}

func (c *Collector) writeLogs(s *evidence.Session, raw string) error {
	if err := os.WriteFile(filepath.Join(s.WorkDir, rawLogFile), []byte(raw), 0o644); err != nil {
		return err
	}
	filtered := fmt.Sprintf("ai-engine.%s.log", s.CallID)
	return os.WriteFile(filepath.Join(s.WorkDir, filtered), []byte(s.LogText()+"\n"), 0o644)
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Collector) tapsDir() string {
	if strings.TrimSpace(c.TapsDir) == "" {
		return DefaultTapsDir
	}
	return c.TapsDir
}

func (c *Collector) recordingsDir() string {
	if strings.TrimSpace(c.RecordingsDir) == "" {
		return DefaultRecordingsDir
	}
	return c.RecordingsDir
}

func (c *Collector) maxRecordings() int {
	if c.MaxRecordings <= 0 {
		return DefaultMaxRecordings
	}
	return c.MaxRecordings
}

func (c *Collector) debugf(format string, args ...any) {
	if c.Debugf != nil {
		c.Debugf(format, args...)
	}
}
