// Package troubleshoot drives one rca run through discovery, collection,
// correlation, analysis and reporting.
package troubleshoot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/analysis"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/collect"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/correlate"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/discovery"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/llm"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/report"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/runstore"
)

// Options are the per-invocation switches from the command line.
type Options struct {
	CallID      string
	List        bool
	CollectOnly bool
	Interactive bool
	NoLLM       bool
	ForceLLM    bool
	JSON        bool
	Pick        bool

	ListLimit     int
	CollectWindow time.Duration
}

// Diagnoser is the optional LLM tier.
type Diagnoser interface {
	Diagnose(ctx context.Context, a *analysis.Analysis, logText string) (*llm.Diagnosis, error)
}

// RunRecorder persists a summary of each run.
type RunRecorder interface {
	Record(ctx context.Context, r runstore.Run) (runstore.Run, error)
}

// Runner wires the pipeline stages. Discoverer, Collector, Correlator and
// Printer are required; the rest are optional.
type Runner struct {
	Options    Options
	Printer    *report.Printer
	Discoverer *discovery.Discoverer
	Collector  *collect.Collector
	Correlator *correlate.Correlator
	Rules      report.Rules

	Diagnoser Diagnoser
	FollowUp  report.FollowUp
	Runs      RunRecorder
	// ContainerRunning feeds the remediation tips printed on failure.
	ContainerRunning func(ctx context.Context) (bool, error)
	In               io.Reader
	Now              func() time.Time

	state   State
	history []State
}

// State returns the current stage.
func (r *Runner) State() State {
	if r.state == "" {
		return StateIdle
	}
	return r.state
}

// History returns every stage entered, in order, starting with idle.
func (r *Runner) History() []State {
	return append([]State{StateIdle}, r.history...)
}

// Run executes list or analyze mode. Negative findings are a successful run;
// only fatal errors are returned.
func (r *Runner) Run(ctx context.Context) error {
	if r.Options.List {
		return r.list(ctx)
	}
	return r.analyze(ctx)
}

func (r *Runner) list(ctx context.Context) error {
	if err := r.enter(ctx, StateDiscovering); err != nil {
		return r.fail(ctx, "", err)
	}
	calls, err := r.Discoverer.Discover(ctx, r.Options.ListLimit)
	if err != nil {
		return r.fail(ctx, "", err)
	}

	if r.Options.JSON {
		if calls == nil {
			calls = []discovery.CallRecord{}
		}
		if err := writeJSON(r.Printer.Out, calls); err != nil {
			return err
		}
	} else if len(calls) == 0 {
		r.Printer.NoCalls(r.Rules.Container, r.probe(ctx))
	} else {
		r.Printer.RenderCalls(calls, r.now())
	}
	return r.enter(ctx, StateDone)
}

func (r *Runner) analyze(ctx context.Context) error {
	callID, err := r.selectCall(ctx)
	if err != nil {
		return r.fail(ctx, callID, err)
	}

	if err := r.enter(ctx, StateCollecting); err != nil {
		return r.fail(ctx, callID, err)
	}
	s, err := r.Collector.Collect(ctx, callID, r.Options.CollectWindow)
	if err != nil {
		return r.fail(ctx, callID, err)
	}
	if len(s.Logs) == 0 {
		return r.fail(ctx, s.CallID, fmt.Errorf("%w: no log lines mention call %s", evidence.ErrNoCallsFound, s.CallID))
	}
	r.Printer.Debugf("Collected %d log lines into %s", len(s.Logs), s.WorkDir)

	if r.Options.CollectOnly {
		r.writeManifest(s)
		r.Printer.Successf("✅ Evidence for call %s collected in %s\n", s.CallID, s.WorkDir)
		if s.Remote {
			r.Printer.Printf("   %s\n", s.CollectionSummary())
		}
		r.record(ctx, s, nil, StateDone)
		return r.enter(ctx, StateDone)
	}

	if err := r.enter(ctx, StateCorrelating); err != nil {
		return r.fail(ctx, s.CallID, err)
	}
	if err := r.Correlator.Correlate(ctx, s); err != nil {
		return r.fail(ctx, s.CallID, err)
	}

	if err := r.enter(ctx, StateAnalyzing); err != nil {
		return r.fail(ctx, s.CallID, err)
	}
	a := analysis.Analyze(s)
	diagnosis := r.diagnose(ctx, a, s)

	if err := r.enter(ctx, StateReporting); err != nil {
		return r.fail(ctx, s.CallID, err)
	}
	r.writeManifest(s)
	rep := report.Report{Analysis: a, Session: s, Diagnosis: diagnosis, Rules: r.Rules}
	if r.Options.JSON {
		if err := report.WriteJSON(r.Printer.Out, report.NewDocument(rep)); err != nil {
			return err
		}
	} else {
		r.Printer.Render(rep)
	}
	r.record(ctx, s, a, StateDone)

	if r.Options.Interactive && !r.Options.JSON && r.FollowUp != nil {
		if err := r.enter(ctx, StateInteractive); err != nil {
			return r.fail(ctx, s.CallID, err)
		}
		if err := r.FollowUp.Run(ctx, a); err != nil {
			r.Printer.Debugf("interactive follow-up: %v", err)
		}
	}
	return r.enter(ctx, StateDone)
}

// selectCall returns the call to analyze, running discovery only when no
// explicit identifier was given.
func (r *Runner) selectCall(ctx context.Context) (string, error) {
	id := r.Options.CallID
	if id != "" && id != "last" && !r.Options.Pick {
		if !discovery.ValidID(id) {
			return id, fmt.Errorf("%w: invalid call id %q (expected e.g. 1700000000.1)", evidence.ErrNoCallsFound, id)
		}
		return id, nil
	}

	if err := r.enter(ctx, StateDiscovering); err != nil {
		return "", err
	}
	calls, err := r.Discoverer.Discover(ctx, r.Options.ListLimit)
	if err != nil {
		return "", err
	}
	if len(calls) == 0 {
		return "", fmt.Errorf("%w: nothing in the last %s", evidence.ErrNoCallsFound, r.Discoverer.Window)
	}

	chosen := calls[0]
	if r.Options.Pick && !r.Options.JSON {
		in := r.In
		if in == nil {
			in = os.Stdin
		}
		if chosen, err = r.Printer.PickCall(in, calls, r.now()); err != nil {
			return "", err
		}
	}
	if !r.Options.JSON {
		r.Printer.Infof("Analyzing call: %s\n", chosen.ID)
		r.Printer.Println()
	}
	return chosen.ID, nil
}

func (r *Runner) diagnose(ctx context.Context, a *analysis.Analysis, s *evidence.Session) *llm.Diagnosis {
	switch {
	case r.Options.NoLLM:
		r.Printer.Debugf("AI diagnosis: disabled")
		return nil
	case r.Diagnoser == nil:
		if r.Options.ForceLLM && !r.Options.JSON {
			r.Printer.Warnf("AI diagnosis: --llm given but no provider configured (set OPENAI_API_KEY or ANTHROPIC_API_KEY)\n\n")
		}
		r.Printer.Debugf("AI diagnosis: no provider configured")
		return nil
	case !r.Options.ForceLLM && !llm.ShouldRun(a, len(s.Logs)):
		if !r.Options.JSON {
			r.Printer.Infof("AI diagnosis: skipped (call looks healthy; use --llm to force)\n\n")
		}
		return nil
	}

	d, err := r.Diagnoser.Diagnose(ctx, a, s.LogText())
	if err != nil {
		s.Degrade("llm diagnosis", err)
		return nil
	}
	return d
}

func (r *Runner) writeManifest(s *evidence.Session) {
	if err := collect.WriteManifest(s); err != nil {
		s.Degrade("manifest", err)
	}
}

func (r *Runner) record(ctx context.Context, s *evidence.Session, a *analysis.Analysis, state State) {
	if r.Runs == nil {
		return
	}
	run := runstore.Run{
		ID:       s.RunID,
		CallID:   s.CallID,
		WorkDir:  s.WorkDir,
		State:    string(state),
		Degraded: len(s.Degraded()),
		Summary:  s.CollectionSummary(),
	}
	if a != nil {
		run.Errors = len(a.Errors)
		run.Warnings = len(a.Warnings)
	}
	if _, err := r.Runs.Record(ctx, run); err != nil {
		r.Printer.Debugf("record run: %v", err)
	}
}

// enter moves to next, refusing to start a new stage once ctx is done.
func (r *Runner) enter(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !canTransition(r.State(), next) {
		return fmt.Errorf("invalid transition %s -> %s", r.State(), next)
	}
	r.state = next
	r.history = append(r.history, next)
	r.Printer.Debugf("stage: %s", next)
	return nil
}

func (r *Runner) fail(ctx context.Context, callID string, err error) error {
	if r.State() != StateFailed {
		r.state = StateFailed
		r.history = append(r.history, StateFailed)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if r.Options.JSON {
		_ = writeJSON(r.Printer.Out, &report.Document{CallID: callID, Error: err.Error()})
	} else {
		r.Printer.Failure(err, r.Rules.Container, r.probe(ctx))
	}
	if r.Runs != nil && callID != "" {
		if _, recErr := r.Runs.Record(ctx, runstore.Run{CallID: callID, State: string(StateFailed), Summary: err.Error()}); recErr != nil {
			r.Printer.Debugf("record run: %v", recErr)
		}
	}
	return err
}

func (r *Runner) probe(ctx context.Context) *bool {
	if r.ContainerRunning == nil || ctx.Err() != nil {
		return nil
	}
	running, err := r.ContainerRunning(ctx)
	if err != nil {
		r.Printer.Debugf("container probe: %v", err)
		return nil
	}
	return &running
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
