package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/analysis"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/discovery"
)

// PickCall shows numbered calls and returns the chosen one. An empty answer
// picks the first (newest) call.
func (p *Printer) PickCall(in io.Reader, calls []discovery.CallRecord, now time.Time) (discovery.CallRecord, error) {
	if len(calls) == 0 {
		return discovery.CallRecord{}, fmt.Errorf("no calls to choose from")
	}
	p.Println()
	p.Infof("  Select a call to analyze\n")
	for i, c := range calls {
		p.Printf("  %d) %s - %s ago\n", i+1, c.ID, formatAge(now.Sub(c.FirstSeen)))
	}
	p.Println()
	p.prompt.Fprintf(p.Out, "  Choice [1]: ")

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return discovery.CallRecord{}, err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return calls[0], nil
	}
	choice, err := strconv.Atoi(input)
	if err != nil || choice < 1 || choice > len(calls) {
		p.Warnf("  Invalid choice, using default: 1\n")
		return calls[0], nil
	}
	return calls[choice-1], nil
}

// FollowUp is a user-driven question and answer loop over a finished
// analysis.
type FollowUp interface {
	Run(ctx context.Context, a *analysis.Analysis) error
}

// StubFollowUp announces that interactive follow-up is not available yet.
type StubFollowUp struct {
	Printer *Printer
}

func (s StubFollowUp) Run(_ context.Context, a *analysis.Analysis) error {
	s.Printer.section("Interactive Mode")
	s.Printer.Infof("Interactive troubleshooting for call %s: coming soon.\n", a.CallID)
	s.Printer.Println()
	return nil
}
