package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/discovery"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
)

// RenderCalls prints the ranked call list with recency and duration hints.
func (p *Printer) RenderCalls(calls []discovery.CallRecord, now time.Time) {
	p.Printf("Recent calls (%d):\n\n", len(calls))
	for i, call := range calls {
		p.Printf("%2d. %s - %s ago", i+1, call.ID, formatAge(now.Sub(call.FirstSeen)))
		if !call.LogTime.IsZero() {
			p.Printf(" (logged %s, %s ago)", call.LogTime.Local().Format("2006-01-02 15:04:05"), formatAge(now.Sub(call.LogTime)))
		}
		if hint := call.DurationHint(); hint != "" {
			p.Printf(" (duration: %s)", hint)
		}
		p.Println()
	}
	p.Println()
	p.Println("Usage: agent rca --call <id>")
}

// NoCalls prints the guided notice for an empty discovery window.
func (p *Printer) NoCalls(container string, containerRunning *bool) {
	p.Warnf("No recent calls found\n")
	p.Println()
	p.Println("Tips:")
	for _, tip := range noCallTips(container, containerRunning) {
		p.Printf("  • %s\n", tip)
	}
}

// Failure prints a fatal run error with remediation tips.
func (p *Printer) Failure(err error, container string, containerRunning *bool) {
	switch {
	case errors.Is(err, evidence.ErrNoCallsFound):
		p.Errorf("❌ No calls to analyze: %v\n", err)
	case errors.Is(err, evidence.ErrTransferFailed):
		p.Errorf("❌ Could not retrieve logs from the remote host: %v\n", err)
	case errors.Is(err, evidence.ErrSourceUnavailable):
		p.Errorf("❌ Could not read %s logs: %v\n", container, err)
	default:
		p.Errorf("❌ %v\n", err)
	}
	p.Println()
	p.Println("Tips:")
	tips := noCallTips(container, containerRunning)
	if errors.Is(err, evidence.ErrTransferFailed) {
		tips = append([]string{"Check SSH access: ssh -o BatchMode=yes <user>@<host> true"}, tips...)
	}
	for _, tip := range tips {
		p.Printf("  • %s\n", tip)
	}
}

func noCallTips(container string, running *bool) []string {
	if container == "" {
		container = "ai_engine"
	}
	tips := []string{"Make a test call first"}
	switch {
	case running == nil:
		tips = append(tips, fmt.Sprintf("Check if %s container is running", container))
	case !*running:
		tips = append(tips, fmt.Sprintf("%s container is not running: docker compose up -d %s", container, container))
	}
	return append(tips, fmt.Sprintf("Verify logs: docker logs %s", container))
}

func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}
