package analysis

import (
	"regexp"
	"strings"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
)

// ToolCall is one function call the agent made during the call, paired with
// its result when the result line was logged.
type ToolCall struct {
	Name      string `json:"name"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

var (
	toolInvoked  = regexp.MustCompile(`(?i)tool call:\s*(\w+)\((.*)\)`)
	toolExecuted = regexp.MustCompile(`(?i)tool\s+(\w+)\s+executed:\s*(\w+)`)
)

// toolLedger tracks calls still waiting for a result.
type toolLedger struct {
	calls  []ToolCall
	byID   map[string]int
	byName map[string][]int
}

func (l *toolLedger) invoked(name, args, id string) {
	l.calls = append(l.calls, ToolCall{Name: name, Arguments: args})
	idx := len(l.calls) - 1
	if id != "" {
		l.byID[id] = idx
		return
	}
	l.byName[name] = append(l.byName[name], idx)
}

// claim returns the pending call a result belongs to, opening a new entry
// for results whose invocation was not logged.
func (l *toolLedger) claim(name, id string) int {
	if idx, ok := l.byID[id]; ok && id != "" {
		delete(l.byID, id)
		return idx
	}
	if queue := l.byName[name]; len(queue) > 0 {
		l.byName[name] = queue[1:]
		return queue[0]
	}
	l.calls = append(l.calls, ToolCall{Name: name})
	return len(l.calls) - 1
}

// extractToolCalls pairs results with invocations by function_call_id, then by
// name in call order.
func extractToolCalls(lines []evidence.LogLine) []ToolCall {
	l := &toolLedger{byID: map[string]int{}, byName: map[string][]int{}}

	for _, line := range lines {
		event, fields := parseFields(line.Text)
		if event == "" {
			continue
		}
		id := strings.TrimSpace(fields["function_call_id"])

		if m := toolInvoked.FindStringSubmatch(event); m != nil {
			l.invoked(m[1], strings.TrimSpace(m[2]), id)
			continue
		}
		if m := toolExecuted.FindStringSubmatch(event); m != nil {
			idx := l.claim(m[1], id)
			l.calls[idx].Status = m[2]
			if msg := strings.TrimSpace(fields["message"]); msg != "" {
				l.calls[idx].Message = msg
			}
		}
	}
	return l.calls
}
