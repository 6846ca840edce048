package report

import (
	"fmt"
	"strings"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/analysis"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/config"
)

// DefaultErrorThreshold is the error count above which filtered log
// inspection is suggested.
const DefaultErrorThreshold = 10

// Rules is the remediation rule table. Agent may be nil when the engine
// config could not be read.
type Rules struct {
	ErrorThreshold int
	Container      string
	Agent          *config.AgentSnapshot
}

// Recommendations maps analysis conditions to remediation text. The output
// depends only on a and the rules.
func (r Rules) Recommendations(a *analysis.Analysis) []string {
	var out []string

	if !a.Pipeline.AudioTransportActive {
		switch r.transport(a) {
		case "externalmedia":
			out = append(out,
				"Check if ExternalMedia RTP is configured correctly",
				"Verify UDP 18080 reachability (firewall/NAT)",
			)
		case "audiosocket":
			out = append(out,
				"Check if AudioSocket is configured correctly",
				"Verify AudioSocket port "+r.audioSocketPort()+" is reachable from Asterisk",
			)
		default:
			out = append(out,
				"Check which transport you're using (audiosocket vs externalmedia)",
				"Confirm config/ai-agent.yaml has a valid audio_transport value",
			)
		}
	}

	if len(a.AudioIssues) > 0 {
		jitter := "Check jitter_buffer_ms settings"
		if r.Agent != nil && r.Agent.Streaming.JitterBufferMs > 0 {
			jitter = fmt.Sprintf("Check jitter_buffer_ms settings (currently %d)", r.Agent.Streaming.JitterBufferMs)
		}
		out = append(out,
			"Run: agent check (for detailed diagnostics)",
			jitter,
			"Verify network stability",
		)
	}

	threshold := r.ErrorThreshold
	if threshold <= 0 {
		threshold = DefaultErrorThreshold
	}
	if len(a.Errors) > threshold {
		container := r.Container
		if container == "" {
			container = "ai_engine"
		}
		out = append(out,
			"High error count - check container logs",
			fmt.Sprintf("Run: docker logs %s 2>&1 | grep %s | grep ERROR", container, a.CallID),
		)
	}
	return out
}

func (r Rules) transport(a *analysis.Analysis) string {
	if t := strings.ToLower(strings.TrimSpace(a.AudioTransport)); t != "" {
		return t
	}
	if r.Agent != nil && r.Agent.ValidTransport() {
		return r.Agent.AudioTransport
	}
	return ""
}

func (r Rules) audioSocketPort() string {
	if r.Agent != nil && r.Agent.AudioSocket.Port > 0 {
		return fmt.Sprintf("%d", r.Agent.AudioSocket.Port)
	}
	return "8090"
}
