package analysis

import (
	"strconv"
	"strings"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
)

// Header is the configuration snapshot the engine logs at call start
// (RCA_CALL_START). It is optional; older engines never emit it.
type Header struct {
	CallID         string `json:"call_id"`
	CallerNumber   string `json:"caller_number,omitempty"`
	CalledNumber   string `json:"called_number,omitempty"`
	ContextName    string `json:"context_name,omitempty"`
	ProviderName   string `json:"provider_name,omitempty"`
	PipelineName   string `json:"pipeline_name,omitempty"`
	AudioTransport string `json:"audio_transport,omitempty"`

	TransportEncoding   string `json:"tp_encoding,omitempty"`
	TransportSampleRate int    `json:"tp_sample_rate,omitempty"`

	StreamingSampleRate     int `json:"streaming_sample_rate,omitempty"`
	StreamingJitterBufferMs int `json:"streaming_jitter_buffer_ms,omitempty"`
}

func extractHeader(lines []evidence.LogLine) *Header {
	for _, line := range lines {
		if !strings.Contains(line.Text, "RCA_CALL_START") {
			continue
		}
		event, fields := parseFields(line.Text)
		if strings.TrimSpace(event) != "RCA_CALL_START" {
			continue
		}
		return &Header{
			CallID:                  fields["call_id"],
			CallerNumber:            fields["caller_number"],
			CalledNumber:            fields["called_number"],
			ContextName:             fields["context_name"],
			ProviderName:            fields["provider_name"],
			PipelineName:            fields["pipeline_name"],
			AudioTransport:          strings.ToLower(fields["audio_transport"]),
			TransportEncoding:       fields["tp_encoding"],
			TransportSampleRate:     atoi(fields["tp_sample_rate"]),
			StreamingSampleRate:     atoi(fields["streaming_sample_rate"]),
			StreamingJitterBufferMs: atoi(fields["streaming_jitter_buffer_ms"]),
		}
	}
	return nil
}

func atoi(s string) int {
	i, _ := strconv.Atoi(strings.TrimSpace(s))
	return i
}
