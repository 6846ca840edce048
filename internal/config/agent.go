package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AgentSnapshot is the slice of ai-agent.yaml that recommendations quote.
type AgentSnapshot struct {
	AudioTransport  string `yaml:"audio_transport"`
	DefaultProvider string `yaml:"default_provider"`

	AudioSocket struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"audiosocket"`
	Streaming struct {
		SampleRate     int `yaml:"sample_rate"`
		JitterBufferMs int `yaml:"jitter_buffer_ms"`
	} `yaml:"streaming"`
}

// LoadAgentSnapshot parses the engine config at path.
func LoadAgentSnapshot(path string) (*AgentSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent config: %w", err)
	}
	var snap AgentSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid YAML syntax: %w", err)
	}
	snap.AudioTransport = strings.ToLower(strings.TrimSpace(snap.AudioTransport))
	return &snap, nil
}

// ValidTransport reports whether the configured transport is one the engine
// understands.
func (a *AgentSnapshot) ValidTransport() bool {
	switch a.AudioTransport {
	case "audiosocket", "externalmedia":
		return true
	}
	return false
}
