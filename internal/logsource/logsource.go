// Package logsource reads a bounded window of raw log text from the engine
// container, locally or on a remote host. It does no parsing.
package logsource

import (
	"context"
	"fmt"
	"time"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/remote"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/shell"
)

// DefaultContainer is the engine container whose logs carry call ids.
const DefaultContainer = "ai_engine"

// Source is a unified interface for local and remote log streams.
type Source interface {
	// Fetch returns raw log text covering the last window. Errors wrap
	// evidence.ErrSourceUnavailable.
	Fetch(ctx context.Context, window time.Duration) (string, error)
	// Name identifies the source in diagnostics ("docker", "ssh:host").
	Name() string
}

// DockerSource reads `docker logs` on the local host.
type DockerSource struct {
	Container string
	Runner    shell.Runner
}

// NewDockerSource creates a local source for container.
func NewDockerSource(container string, runner shell.Runner) *DockerSource {
	if container == "" {
		container = DefaultContainer
	}
	return &DockerSource{Container: container, Runner: runner}
}

func (s *DockerSource) Fetch(ctx context.Context, window time.Duration) (string, error) {
	out, err := s.Runner.Run(ctx, "docker", "logs", "--since", FormatSince(window), s.Container)
	if err != nil {
		return "", fmt.Errorf("%w: docker logs %s: %w", evidence.ErrSourceUnavailable, s.Container, err)
	}
	return string(out), nil
}

func (s *DockerSource) Name() string { return "docker" }

// SSHSource runs the same `docker logs` read on a remote host.
type SSHSource struct {
	Container string
	Target    remote.Target
	Runner    shell.Runner
}

// NewSSHSource creates a remote source for container on target.
func NewSSHSource(container string, target remote.Target, runner shell.Runner) *SSHSource {
	if container == "" {
		container = DefaultContainer
	}
	return &SSHSource{Container: container, Target: target, Runner: runner}
}

func (s *SSHSource) Fetch(ctx context.Context, window time.Duration) (string, error) {
	cmd := fmt.Sprintf("docker logs --since %s %s 2>&1", FormatSince(window), s.Container)
	out, err := s.Runner.Run(ctx, "ssh", s.Target.SSHArgs(cmd)...)
	if err != nil {
		return "", fmt.Errorf("%w: ssh %s: %w", evidence.ErrSourceUnavailable, s.Target.Host, err)
	}
	return string(out), nil
}

func (s *SSHSource) Name() string { return "ssh:" + s.Target.Host }

// FormatSince renders a window the way `docker logs --since` expects it.
func FormatSince(d time.Duration) string {
	switch {
	case d <= 0:
		return "24h"
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	default:
		return fmt.Sprintf("%ds", int(d.Round(time.Second)/time.Second))
	}
}
