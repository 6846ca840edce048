package logsource

import (
	"context"
	"strings"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/shell"
)

// ContainerRunning checks whether a container with name is up. It is used to
// turn an unreadable log source into a concrete tip.
func ContainerRunning(ctx context.Context, runner shell.Runner, name string) (bool, error) {
	out, err := runner.Run(ctx, "docker", "ps", "--format", "{{.Names}}\t{{.Status}}", "--filter", "name="+name)
	if err != nil {
		return false, err
	}

	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) == 2 && fields[0] == name {
			return strings.HasPrefix(fields[1], "Up"), nil
		}
	}
	return false, nil
}
