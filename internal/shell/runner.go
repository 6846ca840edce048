package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single external command when the caller does not set one.
const DefaultTimeout = 60 * time.Second

// ErrTimeout is returned when a command exceeds its deadline.
var ErrTimeout = errors.New("command timed out")

// Runner executes an external process and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the local host, each wrapped in its own timeout.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner creates a runner with the given per-command timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{Timeout: timeout}
}

// Run executes name with args. The returned error wraps ErrTimeout when the
// per-command deadline fires, and ctx.Err() when the caller cancelled.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return output, nil
	}
	if ctx.Err() != nil {
		return output, ctx.Err()
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return output, fmt.Errorf("%w: %s after %s", ErrTimeout, name, timeout)
	}
	if msg := strings.TrimSpace(string(output)); msg != "" {
		return output, fmt.Errorf("%s: %w: %s", name, err, lastLine(msg))
	}
	return output, fmt.Errorf("%s: %w", name, err)
}

func lastLine(s string) string {
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
