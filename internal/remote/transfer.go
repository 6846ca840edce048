package remote

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/shell"
	"github.com/kballard/go-shellquote"
)

// Transfer is the remote artifact boundary.
type Transfer interface {
	// List returns files in directory whose names contain pattern.
	List(ctx context.Context, pattern, directory string) ([]string, error)
	// Fetch copies remotePath into localDir and returns the local path.
	Fetch(ctx context.Context, remotePath, localDir string) (string, error)
	// Archive compresses matching files on the remote host and returns the
	// remote archive path.
	Archive(ctx context.Context, pattern, directory string) (string, error)
}

// SSHTransfer implements Transfer with the ssh and scp binaries.
type SSHTransfer struct {
	Target Target
	Runner shell.Runner
}

// NewSSHTransfer creates an SSHTransfer for target.
func NewSSHTransfer(target Target, runner shell.Runner) *SSHTransfer {
	return &SSHTransfer{Target: target, Runner: runner}
}

func (t *SSHTransfer) ssh(ctx context.Context, command string) ([]byte, error) {
	return t.Runner.Run(ctx, "ssh", t.Target.SSHArgs(command)...)
}

func (t *SSHTransfer) List(ctx context.Context, pattern, directory string) ([]string, error) {
	cmd := fmt.Sprintf("find %s -maxdepth 1 -type f -name %s 2>/dev/null",
		shellquote.Join(directory), shellquote.Join("*"+pattern+"*"))
	out, err := t.ssh(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("list %s on %s: %w", directory, t.Target.Host, err)
	}
	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(path.Base(line), pattern) {
			continue
		}
		files = append(files, line)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files matching %q in %s", evidence.ErrArtifactMissing, pattern, directory)
	}
	return files, nil
}

func (t *SSHTransfer) Archive(ctx context.Context, pattern, directory string) (string, error) {
	if _, err := t.List(ctx, pattern, directory); err != nil {
		return "", err
	}
	archive := path.Join("/tmp", "rca-taps-"+sanitize(pattern)+".tgz")
	cmd := fmt.Sprintf("cd %s && find . -maxdepth 1 -type f -name %s | tar czf %s -T -",
		shellquote.Join(directory), shellquote.Join("*"+pattern+"*"), shellquote.Join(archive))
	if _, err := t.ssh(ctx, cmd); err != nil {
		return "", fmt.Errorf("archive %s on %s: %w", directory, t.Target.Host, err)
	}
	return archive, nil
}

func (t *SSHTransfer) Fetch(ctx context.Context, remotePath, localDir string) (string, error) {
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", err
	}
	local := filepath.Join(localDir, path.Base(remotePath))
	args := append([]string{"-q"}, sshOptions...)
	args = append(args, t.Target.Address()+":"+remotePath, local)
	if _, err := t.Runner.Run(ctx, "scp", args...); err != nil {
		return "", fmt.Errorf("scp %s: %w", remotePath, err)
	}
	return local, nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
