// Package remote moves evidence off a remote host over ssh/scp.
package remote

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// Target names a remote host, the login used on it and the directory the
// agent's compose project lives in.
type Target struct {
	User     string
	Host     string
	BasePath string
}

// Configured reports whether a remote host was given.
func (t Target) Configured() bool {
	return strings.TrimSpace(t.Host) != ""
}

// Address is the user@host form understood by ssh and scp.
func (t Target) Address() string {
	if t.User == "" {
		return t.Host
	}
	return t.User + "@" + t.Host
}

// sshOptions keep ssh non-interactive so a missing key fails fast instead of
// waiting on a password prompt.
var sshOptions = []string{"-o", "BatchMode=yes", "-o", "ConnectTimeout=10"}

// SSHArgs builds the argument list for running command on the target,
// prefixed with a cd into BasePath when one is set.
func (t Target) SSHArgs(command string) []string {
	if t.BasePath != "" {
		command = "cd " + shellquote.Join(t.BasePath) + " && " + command
	}
	args := append([]string{}, sshOptions...)
	return append(args, t.Address(), command)
}
