package remote

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
)

type recordedCall struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []recordedCall
	output map[string]string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, recordedCall{name: name, args: args})
	if f.err != nil {
		return nil, f.err
	}
	last := args[len(args)-1]
	for key, out := range f.output {
		if strings.Contains(last, key) {
			return []byte(out), nil
		}
	}
	return nil, nil
}

func TestTargetSSHArgs(t *testing.T) {
	t.Parallel()

	target := Target{User: "root", Host: "pbx.example", BasePath: "/opt/agent dir"}
	args := target.SSHArgs("docker logs ai_engine")
	if args[len(args)-2] != "root@pbx.example" {
		t.Fatalf("address=%q", args[len(args)-2])
	}
	if got := args[len(args)-1]; got != "cd '/opt/agent dir' && docker logs ai_engine" {
		t.Fatalf("command=%q", got)
	}
	if (Target{}).Configured() {
		t.Fatalf("empty target must not be configured")
	}
}

func TestListFiltersByPattern(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{output: map[string]string{
		"find": "/var/spool/asterisk/monitor/in-1700000000.1.wav\n/var/spool/asterisk/monitor/out-1700000000.1.wav\n/var/spool/asterisk/monitor/other.wav\n",
	}}
	tr := NewSSHTransfer(Target{Host: "pbx"}, r)
	files, err := tr.List(context.Background(), "1700000000.1", "/var/spool/asterisk/monitor")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%v", files)
	}
}

func TestListNoMatchesIsArtifactMissing(t *testing.T) {
	t.Parallel()

	tr := NewSSHTransfer(Target{Host: "pbx"}, &fakeRunner{})
	_, err := tr.List(context.Background(), "1700000000.1", "/tmp/ai-engine-taps")
	if !errors.Is(err, evidence.ErrArtifactMissing) {
		t.Fatalf("expected ErrArtifactMissing, got %v", err)
	}
}

func TestArchiveBuildsTarCommand(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{output: map[string]string{"find /tmp": "/tmp/ai-engine-taps/tap-1700000000.1-caller.wav\n"}}
	tr := NewSSHTransfer(Target{Host: "pbx"}, r)
	archive, err := tr.Archive(context.Background(), "1700000000.1", "/tmp/ai-engine-taps")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archive != "/tmp/rca-taps-1700000000.1.tgz" {
		t.Fatalf("archive=%q", archive)
	}
	last := r.calls[len(r.calls)-1]
	cmd := last.args[len(last.args)-1]
	if !strings.Contains(cmd, "tar czf /tmp/rca-taps-1700000000.1.tgz -T -") {
		t.Fatalf("command=%q", cmd)
	}
}

func TestFetchUsesSCP(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{}
	tr := NewSSHTransfer(Target{User: "asterisk", Host: "pbx"}, r)
	local, err := tr.Fetch(context.Background(), "/tmp/rca-taps-1.2.tgz", t.TempDir())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.HasSuffix(local, "rca-taps-1.2.tgz") {
		t.Fatalf("local=%q", local)
	}
	call := r.calls[0]
	if call.name != "scp" {
		t.Fatalf("name=%q", call.name)
	}
	if call.args[len(call.args)-2] != "asterisk@pbx:/tmp/rca-taps-1.2.tgz" {
		t.Fatalf("args=%v", call.args)
	}
}
