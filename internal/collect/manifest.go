package collect

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
)

// ManifestFile is written at the root of every run directory.
const ManifestFile = "manifest.yaml"

type manifest struct {
	RunID     string                   `yaml:"run_id"`
	CallID    string                   `yaml:"call_id"`
	CreatedAt time.Time                `yaml:"created_at"`
	Remote    bool                     `yaml:"remote"`
	LogLines  int                      `yaml:"log_lines"`
	Collected string                   `yaml:"collected"`
	Artifacts []evidence.Artifact      `yaml:"artifacts,omitempty"`
	Reports   []string                 `yaml:"reports,omitempty"`
	Timeline  []evidence.TimelineEvent `yaml:"timeline,omitempty"`
	Notes     []evidence.StepResult    `yaml:"notes,omitempty"`
}

// WriteManifest summarises s into WorkDir/manifest.yaml.
func WriteManifest(s *evidence.Session) error {
	m := manifest{
		RunID:     s.RunID,
		CallID:    s.CallID,
		CreatedAt: s.CreatedAt,
		Remote:    s.Remote,
		LogLines:  len(s.Logs),
		Collected: s.CollectionSummary(),
		Artifacts: s.Artifacts,
		Reports:   s.Reports,
		Timeline:  s.Timeline,
		Notes:     s.Notes,
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.WorkDir, ManifestFile), data, 0o644)
}
