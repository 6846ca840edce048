package report

import (
	"encoding/json"
	"io"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/analysis"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/evidence"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/llm"
)

// Document is the --json form of a run.
type Document struct {
	CallID          string                   `json:"call_id"`
	Error           string                   `json:"error,omitempty"`
	WorkDir         string                   `json:"work_dir,omitempty"`
	Analysis        *analysis.Analysis       `json:"analysis,omitempty"`
	Timeline        []evidence.TimelineEvent `json:"timeline,omitempty"`
	Collected       string                   `json:"collected,omitempty"`
	Notes           []evidence.StepResult    `json:"notes,omitempty"`
	Reports         []string                 `json:"reports,omitempty"`
	Recommendations []string                 `json:"recommendations,omitempty"`
	LLMDiagnosis    *llm.Diagnosis           `json:"llm_diagnosis,omitempty"`
}

// NewDocument flattens r for JSON output.
func NewDocument(r Report) *Document {
	doc := &Document{LLMDiagnosis: r.Diagnosis}
	if a := r.Analysis; a != nil {
		doc.CallID = a.CallID
		doc.Analysis = a
		doc.Recommendations = r.Rules.Recommendations(a)
	}
	if s := r.Session; s != nil {
		doc.CallID = s.CallID
		doc.WorkDir = s.WorkDir
		doc.Timeline = s.Timeline
		doc.Notes = s.Notes
		doc.Reports = s.Reports
		if s.Remote {
			doc.Collected = s.CollectionSummary()
		}
	}
	return doc
}

// WriteJSON encodes doc with two-space indentation.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
