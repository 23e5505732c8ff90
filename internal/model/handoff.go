// internal/model/handoff.go
package model

import (
	"encoding/json"
	"time"
)

// Stage names form a closed enumeration. A handoff is never mutated or
// deleted after creation; corrections are new handoffs.
const (
	StageBrief              = "BRIEF"
	StageTarget             = "TARGET"
	StageRag                = "RAG"
	StageTemplateCandidates = "TEMPLATE_CANDIDATES"
	StageCompliance         = "COMPLIANCE"
	StageSelectedTemplate   = "SELECTED_TEMPLATE"
	StageExecutionResult    = "EXECUTION_RESULT"
	StageApproval           = "APPROVAL"
)

type Handoff struct {
	HandoffID      string          `db:"handoff_id" json:"handoff_id"`
	RunID          string          `db:"run_id" json:"run_id"`
	Stage          string          `db:"stage" json:"stage"`
	Payload        json.RawMessage `db:"payload_json" json:"payload_json"`
	PayloadVersion int             `db:"payload_version" json:"payload_version"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Approval is the payload shape of an APPROVAL handoff.
type Approval struct {
	MarketerID string `json:"marketer_id"`
	Decision   string `json:"decision"`
	Comment    string `json:"comment,omitempty"`
	CreatedAt  string `json:"created_at"`
}
