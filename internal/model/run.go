// internal/model/run.go
package model

import "time"

// Run statuses
const (
	RunStatusCreated = "CREATED"
	RunStatusSent    = "SENT"
	RunStatusFailed  = "FAILED"
	RunStatusSkipped = "SKIPPED"
)

// Step markers, advanced by the orchestrator at stage boundaries
const (
	StepBrief      = "S1_BRIEF"
	StepTarget     = "S2_TARGET"
	StepRag        = "S3_RAG"
	StepCandidates = "S4_CANDS"
	StepCompliance = "S5_COMP"
	StepExecute    = "S6_EXEC"
)

type CampaignRun struct {
	RunID        string     `db:"run_id" json:"run_id"`
	CreatedBy    string     `db:"created_by" json:"created_by"`
	Status       string     `db:"status" json:"status"` // CREATED, SENT, FAILED, SKIPPED
	StepID       string     `db:"step_id" json:"step_id"`
	Channel      string     `db:"channel" json:"channel"`
	Tone         string     `db:"tone" json:"tone"`
	CandidateID  string     `db:"candidate_id" json:"candidate_id,omitempty"`
	RenderedText string     `db:"rendered_text" json:"rendered_text,omitempty"`
	ErrorCode    string     `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	Brief        Brief      `db:"brief_json" json:"brief"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}
