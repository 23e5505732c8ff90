// internal/model/candidate.go
package model

// Compliance statuses. FAIL dominates WARN dominates PASS.
const (
	CompliancePass = "PASS"
	ComplianceWarn = "WARN"
	ComplianceFail = "FAIL"
)

type SlotSchema struct {
	Required []string `json:"required"`
	Optional []string `json:"optional"`
}

// Candidate is one message template. Required slots must all appear as
// placeholders in Body; violations are repaired by appending, not discarded.
type Candidate struct {
	TemplateID        string            `json:"template_id"`
	Title             string            `json:"title"`
	Channel           string            `json:"channel"`
	Tone              string            `json:"tone"`
	Body              string            `json:"body_with_slots"`
	SlotSchema        SlotSchema        `json:"slot_schema"`
	DefaultSlotValues map[string]string `json:"default_slot_values,omitempty"`
	Notes             map[string]any    `json:"notes,omitempty"`
}

// CandidateBatch is the TEMPLATE_CANDIDATES handoff body.
type CandidateBatch struct {
	Candidates []Candidate `json:"candidates"`
}

type ComplianceResult struct {
	TemplateID string   `json:"template_id"`
	Status     string   `json:"status"` // PASS, WARN, FAIL
	Reasons    []string `json:"reasons"`
	FoundSlots []string `json:"found_slots"`
}

// ComplianceBatch is the COMPLIANCE handoff body.
type ComplianceBatch struct {
	Results []ComplianceResult `json:"results"`
}
