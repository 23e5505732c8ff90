// internal/model/message.go
package model

// RenderedMessage is the EXECUTION_RESULT handoff body: one per run, created
// at the EXECUTE stage and not mutated afterwards.
type RenderedMessage struct {
	UsedTemplateID string            `json:"used_template_id"`
	FinalMessage   string            `json:"final_message"`
	SlotValues     map[string]string `json:"slot_values"`
	RagUsedHint    string            `json:"rag_used_hint,omitempty"`
}
