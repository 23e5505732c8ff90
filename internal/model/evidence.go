// internal/model/evidence.go
package model

// Match is one scored result from the similarity-search collaborator. The
// metadata map is opaque; the ingestion side is expected to fill source,
// section, chunk_id and text.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// Evidence is a curated, size-bounded excerpt kept in the RAG handoff so the
// grounding of generated templates stays auditable.
type Evidence struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
	Section string  `json:"section"`
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
}

// RagPayload is the RAG handoff body.
type RagPayload struct {
	Query         string      `json:"query"`
	TopK          int         `json:"top_k"`
	Channel       string      `json:"channel"`
	Tone          string      `json:"tone"`
	Goal          string      `json:"goal"`
	TargetQuery   TargetQuery `json:"target_query"`
	TargetSummary string      `json:"target_summary"`
	Evidence      []Evidence  `json:"evidence"`
	Context       string      `json:"context"`
}
