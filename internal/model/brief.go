// internal/model/brief.go
package model

// TargetInput carries the marketer's UI-level filter selections. Labels are
// the Korean UI vocabulary ("여"/"남", "20대", "50대+", ...); translation to
// database codes happens in the targeting builder.
type TargetInput struct {
	Gender       []string `json:"gender,omitempty"`
	AgeGroups    []string `json:"age_group,omitempty"`
	SkinTypes    []string `json:"skin_type,omitempty"`
	SkinConcerns []string `json:"skin_concern,omitempty"`
}

// Brief is the structured campaign intent. Produced once at run creation (or
// brief normalization) and read-only downstream.
type Brief struct {
	Goal         string      `json:"goal"`
	CampaignText string      `json:"campaign_text,omitempty"`
	TargetInput  TargetInput `json:"target_input,omitempty"`
	ChannelHint  string      `json:"channel_hint,omitempty"`
	ToneHint     string      `json:"tone_hint,omitempty"`
	ProductName  string      `json:"product_name,omitempty"`
	Benefit      string      `json:"benefit,omitempty"`
}

// NormalizedBrief is the structured form of a free-text campaign description.
type NormalizedBrief struct {
	NormalizedText  string   `json:"normalized_text"`
	Keywords        []string `json:"keywords"`
	Category        string   `json:"category"`
	Occasion        string   `json:"occasion"`
	FinishOrTexture []string `json:"finish_or_texture"`
	MoodOrStyle     []string `json:"mood_or_style"`
	Negative        []string `json:"negative"`
	Confidence      float64  `json:"confidence"`
	LLMError        string   `json:"llm_error,omitempty"`
}
