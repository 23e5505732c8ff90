// internal/model/target.go
package model

// BirthYearRange bounds are inclusive; a nil bound is open. The open-ended
// top age band ("50대+") has a nil MinYear.
type BirthYearRange struct {
	MinYear *int `json:"min_year"`
	MaxYear *int `json:"max_year"`
}

// JoinKeys is the detected column pair joining the audience table to its
// feature table. Empty strings mean no join key could be determined.
type JoinKeys struct {
	UsersKey    string `json:"users_key,omitempty"`
	FeaturesKey string `json:"features_key,omitempty"`
}

// FeatureColumns holds detected feature-table column names. Empty string
// means the column does not exist and the corresponding filter was dropped.
type FeatureColumns struct {
	SkinTypeCol    string `json:"skin_type_col,omitempty"`
	SkinConcernCol string `json:"skin_concern_col,omitempty"`
}

// TargetQuery is the portable, schema-detected filter description. Every
// field defaults to "no filter" (empty slice) rather than nil semantics: an
// empty TargetQuery matches all rows.
type TargetQuery struct {
	GenderIn        []string         `json:"gender_in"`
	BirthYearRanges []BirthYearRange `json:"birth_year_ranges"`
	SkinTypeIn      []string         `json:"skin_type_in"`
	SkinConcernIn   []string         `json:"skin_concern_in"`
	JoinKeys        JoinKeys         `json:"join_keys"`
	FeatureCols     FeatureColumns   `json:"feature_cols"`
}

// TargetPayload is the TARGET handoff body.
type TargetPayload struct {
	TargetQuery TargetQuery `json:"target_query"`
	Summary     string      `json:"summary"`
	Channel     string      `json:"channel"`
	Tone        string      `json:"tone"`
}

// TargetPreview is the count/sample result of a preview query. Sample rows
// keep dynamic columns since the audience schema is discovered at runtime.
type TargetPreview struct {
	Count  int              `json:"count"`
	Sample []map[string]any `json:"sample"`
}
