package repository

import (
	"strings"
	"testing"

	"github.com/amoreworks/crm-agent-backend/internal/model"
)

func ucols(names ...string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func intPtr(v int) *int { return &v }

func TestBuildPreviewSQLEmptyFiltersMatchAll(t *testing.T) {
	q := buildPreviewSQL(model.TargetQuery{}, ucols("user_id", "gender", "birth_year"), "user_id", 5)

	if strings.Contains(q.countSQL, "WHERE") {
		t.Errorf("no filters means no WHERE: %s", q.countSQL)
	}
	if len(q.args) != 0 {
		t.Errorf("expected no args, got %v", q.args)
	}
	if !strings.Contains(q.sampleSQL, "ORDER BY u.user_id LIMIT 5") {
		t.Errorf("sample must be ordered and bounded: %s", q.sampleSQL)
	}
}

func TestBuildPreviewSQLGenderAndBirthYear(t *testing.T) {
	tq := model.TargetQuery{
		GenderIn: []string{"F", "M"},
		BirthYearRanges: []model.BirthYearRange{
			{MinYear: intPtr(1997), MaxYear: intPtr(2006)},
			{MaxYear: intPtr(1976)},
		},
	}
	q := buildPreviewSQL(tq, ucols("user_id", "gender", "birth_year"), "user_id", 5)

	if !strings.Contains(q.countSQL, "u.gender IN ($1, $2)") {
		t.Errorf("gender clause wrong: %s", q.countSQL)
	}
	if !strings.Contains(q.countSQL, "(u.birth_year BETWEEN $3 AND $4)") {
		t.Errorf("closed range clause wrong: %s", q.countSQL)
	}
	if !strings.Contains(q.countSQL, "(u.birth_year <= $5)") {
		t.Errorf("open range clause wrong: %s", q.countSQL)
	}
	if !strings.Contains(q.countSQL, " OR ") {
		t.Errorf("multiple ranges must OR together: %s", q.countSQL)
	}

	want := []interface{}{"F", "M", 1997, 2006, 1976}
	if len(q.args) != len(want) {
		t.Fatalf("expected %d args, got %v", len(want), q.args)
	}
	for i := range want {
		if q.args[i] != want[i] {
			t.Errorf("arg %d: expected %v, got %v", i, want[i], q.args[i])
		}
	}
}

func TestBuildPreviewSQLSkipsUndetectedColumns(t *testing.T) {
	// gender filter requested but the users table has no gender column
	tq := model.TargetQuery{GenderIn: []string{"F"}}
	q := buildPreviewSQL(tq, ucols("user_id", "birth_year"), "user_id", 5)

	if strings.Contains(q.countSQL, "gender") {
		t.Errorf("undetected column must not be referenced: %s", q.countSQL)
	}
	if len(q.args) != 0 {
		t.Errorf("expected no args, got %v", q.args)
	}
}

func TestBuildPreviewSQLFeatureJoin(t *testing.T) {
	tq := model.TargetQuery{
		SkinTypeIn:  []string{"건성"},
		JoinKeys:    model.JoinKeys{UsersKey: "user_id", FeaturesKey: "user_id"},
		FeatureCols: model.FeatureColumns{SkinTypeCol: "skin_type"},
	}
	q := buildPreviewSQL(tq, ucols("user_id", "gender"), "user_id", 3)

	if !strings.Contains(q.countSQL, "JOIN user_features uf ON uf.user_id = u.user_id") {
		t.Errorf("feature join missing: %s", q.countSQL)
	}
	if !strings.Contains(q.countSQL, "uf.skin_type IN ($1)") {
		t.Errorf("skin type clause wrong: %s", q.countSQL)
	}
	if !strings.Contains(q.sampleSQL, "uf.skin_type AS skin_type") {
		t.Errorf("sample should surface the feature column: %s", q.sampleSQL)
	}
}

func TestBuildPreviewSQLNoJoinWithoutUsableFeatureFilter(t *testing.T) {
	// Join keys exist but no feature filter is usable: no join emitted.
	tq := model.TargetQuery{
		GenderIn: []string{"F"},
		JoinKeys: model.JoinKeys{UsersKey: "user_id", FeaturesKey: "user_id"},
	}
	q := buildPreviewSQL(tq, ucols("user_id", "gender"), "user_id", 5)

	if strings.Contains(q.countSQL, "JOIN") {
		t.Errorf("unnecessary join: %s", q.countSQL)
	}
}

func TestDetectUserKeyFallbacks(t *testing.T) {
	tq := model.TargetQuery{JoinKeys: model.JoinKeys{UsersKey: "user_id"}}
	if got := detectUserKey(tq, ucols("whatever")); got != "user_id" {
		t.Errorf("detected join key must win, got %s", got)
	}

	if got := detectUserKey(model.TargetQuery{}, ucols("id", "username")); got != "id" {
		t.Errorf("expected id fallback, got %s", got)
	}
	if got := detectUserKey(model.TargetQuery{}, ucols("username")); got != "username" {
		t.Errorf("expected username fallback, got %s", got)
	}
	if got := detectUserKey(model.TargetQuery{}, ucols("email")); got != "" {
		t.Errorf("expected no key, got %s", got)
	}
}
