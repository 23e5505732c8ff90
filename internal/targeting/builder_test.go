package targeting

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amoreworks/crm-agent-backend/internal/model"
)

// fakeIntrospector serves canned column sets per table.
type fakeIntrospector struct {
	columns map[string]map[string]struct{}
	err     error
}

func (f *fakeIntrospector) ListColumns(ctx context.Context, table string) (map[string]struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	cols, ok := f.columns[table]
	if !ok {
		return nil, errors.New("unknown table " + table)
	}
	return cols, nil
}

func colSet(names ...string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func fullSchema() *fakeIntrospector {
	return &fakeIntrospector{columns: map[string]map[string]struct{}{
		UsersTable:    colSet("user_id", "username", "gender", "birth_year"),
		FeaturesTable: colSet("user_id", "skin_type", "skin_concern_primary"),
	}}
}

func TestBuildEmptyInputYieldsEmptyFilters(t *testing.T) {
	tq := buildAt(context.Background(), model.TargetInput{}, fullSchema(), 2026)

	assert.Empty(t, tq.GenderIn)
	assert.Empty(t, tq.BirthYearRanges)
	assert.Empty(t, tq.SkinTypeIn)
	assert.Empty(t, tq.SkinConcernIn)
	// Empty slices, not nil: the payload must serialize as [].
	assert.NotNil(t, tq.GenderIn)
	assert.NotNil(t, tq.BirthYearRanges)
}

func TestBuildMapsGenderLabels(t *testing.T) {
	in := model.TargetInput{Gender: []string{"여", "남", "기타"}}

	tq := buildAt(context.Background(), in, fullSchema(), 2026)
	assert.Equal(t, []string{"F", "M"}, tq.GenderIn)
}

func TestBuildClosedAgeBand(t *testing.T) {
	in := model.TargetInput{AgeGroups: []string{"20대"}}

	tq := buildAt(context.Background(), in, fullSchema(), 2026)
	require.Len(t, tq.BirthYearRanges, 1)

	r := tq.BirthYearRanges[0]
	require.NotNil(t, r.MinYear)
	require.NotNil(t, r.MaxYear)
	assert.Equal(t, 1997, *r.MinYear)
	assert.Equal(t, 2006, *r.MaxYear)
}

func TestBuildOpenEndedAgeBand(t *testing.T) {
	in := model.TargetInput{AgeGroups: []string{"50대+"}}

	tq := buildAt(context.Background(), in, fullSchema(), 2026)
	require.Len(t, tq.BirthYearRanges, 1)

	r := tq.BirthYearRanges[0]
	assert.Nil(t, r.MinYear)
	require.NotNil(t, r.MaxYear)
	assert.Equal(t, 1976, *r.MaxYear)
}

func TestBuildSkipsUnparseableAgeBand(t *testing.T) {
	in := model.TargetInput{AgeGroups: []string{"스무살", "30대"}}

	tq := buildAt(context.Background(), in, fullSchema(), 2026)
	assert.Len(t, tq.BirthYearRanges, 1)
}

func TestBuildDetectsJoinKeysAndFeatureColumns(t *testing.T) {
	in := model.TargetInput{SkinTypes: []string{"건성"}, SkinConcerns: []string{"보습"}}

	tq := buildAt(context.Background(), in, fullSchema(), 2026)
	assert.Equal(t, "user_id", tq.JoinKeys.UsersKey)
	assert.Equal(t, "user_id", tq.JoinKeys.FeaturesKey)
	assert.Equal(t, "skin_type", tq.FeatureCols.SkinTypeCol)
	assert.Equal(t, "skin_concern_primary", tq.FeatureCols.SkinConcernCol)
	assert.Equal(t, []string{"건성"}, tq.SkinTypeIn)
	assert.Equal(t, []string{"보습"}, tq.SkinConcernIn)
}

func TestBuildJoinKeyFallbackIDToUserID(t *testing.T) {
	intro := &fakeIntrospector{columns: map[string]map[string]struct{}{
		UsersTable:    colSet("id", "gender"),
		FeaturesTable: colSet("user_id", "skin_type"),
	}}
	in := model.TargetInput{SkinTypes: []string{"지성"}}

	tq := buildAt(context.Background(), in, intro, 2026)
	assert.Equal(t, "id", tq.JoinKeys.UsersKey)
	assert.Equal(t, "user_id", tq.JoinKeys.FeaturesKey)
}

func TestBuildDropsSkinFiltersWithoutJoinKey(t *testing.T) {
	intro := &fakeIntrospector{columns: map[string]map[string]struct{}{
		UsersTable:    colSet("uid", "gender"),
		FeaturesTable: colSet("fid", "skin_type"),
	}}
	in := model.TargetInput{Gender: []string{"여"}, SkinTypes: []string{"건성"}}

	tq := buildAt(context.Background(), in, intro, 2026)
	assert.Equal(t, []string{"F"}, tq.GenderIn, "demographic filters survive")
	assert.Empty(t, tq.SkinTypeIn, "feature filters dropped without a join key")
	assert.Empty(t, tq.JoinKeys.UsersKey)
}

func TestBuildDegradesOnIntrospectionFailure(t *testing.T) {
	intro := &fakeIntrospector{err: errors.New("connection refused")}
	in := model.TargetInput{Gender: []string{"남"}, SkinTypes: []string{"건성"}}

	tq := buildAt(context.Background(), in, intro, 2026)
	assert.Equal(t, []string{"M"}, tq.GenderIn)
	assert.Empty(t, tq.SkinTypeIn)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "타겟 조건 없음", Summary(model.TargetInput{}))

	in := model.TargetInput{
		Gender:    []string{"여"},
		AgeGroups: []string{"20대", "30대"},
	}
	assert.Equal(t, "성별=여 / 나이대=20대,30대", Summary(in))
}
