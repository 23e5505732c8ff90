// Package targeting translates UI-level filter selections into a portable
// TargetQuery. The audience schema is not known at build time: every column
// use is preceded by introspection, and any introspection gap shrinks the
// filter set instead of failing the build.
package targeting

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amoreworks/crm-agent-backend/internal/model"
)

// Logical table names of the audience store.
const (
	UsersTable    = "users"
	FeaturesTable = "user_features"
)

// SchemaIntrospector is the capability injected into Build. Implementations
// live with the relational store.
type SchemaIntrospector interface {
	ListColumns(ctx context.Context, table string) (map[string]struct{}, error)
}

var genderDB = map[string]string{"여": "F", "남": "M"}

var (
	joinKeyCandidates        = []string{"user_id", "id", "username"}
	skinTypeColCandidates    = []string{"skin_type", "skin_type_primary"}
	skinConcernColCandidates = []string{"skin_concern", "skin_concern_primary"}
)

// Build never fails: missing tables, join keys or feature columns degrade
// the resulting filter set. An empty input yields an empty TargetQuery,
// which matches all rows.
func Build(ctx context.Context, in model.TargetInput, intro SchemaIntrospector) model.TargetQuery {
	return buildAt(ctx, in, intro, time.Now().Year())
}

func buildAt(ctx context.Context, in model.TargetInput, intro SchemaIntrospector, thisYear int) model.TargetQuery {
	tq := model.TargetQuery{
		GenderIn:        []string{},
		BirthYearRanges: []model.BirthYearRange{},
		SkinTypeIn:      []string{},
		SkinConcernIn:   []string{},
	}

	for _, g := range in.Gender {
		if code, ok := genderDB[g]; ok {
			tq.GenderIn = append(tq.GenderIn, code)
		}
	}

	for _, band := range in.AgeGroups {
		if r, ok := ageGroupToBirthRange(band, thisYear); ok {
			tq.BirthYearRanges = append(tq.BirthYearRanges, r)
		}
	}

	// Feature filters only survive when the feature table is introspectable
	// and a join key exists.
	ucols, uerr := intro.ListColumns(ctx, UsersTable)
	fcols, ferr := intro.ListColumns(ctx, FeaturesTable)
	if uerr != nil || ferr != nil {
		return tq
	}

	usersKey, featuresKey := detectJoinKeys(ucols, fcols)
	if usersKey == "" || featuresKey == "" {
		return tq
	}
	tq.JoinKeys = model.JoinKeys{UsersKey: usersKey, FeaturesKey: featuresKey}

	if col := firstPresent(fcols, skinTypeColCandidates); col != "" {
		tq.FeatureCols.SkinTypeCol = col
		tq.SkinTypeIn = append(tq.SkinTypeIn, in.SkinTypes...)
	}
	if col := firstPresent(fcols, skinConcernColCandidates); col != "" {
		tq.FeatureCols.SkinConcernCol = col
		tq.SkinConcernIn = append(tq.SkinConcernIn, in.SkinConcerns...)
	}

	return tq
}

// ageGroupToBirthRange maps "B대" to ages [B, B+9] and the open-ended "B대+"
// to "age >= B". Age is approximated as thisYear - birthYear; birthday-level
// precision is deliberately out of scope.
func ageGroupToBirthRange(band string, thisYear int) (model.BirthYearRange, bool) {
	band = strings.TrimSpace(band)

	if base, ok := parseBand(band, "대+"); ok {
		maxBirth := thisYear - base
		return model.BirthYearRange{MaxYear: &maxBirth}, true
	}
	if base, ok := parseBand(band, "대"); ok {
		minBirth := thisYear - (base + 9)
		maxBirth := thisYear - base
		return model.BirthYearRange{MinYear: &minBirth, MaxYear: &maxBirth}, true
	}
	return model.BirthYearRange{}, false
}

func parseBand(band, suffix string) (int, bool) {
	if !strings.HasSuffix(band, suffix) {
		return 0, false
	}
	base, err := strconv.Atoi(strings.TrimSuffix(band, suffix))
	if err != nil || base < 0 {
		return 0, false
	}
	return base, true
}

// detectJoinKeys tries the canonical pairs in priority order, then falls
// back to the name intersection.
func detectJoinKeys(ucols, fcols map[string]struct{}) (string, string) {
	if has(ucols, "user_id") && has(fcols, "user_id") {
		return "user_id", "user_id"
	}
	if has(ucols, "id") && has(fcols, "user_id") {
		return "id", "user_id"
	}
	if has(ucols, "id") && has(fcols, "id") {
		return "id", "id"
	}
	for _, cand := range joinKeyCandidates {
		if has(ucols, cand) && has(fcols, cand) {
			return cand, cand
		}
	}
	return "", ""
}

// Summary renders the marketer-facing description of the raw selections.
func Summary(in model.TargetInput) string {
	parts := []string{}
	if len(in.Gender) > 0 {
		parts = append(parts, fmt.Sprintf("성별=%s", strings.Join(in.Gender, ",")))
	}
	if len(in.AgeGroups) > 0 {
		parts = append(parts, fmt.Sprintf("나이대=%s", strings.Join(in.AgeGroups, ",")))
	}
	if len(in.SkinTypes) > 0 {
		parts = append(parts, fmt.Sprintf("피부타입=%s", strings.Join(in.SkinTypes, ",")))
	}
	if len(in.SkinConcerns) > 0 {
		parts = append(parts, fmt.Sprintf("피부고민=%s", strings.Join(in.SkinConcerns, ",")))
	}
	if len(parts) == 0 {
		return "타겟 조건 없음"
	}
	return strings.Join(parts, " / ")
}

func has(set map[string]struct{}, name string) bool {
	_, ok := set[name]
	return ok
}

func firstPresent(set map[string]struct{}, candidates []string) string {
	for _, c := range candidates {
		if has(set, c) {
			return c
		}
	}
	return ""
}
