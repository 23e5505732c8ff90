package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/amoreworks/crm-agent-backend/internal/model"
	"github.com/amoreworks/crm-agent-backend/internal/targeting"
)

// AudienceRepository reads the audience tables whose exact columns are only
// known at runtime. It implements targeting.SchemaIntrospector; filter
// identifiers are never taken from user input, only from the fixed candidate
// lists the builder detects against.
type AudienceRepository struct {
	DB *sql.DB
}

// ListColumns introspects a table through information_schema.
func (r *AudienceRepository) ListColumns(ctx context.Context, table string) (map[string]struct{}, error) {
	query := `
        SELECT column_name
        FROM information_schema.columns
        WHERE table_schema='public' AND table_name=$1
    `
	rows, err := r.DB.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s has no columns (missing?)", table)
	}
	return cols, nil
}

// Preview issues the count and bounded sample queries for a resolved
// TargetQuery. Sample rows are ordered by the stable user key so repeated
// previews over identical data are reproducible. Empty filters return the
// whole table.
func (r *AudienceRepository) Preview(ctx context.Context, tq model.TargetQuery, sampleSize int) (*model.TargetPreview, error) {
	ucols, err := r.ListColumns(ctx, targeting.UsersTable)
	if err != nil {
		return nil, fmt.Errorf("users introspection failed: %w", err)
	}

	userKey := detectUserKey(tq, ucols)
	if userKey == "" {
		return nil, fmt.Errorf("no usable key column on %s", targeting.UsersTable)
	}

	if sampleSize < 1 {
		sampleSize = 5
	}
	q := buildPreviewSQL(tq, ucols, userKey, sampleSize)

	var count int
	if err := r.DB.QueryRowContext(ctx, q.countSQL, q.args...).Scan(&count); err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, q.sampleSQL, q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	sample := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := map[string]any{}
		for i, name := range colNames {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		sample = append(sample, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &model.TargetPreview{Count: count, Sample: sample}, nil
}

func detectUserKey(tq model.TargetQuery, ucols map[string]struct{}) string {
	if tq.JoinKeys.UsersKey != "" {
		return tq.JoinKeys.UsersKey
	}
	for _, cand := range []string{"user_id", "id", "username"} {
		if _, ok := ucols[cand]; ok {
			return cand
		}
	}
	return ""
}

type previewSQL struct {
	countSQL  string
	sampleSQL string
	args      []interface{}
}

// buildPreviewSQL assembles the dynamic WHERE/JOIN for a TargetQuery. Only
// filters whose columns were detected survive; the feature join is added
// solely when a feature filter is actually usable.
func buildPreviewSQL(tq model.TargetQuery, ucols map[string]struct{}, userKey string, sampleSize int) previewSQL {
	where := []string{}
	args := []interface{}{}
	argPos := 1

	placeholders := func(n int) string {
		ps := make([]string, n)
		for i := 0; i < n; i++ {
			ps[i] = fmt.Sprintf("$%d", argPos)
			argPos++
		}
		return strings.Join(ps, ", ")
	}

	if _, ok := ucols["gender"]; ok && len(tq.GenderIn) > 0 {
		clause := fmt.Sprintf("u.gender IN (%s)", placeholders(len(tq.GenderIn)))
		for _, g := range tq.GenderIn {
			args = append(args, g)
		}
		where = append(where, clause)
	}

	if _, ok := ucols["birth_year"]; ok && len(tq.BirthYearRanges) > 0 {
		ors := []string{}
		for _, r := range tq.BirthYearRanges {
			switch {
			case r.MinYear == nil && r.MaxYear != nil:
				ors = append(ors, fmt.Sprintf("(u.birth_year <= $%d)", argPos))
				args = append(args, *r.MaxYear)
				argPos++
			case r.MinYear != nil && r.MaxYear != nil:
				ors = append(ors, fmt.Sprintf("(u.birth_year BETWEEN $%d AND $%d)", argPos, argPos+1))
				args = append(args, *r.MinYear, *r.MaxYear)
				argPos += 2
			}
		}
		if len(ors) > 0 {
			where = append(where, "("+strings.Join(ors, " OR ")+")")
		}
	}

	skinTypeUsable := len(tq.SkinTypeIn) > 0 && tq.FeatureCols.SkinTypeCol != ""
	concernUsable := len(tq.SkinConcernIn) > 0 && tq.FeatureCols.SkinConcernCol != ""
	canJoin := tq.JoinKeys.UsersKey != "" && tq.JoinKeys.FeaturesKey != ""

	joinSQL := ""
	if canJoin && (skinTypeUsable || concernUsable) {
		joinSQL = fmt.Sprintf(" JOIN %s uf ON uf.%s = u.%s",
			targeting.FeaturesTable, tq.JoinKeys.FeaturesKey, tq.JoinKeys.UsersKey)

		if skinTypeUsable {
			clause := fmt.Sprintf("uf.%s IN (%s)", tq.FeatureCols.SkinTypeCol, placeholders(len(tq.SkinTypeIn)))
			for _, v := range tq.SkinTypeIn {
				args = append(args, v)
			}
			where = append(where, clause)
		}
		if concernUsable {
			clause := fmt.Sprintf("uf.%s IN (%s)", tq.FeatureCols.SkinConcernCol, placeholders(len(tq.SkinConcernIn)))
			for _, v := range tq.SkinConcernIn {
				args = append(args, v)
			}
			where = append(where, clause)
		}
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	fields := []string{fmt.Sprintf("u.%s AS user_key", userKey)}
	if _, ok := ucols["gender"]; ok {
		fields = append(fields, "u.gender")
	}
	if _, ok := ucols["birth_year"]; ok {
		fields = append(fields, "u.birth_year")
	}
	if joinSQL != "" {
		if skinTypeUsable {
			fields = append(fields, fmt.Sprintf("uf.%s AS skin_type", tq.FeatureCols.SkinTypeCol))
		}
		if concernUsable {
			fields = append(fields, fmt.Sprintf("uf.%s AS skin_concern", tq.FeatureCols.SkinConcernCol))
		}
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s u%s%s", targeting.UsersTable, joinSQL, whereSQL)
	sampleSQL := fmt.Sprintf("SELECT %s FROM %s u%s%s ORDER BY u.%s LIMIT %d",
		strings.Join(fields, ", "), targeting.UsersTable, joinSQL, whereSQL, userKey, sampleSize)

	return previewSQL{countSQL: countSQL, sampleSQL: sampleSQL, args: args}
}

// ====================== UI option labels ======================

// GenderOptionLabels maps distinct stored codes back to UI labels.
func (r *AudienceRepository) GenderOptionLabels(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT gender FROM users WHERE gender IS NOT NULL AND gender <> ''`)
	if err != nil {
		return []string{"여", "남"}, nil
	}
	defer rows.Close()

	mapping := map[string]string{"F": "여", "M": "남"}
	labels := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			continue
		}
		if label, ok := mapping[g]; ok {
			labels = append(labels, label)
		}
	}
	if len(labels) == 0 {
		return []string{"여", "남"}, nil
	}
	return labels, nil
}

// AgeBandOptionLabels derives the offered bands from the stored birth-year
// spread, falling back to a fixed set.
func (r *AudienceRepository) AgeBandOptionLabels(ctx context.Context, thisYear int) ([]string, error) {
	fallback := []string{"10대", "20대", "30대", "40대", "50대+"}

	var minBirth, maxBirth sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		`SELECT MIN(birth_year), MAX(birth_year) FROM users WHERE birth_year IS NOT NULL`,
	).Scan(&minBirth, &maxBirth)
	if err != nil || !minBirth.Valid || !maxBirth.Valid {
		return fallback, nil
	}

	minAge := thisYear - int(maxBirth.Int64)
	maxAge := thisYear - int(minBirth.Int64)

	labels := []string{}
	for d := (minAge / 10) * 10; d <= (maxAge/10)*10; d += 10 {
		if d < 10 {
			continue
		}
		if d >= 60 {
			labels = append(labels, "60대+")
			break
		}
		labels = append(labels, fmt.Sprintf("%d대", d))
	}
	if len(labels) == 0 {
		return fallback, nil
	}
	if len(labels) > 7 {
		labels = labels[:7]
	}
	return labels, nil
}

// SkinTypeOptionLabels is fixed UI vocabulary; stored values are detected
// per schema at build time.
func (r *AudienceRepository) SkinTypeOptionLabels() []string {
	return []string{"건성", "지성", "복합성", "중성"}
}

var _ targeting.SchemaIntrospector = (*AudienceRepository)(nil)
