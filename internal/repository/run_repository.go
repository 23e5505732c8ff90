package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/amoreworks/crm-agent-backend/internal/errors"
	"github.com/amoreworks/crm-agent-backend/internal/model"
)

type RunRepositoryInterface interface {
	Create(ctx context.Context, createdBy string, brief model.Brief, channel, tone string) (*model.CampaignRun, error)
	GetByID(ctx context.Context, runID string) (*model.CampaignRun, error)
	Update(ctx context.Context, runID string, upd RunUpdate) error
}

// RunUpdate carries the mutable run fields; nil means "leave unchanged".
type RunUpdate struct {
	Channel      *string
	StepID       *string
	CandidateID  *string
	Status       *string
	RenderedText *string
	ErrorCode    *string
	ErrorMessage *string
	SentAt       *time.Time
}

type RunRepository struct {
	DB *sql.DB
}

func (r *RunRepository) Create(ctx context.Context, createdBy string, brief model.Brief, channel, tone string) (*model.CampaignRun, error) {
	run := &model.CampaignRun{
		RunID:     uuid.NewString(),
		CreatedBy: createdBy,
		Status:    model.RunStatusCreated,
		StepID:    model.StepBrief,
		Channel:   normalizeChannel(channel),
		Tone:      strings.ToLower(strings.TrimSpace(tone)),
		Brief:     brief,
		CreatedAt: time.Now(),
	}

	briefJSON, err := json.Marshal(brief)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal brief: %w", err)
	}

	query := `
        INSERT INTO campaign_runs (run_id, created_by, status, step_id, brief_json, channel, tone, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err = r.DB.ExecContext(ctx, query,
		run.RunID, run.CreatedBy, run.Status, run.StepID, briefJSON, run.Channel, run.Tone, run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *RunRepository) GetByID(ctx context.Context, runID string) (*model.CampaignRun, error) {
	query := `
        SELECT run_id, created_by, status, step_id, brief_json, channel, tone,
               candidate_id, rendered_text, error_code, error_message, created_at, sent_at
        FROM campaign_runs WHERE run_id=$1
    `
	var run model.CampaignRun
	var briefJSON []byte
	var candidateID, renderedText, errorCode, errorMessage sql.NullString
	err := r.DB.QueryRowContext(ctx, query, runID).Scan(
		&run.RunID, &run.CreatedBy, &run.Status, &run.StepID, &briefJSON, &run.Channel, &run.Tone,
		&candidateID, &renderedText, &errorCode, &errorMessage, &run.CreatedAt, &run.SentAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewRunNotFound(runID)
		}
		return nil, err
	}

	run.CandidateID = candidateID.String
	run.RenderedText = renderedText.String
	run.ErrorCode = errorCode.String
	run.ErrorMessage = errorMessage.String

	if len(briefJSON) > 0 {
		if err := json.Unmarshal(briefJSON, &run.Brief); err != nil {
			return nil, fmt.Errorf("failed to unmarshal brief for run %s: %w", runID, err)
		}
	}
	return &run, nil
}

func (r *RunRepository) Update(ctx context.Context, runID string, upd RunUpdate) error {
	sets := []string{}
	args := []interface{}{}
	argPos := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s=$%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if upd.Channel != nil {
		add("channel", normalizeChannel(*upd.Channel))
	}
	if upd.StepID != nil {
		add("step_id", truncate(*upd.StepID, 16))
	}
	if upd.CandidateID != nil {
		add("candidate_id", truncate(*upd.CandidateID, 16))
	}
	if upd.Status != nil {
		switch *upd.Status {
		case model.RunStatusCreated, model.RunStatusSent, model.RunStatusFailed, model.RunStatusSkipped:
			add("status", *upd.Status)
		}
	}
	if upd.RenderedText != nil {
		add("rendered_text", *upd.RenderedText)
	}
	if upd.ErrorCode != nil {
		add("error_code", *upd.ErrorCode)
	}
	if upd.ErrorMessage != nil {
		add("error_message", *upd.ErrorMessage)
	}
	if upd.SentAt != nil {
		add("sent_at", *upd.SentAt)
	}

	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE campaign_runs SET %s WHERE run_id=$%d", strings.Join(sets, ", "), argPos)
	args = append(args, runID)
	_, err := r.DB.ExecContext(ctx, query, args...)
	return err
}

func normalizeChannel(channel string) string {
	c := strings.ToUpper(strings.TrimSpace(channel))
	switch c {
	case "PUSH", "SMS", "KAKAO", "EMAIL":
		return c
	}
	return "PUSH"
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

var _ RunRepositoryInterface = (*RunRepository)(nil)
