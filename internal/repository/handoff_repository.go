package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amoreworks/crm-agent-backend/internal/model"
)

// HandoffStoreInterface is the append-only, per-run, per-stage payload store.
// Nothing here mutates or removes a payload; corrections are new handoffs.
type HandoffStoreInterface interface {
	Append(ctx context.Context, runID, stage string, payload any) (string, error)
	// Latest returns nil when no handoff exists for (runID, stage).
	Latest(ctx context.Context, runID, stage string) (*model.Handoff, error)
	ListAll(ctx context.Context, runID string) ([]model.Handoff, error)
}

type HandoffStore struct {
	DB *sql.DB
}

func (s *HandoffStore) Append(ctx context.Context, runID, stage string, payload any) (string, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", stage, err)
	}

	handoffID := uuid.NewString()
	query := `
        INSERT INTO handoffs (handoff_id, run_id, stage, payload_json, payload_version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err = s.DB.ExecContext(ctx, query, handoffID, runID, stage, payloadJSON, 1, time.Now())
	if err != nil {
		return "", err
	}
	return handoffID, nil
}

// Latest is last-write-by-time; the id tiebreak keeps equal timestamps
// deterministic within one store.
func (s *HandoffStore) Latest(ctx context.Context, runID, stage string) (*model.Handoff, error) {
	query := `
        SELECT handoff_id, run_id, stage, payload_json, payload_version, created_at
        FROM handoffs
        WHERE run_id=$1 AND stage=$2
        ORDER BY created_at DESC, handoff_id DESC
        LIMIT 1
    `
	var h model.Handoff
	err := s.DB.QueryRowContext(ctx, query, runID, stage).Scan(
		&h.HandoffID, &h.RunID, &h.Stage, &h.Payload, &h.PayloadVersion, &h.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

func (s *HandoffStore) ListAll(ctx context.Context, runID string) ([]model.Handoff, error) {
	query := `
        SELECT handoff_id, run_id, stage, payload_json, payload_version, created_at
        FROM handoffs
        WHERE run_id=$1
        ORDER BY created_at ASC, handoff_id ASC
    `
	rows, err := s.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	handoffs := []model.Handoff{}
	for rows.Next() {
		var h model.Handoff
		if err := rows.Scan(&h.HandoffID, &h.RunID, &h.Stage, &h.Payload, &h.PayloadVersion, &h.CreatedAt); err != nil {
			return nil, err
		}
		handoffs = append(handoffs, h)
	}
	return handoffs, rows.Err()
}

var _ HandoffStoreInterface = (*HandoffStore)(nil)
