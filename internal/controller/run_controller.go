// internal/controller/run_controller.go
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/streadway/amqp"

	appErrors "github.com/amoreworks/crm-agent-backend/internal/errors"
	"github.com/amoreworks/crm-agent-backend/internal/model"
	"github.com/amoreworks/crm-agent-backend/internal/orchestrator"
	"github.com/amoreworks/crm-agent-backend/internal/repository"
	"github.com/amoreworks/crm-agent-backend/internal/targeting"
	"github.com/amoreworks/crm-agent-backend/internal/tone"
)

// Pipeline is the part of the orchestrator the HTTP layer needs.
type Pipeline interface {
	RunPipeline(ctx context.Context, runID string) error
	ResumeWithSelection(ctx context.Context, runID string) error
	RecordSelection(ctx context.Context, runID string, candidate model.Candidate, approvedBy string, override bool) error
}

// AudienceReader is the audience-store surface used for previews and UI
// option lists.
type AudienceReader interface {
	targeting.SchemaIntrospector
	Preview(ctx context.Context, tq model.TargetQuery, sampleSize int) (*model.TargetPreview, error)
	GenderOptionLabels(ctx context.Context) ([]string, error)
	AgeBandOptionLabels(ctx context.Context, thisYear int) ([]string, error)
	SkinTypeOptionLabels() []string
}

type RunController struct {
	Pipeline Pipeline
	Runs     repository.RunRepositoryInterface
	Handoffs repository.HandoffStoreInterface
	Audience AudienceReader

	// AMQPURL, when set, mirrors executed runs onto the broker for the
	// standalone delivery worker. Empty means in-process delivery only.
	AMQPURL string
}

func (c *RunController) CreateRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CreatedBy string      `json:"created_by"`
		Channel   string      `json:"channel"`
		Tone      string      `json:"tone"`
		Brief     model.Brief `json:"brief"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Brief.Goal == "" {
		http.Error(w, "brief.goal is required", http.StatusBadRequest)
		return
	}

	run, err := c.Runs.Create(r.Context(), body.CreatedBy, body.Brief, body.Channel, body.Tone)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := c.Handoffs.Append(r.Context(), run.RunID, model.StageBrief, body.Brief); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Println("🆕 Run created:", run.RunID)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(run)
}

// AdvanceRun drives the pipeline until it pauses for selection (or, when a
// selection is already stored, through execution).
func (c *RunController) AdvanceRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	if err := c.Pipeline.RunPipeline(r.Context(), runID); err != nil {
		writeRunError(w, err)
		return
	}

	run, err := c.Runs.GetByID(r.Context(), runID)
	if err != nil {
		writeRunError(w, err)
		return
	}
	json.NewEncoder(w).Encode(run)
}

func (c *RunController) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	run, err := c.Runs.GetByID(r.Context(), runID)
	if err != nil {
		writeRunError(w, err)
		return
	}
	json.NewEncoder(w).Encode(run)
}

func (c *RunController) ListHandoffs(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	handoffs, err := c.Handoffs.ListAll(r.Context(), runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":   runID,
		"handoffs": handoffs,
	})
}

// SelectTemplate records the marketer's choice and resumes the run through
// execution. The executed run is also mirrored to the broker when one is
// configured.
func (c *RunController) SelectTemplate(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	var body struct {
		Candidate  model.Candidate `json:"candidate"`
		ApprovedBy string          `json:"approved_by"`
		Override   bool            `json:"override"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Candidate.TemplateID == "" || body.Candidate.Body == "" {
		http.Error(w, "candidate template_id and body_with_slots are required", http.StatusBadRequest)
		return
	}

	if err := c.Pipeline.RecordSelection(r.Context(), runID, body.Candidate, body.ApprovedBy, body.Override); err != nil {
		writeRunError(w, err)
		return
	}
	if err := c.Pipeline.ResumeWithSelection(r.Context(), runID); err != nil {
		writeRunError(w, err)
		return
	}

	if c.AMQPURL != "" {
		c.publishToBroker(runID)
	}

	run, err := c.Runs.GetByID(r.Context(), runID)
	if err != nil {
		writeRunError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":        run.RunID,
		"status":        run.Status,
		"step_id":       run.StepID,
		"candidate_id":  run.CandidateID,
		"rendered_text": run.RenderedText,
	})
}

func (c *RunController) PreviewTarget(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetInput model.TargetInput `json:"target_input"`
		SampleSize  int               `json:"sample_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	tq := targeting.Build(r.Context(), body.TargetInput, c.Audience)
	preview, err := c.Audience.Preview(r.Context(), tq, body.SampleSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"target_query": tq,
		"summary":      targeting.Summary(body.TargetInput),
		"preview":      preview,
	})
}

// TargetOptions returns the selectable filter labels for the targeting UI.
func (c *RunController) TargetOptions(w http.ResponseWriter, r *http.Request) {
	genders, err := c.Audience.GenderOptionLabels(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ageBands, err := c.Audience.AgeBandOptionLabels(r.Context(), time.Now().Year())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"gender":     genders,
		"age_group":  ageBands,
		"skin_type":  c.Audience.SkinTypeOptionLabels(),
		"tone":       toneOptions(),
		"channel":    []string{"PUSH", "SMS", "KAKAO", "EMAIL"},
		"queried_at": time.Now().Format(time.RFC3339),
	})
}

// publishToBroker mirrors the executed run to RabbitMQ for the standalone
// worker. Broker trouble is logged, not surfaced, since the in-process
// subscriber already handles delivery.
func (c *RunController) publishToBroker(runID string) {
	conn, err := amqp.Dial(c.AMQPURL)
	if err != nil {
		log.Println("⚠️ Failed to connect to queue:", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Println("⚠️ Failed to open queue channel:", err)
		return
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"campaign_sends",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Println("⚠️ Failed to declare queue:", err)
		return
	}

	payload, _ := json.Marshal(map[string]string{"run_id": runID})
	err = ch.Publish(
		"",
		q.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
		},
	)
	if err != nil {
		log.Println("⚠️ Failed to publish run to broker:", err)
	}
}

func writeRunError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrRunNotFound
	switch {
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, appErrors.ErrSelectionBlocked):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, appErrors.ErrNoSelectedTemplate):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toneOptions() []string {
	return tone.ListToneIDs()
}

var _ Pipeline = (*orchestrator.Orchestrator)(nil)
var _ AudienceReader = (*repository.AudienceRepository)(nil)
