// Package orchestrator drives a campaign run through its stages:
// brief -> target -> rag -> candidates -> compliance, then pauses for the
// marketer's selection, and on resume renders and enqueues the final
// message. Every stage output is persisted as an append-only handoff before
// the run advances, so a crashed or paused run can always be resumed from
// the store alone.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/amoreworks/crm-agent-backend/internal/compliance"
	appErrors "github.com/amoreworks/crm-agent-backend/internal/errors"
	"github.com/amoreworks/crm-agent-backend/internal/generator"
	"github.com/amoreworks/crm-agent-backend/internal/model"
	"github.com/amoreworks/crm-agent-backend/internal/renderer"
	"github.com/amoreworks/crm-agent-backend/internal/repository"
	"github.com/amoreworks/crm-agent-backend/internal/retrieval"
	"github.com/amoreworks/crm-agent-backend/internal/targeting"
)

const (
	ragTopK       = 10
	candidateK    = 4
	sendTopic     = "campaign_sends"
	defaultToneID = "amoremall"
)

// Publisher is the outbound side of the delivery queue. A nil Publisher
// means rendering finishes the run without enqueueing a send.
type Publisher interface {
	Publish(topic string, payload any) error
}

type Orchestrator struct {
	Runs         repository.RunRepositoryInterface
	Handoffs     repository.HandoffStoreInterface
	Introspector targeting.SchemaIntrospector
	Searcher     retrieval.Searcher
	Generator    *generator.Generator
	Queue        Publisher

	// BlockFailedSelection rejects selecting a FAILed candidate unless the
	// marketer overrides explicitly.
	BlockFailedSelection bool
}

// pipelineState is the in-flight view of one run. Everything in it can be
// rebuilt from the run row plus the latest handoffs.
type pipelineState struct {
	run        *model.CampaignRun
	brief      model.Brief
	channel    string
	tone       string
	ragContext string
}

// RunPipeline advances a run from its brief up to the selection pause, or
// through EXECUTE when a selection already exists. Stage errors mark the run
// FAILED with an error code and are returned to the caller.
func (o *Orchestrator) RunPipeline(ctx context.Context, runID string) error {
	st, err := o.loadBrief(ctx, runID)
	if err != nil {
		return err
	}

	if err := o.target(ctx, st); err != nil {
		return o.fail(ctx, runID, "TARGET_FAILED", err)
	}
	if err := o.rag(ctx, st); err != nil {
		return o.fail(ctx, runID, "RAG_FAILED", err)
	}
	if err := o.candidates(ctx, st); err != nil {
		return o.fail(ctx, runID, "CANDIDATES_FAILED", err)
	}
	if err := o.checkCompliance(ctx, st); err != nil {
		return o.fail(ctx, runID, "COMPLIANCE_FAILED", err)
	}

	selected, err := o.latestSelection(ctx, runID)
	if err != nil {
		return o.fail(ctx, runID, "SELECTION_LOOKUP_FAILED", err)
	}
	if selected == nil {
		log.Println("⏸️ Run paused for template selection:", runID)
		return nil
	}
	if err := o.execute(ctx, st, *selected); err != nil {
		return o.fail(ctx, runID, "EXECUTE_FAILED", err)
	}
	return nil
}

// ResumeWithSelection re-hydrates a paused run from the store and runs only
// the EXECUTE stage. Missing selection is fatal here, unlike RunPipeline
// where it is the pause condition.
func (o *Orchestrator) ResumeWithSelection(ctx context.Context, runID string) error {
	st, err := o.loadBrief(ctx, runID)
	if err != nil {
		return err
	}

	if rag, err := o.Handoffs.Latest(ctx, runID, model.StageRag); err == nil && rag != nil {
		var payload model.RagPayload
		if json.Unmarshal(rag.Payload, &payload) == nil {
			st.ragContext = payload.Context
		}
	}

	selected, err := o.latestSelection(ctx, runID)
	if err != nil {
		return o.fail(ctx, runID, "SELECTION_LOOKUP_FAILED", err)
	}
	if selected == nil {
		return o.fail(ctx, runID, "NO_SELECTED_TEMPLATE", appErrors.ErrNoSelectedTemplate)
	}
	if err := o.execute(ctx, st, *selected); err != nil {
		return o.fail(ctx, runID, "EXECUTE_FAILED", err)
	}
	return nil
}

// RecordSelection persists the marketer's choice as a SELECTED_TEMPLATE
// handoff. A FAILed candidate is rejected unless override is set; overrides
// and attributed approvals additionally leave an APPROVAL handoff.
func (o *Orchestrator) RecordSelection(ctx context.Context, runID string, candidate model.Candidate, approvedBy string, override bool) error {
	if _, err := o.Runs.GetByID(ctx, runID); err != nil {
		return err
	}

	status, err := o.complianceStatus(ctx, runID, candidate.TemplateID)
	if err != nil {
		return err
	}
	if status == model.ComplianceFail && o.BlockFailedSelection && !override {
		return appErrors.ErrSelectionBlocked
	}

	if _, err := o.Handoffs.Append(ctx, runID, model.StageSelectedTemplate, candidate); err != nil {
		return err
	}

	if override || approvedBy != "" {
		decision := "APPROVE"
		if override {
			decision = "OVERRIDE"
		}
		approval := model.Approval{
			MarketerID: approvedBy,
			Decision:   decision,
			CreatedAt:  time.Now().Format(time.RFC3339),
		}
		if _, err := o.Handoffs.Append(ctx, runID, model.StageApproval, approval); err != nil {
			return err
		}
	}

	return o.Runs.Update(ctx, runID, repository.RunUpdate{CandidateID: &candidate.TemplateID})
}

// loadBrief resolves the effective brief: the latest BRIEF handoff wins over
// the brief frozen into the run row at creation.
func (o *Orchestrator) loadBrief(ctx context.Context, runID string) (*pipelineState, error) {
	run, err := o.Runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	brief := run.Brief
	if h, err := o.Handoffs.Latest(ctx, runID, model.StageBrief); err == nil && h != nil {
		var fromStore model.Brief
		if json.Unmarshal(h.Payload, &fromStore) == nil {
			brief = fromStore
		}
	}

	channel := run.Channel
	if channel == "" {
		channel = brief.ChannelHint
	}
	channel = generator.NormalizeChannel(channel)

	tone := run.Tone
	if tone == "" {
		tone = brief.ToneHint
	}
	if tone == "" {
		tone = defaultToneID
	}

	return &pipelineState{run: run, brief: brief, channel: channel, tone: tone}, nil
}

func (o *Orchestrator) target(ctx context.Context, st *pipelineState) error {
	tq := targeting.Build(ctx, st.brief.TargetInput, o.Introspector)
	payload := model.TargetPayload{
		TargetQuery: tq,
		Summary:     targeting.Summary(st.brief.TargetInput),
		Channel:     st.channel,
		Tone:        st.tone,
	}
	if _, err := o.Handoffs.Append(ctx, st.run.RunID, model.StageTarget, payload); err != nil {
		return err
	}
	step := model.StepTarget
	return o.Runs.Update(ctx, st.run.RunID, repository.RunUpdate{StepID: &step, Channel: &st.channel})
}

func (o *Orchestrator) rag(ctx context.Context, st *pipelineState) error {
	target, err := o.latestTarget(ctx, st.run.RunID)
	if err != nil {
		return err
	}

	query := retrieval.BuildQuery(st.brief.Goal, st.channel, st.tone, target.Summary, target.TargetQuery)
	matches, err := o.Searcher.Search(ctx, query, ragTopK)
	if err != nil {
		return fmt.Errorf("similarity search failed: %w", err)
	}

	evidence := retrieval.CurateEvidence(matches, retrieval.MaxChunksPerSource, retrieval.MaxEvidenceChars)
	st.ragContext = retrieval.BuildContextText(matches, retrieval.MaxChunksPerSource)

	payload := model.RagPayload{
		Query:         query,
		TopK:          ragTopK,
		Channel:       st.channel,
		Tone:          st.tone,
		Goal:          st.brief.Goal,
		TargetQuery:   target.TargetQuery,
		TargetSummary: target.Summary,
		Evidence:      evidence,
		Context:       st.ragContext,
	}
	if _, err := o.Handoffs.Append(ctx, st.run.RunID, model.StageRag, payload); err != nil {
		return err
	}
	step := model.StepRag
	return o.Runs.Update(ctx, st.run.RunID, repository.RunUpdate{StepID: &step})
}

func (o *Orchestrator) candidates(ctx context.Context, st *pipelineState) error {
	batch := model.CandidateBatch{
		Candidates: o.Generator.Generate(ctx, st.brief, st.channel, st.tone, st.ragContext, candidateK),
	}
	if _, err := o.Handoffs.Append(ctx, st.run.RunID, model.StageTemplateCandidates, batch); err != nil {
		return err
	}
	step := model.StepCandidates
	return o.Runs.Update(ctx, st.run.RunID, repository.RunUpdate{StepID: &step})
}

func (o *Orchestrator) checkCompliance(ctx context.Context, st *pipelineState) error {
	h, err := o.Handoffs.Latest(ctx, st.run.RunID, model.StageTemplateCandidates)
	if err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("candidate batch missing for run %s", st.run.RunID)
	}
	var batch model.CandidateBatch
	if err := json.Unmarshal(h.Payload, &batch); err != nil {
		return fmt.Errorf("candidate batch unreadable: %w", err)
	}

	results := model.ComplianceBatch{Results: compliance.Validate(batch.Candidates)}
	if _, err := o.Handoffs.Append(ctx, st.run.RunID, model.StageCompliance, results); err != nil {
		return err
	}
	step := model.StepCompliance
	return o.Runs.Update(ctx, st.run.RunID, repository.RunUpdate{StepID: &step})
}

func (o *Orchestrator) execute(ctx context.Context, st *pipelineState, selected model.Candidate) error {
	rendered := renderer.RenderFinal(st.brief, selected, st.ragContext)

	if _, err := o.Handoffs.Append(ctx, st.run.RunID, model.StageExecutionResult, rendered); err != nil {
		return err
	}

	step := model.StepExecute
	upd := repository.RunUpdate{
		StepID:       &step,
		CandidateID:  &rendered.UsedTemplateID,
		RenderedText: &rendered.FinalMessage,
	}
	if err := o.Runs.Update(ctx, st.run.RunID, upd); err != nil {
		return err
	}

	if o.Queue != nil {
		if err := o.Queue.Publish(sendTopic, st.run.RunID); err != nil {
			log.Println("⚠️ Failed to enqueue rendered message for run:", st.run.RunID, err)
		}
	}
	log.Println("✅ Run executed with template:", st.run.RunID, rendered.UsedTemplateID)
	return nil
}

func (o *Orchestrator) latestTarget(ctx context.Context, runID string) (*model.TargetPayload, error) {
	h, err := o.Handoffs.Latest(ctx, runID, model.StageTarget)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("target payload missing for run %s", runID)
	}
	var payload model.TargetPayload
	if err := json.Unmarshal(h.Payload, &payload); err != nil {
		return nil, fmt.Errorf("target payload unreadable: %w", err)
	}
	return &payload, nil
}

func (o *Orchestrator) latestSelection(ctx context.Context, runID string) (*model.Candidate, error) {
	h, err := o.Handoffs.Latest(ctx, runID, model.StageSelectedTemplate)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}
	var c model.Candidate
	if err := json.Unmarshal(h.Payload, &c); err != nil {
		return nil, fmt.Errorf("selected template unreadable: %w", err)
	}
	return &c, nil
}

// complianceStatus returns "" when no COMPLIANCE handoff or no result for
// the template exists; selection before compliance is then allowed.
func (o *Orchestrator) complianceStatus(ctx context.Context, runID, templateID string) (string, error) {
	h, err := o.Handoffs.Latest(ctx, runID, model.StageCompliance)
	if err != nil {
		return "", err
	}
	if h == nil {
		return "", nil
	}
	var batch model.ComplianceBatch
	if err := json.Unmarshal(h.Payload, &batch); err != nil {
		return "", fmt.Errorf("compliance batch unreadable: %w", err)
	}
	for _, r := range batch.Results {
		if r.TemplateID == templateID {
			return r.Status, nil
		}
	}
	return "", nil
}

func (o *Orchestrator) fail(ctx context.Context, runID, code string, cause error) error {
	status := model.RunStatusFailed
	msg := cause.Error()
	if err := o.Runs.Update(ctx, runID, repository.RunUpdate{
		Status:       &status,
		ErrorCode:    &code,
		ErrorMessage: &msg,
	}); err != nil {
		log.Println("⚠️ Failed to mark run as FAILED:", runID, err)
	}
	log.Printf("❌ Run %s failed at %s: %v\n", runID, code, cause)
	return fmt.Errorf("%s: %w", code, cause)
}
