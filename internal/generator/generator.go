// Package generator produces templated message candidates for one
// channel/tone/brief. The primary path prompts the LLM collaborator; any
// failure there falls back to deterministic canned templates so an outage
// never halts the pipeline. Either way the same post-processing runs:
// required slots are repaired by appending, defaults are filled, and stable
// T{index} identifiers are assigned in output order.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/amoreworks/crm-agent-backend/internal/llm"
	"github.com/amoreworks/crm-agent-backend/internal/model"
	"github.com/amoreworks/crm-agent-backend/internal/slots"
	"github.com/amoreworks/crm-agent-backend/internal/tone"
)

// RequiredSlotsByChannel: SMS must carry an unsubscribe notice, EMAIL a
// subject line.
var RequiredSlotsByChannel = map[string][]string{
	"PUSH":  {"customer_name", "product_name", "offer", "cta"},
	"SMS":   {"customer_name", "product_name", "offer", "cta", "unsubscribe"},
	"KAKAO": {"customer_name", "product_name", "offer", "cta"},
	"EMAIL": {"customer_name", "product_name", "offer", "cta", "subject"},
}

var OptionalSlots = []string{
	"coupon_code",
	"expiry_date",
	"deep_link",
	"brand_name",
	"support_contact",
}

const defaultSubjectPattern = "{campaign_goal} 안내 | {product_name} {offer}"

var errLLMUnavailable = errors.New("llm collaborator not configured")

// NormalizeChannel folds any input onto the closed channel set, defaulting
// to PUSH.
func NormalizeChannel(channel string) string {
	c := strings.ToUpper(strings.TrimSpace(channel))
	switch c {
	case "PUSH", "SMS", "KAKAO", "EMAIL":
		return c
	}
	return "PUSH"
}

type Generator struct {
	Completer llm.Completer
}

// rawCandidate is the shape the LLM is asked to return per candidate.
type rawCandidate struct {
	Title             string            `json:"title"`
	Body              string            `json:"body_with_slots"`
	DefaultSlotValues map[string]string `json:"default_slot_values"`
}

type rawBatch struct {
	Candidates []rawCandidate `json:"candidates"`
}

// Generate returns at most k candidates. It never returns an error: LLM
// failures are swallowed into the fallback path and annotated in the
// candidates' notes.
func (g *Generator) Generate(ctx context.Context, brief model.Brief, channel, toneHint, ragContext string, k int) []model.Candidate {
	channel = NormalizeChannel(channel)
	required := RequiredSlotsByChannel[channel]

	toneID := strings.ToLower(strings.TrimSpace(toneHint))
	if toneID == "" {
		toneID = "amoremall"
	}
	toneGuide := tone.LoadGuide(toneID)

	if k < 1 {
		k = 1
	}

	ragContext = strings.TrimSpace(ragContext)
	if runes := []rune(ragContext); len(runes) > 2500 {
		ragContext = string(runes[:2500])
	}

	normalized := NormalizeCampaignText(ctx, g.Completer, brief.CampaignText)
	normalizedText := formatNormalizedBrief(normalized, brief.CampaignText)

	notes := baseNotes(brief, toneID, toneGuide, normalizedText, ragContext, normalized)

	raw, err := g.primary(ctx, channel, toneID, toneGuide, brief.Goal, normalizedText, ragContext, required, k)
	if err != nil {
		fb := fallbackCandidates(channel, toneID, required, notes, k)
		for i := range fb {
			fb[i].Notes["llm_error"] = err.Error()
		}
		return finalize(fb, channel, required, k)
	}

	notes["llm"] = true
	mapped := make([]model.Candidate, 0, len(raw))
	for idx, rc := range raw {
		body := strings.TrimSpace(rc.Body)
		if body == "" {
			continue
		}
		title := strings.TrimSpace(rc.Title)
		if title == "" {
			title = fmt.Sprintf("%s | 후보%d", toneID, idx+1)
		}
		mapped = append(mapped, model.Candidate{
			Title:             title,
			Channel:           channel,
			Tone:              toneID,
			Body:              body,
			SlotSchema:        model.SlotSchema{Required: required, Optional: OptionalSlots},
			DefaultSlotValues: rc.DefaultSlotValues,
			Notes:             cloneNotes(notes),
		})
	}

	if len(mapped) == 0 {
		fb := fallbackCandidates(channel, toneID, required, notes, k)
		for i := range fb {
			fb[i].Notes["llm_error"] = "LLM returned zero well-formed candidates"
		}
		return finalize(fb, channel, required, k)
	}

	return finalize(mapped, channel, required, k)
}

func (g *Generator) primary(ctx context.Context, channel, toneID, toneGuide, goal, normalizedText, ragContext string, required []string, k int) ([]rawCandidate, error) {
	if g.Completer == nil {
		return nil, errLLMUnavailable
	}

	prompt := buildGenerationPrompt(channel, toneID, toneGuide, goal, normalizedText, ragContext, required, k)
	out, err := g.Completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	obj, err := llm.ExtractJSON(out)
	if err != nil {
		return nil, err
	}
	var batch rawBatch
	if err := json.Unmarshal(obj, &batch); err != nil {
		return nil, fmt.Errorf("LLM candidate batch is not valid JSON: %w", err)
	}
	if len(batch.Candidates) == 0 {
		return nil, errors.New("LLM returned empty candidates")
	}
	return batch.Candidates, nil
}

// finalize applies the invariant-restoring post-processing to every
// surviving candidate regardless of path.
func finalize(candidates []model.Candidate, channel string, required []string, k int) []model.Candidate {
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	for i := range candidates {
		c := &candidates[i]

		missing := slots.MissingRequired(c.Body, required)
		if len(missing) > 0 {
			tokens := make([]string, len(missing))
			for j, name := range missing {
				tokens[j] = "{" + name + "}"
			}
			c.Body = strings.TrimSpace(c.Body + "\n" + strings.Join(tokens, "\n"))
		}
		if c.Notes == nil {
			c.Notes = map[string]any{}
		}
		c.Notes["missing_slots_fixed"] = missing

		if c.DefaultSlotValues == nil {
			c.DefaultSlotValues = map[string]string{}
		}
		if _, ok := c.DefaultSlotValues["cta"]; !ok {
			c.DefaultSlotValues["cta"] = "{deep_link}"
		}
		if channel == "EMAIL" {
			if _, ok := c.DefaultSlotValues["subject"]; !ok {
				c.DefaultSlotValues["subject"] = defaultSubjectPattern
			}
		}

		c.TemplateID = fmt.Sprintf("T%03d", i+1)
	}
	return candidates
}

func baseNotes(brief model.Brief, toneID, toneGuide, normalizedText, ragContext string, normalized model.NormalizedBrief) map[string]any {
	return map[string]any{
		"campaign_goal":            strings.TrimSpace(brief.Goal),
		"campaign_text_hint":       runeCap(normalizedText, 300),
		"rag_evidence_hint":        runeCap(ragContext, 500),
		"brand_tone_id":            toneID,
		"brand_tone_guide_snippet": runeCap(toneGuide, 500),
		"principle":                "Template agent must not decide product/offer. Keep as slots.",
		"campaign_text_normalized": normalized,
	}
}

func runeCap(s string, n int) string {
	if runes := []rune(s); len(runes) > n {
		return string(runes[:n])
	}
	return s
}
