package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/amoreworks/crm-agent-backend/internal/llm"
	"github.com/amoreworks/crm-agent-backend/internal/model"
)

const normalizerPrompt = `You are a campaign_text normalizer for cosmetics CRM.

Goal:
- Convert a short natural-language campaign_text into a compact structured object.

Rules:
- Output MUST be a single valid JSON object only (no markdown, no commentary).
- Do NOT invent brand/product names.
- Do NOT claim verified efficacy or medical benefits.
- Focus on intent/occasion/style/format/feel/finish/category.
- If uncertain, keep fields empty and set lower confidence.
- keywords must be 4~12 short Korean keywords (no full sentences).
- negative is only for explicit exclusions in the input.

Input campaign_text (Korean):
%s

Return JSON schema:
{
  "normalized_text": "짧은 한 줄 요약(가능하면 명사형, 과장 금지)",
  "keywords": ["키워드1", "키워드2"],
  "category": "예: 아이섀도우/립/쿠션/크림/세럼/선케어 등 (추정 어려우면 빈 문자열)",
  "occasion": "예: 연말/파티/선물/데일리 등 (없으면 빈 문자열)",
  "finish_or_texture": ["예: 펄감/매트/글로시/촉촉/보송 등"],
  "mood_or_style": ["예: 화려한/은은한/고급스러운/산뜻한 등"],
  "negative": ["명시적 제외 조건만"],
  "confidence": 0.0
}`

var tokenCleanup = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// NormalizeCampaignText turns free text into a structured brief. It never
// fails: any collaborator problem degrades to a plain keyword split with a
// low confidence and the error recorded for observability.
func NormalizeCampaignText(ctx context.Context, completer llm.Completer, campaignText string) model.NormalizedBrief {
	campaignText = strings.TrimSpace(campaignText)
	if campaignText == "" {
		return emptyNormalized()
	}

	out, err := callNormalizer(ctx, completer, campaignText)
	if err != nil {
		return keywordFallback(campaignText, err)
	}
	return sanitizeNormalized(out)
}

func callNormalizer(ctx context.Context, completer llm.Completer, campaignText string) (model.NormalizedBrief, error) {
	var nb model.NormalizedBrief
	if completer == nil {
		return nb, errLLMUnavailable
	}

	raw, err := completer.Complete(ctx, fmt.Sprintf(normalizerPrompt, campaignText))
	if err != nil {
		return nb, err
	}
	obj, err := llm.ExtractJSON(raw)
	if err != nil {
		return nb, err
	}
	if err := json.Unmarshal(obj, &nb); err != nil {
		return nb, err
	}
	return nb, nil
}

func emptyNormalized() model.NormalizedBrief {
	return model.NormalizedBrief{
		Keywords:        []string{},
		FinishOrTexture: []string{},
		MoodOrStyle:     []string{},
		Negative:        []string{},
	}
}

func keywordFallback(campaignText string, cause error) model.NormalizedBrief {
	toks := strings.Fields(tokenCleanup.ReplaceAllString(campaignText, " "))
	if len(toks) > 8 {
		toks = toks[:8]
	}

	summary := []rune(campaignText)
	if len(summary) > 60 {
		summary = summary[:60]
	}

	nb := emptyNormalized()
	nb.NormalizedText = string(summary)
	nb.Keywords = toks
	nb.Confidence = 0.2
	nb.LLMError = cause.Error()
	return nb
}

func sanitizeNormalized(nb model.NormalizedBrief) model.NormalizedBrief {
	clean := func(in []string) []string {
		out := []string{}
		for _, s := range in {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	nb.Keywords = clean(nb.Keywords)
	if len(nb.Keywords) > 12 {
		nb.Keywords = nb.Keywords[:12]
	}
	nb.FinishOrTexture = clean(nb.FinishOrTexture)
	nb.MoodOrStyle = clean(nb.MoodOrStyle)
	nb.Negative = clean(nb.Negative)

	if nb.Confidence < 0 {
		nb.Confidence = 0
	}
	if nb.Confidence > 1 {
		nb.Confidence = 1
	}
	return nb
}
