package generator

import (
	"fmt"

	"github.com/amoreworks/crm-agent-backend/internal/model"
)

// fallbackVoice are the canned openers/CTA labels per brand tone. Unknown
// tones use the amoremall voice.
type fallbackVoice struct {
	openers [2]string
	ctas    [2]string
}

var fallbackVoices = map[string]fallbackVoice{
	"amoremall": {
		openers: [2]string{
			"고객님, 회원 전용 혜택 안내드려요.",
			"고객님, 지금 앱에서 확인해 보세요.",
		},
		ctas: [2]string{"지금 확인하기", "자세히 보기"},
	},
	"innisfree": {
		openers: [2]string{
			"고객님, 오늘은 산뜻한 데일리 루틴으로 추천드려요 🍃",
			"가볍게 루틴에 더해보기 좋은 {product_name} 소식이에요 🍃",
		},
		ctas: [2]string{"앱에서 확인하기", "가볍게 보러가기"},
	},
}

// fallbackCandidates is the deterministic, non-LLM path: at most four canned
// templates per channel/tone, each already satisfying required-slot coverage.
func fallbackCandidates(channel, toneID string, required []string, notes map[string]any, k int) []model.Candidate {
	voice, ok := fallbackVoices[toneID]
	if !ok {
		voice = fallbackVoices["amoremall"]
	}

	footer := ""
	if channel == "SMS" {
		footer = "\n수신거부: {unsubscribe}"
	}
	schema := model.SlotSchema{Required: required, Optional: OptionalSlots}
	defaults := func() map[string]string {
		d := map[string]string{"cta": "{deep_link}"}
		if channel == "EMAIL" {
			d["subject"] = defaultSubjectPattern
		}
		return d
	}

	candidates := []model.Candidate{
		{
			Title:      fmt.Sprintf("%s | 요약형(FALLBACK)", toneID),
			SlotSchema: schema,
			Body: voice.openers[0] + "\n" +
				"이번 캠페인에 딱 맞는 {product_name} 안내드려요.\n" +
				"{offer}\n" +
				"👉 " + voice.ctas[0] + ": {cta}" + footer,
			Channel: channel, Tone: toneID,
			DefaultSlotValues: defaults(),
		},
		{
			Title:      fmt.Sprintf("%s | 혜택/리마인드(FALLBACK)", toneID),
			SlotSchema: schema,
			Body: voice.openers[1] + "\n" +
				"{product_name} 관련 안내예요.\n" +
				"{offer}\n" +
				"쿠폰: {coupon_code} / 종료일: {expiry_date}\n" +
				"✅ " + voice.ctas[1] + ": {cta}" + footer,
			Channel: channel, Tone: toneID,
			DefaultSlotValues: defaults(),
		},
		{
			Title: fmt.Sprintf("%s | 개인화(FALLBACK)", toneID),
			SlotSchema: model.SlotSchema{
				Required: required,
				Optional: append(append([]string{}, OptionalSlots...), "skin_concern_primary", "sensitivity_level", "persona"),
			},
			Body: voice.openers[0] + "\n" +
				"{skin_concern_primary} 고민을 고려해 {product_name}을(를) 제안드려요.\n" +
				"{offer}\n" +
				"👉 {cta}" + footer,
			Channel: channel, Tone: toneID,
			DefaultSlotValues: defaults(),
		},
		{
			Title:      fmt.Sprintf("%s | 초간단(FALLBACK)", toneID),
			SlotSchema: schema,
			Body: "{customer_name}님, {product_name}\n" +
				"{offer}\n" +
				"👉 {cta}" + footer,
			Channel: channel, Tone: toneID,
			DefaultSlotValues: defaults(),
		},
	}

	if k < 1 {
		k = 1
	}
	if k > len(candidates) {
		k = len(candidates)
	}
	candidates = candidates[:k]

	for i := range candidates {
		candidates[i].Notes = cloneNotes(notes)
		candidates[i].Notes["fallback"] = true
	}
	return candidates
}

func cloneNotes(notes map[string]any) map[string]any {
	out := make(map[string]any, len(notes)+2)
	for k, v := range notes {
		out[k] = v
	}
	return out
}
