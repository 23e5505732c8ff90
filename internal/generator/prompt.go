package generator

import (
	"fmt"
	"strings"

	"github.com/amoreworks/crm-agent-backend/internal/model"
)

var channelGuides = map[string]string{
	"SMS":   "SMS는 짧고 명확하게(가능하면 90자 내외), 수신거부 슬롯({unsubscribe})을 포함.",
	"PUSH":  "PUSH는 1~2문장 + CTA 중심으로 간결하게.",
	"KAKAO": "KAKAO는 친근/가독성(줄바꿈) + CTA 명확.",
	"EMAIL": "EMAIL은 body는 짧게, subject는 슬롯/템플릿 형태로 제공 가능.",
}

// formatNormalizedBrief renders the normalized campaign text as prompt
// bullet lines, raw text appended for traceability.
func formatNormalizedBrief(nb model.NormalizedBrief, rawCampaignText string) string {
	parts := []string{}
	if nb.NormalizedText != "" {
		parts = append(parts, "- 요약: "+nb.NormalizedText)
	}
	if len(nb.Keywords) > 0 {
		parts = append(parts, "- 키워드: "+strings.Join(capList(nb.Keywords, 12), ", "))
	}
	if nb.Category != "" {
		parts = append(parts, "- 카테고리(추정): "+nb.Category)
	}
	if nb.Occasion != "" {
		parts = append(parts, "- 상황/목적(추정): "+nb.Occasion)
	}
	if len(nb.FinishOrTexture) > 0 {
		parts = append(parts, "- 제형/피니시: "+strings.Join(capList(nb.FinishOrTexture, 8), ", "))
	}
	if len(nb.MoodOrStyle) > 0 {
		parts = append(parts, "- 무드/스타일: "+strings.Join(capList(nb.MoodOrStyle, 8), ", "))
	}
	if len(nb.Negative) > 0 {
		parts = append(parts, "- 제외조건: "+strings.Join(capList(nb.Negative, 8), ", "))
	}
	parts = append(parts, "- 원문: "+rawCampaignText)
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func buildGenerationPrompt(channel, toneID, toneGuideMD, campaignGoal, normalizedText, ragContext string, required []string, k int) string {
	toneGuideBlock := strings.TrimSpace(toneGuideMD)
	if toneGuideBlock == "" {
		toneGuideBlock = "(없음: 기본 톤 가이드 + RAG 근거를 따르세요.)"
	}

	var b strings.Builder
	b.WriteString("너는 화장품/뷰티 CRM 마케터를 돕는 \"Template Agent\"다.\n")
	b.WriteString("중요 원칙:\n")
	b.WriteString("- 절대 상품/혜택/가격/쿠폰을 확정하지 마라. 모든 변수는 반드시 슬롯(예: {product_name}, {offer})으로 남겨라.\n")
	b.WriteString("- 고객에게 사실 단정/의학적 효능 단정/과장 표현 금지. (예: 100% 효과, 완치 등)\n")
	b.WriteString("- 출력은 반드시 JSON만. 다른 설명/문장은 출력하지 마라.\n\n")
	fmt.Fprintf(&b, "[입력]\n- channel: %s\n- tone_id(brand): %s\n- campaign_goal: %s\n- campaign_text (normalized):\n%s\n\n",
		channel, toneID, campaignGoal, normalizedText)
	fmt.Fprintf(&b, "[브랜드 톤 가이드(md)]\n%s\n\n", toneGuideBlock)
	fmt.Fprintf(&b, "[근거 컨텍스트(RAG 요약)]\n%s\n\n", ragContext)
	b.WriteString("[슬롯 규칙]\n")
	fmt.Fprintf(&b, "- 필수 슬롯(required): %v\n- 옵션 슬롯(optional): %v\n", required, OptionalSlots)
	b.WriteString("- body_with_slots에는 \"필수 슬롯들이 모두 등장\"해야 한다.\n")
	b.WriteString("- 슬롯은 반드시 중괄호 한 쌍으로 표기: {slot_name}\n\n")
	b.WriteString("[작성 가이드]\n")
	fmt.Fprintf(&b, "- %s\n", channelGuides[channel])
	b.WriteString("- 브랜드 톤 가이드(md)를 최우선으로 지켜라. (금지/이모지 규칙 포함)\n")
	fmt.Fprintf(&b, "- %d개의 서로 다른 템플릿을 만들어라. (동일 표현 반복 금지)\n", k)
	b.WriteString("- CTA는 {cta} 슬롯을 사용하되, 라벨은 톤 가이드에 맞게 변주.\n\n")
	b.WriteString("[출력 JSON 스키마]\n")
	b.WriteString(`{
  "candidates": [
    {
      "title": "설명",
      "body_with_slots": "슬롯 포함 본문",
      "default_slot_values": {
        "cta": "{deep_link}",
        "subject": "{campaign_goal} 안내 | {product_name} {offer}"
      }
    }
  ]
}`)
	b.WriteString("\n\n반드시 JSON만 출력.")
	return b.String()
}

func capList(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}
