package renderer_test

import (
	"strings"
	"testing"

	"github.com/amoreworks/crm-agent-backend/internal/model"
	"github.com/amoreworks/crm-agent-backend/internal/renderer"
)

func TestDefaultSlotValuesUseBriefFields(t *testing.T) {
	brief := model.Brief{
		Goal:        "연말 쿠션 프로모션",
		ProductName: "글로우 쿠션",
		Benefit:     "전 품목 20% 할인",
	}

	values := renderer.DefaultSlotValues(brief)
	if values["product_name"] != "글로우 쿠션" {
		t.Errorf("expected brief product name, got %q", values["product_name"])
	}
	if values["offer"] != "전 품목 20% 할인" {
		t.Errorf("expected brief benefit as offer, got %q", values["offer"])
	}
	if !strings.Contains(values["subject"], "연말 쿠션 프로모션") {
		t.Errorf("subject should carry the goal, got %q", values["subject"])
	}
}

func TestDefaultSlotValuesFallBackWhenBriefIsSparse(t *testing.T) {
	values := renderer.DefaultSlotValues(model.Brief{})
	if values["product_name"] != "상품" {
		t.Errorf("expected generic product name, got %q", values["product_name"])
	}
	if values["unsubscribe"] == "" || values["deep_link"] == "" {
		t.Error("channel-mandated slots must always have values")
	}
}

func TestRenderFinalSubstitutesAndRecordsValues(t *testing.T) {
	brief := model.Brief{Goal: "테스트", ProductName: "세럼", Benefit: "1+1"}
	candidate := model.Candidate{
		TemplateID: "T002",
		Body:       "{customer_name}님, {product_name}\n{offer}\n👉 {cta}",
	}

	msg := renderer.RenderFinal(brief, candidate, "근거 문맥")
	if msg.UsedTemplateID != "T002" {
		t.Errorf("expected T002, got %s", msg.UsedTemplateID)
	}
	if strings.Contains(msg.FinalMessage, "{product_name}") {
		t.Errorf("product_name not substituted: %q", msg.FinalMessage)
	}
	if !strings.Contains(msg.FinalMessage, "세럼") {
		t.Errorf("expected product name in message: %q", msg.FinalMessage)
	}
	if msg.SlotValues["product_name"] != "세럼" {
		t.Error("slot values must be recorded for audit")
	}
	if msg.RagUsedHint != "근거 문맥" {
		t.Errorf("expected rag hint kept, got %q", msg.RagUsedHint)
	}
}

func TestRenderFinalTemplateDefaultsWin(t *testing.T) {
	candidate := model.Candidate{
		TemplateID: "T001",
		Body:       "{offer} 👉 {cta}",
		DefaultSlotValues: map[string]string{
			"offer": "신제품 체험분 증정",
			"blank": "",
		},
	}

	msg := renderer.RenderFinal(model.Brief{Benefit: "기본 혜택"}, candidate, "")
	if !strings.Contains(msg.FinalMessage, "신제품 체험분 증정") {
		t.Errorf("template default should override the base value: %q", msg.FinalMessage)
	}
}

func TestRenderFinalUnwrapsCtaDeepLink(t *testing.T) {
	candidate := model.Candidate{
		TemplateID:        "T001",
		Body:              "👉 {cta}",
		DefaultSlotValues: map[string]string{"cta": "{deep_link}"},
	}

	msg := renderer.RenderFinal(model.Brief{}, candidate, "")
	if strings.Contains(msg.FinalMessage, "{deep_link}") {
		t.Errorf("cta indirection must resolve to the deep link: %q", msg.FinalMessage)
	}
	if !strings.Contains(msg.FinalMessage, "https://example.com/campaign") {
		t.Errorf("expected deep link value, got %q", msg.FinalMessage)
	}
}

func TestRenderFinalKeepsUnknownPlaceholders(t *testing.T) {
	candidate := model.Candidate{
		TemplateID: "T003",
		Body:       "{customer_name}님 {mystery_slot}",
	}

	msg := renderer.RenderFinal(model.Brief{}, candidate, "")
	if !strings.Contains(msg.FinalMessage, "{mystery_slot}") {
		t.Errorf("unknown placeholder must stay verbatim: %q", msg.FinalMessage)
	}
}

func TestRenderFinalCapsRagHint(t *testing.T) {
	long := strings.Repeat("가", 900)

	msg := renderer.RenderFinal(model.Brief{}, model.Candidate{Body: "x"}, long)
	if got := len([]rune(msg.RagUsedHint)); got != 800 {
		t.Errorf("expected 800-rune hint, got %d", got)
	}
}
