// Package compliance scans candidate templates for policy violations. The
// validator does no network or database access and holds no mutable state,
// so it is safe to call concurrently on independent candidate lists.
package compliance

import (
	"fmt"
	"strings"

	"github.com/amoreworks/crm-agent-backend/internal/model"
	"github.com/amoreworks/crm-agent-backend/internal/slots"
)

// MaxBodyLength is a channel-agnostic guard; per-channel budgets are
// guidance for the generator, not enforced here.
const MaxBodyLength = 220

type phraseRule struct {
	class   string
	phrases []string
}

// Literal scan targets. Absolute/medical claims are a hard FAIL regardless
// of slot coverage.
var bannedPhraseRules = []phraseRule{
	{class: "과장/확정 표현", phrases: []string{"100% 효과", "무조건", "전원 보장"}},
	{class: "의학적 효능 단정", phrases: []string{"완치", "치료 효과", "부작용 없음"}},
}

// Validate produces one result per candidate, same order. Rules run in a
// fixed sequence and status only escalates: once FAIL, later rules may add
// reasons but never downgrade.
func Validate(candidates []model.Candidate) []model.ComplianceResult {
	results := make([]model.ComplianceResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, validateOne(c))
	}
	return results
}

func validateOne(c model.Candidate) model.ComplianceResult {
	status := model.CompliancePass
	reasons := []string{}

	// Rule 1: required-slot coverage
	missing := slots.MissingRequired(c.Body, c.SlotSchema.Required)
	if len(missing) > 0 {
		status = escalate(status, model.ComplianceFail)
		reasons = append(reasons, fmt.Sprintf("필수 슬롯 누락: %s", strings.Join(missing, ", ")))
	}

	// Rule 2: banned phrases on the raw body
	for _, rule := range bannedPhraseRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(c.Body, phrase) {
				status = escalate(status, model.ComplianceFail)
				reasons = append(reasons, fmt.Sprintf("%s 가능성: %q", rule.class, phrase))
				break
			}
		}
	}

	// Rule 3: length guard, WARN unless already FAILed
	if len([]rune(c.Body)) > MaxBodyLength {
		status = escalate(status, model.ComplianceWarn)
		reasons = append(reasons, "문구가 길 수 있음 (채널별 길이 가이드 확인 필요)")
	}

	return model.ComplianceResult{
		TemplateID: c.TemplateID,
		Status:     status,
		Reasons:    reasons,
		FoundSlots: slots.Found(c.Body),
	}
}

var statusRank = map[string]int{
	model.CompliancePass: 0,
	model.ComplianceWarn: 1,
	model.ComplianceFail: 2,
}

func escalate(current, proposed string) string {
	if statusRank[proposed] > statusRank[current] {
		return proposed
	}
	return current
}
