// Package renderer turns one selected template into the deliverable
// message: resolve default slot values, overlay the template's own defaults,
// substitute, and keep a bounded provenance hint.
package renderer

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amoreworks/crm-agent-backend/internal/model"
	"github.com/amoreworks/crm-agent-backend/internal/slots"
)

const ragHintMaxChars = 800

var couponCodes = []string{"AMORE10", "WELCOME5", "CARE15"}

// DefaultSlotValues builds the base slot map. A richer deployment would
// fill these from user_features; these are the safe campaign-level values.
func DefaultSlotValues(brief model.Brief) map[string]string {
	expiry := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	productName := valueOr(brief.ProductName, "상품")
	benefit := valueOr(brief.Benefit, "혜택")
	goal := valueOr(brief.Goal, "캠페인")

	return map[string]string{
		"customer_name":        "고객",
		"product_name":         productName,
		"offer":                benefit,
		"benefit":              benefit,
		"campaign_goal":        goal,
		"coupon_code":          couponCodes[rand.Intn(len(couponCodes))],
		"expiry_date":          expiry,
		"deep_link":            "https://example.com/campaign",
		"cta":                  "https://example.com/campaign",
		"unsubscribe":          "080-0000-0000",
		"brand_name":           "AMORE",
		"support_contact":      "고객센터 080-0000-0000",
		"skin_concern_primary": "피부 고민",
		"sensitivity_level":    "any",
		"persona":              "default",
		"subject":              fmt.Sprintf("[%s] %s %s", goal, productName, benefit),
	}
}

// RenderFinal substitutes the selected template. Placeholders without a
// value stay verbatim (slots fail open), so nothing here can abort EXECUTE.
func RenderFinal(brief model.Brief, selected model.Candidate, ragContext string) model.RenderedMessage {
	values := DefaultSlotValues(brief)

	// Template-provided defaults win; empty strings would only blank out a
	// usable base value, so they are skipped.
	for k, v := range selected.DefaultSlotValues {
		if v != "" {
			values[k] = v
		}
	}

	// A cta default of "{deep_link}" means "send them to the deep link".
	if values["cta"] == "{deep_link}" {
		values["cta"] = values["deep_link"]
	}

	rendered := slots.Render(selected.Body, values)

	hint := ragContext
	if runes := []rune(hint); len(runes) > ragHintMaxChars {
		hint = string(runes[:ragHintMaxChars])
	}

	return model.RenderedMessage{
		UsedTemplateID: selected.TemplateID,
		FinalMessage:   rendered,
		SlotValues:     values,
		RagUsedHint:    hint,
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
