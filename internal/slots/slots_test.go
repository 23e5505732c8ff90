package slots_test

import (
	"reflect"
	"testing"

	"github.com/amoreworks/crm-agent-backend/internal/slots"
)

func TestFoundCollapsesDuplicatesAndSorts(t *testing.T) {
	body := "{offer} 안내: {product_name} {offer} 👉 {cta}"

	got := slots.Found(body)
	want := []string{"cta", "offer", "product_name"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFoundIgnoresMalformedPlaceholders(t *testing.T) {
	body := "{ spaced } {한글} {{nested}} {ok_1}"

	got := slots.Found(body)
	want := []string{"nested", "ok_1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestMissingRequiredKeepsSchemaOrder(t *testing.T) {
	body := "{customer_name}님, {offer}"
	required := []string{"customer_name", "product_name", "offer", "cta"}

	got := slots.MissingRequired(body, required)
	want := []string{"product_name", "cta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestMissingRequiredReturnsEmptySliceNotNil(t *testing.T) {
	got := slots.MissingRequired("{cta}", []string{"cta"})
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}

func TestRenderLeavesUnknownPlaceholdersVerbatim(t *testing.T) {
	body := "{customer_name}님, {product_name} {mystery}"
	values := map[string]string{
		"customer_name": "지수",
		"product_name":  "그린티 세럼",
	}

	got := slots.Render(body, values)
	want := "지수님, 그린티 세럼 {mystery}"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRenderSubstitutesEmptyValues(t *testing.T) {
	// An explicit empty value is a substitution, not a missing one.
	got := slots.Render("[{offer}]", map[string]string{"offer": ""})
	if got != "[]" {
		t.Errorf("expected empty substitution, got %q", got)
	}
}
