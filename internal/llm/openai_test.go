package llm_test

import (
	"strings"
	"testing"
	"time"

	"github.com/amoreworks/crm-agent-backend/internal/llm"
)

func TestExtractJSONFromFencedResponse(t *testing.T) {
	raw := "물론이죠! 요청하신 JSON입니다:\n```json\n{\"keywords\": [\"연말\"]}\n```\n도움이 되었길 바랍니다."

	obj, err := llm.ExtractJSON(raw)
	if err != nil {
		t.Fatal(err)
	}
	if string(obj) != `{"keywords": ["연말"]}` {
		t.Errorf("unexpected extraction: %s", obj)
	}
}

func TestExtractJSONBareObject(t *testing.T) {
	obj, err := llm.ExtractJSON(`{"a": 1}`)
	if err != nil {
		t.Fatal(err)
	}
	if string(obj) != `{"a": 1}` {
		t.Errorf("unexpected extraction: %s", obj)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	_, err := llm.ExtractJSON("죄송하지만 답변드릴 수 없습니다.")
	if err == nil {
		t.Fatal("expected error for non-JSON response")
	}
	if !strings.Contains(err.Error(), "did not return JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	if _, err := llm.NewOpenAIClient("", "gpt-4.1-mini", "text-embedding-3-small", 30*time.Second); err == nil {
		t.Error("expected error on empty API key")
	}
}
