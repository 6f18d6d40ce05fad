package llm

import (
	"testing"

	"github.com/SPTS7/CodeGrapher/pkg/llm"
)

func TestGeminiProviderRegistered(t *testing.T) {
	if !llm.IsProviderRegistered("gemini") {
		t.Fatal("gemini provider should register itself on import")
	}
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	if _, err := llm.NewClient(llm.Config{Provider: "gemini"}); err == nil {
		t.Fatal("expected an error without an API key")
	}
}

func TestConvertMessages(t *testing.T) {
	contents := convertMessages([]llm.Message{
		{Role: llm.RoleUser, Content: "summarize this"},
		{Role: llm.RoleAssistant, Content: "Summarizes things."},
	})
	if len(contents) != 2 {
		t.Fatalf("got %d contents, want 2", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Errorf("roles = %q/%q, want user/model", contents[0].Role, contents[1].Role)
	}
	if contents[0].Parts[0].Text != "summarize this" {
		t.Errorf("part text = %q", contents[0].Parts[0].Text)
	}
}

func TestConvertResponseEmpty(t *testing.T) {
	if resp := convertResponse(nil); resp.Content != "" {
		t.Errorf("nil response should convert to empty content, got %q", resp.Content)
	}
}

func TestGeminiDefaultModel(t *testing.T) {
	c, err := llm.NewClient(llm.Config{Provider: "gemini", APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	defer c.Close()

	if c.Model() != defaultGeminiModel {
		t.Errorf("Model() = %q, want %q", c.Model(), defaultGeminiModel)
	}
	if c.Provider() != "gemini" {
		t.Errorf("Provider() = %q, want gemini", c.Provider())
	}
}
