package llm

import (
	"context"
	"testing"
)

type stubClient struct{ model string }

func (s *stubClient) Chat(ctx context.Context, systemPrompt string, messages []Message) (*Response, error) {
	return &Response{Content: "ok"}, nil
}
func (s *stubClient) Model() string    { return s.model }
func (s *stubClient) Provider() string { return "stub" }
func (s *stubClient) Close() error     { return nil }

func TestRegistry(t *testing.T) {
	RegisterProvider("stub", func(cfg Config) (Client, error) {
		return &stubClient{model: cfg.Model}, nil
	})

	if !IsProviderRegistered("stub") {
		t.Fatal("stub provider should be registered")
	}
	if IsProviderRegistered("absent") {
		t.Fatal("absent provider should not be registered")
	}

	c, err := NewClient(Config{Provider: "stub", Model: "m1"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if c.Model() != "m1" {
		t.Errorf("Model() = %q, want m1", c.Model())
	}

	if _, err := NewClient(Config{}); err == nil {
		t.Error("empty provider should be an error")
	}
	if _, err := NewClient(Config{Provider: "absent"}); err == nil {
		t.Error("unknown provider should be an error")
	}
}
