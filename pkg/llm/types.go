// Package llm provides a provider-agnostic interface for the language
// models used to summarize source code.
package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	// RoleUser represents a message from the user.
	RoleUser Role = "user"
	// RoleAssistant represents a message from the assistant/model.
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response represents a response from the model.
type Response struct {
	// Content is the text content of the response.
	Content string `json:"content"`
	// Usage contains token usage information.
	Usage TokenUsage `json:"usage"`
}

// TokenUsage contains token usage information for a request.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
