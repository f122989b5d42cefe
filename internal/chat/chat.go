// Package chat defines the conversation and completion payload shapes shared
// by the job handlers and the generation backends.
package chat

// Role values accepted in conversation turns.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice is one completion candidate. The worker always produces exactly one.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Usage carries token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Total returns prompt + completion token counts.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}
