package handler

import (
	"context"
	"time"

	"github.com/wizeapp/inference-worker/internal/chat"
	"github.com/wizeapp/inference-worker/internal/job"
	"github.com/wizeapp/inference-worker/internal/prompt"
)

// Echo replies with the last message's content, no model involved. It keeps
// the same job contract as the completion handler, so a deployment can be
// smoke-tested end to end before a model is wired in.
func Echo(ctx context.Context, req *job.Request) *job.Result {
	start := time.Now()

	messages := req.Input.Messages
	if len(messages) == 0 {
		return failed(start, errNoMessages)
	}

	last := messages[len(messages)-1].Content
	response := "Echo: " + last

	usage := chat.Usage{
		PromptTokens:     prompt.EstimateTokens(last),
		CompletionTokens: prompt.EstimateTokens(response),
	}
	usage.TotalTokens = usage.Total()

	return &job.Result{
		Choices: []chat.Choice{
			{
				Message: chat.Message{
					Role:    chat.RoleAssistant,
					Content: response,
				},
			},
		},
		Usage: &usage,
	}
}
