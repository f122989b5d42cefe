// Package handler implements the job handlers the worker exposes: a chat
// completion handler backed by a generation backend, and a trivial echo
// handler for wiring checks.
package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wizeapp/inference-worker/internal/backend"
	"github.com/wizeapp/inference-worker/internal/chat"
	"github.com/wizeapp/inference-worker/internal/job"
	"github.com/wizeapp/inference-worker/internal/prompt"
)

// defaultRepeatPenalty discourages the model from looping on its own output.
const defaultRepeatPenalty = 1.1

const errNoMessages = "no messages provided"

// Completion turns conversation jobs into chat completions.
type Completion struct {
	backend   backend.Backend
	modelName string

	// promptWindow caps the rendered prompt, in approximate tokens.
	promptWindow int

	log *zap.Logger
}

// NewCompletion creates a completion handler on the given backend.
func NewCompletion(b backend.Backend, modelName string, promptWindow int, log *zap.Logger) *Completion {
	if log == nil {
		log = zap.NewNop()
	}
	return &Completion{
		backend:      b,
		modelName:    modelName,
		promptWindow: promptWindow,
		log:          log,
	}
}

// Handle implements job.Handler. Every failure, model load included, comes
// back as the result's error field; nothing escapes as a panic or a
// transport-level failure.
func (h *Completion) Handle(ctx context.Context, req *job.Request) *job.Result {
	start := time.Now()

	in := req.Input.WithDefaults()
	if len(in.Messages) == 0 {
		return failed(start, errNoMessages)
	}

	rendered, err := prompt.Render(in.Messages)
	if err != nil {
		return failed(start, err.Error())
	}
	rendered = prompt.Truncate(rendered, h.promptWindow)

	h.log.Debug("prompt rendered",
		zap.String("job_id", req.ID),
		zap.Int("messages", len(in.Messages)),
		zap.Int("prompt_len", len(rendered)))

	genStart := time.Now()
	gen, err := h.backend.Generate(ctx, rendered, backend.Params{
		MaxTokens:     *in.MaxTokens,
		Temperature:   *in.Temperature,
		TopP:          *in.TopP,
		RepeatPenalty: defaultRepeatPenalty,
	})
	if err != nil {
		h.log.Warn("generation failed", zap.String("job_id", req.ID), zap.Error(err))
		return failed(start, err.Error())
	}
	genTime := time.Since(genStart)

	content := prompt.Clean(gen.Text)
	usage := chat.Usage{
		PromptTokens:     gen.PromptTokens,
		CompletionTokens: gen.CompletionTokens,
	}
	usage.TotalTokens = usage.Total()

	h.log.Info("completion generated",
		zap.String("job_id", req.ID),
		zap.Int("completion_tokens", usage.CompletionTokens),
		zap.Duration("generation", genTime))

	return &job.Result{
		Choices: []chat.Choice{
			{
				Message: chat.Message{
					Role:    chat.RoleAssistant,
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage:          &usage,
		Model:          h.modelName,
		ExecutionTime:  time.Since(start).Seconds(),
		GenerationTime: genTime.Seconds(),
	}
}

func failed(start time.Time, msg string) *job.Result {
	return &job.Result{
		Error:         msg,
		ExecutionTime: time.Since(start).Seconds(),
	}
}
