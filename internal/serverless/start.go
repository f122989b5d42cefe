package serverless

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wizeapp/inference-worker/internal/chat"
	"github.com/wizeapp/inference-worker/internal/config"
	"github.com/wizeapp/inference-worker/internal/job"
)

// Start runs the handler the way the deployment expects: against the
// platform when an endpoint is configured, otherwise as a one-shot local
// test job printed to stdout.
func Start(cfg *config.Config, h job.Handler, log *zap.Logger) error {
	if cfg.Serverless() {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return NewPoller(cfg, h, log).Run(ctx)
	}

	result := h(context.Background(), TestJob())
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// TestJob is the built-in smoke-test job used when no endpoint is configured.
func TestJob() *job.Request {
	maxTokens := 100
	temperature := 0.7
	return &job.Request{
		ID: "local-test",
		Input: job.Input{
			Messages: []chat.Message{
				{Role: chat.RoleUser, Content: "Bonjour, comment allez-vous ?"},
			},
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		},
	}
}
