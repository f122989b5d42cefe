package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wizeapp/inference-worker/internal/backend"
	"github.com/wizeapp/inference-worker/internal/config"
	"github.com/wizeapp/inference-worker/internal/download"
	"github.com/wizeapp/inference-worker/internal/handler"
	"github.com/wizeapp/inference-worker/internal/job"
	"github.com/wizeapp/inference-worker/internal/logger"
	"github.com/wizeapp/inference-worker/internal/serverless"
)

var serveHTTP bool

// serveCmd runs the chat-completion handler.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat-completion handler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		log := logger.New(cfg.Debug)
		defer log.Sync()

		h, cleanup, err := buildCompletionHandler(cfg, log)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return err
		}
		defer cleanup()

		if serveHTTP {
			fmt.Printf("🧪 Dev server on port %s\n", cfg.Port)
			return serverless.NewServer(h, log).ListenAndServe(":" + cfg.Port)
		}

		if cfg.Serverless() {
			fmt.Println("🚀 Starting serverless handler...")
		} else {
			fmt.Println("🧪 No endpoint configured, running local test job...")
		}
		return serverless.Start(cfg, h, log)
	},
}

// buildCompletionHandler wires a completion handler onto whichever backend
// the configuration selects: local llama when a model path (or model URL) is
// present, the OpenAI-compatible API otherwise.
func buildCompletionHandler(cfg *config.Config, log *zap.Logger) (job.Handler, func() error, error) {
	modelPath := cfg.ModelPath
	if modelPath == "" && cfg.ModelURL != "" {
		u, err := url.Parse(cfg.ModelURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid MODEL_URL: %w", err)
		}
		fmt.Printf("🔄 Fetching model %s...\n", path.Base(u.Path))
		modelPath, err = download.Fetch(context.Background(), cfg.ModelURL, cfg.ModelsDir, path.Base(u.Path))
		if err != nil {
			return nil, nil, fmt.Errorf("model download: %w", err)
		}
		fmt.Printf("✅ Model at %s\n", modelPath)
	}

	reg := backend.NewRegistry()
	if modelPath != "" {
		reg.Register("llama", backend.NewLlamaBackend(backend.LlamaConfig{
			ModelPath:   modelPath,
			Threads:     cfg.Threads,
			ContextSize: cfg.ContextSize,
			GPULayers:   cfg.GPULayers,
			Logger:      log,
		}))
	}
	if cfg.OpenAIAPIKey != "" {
		ob, err := backend.NewOpenAIBackend(backend.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return nil, nil, err
		}
		reg.Register("openai", ob)
	}

	// First registered wins: local llama when a model is present, the
	// OpenAI-compatible API otherwise.
	b, ok := reg.Get("")
	if !ok {
		return nil, nil, fmt.Errorf("no backend available: set LLAMA_MODEL_PATH (or MODEL_URL) or OPENAI_API_KEY")
	}
	if b.Name() != "llama" {
		fmt.Fprintln(os.Stderr, "⚠️ No local model configured, falling back to OpenAI-compatible API")
	}
	log.Debug("backend selected",
		zap.String("backend", b.Name()),
		zap.Strings("registered", reg.Names()))

	comp := handler.NewCompletion(b, cfg.ModelName, cfg.ContextSize, log)
	return comp.Handle, reg.Close, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveHTTP, "http", false, "serve jobs over a local HTTP dev server instead of the platform")
}
