package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/wizeapp/inference-worker/internal/config"
)

func stubModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.gguf")
	if err := os.WriteFile(path, []byte("stub"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildCompletionHandlerPrefersLocalModel(t *testing.T) {
	cfg := config.NewConfig().
		WithModel(stubModel(t), 0, 0).
		WithOpenAI("test-key", "", "")

	h, cleanup, err := buildCompletionHandler(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildCompletionHandler() error = %v", err)
	}
	defer cleanup()

	if h == nil {
		t.Fatal("handler should not be nil")
	}
}

func TestBuildCompletionHandlerOpenAIFallback(t *testing.T) {
	cfg := config.NewConfig().WithOpenAI("test-key", "", "")

	h, cleanup, err := buildCompletionHandler(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildCompletionHandler() error = %v", err)
	}
	defer cleanup()

	if h == nil {
		t.Fatal("handler should not be nil")
	}
}

func TestBuildCompletionHandlerNoBackend(t *testing.T) {
	cfg := config.NewConfig()

	_, _, err := buildCompletionHandler(cfg, zap.NewNop())
	if err == nil {
		t.Fatal("expected error with no model and no API key")
	}
}
