package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	llama "github.com/go-skynet/go-llama.cpp"
)

func TestBackendRegistry(t *testing.T) {
	registry := NewRegistry()

	// Register a mock backend
	mockBackend := &mockBackend{}
	registry.Register("mock", mockBackend)

	// Retrieve it
	retrieved, ok := registry.Get("mock")
	if !ok || retrieved == nil {
		t.Error("failed to retrieve registered backend")
	}

	// Non-existent backend
	notFound, ok := registry.Get("nonexistent")
	if ok || notFound != nil {
		t.Error("expected not found for non-existent backend")
	}
}

func TestDefaultBackend(t *testing.T) {
	registry := NewRegistry()

	// Register first backend - should become default
	mock1 := &mockBackend{name: "mock1"}
	registry.Register("mock1", mock1)

	// Get with empty name should return default
	retrieved, ok := registry.Get("")
	if !ok || retrieved == nil {
		t.Fatal("failed to get default backend")
	}
	if retrieved.Name() != "mock1" {
		t.Errorf("expected mock1, got %s", retrieved.Name())
	}

	// Register second and set as default
	mock2 := &mockBackend{name: "mock2"}
	registry.Register("mock2", mock2)
	registry.SetDefault("mock2")

	retrieved, _ = registry.Get("")
	if retrieved.Name() != "mock2" {
		t.Errorf("expected mock2 as default, got %s", retrieved.Name())
	}
}

func TestRegistryClose(t *testing.T) {
	registry := NewRegistry()
	mock := &mockBackend{}
	registry.Register("mock", mock)

	if err := registry.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !mock.closed {
		t.Error("backend was not closed")
	}
}

func TestLlamaBackendNoPath(t *testing.T) {
	b := NewLlamaBackend(LlamaConfig{})

	_, err := b.Generate(context.Background(), "prompt", Params{MaxTokens: 10})
	if err == nil {
		t.Fatal("expected error with no model path")
	}
	if !strings.Contains(err.Error(), "model path") {
		t.Errorf("error = %v", err)
	}
	if b.Loaded() {
		t.Error("backend should not report a loaded model")
	}
}

func TestLlamaBackendMissingFile(t *testing.T) {
	b := NewLlamaBackend(LlamaConfig{ModelPath: "/nonexistent/model.gguf"})

	_, err := b.Generate(context.Background(), "prompt", Params{MaxTokens: 10})
	if err == nil {
		t.Fatal("expected error for missing model file")
	}
	if !strings.Contains(err.Error(), "model file not found") {
		t.Errorf("error = %v", err)
	}
}

// stubModelFile creates an empty file standing in for a GGUF model so load()
// gets past its existence check.
func stubModelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.gguf")
	if err := os.WriteFile(path, []byte("stub"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// stubLoader swaps the model constructor and frees for the duration of a test.
func stubLoader(t *testing.T, load func() (*llama.LLama, error)) *atomic.Int32 {
	t.Helper()
	var loads atomic.Int32
	oldNew, oldFree := newModel, freeModel
	newModel = func(path string, opts ...llama.ModelOption) (*llama.LLama, error) {
		loads.Add(1)
		return load()
	}
	freeModel = func(m *llama.LLama) {}
	t.Cleanup(func() {
		newModel, freeModel = oldNew, oldFree
	})
	return &loads
}

func TestLlamaBackendLoadsOnce(t *testing.T) {
	loads := stubLoader(t, func() (*llama.LLama, error) {
		// Hold the load open long enough for the other goroutines to pile up
		time.Sleep(20 * time.Millisecond)
		return new(llama.LLama), nil
	})

	b := NewLlamaBackend(LlamaConfig{ModelPath: stubModelFile(t)})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.load(); err != nil {
				t.Errorf("load() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("model loaded %d times, want 1", got)
	}
	if !b.Loaded() {
		t.Error("backend should report a loaded model")
	}
}

func TestLlamaBackendRetriesFailedLoad(t *testing.T) {
	var calls atomic.Int32
	loads := stubLoader(t, func() (*llama.LLama, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("out of memory")
		}
		return new(llama.LLama), nil
	})

	b := NewLlamaBackend(LlamaConfig{ModelPath: stubModelFile(t)})

	if _, err := b.load(); err == nil {
		t.Fatal("expected first load to fail")
	}
	if b.Loaded() {
		t.Error("failed load must not be cached")
	}

	if _, err := b.load(); err != nil {
		t.Fatalf("second load error = %v", err)
	}
	if !b.Loaded() {
		t.Error("backend should report a loaded model after retry")
	}
	if got := loads.Load(); got != 2 {
		t.Errorf("model load attempted %d times, want 2", got)
	}
}

func TestLlamaBackendCloseWaitsForPredict(t *testing.T) {
	var freed atomic.Bool
	oldNew, oldFree := newModel, freeModel
	newModel = func(path string, opts ...llama.ModelOption) (*llama.LLama, error) {
		return new(llama.LLama), nil
	}
	freeModel = func(m *llama.LLama) { freed.Store(true) }
	defer func() {
		newModel, freeModel = oldNew, oldFree
	}()

	b := NewLlamaBackend(LlamaConfig{ModelPath: stubModelFile(t)})
	if _, err := b.load(); err != nil {
		t.Fatal(err)
	}

	// Simulate an in-flight predict holding the serialization lock
	predictMu.Lock()
	done := make(chan struct{})
	go func() {
		b.Close()
		close(done)
	}()

	select {
	case <-done:
		predictMu.Unlock()
		t.Fatal("Close freed the model during an in-flight predict")
	case <-time.After(50 * time.Millisecond):
	}
	predictMu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close never finished")
	}

	if !freed.Load() {
		t.Error("model was not freed")
	}
	if b.Loaded() {
		t.Error("backend still reports a loaded model after Close")
	}
}

func TestLlamaBackendRealModel(t *testing.T) {
	// Needs a real GGUF model and the compiled llama.cpp binding.
	t.Skip("requires a local GGUF model; set LLAMA_MODEL_PATH and remove the skip to run")
}

func TestOpenAIBackendRequiresKey(t *testing.T) {
	_, err := NewOpenAIBackend(OpenAIConfig{})
	if err == nil {
		t.Error("expected error without an API key")
	}
}

// Mock implementation for testing
type mockBackend struct {
	name   string
	closed bool
}

func (m *mockBackend) Generate(ctx context.Context, prompt string, params Params) (Generation, error) {
	return Generation{Text: "mock response"}, nil
}

func (m *mockBackend) Name() string {
	if m.name != "" {
		return m.name
	}
	return "mock"
}

func (m *mockBackend) Close() error {
	m.closed = true
	return nil
}
