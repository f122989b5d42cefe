package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	llama "github.com/go-skynet/go-llama.cpp"
	"go.uber.org/zap"

	"github.com/wizeapp/inference-worker/internal/prompt"
)

// LlamaBackend implements Backend using local llama.cpp inference over a
// single GGUF model. The model is loaded lazily on the first request and
// cached for the life of the process; a failed load is retried on the next
// request rather than poisoning the backend.
type LlamaBackend struct {
	modelPath   string
	threads     int
	contextSize int
	gpuLayers   int

	log *zap.Logger

	loadMu sync.Mutex
	model  *llama.LLama
}

// predictMu serializes Predict calls; the ggml/llama C layer is not reentrant.
var predictMu sync.Mutex

// newModel and freeModel are indirected so load behavior can be tested
// without a compiled llama.cpp or a real model file.
var (
	newModel = func(path string, opts ...llama.ModelOption) (*llama.LLama, error) {
		return llama.New(path, opts...)
	}
	freeModel = func(m *llama.LLama) {
		m.Free()
	}
)

// LlamaConfig holds configuration for the llama backend.
type LlamaConfig struct {
	ModelPath   string
	Threads     int
	ContextSize int
	GPULayers   int
	Logger      *zap.Logger
}

// NewLlamaBackend creates a local llama backend. The model is not loaded
// until the first Generate call.
func NewLlamaBackend(cfg LlamaConfig) *LlamaBackend {
	b := &LlamaBackend{
		modelPath:   cfg.ModelPath,
		threads:     4,
		contextSize: 4096,
		gpuLayers:   cfg.GPULayers,
		log:         cfg.Logger,
	}
	if cfg.Threads > 0 {
		b.threads = cfg.Threads
	}
	if cfg.ContextSize > 0 {
		b.contextSize = cfg.ContextSize
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	return b
}

// Loaded reports whether the model has been loaded into memory.
func (b *LlamaBackend) Loaded() bool {
	b.loadMu.Lock()
	defer b.loadMu.Unlock()
	return b.model != nil
}

// load returns the cached model handle, loading it on first use.
func (b *LlamaBackend) load() (*llama.LLama, error) {
	b.loadMu.Lock()
	defer b.loadMu.Unlock()

	if b.model != nil {
		return b.model, nil
	}

	if b.modelPath == "" {
		return nil, fmt.Errorf("model path is not configured")
	}
	abs, err := filepath.Abs(b.modelPath)
	if err != nil {
		return nil, fmt.Errorf("resolve model path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("model file not found: %s", abs)
	}

	b.log.Info("loading model",
		zap.String("path", abs),
		zap.Int("context_size", b.contextSize),
		zap.Int("gpu_layers", b.gpuLayers))
	start := time.Now()

	model, err := newModel(abs,
		llama.SetContext(b.contextSize),
		llama.SetGPULayers(b.gpuLayers),
		llama.EnableF16Memory,
	)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", abs, err)
	}

	b.log.Info("model loaded", zap.Duration("took", time.Since(start)))
	b.model = model
	return model, nil
}

// Generate implements Backend.
func (b *LlamaBackend) Generate(ctx context.Context, text string, params Params) (Generation, error) {
	model, err := b.load()
	if err != nil {
		return Generation{}, err
	}

	if err := ctx.Err(); err != nil {
		return Generation{}, err
	}

	predictMu.Lock()
	defer predictMu.Unlock()

	// Count generated tokens as the C layer emits them.
	completionTokens := 0
	model.SetTokenCallback(func(token string) bool {
		completionTokens++
		return ctx.Err() == nil
	})
	defer model.SetTokenCallback(nil)

	out, err := model.Predict(text,
		llama.SetTokens(params.MaxTokens),
		llama.SetThreads(b.threads),
		llama.SetTemperature(float32(params.Temperature)),
		llama.SetTopP(float32(params.TopP)),
		llama.SetPenalty(float32(params.RepeatPenalty)),
		llama.SetStopWords(prompt.EndToken),
	)
	if err != nil {
		return Generation{}, fmt.Errorf("prediction failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Generation{}, err
	}

	return Generation{
		Text:             out,
		PromptTokens:     prompt.EstimateTokens(text),
		CompletionTokens: completionTokens,
	}, nil
}

// Name implements Backend.
func (b *LlamaBackend) Name() string {
	return "llama"
}

// Close implements Backend. It waits out any in-flight predict before
// freeing the C handle.
func (b *LlamaBackend) Close() error {
	predictMu.Lock()
	defer predictMu.Unlock()
	b.loadMu.Lock()
	defer b.loadMu.Unlock()

	if b.model != nil {
		freeModel(b.model)
		b.model = nil
	}
	return nil
}
