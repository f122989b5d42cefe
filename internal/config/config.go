// Package config provides centralized configuration for the inference worker.
// Values come from the environment (optionally seeded from a .env file), with
// an optional YAML file overlay for deployments that prefer files over env.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all settings for the worker process.
type Config struct {
	// Model settings
	ModelPath   string `yaml:"model_path"`
	ModelName   string `yaml:"model_name"`
	ModelURL    string `yaml:"model_url"`
	ModelsDir   string `yaml:"models_dir"`
	Threads     int    `yaml:"threads"`
	ContextSize int    `yaml:"context_size"`
	GPULayers   int    `yaml:"gpu_layers"`

	// OpenAI-compatible fallback settings
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`

	// Platform settings
	EndpointID  string `yaml:"endpoint_id"`
	APIKey      string `yaml:"api_key"`
	APIBaseURL  string `yaml:"api_base_url"`
	PollTimeout int    `yaml:"poll_timeout"` // seconds

	// Local dev server settings
	Port string `yaml:"port"`

	Debug bool `yaml:"debug"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// Default values
const (
	DefaultModelName     = "deepseek-r1-distill-llama-8b"
	DefaultModelsDir     = "models"
	DefaultThreads       = 4
	DefaultContextSize   = 4096
	DefaultOpenAIModel   = "gpt-4"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultAPIBaseURL    = "https://api.runpod.ai/v2"
	DefaultPollTimeout   = 90
	DefaultPort          = "8000"
)

// Get returns the global configuration, loading it on first use.
func Get() *Config {
	configOnce.Do(func() {
		globalConfig = Load()
	})
	return globalConfig
}

// Reset clears the global configuration, forcing reload on next Get().
// This is primarily useful for testing.
func Reset() {
	configOnce = sync.Once{}
	globalConfig = nil
}

// Load builds a configuration from the environment, then applies the YAML
// overlay named by WORKER_CONFIG (if set).
func Load() *Config {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg := loadFromEnv()

	path := getEnv("WORKER_CONFIG", "")
	if path == "" {
		return cfg
	}
	if err := cfg.ApplyFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
	}
	return cfg
}

func loadFromEnv() *Config {
	return &Config{
		ModelPath:   getEnv("LLAMA_MODEL_PATH", ""),
		ModelName:   getEnv("MODEL_NAME", DefaultModelName),
		ModelURL:    getEnv("MODEL_URL", ""),
		ModelsDir:   getEnv("MODELS_DIR", DefaultModelsDir),
		Threads:     getEnvInt("LLAMA_THREADS", DefaultThreads),
		ContextSize: getEnvInt("LLAMA_CONTEXT", DefaultContextSize),
		GPULayers:   getEnvInt("LLAMA_GPU_LAYERS", 0),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", DefaultOpenAIBaseURL),
		OpenAIModel:   getEnv("OPENAI_MODEL", DefaultOpenAIModel),

		EndpointID:  getEnv("RUNPOD_ENDPOINT_ID", ""),
		APIKey:      getEnv("RUNPOD_API_KEY", ""),
		APIBaseURL:  getEnv("RUNPOD_API_BASE", DefaultAPIBaseURL),
		PollTimeout: getEnvInt("WORKER_POLL_TIMEOUT", DefaultPollTimeout),

		Port:  getEnv("PORT", DefaultPort),
		Debug: getEnvBool("WORKER_DEBUG", false),
	}
}

// NewConfig creates a configuration with defaults and no environment input.
// This is useful for testing or programmatic configuration.
func NewConfig() *Config {
	return &Config{
		ModelName:     DefaultModelName,
		ModelsDir:     DefaultModelsDir,
		Threads:       DefaultThreads,
		ContextSize:   DefaultContextSize,
		OpenAIBaseURL: DefaultOpenAIBaseURL,
		OpenAIModel:   DefaultOpenAIModel,
		APIBaseURL:    DefaultAPIBaseURL,
		PollTimeout:   DefaultPollTimeout,
		Port:          DefaultPort,
	}
}

// ApplyFile overlays non-zero values from a YAML file onto the configuration.
func (c *Config) ApplyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(b, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.merge(&overlay)
	return nil
}

func (c *Config) merge(o *Config) {
	if o.ModelPath != "" {
		c.ModelPath = o.ModelPath
	}
	if o.ModelName != "" {
		c.ModelName = o.ModelName
	}
	if o.ModelURL != "" {
		c.ModelURL = o.ModelURL
	}
	if o.ModelsDir != "" {
		c.ModelsDir = o.ModelsDir
	}
	if o.Threads > 0 {
		c.Threads = o.Threads
	}
	if o.ContextSize > 0 {
		c.ContextSize = o.ContextSize
	}
	if o.GPULayers > 0 {
		c.GPULayers = o.GPULayers
	}
	if o.OpenAIAPIKey != "" {
		c.OpenAIAPIKey = o.OpenAIAPIKey
	}
	if o.OpenAIBaseURL != "" {
		c.OpenAIBaseURL = o.OpenAIBaseURL
	}
	if o.OpenAIModel != "" {
		c.OpenAIModel = o.OpenAIModel
	}
	if o.EndpointID != "" {
		c.EndpointID = o.EndpointID
	}
	if o.APIKey != "" {
		c.APIKey = o.APIKey
	}
	if o.APIBaseURL != "" {
		c.APIBaseURL = o.APIBaseURL
	}
	if o.PollTimeout > 0 {
		c.PollTimeout = o.PollTimeout
	}
	if o.Port != "" {
		c.Port = o.Port
	}
	if o.Debug {
		c.Debug = true
	}
}

// WithModel configures local model settings.
func (c *Config) WithModel(path string, threads, contextSize int) *Config {
	c.ModelPath = path
	if threads > 0 {
		c.Threads = threads
	}
	if contextSize > 0 {
		c.ContextSize = contextSize
	}
	return c
}

// WithOpenAI configures the OpenAI-compatible fallback.
func (c *Config) WithOpenAI(apiKey, baseURL, model string) *Config {
	c.OpenAIAPIKey = apiKey
	if baseURL != "" {
		c.OpenAIBaseURL = baseURL
	}
	if model != "" {
		c.OpenAIModel = model
	}
	return c
}

// WithEndpoint configures the platform endpoint the poller talks to.
func (c *Config) WithEndpoint(endpointID, apiKey string) *Config {
	c.EndpointID = endpointID
	c.APIKey = apiKey
	return c
}

// WithDebug enables debug logging.
func (c *Config) WithDebug(debug bool) *Config {
	c.Debug = debug
	return c
}

// Serverless reports whether the process should run the platform poller
// rather than a local test job.
func (c *Config) Serverless() bool {
	return c.EndpointID != ""
}

// Validate checks settings that would otherwise only fail at request time.
func (c *Config) Validate() error {
	if c.Serverless() && c.APIKey == "" {
		return fmt.Errorf("RUNPOD_API_KEY is required when RUNPOD_ENDPOINT_ID is set")
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		// ParseBool accepts "1"/"0" alongside "true"/"false"
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
