// Package job defines the serverless job contract: the input the dispatch
// platform hands a worker and the result the worker hands back. The shapes
// mirror the platform's invocation envelope, so they are plain JSON structs
// with no behavior beyond default filling.
package job

import (
	"context"

	"github.com/wizeapp/inference-worker/internal/chat"
)

// Generation parameter defaults applied when the input omits them.
const (
	DefaultMaxTokens   = 2048
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
)

// Input is the caller-supplied payload of a job. The generation parameters
// are pointers so an explicit zero is distinguishable from an absent field;
// only absent fields take the worker defaults.
type Input struct {
	Messages    []chat.Message `json:"messages"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	TopP        *float64       `json:"top_p,omitempty"`
}

// Request is a single job as delivered by the platform.
type Request struct {
	ID    string `json:"id"`
	Input Input  `json:"input"`
}

// Result is the handler's output envelope. On success Choices/Usage are set;
// on failure only Error (and ExecutionTime) are. There is no third state:
// every failure, whatever its cause, is flattened into Error.
type Result struct {
	Choices []chat.Choice `json:"choices,omitempty"`
	Usage   *chat.Usage   `json:"usage,omitempty"`
	Model   string        `json:"model,omitempty"`

	// Wall-clock seconds for the whole job and for generation alone.
	ExecutionTime  float64 `json:"execution_time,omitempty"`
	GenerationTime float64 `json:"generation_time,omitempty"`

	Error string `json:"error,omitempty"`
}

// Handler processes one job. Implementations must not panic; failures are
// reported through Result.Error.
type Handler func(ctx context.Context, req *Request) *Result

// Failed reports whether the result carries an error.
func (r *Result) Failed() bool {
	return r.Error != ""
}

// WithDefaults returns a copy of the input with absent generation parameters
// filled in with the worker defaults. Explicit values, zero included, are
// kept.
func (in Input) WithDefaults() Input {
	if in.MaxTokens == nil {
		v := DefaultMaxTokens
		in.MaxTokens = &v
	}
	if in.Temperature == nil {
		v := DefaultTemperature
		in.Temperature = &v
	}
	if in.TopP == nil {
		v := DefaultTopP
		in.TopP = &v
	}
	return in
}
