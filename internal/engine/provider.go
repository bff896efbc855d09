package engine

import (
	"context"
)

// Engine is a ready-to-use inference engine
type Engine interface {
	// ChatCompletion runs a single non-streaming chat completion.
	// ctx: context for timeout and cancellation control
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Factory constructs engines. Construction may download and load model
// weights and can take minutes on first use.
type Factory interface {
	// CreateEngine prepares the model and returns an engine bound to it.
	// onProgress may be nil; when set it receives every progress report.
	CreateEngine(ctx context.Context, modelID string, runtime RuntimeConfig, onProgress ProgressFunc) (Engine, error)

	// Backend returns the name of the backend this factory builds engines for
	Backend() string
}
