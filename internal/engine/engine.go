package engine

import "context"

// Engine abstracts a local inference backend (Ollama or any compatible
// server). The query pipeline depends on this interface for embedding and
// text generation instead of a concrete client.
type Engine interface {
	// Embed returns the embedding vector for the given text using the specified model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// Generate returns the model's continuation of the prompt, sampled with
	// the given options.
	Generate(ctx context.Context, model string, prompt string, opts GenerateOptions) (string, error)

	// IsRunning reports whether the inference backend is reachable.
	IsRunning(ctx context.Context) bool

	// ListModels returns the names of all locally available models.
	ListModels(ctx context.Context) ([]string, error)

	// HasModel reports whether the given model name is available locally.
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. The optional callback receives progress updates.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
