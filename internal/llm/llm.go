package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrRateLimited marks a rate-limit response from the provider.
var ErrRateLimited = errors.New("llm rate limited")

// GenerateInput carries one retrieval-augmented generation request.
type GenerateInput struct {
	Model           string
	Prompt          string
	Temperature     float32
	MaxOutputTokens int

	// VectorStoreID attaches the provider's document-search tool when set.
	VectorStoreID    string
	MaxSearchResults int
}

// GenerateResult is the free-text answer plus the raw snippets retrieved by
// the document-search tool, when one was attached.
type GenerateResult struct {
	Text      string
	Citations []string
}

// Generator issues a single generation call, optionally grounded in a
// remote vector store.
type Generator interface {
	Generate(ctx context.Context, input GenerateInput) (GenerateResult, error)
}

// Synthesizer produces a structured JSON document from a prompt.
type Synthesizer interface {
	Synthesize(ctx context.Context, model, prompt string) (json.RawMessage, error)
}

// Embedder encodes text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
