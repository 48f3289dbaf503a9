package openai

import (
	"context"
	"fmt"

	"equity-backend/internal/llm"
)

// EmbeddingClient wraps a Client with a fixed embedding model.
type EmbeddingClient struct {
	client *Client
	model  string
}

// NewEmbeddingClient constructs an EmbeddingClient.
func NewEmbeddingClient(client *Client, model string) (*EmbeddingClient, error) {
	if model == "" {
		return nil, fmt.Errorf("EMBEDDING_MODEL is required")
	}
	return &EmbeddingClient{client: client, model: model}, nil
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed encodes text into a vector using the configured model.
func (e *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var parsed embeddingsResponse
	if err := e.client.post(ctx, "/embeddings", embeddingsRequest{Model: e.model, Input: text}, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai embeddings empty response")
	}
	return parsed.Data[0].Embedding, nil
}

var _ llm.Embedder = (*EmbeddingClient)(nil)
