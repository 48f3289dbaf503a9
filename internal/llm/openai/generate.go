package openai

import (
	"context"
	"fmt"
	"strings"

	"equity-backend/internal/llm"
)

type fileSearchTool struct {
	Type           string   `json:"type"`
	VectorStoreIDs []string `json:"vector_store_ids"`
	MaxNumResults  int      `json:"max_num_results,omitempty"`
}

type responsesRequest struct {
	Model           string           `json:"model"`
	Input           string           `json:"input"`
	Temperature     *float32         `json:"temperature,omitempty"`
	MaxOutputTokens int              `json:"max_output_tokens,omitempty"`
	Tools           []fileSearchTool `json:"tools,omitempty"`
	Include         []string         `json:"include,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Status  string `json:"status,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content,omitempty"`
		Results []struct {
			Text     string `json:"text"`
			FileName string `json:"filename"`
		} `json:"results,omitempty"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate issues one call to the Responses API. When input.VectorStoreID is
// set, a file_search tool scoped to that store is attached and its raw
// retrieved snippets are returned as citations.
func (c *Client) Generate(ctx context.Context, input llm.GenerateInput) (llm.GenerateResult, error) {
	req := responsesRequest{
		Model:           input.Model,
		Input:           input.Prompt,
		MaxOutputTokens: input.MaxOutputTokens,
	}
	temp := input.Temperature
	req.Temperature = &temp
	if input.VectorStoreID != "" {
		req.Tools = []fileSearchTool{{
			Type:           "file_search",
			VectorStoreIDs: []string{input.VectorStoreID},
			MaxNumResults:  input.MaxSearchResults,
		}}
		// Tool results are only present when explicitly requested.
		req.Include = []string{"file_search_call.results"}
	}

	var parsed responsesResponse
	if err := c.post(ctx, "/responses", req, &parsed); err != nil {
		return llm.GenerateResult{}, err
	}
	if parsed.Error != nil {
		return llm.GenerateResult{}, fmt.Errorf("openai responses error: %s", parsed.Error.Message)
	}

	var result llm.GenerateResult
	for _, item := range parsed.Output {
		switch item.Type {
		case "message":
			if result.Text != "" {
				continue
			}
			for _, content := range item.Content {
				if content.Type == "output_text" {
					result.Text = strings.TrimSpace(content.Text)
					break
				}
			}
		case "file_search_call":
			for _, r := range item.Results {
				snippet := strings.TrimSpace(r.Text)
				if snippet == "" {
					continue
				}
				if r.FileName != "" {
					snippet = r.FileName + ": " + snippet
				}
				result.Citations = append(result.Citations, snippet)
			}
		}
	}
	if result.Text == "" {
		return result, fmt.Errorf("openai responses missing output_text")
	}
	return result, nil
}

var _ llm.Generator = (*Client)(nil)
