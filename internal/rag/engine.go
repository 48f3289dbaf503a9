package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"equity-backend/internal/llm"
	"equity-backend/internal/localindex"
	"equity-backend/internal/session"
	"equity-backend/internal/shared/telemetry"
)

// ErrEmptyQuery is returned when a query has no content.
var ErrEmptyQuery = errors.New("query must not be empty")

// Answer is the outcome of one hybrid retrieval call: the generated text,
// the framework chunks that grounded it, and citations pulled from the
// remote document search. Local chunks are context only and never appear
// as citations.
type Answer struct {
	Text            string
	LocalChunks     []localindex.Result
	RemoteCitations []string
}

// Engine answers queries by combining local framework retrieval with
// remote file search over the session's uploaded document.
type Engine struct {
	Local     *localindex.Index
	Generator llm.Generator
	Sessions  *session.Registry

	Model            string
	Temperature      float32
	MaxOutputTokens  int
	LocalTopK        int
	MaxSearchResults int
}

// Answer runs hybrid RAG for the session's query, with an optional focus
// emphasis and caller-supplied instructions. A missing or failed uploaded
// document degrades to framework-only analysis; a missing local index
// degrades to document-only analysis. Only generation itself is a hard
// error.
func (e *Engine) Answer(ctx context.Context, sessionID, query string, focus Focus, custom string) (Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Answer{}, ErrEmptyQuery
	}

	fileName := "N/A"
	vectorStoreID := ""
	if rec, ok := e.Sessions.Get(sessionID); ok {
		fileName = rec.FileName
		if rec.UploadStatus == session.UploadCompleted {
			vectorStoreID = rec.VectorStoreID
		} else {
			telemetry.Warn("rag.session.document_unavailable", map[string]any{
				"session_id": sessionID,
				"status":     string(rec.UploadStatus),
			})
		}
	} else {
		telemetry.Warn("rag.session.unknown", map[string]any{"session_id": sessionID})
	}

	var localChunks []localindex.Result
	if e.Local != nil {
		localChunks = e.Local.Search(ctx, query, e.LocalTopK)
	}

	prompt := buildPrompt(fileName, query, formatLocalContext(localChunks), focus, custom)

	start := time.Now()
	result, err := e.Generator.Generate(ctx, llm.GenerateInput{
		Model:            e.Model,
		Prompt:           prompt,
		Temperature:      e.Temperature,
		MaxOutputTokens:  e.MaxOutputTokens,
		VectorStoreID:    vectorStoreID,
		MaxSearchResults: e.MaxSearchResults,
	})
	if err != nil {
		telemetry.Error("rag.generate.failed", map[string]any{"session_id": sessionID, "err": err.Error()})
		return Answer{LocalChunks: localChunks}, fmt.Errorf("generate answer: %w", err)
	}
	telemetry.Info("rag.generate.completed", map[string]any{
		"session_id":   sessionID,
		"duration_ms":  time.Since(start).Milliseconds(),
		"local_chunks": len(localChunks),
		"citations":    len(result.Citations),
		"file_search":  vectorStoreID != "",
	})

	return Answer{
		Text:            result.Text,
		LocalChunks:     localChunks,
		RemoteCitations: result.Citations,
	}, nil
}
