// Command batch analyzes every PDF in a folder against the four equity
// focus areas and writes the collected answers to a single JSON file.
// Progress is flushed after each document so a crash loses at most one.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"equity-backend/internal/extract"
	"equity-backend/internal/llm/openai"
	"equity-backend/internal/localindex"
	"equity-backend/internal/rag"
	"equity-backend/internal/session"
	"equity-backend/internal/shared/config"
	"equity-backend/internal/vectorstore"
)

const batchQuery = "Analyze this document in detail, concentrating on the specified equity focus area."

type documentResult struct {
	Filename string            `json:"filename"`
	Title    string            `json:"title"`
	Analyses map[string]string `json:"analyses"`
}

func main() {
	documentsDir := flag.String("documents", "Documents", "folder containing PDFs to analyze")
	outFile := flag.String("out", "analysis_results.json", "output JSON file")
	flag.Parse()

	cfg := config.Load()
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY is not set")
	}

	client, err := openai.NewClient(cfg.OpenAIAPIKey)
	if err != nil {
		log.Fatalf("openai client: %v", err)
	}
	index, err := localindex.Load(cfg.LocalIndexPath)
	if err != nil {
		log.Fatalf("local index failed to load, cannot proceed: %v", err)
	}
	embedder, err := openai.NewEmbeddingClient(client, cfg.EmbeddingModel)
	if err != nil {
		log.Fatalf("embedding client: %v", err)
	}
	index.SetEmbedder(embedder)

	remote, err := vectorstore.NewClient(cfg.OpenAIAPIKey, vectorstore.PollPolicy{
		Timeout:  cfg.ProcessingTimeout,
		Interval: cfg.PollInterval,
	})
	if err != nil {
		log.Fatalf("vector store client: %v", err)
	}

	tempDir, err := os.MkdirTemp("", "batch_analysis")
	if err != nil {
		log.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	registry := session.NewRegistry()
	uploader := session.NewUploader(registry, remote, tempDir)
	engine := &rag.Engine{
		Local:            index,
		Generator:        client,
		Sessions:         registry,
		Model:            cfg.ResponsesModel,
		Temperature:      cfg.Temperature,
		MaxOutputTokens:  cfg.MaxOutputTokens,
		LocalTopK:        cfg.LocalTopK,
		MaxSearchResults: cfg.MaxSearchResults,
	}
	limiter := rate.NewLimiter(rate.Every(cfg.RequestDelay), 1)

	pdfs, err := listPDFs(*documentsDir)
	if err != nil {
		log.Fatalf("read documents folder: %v", err)
	}
	if len(pdfs) == 0 {
		log.Printf("no PDF files found in %q", *documentsDir)
		return
	}
	log.Printf("found %d PDF documents to analyze", len(pdfs))

	ctx := context.Background()
	var results []documentResult
	for i, name := range pdfs {
		log.Printf("analyzing document %d of %d: %s", i+1, len(pdfs), name)
		results = append(results, analyzeDocument(ctx, uploader, engine, limiter, *documentsDir, name))
		if err := writeResults(*outFile, results); err != nil {
			log.Printf("could not write progress: %v", err)
		}
	}
	log.Printf("batch analysis complete, results saved to %q", *outFile)
}

func analyzeDocument(ctx context.Context, uploader *session.Uploader, engine *rag.Engine, limiter *rate.Limiter, dir, name string) documentResult {
	path := filepath.Join(dir, name)
	result := documentResult{
		Filename: name,
		Title:    extract.Title(path, name),
		Analyses: make(map[string]string, len(rag.FocusAreas)),
	}

	sessionID := strings.ReplaceAll(strings.TrimSuffix(name, filepath.Ext(name)), " ", "_")
	defer uploader.Teardown(ctx, sessionID)

	if err := checkReadable(path); err != nil {
		failAll(&result, fmt.Sprintf("Document is not a readable PDF: %v", err))
		return result
	}

	f, err := os.Open(path)
	if err != nil {
		failAll(&result, fmt.Sprintf("Could not open document: %v", err))
		return result
	}
	ok, msg := uploader.BeginUpload(ctx, sessionID, name, f)
	f.Close()
	if !ok {
		failAll(&result, "Document processing failed: "+msg)
		return result
	}

	for _, focus := range rag.FocusAreas {
		if err := limiter.Wait(ctx); err != nil {
			failAll(&result, err.Error())
			return result
		}
		ans, err := engine.Answer(ctx, sessionID, batchQuery, focus, "")
		if err != nil {
			result.Analyses[string(focus)] = "ANALYSIS FAILED: " + err.Error()
			continue
		}
		result.Analyses[string(focus)] = ans.Text
	}
	return result
}

// checkReadable rejects files the PDF parser cannot extract text from
// before spending an upload on them.
func checkReadable(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text, err := extract.Text(data)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no extractable text")
	}
	return nil
}

func failAll(result *documentResult, msg string) {
	for _, focus := range rag.FocusAreas {
		if _, done := result.Analyses[string(focus)]; !done {
			result.Analyses[string(focus)] = "ANALYSIS FAILED: " + msg
		}
	}
}

func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var pdfs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			pdfs = append(pdfs, entry.Name())
		}
	}
	return pdfs, nil
}

func writeResults(path string, results []documentResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
