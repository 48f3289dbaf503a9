package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"equity-backend/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	uploadPurpose  = "assistants"

	// deleteDelay gives the index deletion time to propagate before the
	// file deletion, which the service rejects while still referenced.
	deleteDelay = 1 * time.Second
)

// Client implements Manager against the OpenAI files and vector stores API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	poll       PollPolicy
	sleep      func(time.Duration)
}

// NewClient constructs a Client with the given polling policy.
func NewClient(apiKey string, poll PollPolicy) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		poll:       poll,
		sleep:      time.Sleep,
	}, nil
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// SetSleep overrides the propagation-delay sleep, used by tests.
func (c *Client) SetSleep(sleep func(time.Duration)) {
	c.sleep = sleep
}

type apiObject struct {
	ID        string `json:"id"`
	Status    string `json:"status,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
	LastError *struct {
		Message string `json:"message"`
	} `json:"last_error,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, contentType string, body io.Reader) (apiObject, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apiObject{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apiObject{}, fmt.Errorf("vectorstore request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiObject{}, fmt.Errorf("vectorstore read %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apiObject{}, fmt.Errorf("%s: %w", path, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apiObject{}, fmt.Errorf("%s: %w", path, ErrRateLimited)
	case resp.StatusCode >= 400:
		var parsed apiObject
		if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil {
			return apiObject{}, fmt.Errorf("vectorstore %s status %d: %s", path, resp.StatusCode, parsed.Error.Message)
		}
		return apiObject{}, fmt.Errorf("vectorstore %s status %d", path, resp.StatusCode)
	}

	var parsed apiObject
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return apiObject{}, fmt.Errorf("vectorstore parse %s: %w", path, err)
	}
	return parsed, nil
}

// UploadFile sends the file at path with the assistants purpose tag and
// returns the remote file handle.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("buffer upload %s: %w", path, err)
	}
	if err := writer.WriteField("purpose", uploadPurpose); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	obj, err := c.do(ctx, http.MethodPost, "/files", writer.FormDataContentType(), &buf)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	telemetry.Info("vectorstore.file.uploaded", map[string]any{"file_id": obj.ID, "name": filepath.Base(path)})
	return obj.ID, nil
}

type createStoreRequest struct {
	Name    string   `json:"name"`
	FileIDs []string `json:"file_ids"`
}

// CreateVectorStore creates an index over the given file handles. Indexing
// starts automatically; readiness is observed via WaitForFileReady.
func (c *Client) CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error) {
	if len(fileIDs) == 0 {
		return "", fmt.Errorf("create vector store %q: no file ids", name)
	}
	payload, err := json.Marshal(createStoreRequest{Name: name, FileIDs: fileIDs})
	if err != nil {
		return "", err
	}
	obj, err := c.do(ctx, http.MethodPost, "/vector_stores", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create vector store %q: %w", name, err)
	}
	telemetry.Info("vectorstore.created", map[string]any{"vector_store_id": obj.ID, "name": name, "status": obj.Status})
	return obj.ID, nil
}

// WaitForFileReady polls the file's status within the index until terminal
// or timeout, per the configured PollPolicy.
func (c *Client) WaitForFileReady(ctx context.Context, vectorStoreID, fileID string) (bool, error) {
	path := "/vector_stores/" + vectorStoreID + "/files/" + fileID
	return c.poll.Run(ctx, func(ctx context.Context) (PollOutcome, error) {
		obj, err := c.do(ctx, http.MethodGet, path, "", nil)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				// The file/index association may not have propagated yet.
				telemetry.Warn("vectorstore.poll.not_found", map[string]any{"vector_store_id": vectorStoreID, "file_id": fileID})
				return OutcomeNotFound, nil
			case errors.Is(err, ErrRateLimited):
				telemetry.Warn("vectorstore.poll.rate_limited", map[string]any{"vector_store_id": vectorStoreID, "file_id": fileID})
				return OutcomeRateLimited, nil
			default:
				return OutcomeFailed, fmt.Errorf("poll file status: %w", err)
			}
		}
		switch FileStatus(obj.Status) {
		case StatusCompleted:
			return OutcomeCompleted, nil
		case StatusFailed:
			reason := "unknown error"
			if obj.LastError != nil {
				reason = obj.LastError.Message
			}
			return OutcomeFailed, fmt.Errorf("indexing failed: %s", reason)
		case StatusCancelled:
			return OutcomeFailed, fmt.Errorf("indexing cancelled")
		default:
			return OutcomeInProgress, nil
		}
	})
}

// DeleteVectorStore removes an index; an already-absent index is success.
func (c *Client) DeleteVectorStore(ctx context.Context, vectorStoreID string) bool {
	obj, err := c.do(ctx, http.MethodDelete, "/vector_stores/"+vectorStoreID, "", nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true
		}
		telemetry.Error("vectorstore.delete.failed", map[string]any{"vector_store_id": vectorStoreID, "err": err.Error()})
		return false
	}
	return obj.Deleted
}

// DeleteFile removes a file; an already-absent file is success.
func (c *Client) DeleteFile(ctx context.Context, fileID string) bool {
	obj, err := c.do(ctx, http.MethodDelete, "/files/"+fileID, "", nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true
		}
		telemetry.Error("vectorstore.file.delete.failed", map[string]any{"file_id": fileID, "err": err.Error()})
		return false
	}
	return obj.Deleted
}

// Cleanup deletes the index before the file. The service can reject file
// deletion while the file is still referenced by an index, so the order
// matters and a short delay lets the first deletion propagate.
func (c *Client) Cleanup(ctx context.Context, vectorStoreID, fileID string) bool {
	ok := true
	if vectorStoreID != "" {
		if !c.DeleteVectorStore(ctx, vectorStoreID) {
			ok = false
		}
	}
	if fileID != "" {
		if vectorStoreID != "" {
			c.sleep(deleteDelay)
		}
		if !c.DeleteFile(ctx, fileID) {
			ok = false
		}
	}
	return ok
}

var _ Manager = (*Client)(nil)
