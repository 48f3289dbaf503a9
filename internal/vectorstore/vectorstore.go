package vectorstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound marks a missing remote resource.
	ErrNotFound = errors.New("remote resource not found")
	// ErrRateLimited marks a rate-limit response from the remote service.
	ErrRateLimited = errors.New("remote service rate limited")
)

// FileStatus is the remote service's view of one file's indexing progress.
type FileStatus string

const (
	StatusQueued     FileStatus = "queued"
	StatusInProgress FileStatus = "in_progress"
	StatusCompleted  FileStatus = "completed"
	StatusFailed     FileStatus = "failed"
	StatusCancelled  FileStatus = "cancelled"
)

// Manager wraps the external managed file-indexing service: upload a file,
// create an index scoped to it, poll until indexing completes, tear both
// down on cleanup.
type Manager interface {
	// UploadFile sends the file at path and returns the remote file handle.
	UploadFile(ctx context.Context, path string) (string, error)
	// CreateVectorStore creates an index over the given file handles.
	CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error)
	// WaitForFileReady polls until the file reaches a terminal state or the
	// configured timeout elapses. It reports success and, on failure, the
	// service-reported reason.
	WaitForFileReady(ctx context.Context, vectorStoreID, fileID string) (bool, error)
	// DeleteVectorStore removes an index. Deleting an absent index succeeds.
	DeleteVectorStore(ctx context.Context, vectorStoreID string) bool
	// DeleteFile removes a file. Deleting an absent file succeeds.
	DeleteFile(ctx context.Context, fileID string) bool
	// Cleanup deletes the index before its file, waiting briefly in between
	// so the deletion can propagate. Absent resources are treated as
	// already cleaned up.
	Cleanup(ctx context.Context, vectorStoreID, fileID string) bool
}
