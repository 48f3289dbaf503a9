package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"equity-backend/internal/shared/telemetry"
	"equity-backend/internal/shared/util"
	"equity-backend/internal/vectorstore"
)

// Uploader runs the synchronous upload flow for a session document: stage
// the bytes to disk, push them to the remote file store, build a vector
// store over them, and wait for indexing. Every return leaves the session
// record in a terminal upload status.
type Uploader struct {
	Registry *Registry
	Remote   vectorstore.Manager
	TempDir  string
}

// NewUploader constructs an Uploader staging files under tempDir.
func NewUploader(registry *Registry, remote vectorstore.Manager, tempDir string) *Uploader {
	return &Uploader{Registry: registry, Remote: remote, TempDir: tempDir}
}

// BeginUpload replaces the session's document with the uploaded one and
// returns whether indexing succeeded plus a user-facing message. The staged
// temp file is kept on success for the analysis pipeline, which removes it
// when it finishes.
func (u *Uploader) BeginUpload(ctx context.Context, sessionID, fileName string, r io.Reader) (bool, string) {
	// One document per session: drop any previous remote resources first.
	u.Teardown(ctx, sessionID)
	uploadID := u.Registry.Register(sessionID, fileName)

	tempPath, sizeKB, err := u.stage(sessionID, uploadID, fileName, r)
	if err != nil {
		msg := fmt.Sprintf("Failed to store uploaded file: %v", err)
		u.fail(sessionID, FailedUpload, msg)
		return false, msg
	}
	u.Registry.Update(sessionID, func(rec *Record) {
		rec.UploadStatus = UploadingFile
		rec.TempFilePath = tempPath
		rec.SizeKB = sizeKB
	})

	fileID, err := u.Remote.UploadFile(ctx, tempPath)
	if err != nil {
		telemetry.Error("session.upload.failed", map[string]any{"session_id": sessionID, "err": err.Error()})
		msg := fmt.Sprintf("Failed to upload file: %v", err)
		u.failAndDiscard(sessionID, FailedUpload, msg, tempPath)
		return false, msg
	}
	u.Registry.Update(sessionID, func(rec *Record) {
		rec.UploadStatus = CreatingVS
		rec.FileID = fileID
	})

	vsID, err := u.Remote.CreateVectorStore(ctx, util.VectorStoreName(sessionID, fileName), []string{fileID})
	if err != nil {
		telemetry.Error("session.vs_creation.failed", map[string]any{"session_id": sessionID, "err": err.Error()})
		msg := fmt.Sprintf("Failed to create vector store: %v", err)
		u.failAndDiscard(sessionID, FailedVSCreation, msg, tempPath)
		return false, msg
	}
	u.Registry.Update(sessionID, func(rec *Record) {
		rec.UploadStatus = VSProcessing
		rec.VectorStoreID = vsID
	})

	ready, err := u.Remote.WaitForFileReady(ctx, vsID, fileID)
	if !ready {
		msg := "Vector store processing failed"
		if err != nil {
			msg = fmt.Sprintf("Vector store processing failed: %v", err)
		}
		telemetry.Error("session.vs_processing.failed", map[string]any{"session_id": sessionID, "err": msg})
		u.failAndDiscard(sessionID, FailedVSProcessing, msg, tempPath)
		return false, msg
	}

	u.Registry.Update(sessionID, func(rec *Record) {
		rec.UploadStatus = UploadCompleted
		rec.UploadMessage = "File processed and ready for queries"
	})
	telemetry.Info("session.upload.completed", map[string]any{
		"session_id":      sessionID,
		"file_name":       fileName,
		"vector_store_id": vsID,
	})
	return true, "File processed and ready for queries"
}

// Teardown deletes the session's remote resources and registry record.
// Absent sessions and already-deleted resources count as success.
func (u *Uploader) Teardown(ctx context.Context, sessionID string) bool {
	rec, ok := u.Registry.Get(sessionID)
	if !ok {
		return true
	}
	cleaned := u.Remote.Cleanup(ctx, rec.VectorStoreID, rec.FileID)
	if rec.TempFilePath != "" {
		if err := os.Remove(rec.TempFilePath); err != nil && !os.IsNotExist(err) {
			telemetry.Warn("session.temp_file.remove_failed", map[string]any{"session_id": sessionID, "err": err.Error()})
		}
	}
	u.Registry.Remove(sessionID)
	telemetry.Info("session.teardown", map[string]any{"session_id": sessionID, "cleaned": cleaned})
	return cleaned
}

func (u *Uploader) stage(sessionID, uploadID, fileName string, r io.Reader) (string, int64, error) {
	if err := os.MkdirAll(u.TempDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create temp dir: %w", err)
	}
	// The upload id keeps consecutive uploads of the same filename from
	// sharing a staged path.
	path := filepath.Join(u.TempDir, sessionID+"_"+uploadID[:8]+"_"+util.SanitizeFileName(fileName))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write temp file: %w", err)
	}
	return path, n / 1024, nil
}

func (u *Uploader) fail(sessionID string, status UploadStatus, msg string) {
	u.Registry.Update(sessionID, func(rec *Record) {
		rec.UploadStatus = status
		rec.UploadMessage = msg
	})
}

// failAndDiscard marks the session failed and removes the staged file;
// a failed upload never reaches the analysis pipeline, so nothing else
// would clean it up.
func (u *Uploader) failAndDiscard(sessionID string, status UploadStatus, msg, tempPath string) {
	u.fail(sessionID, status, msg)
	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		telemetry.Warn("session.temp_file.remove_failed", map[string]any{"session_id": sessionID, "err": err.Error()})
	}
	u.Registry.Update(sessionID, func(rec *Record) {
		rec.TempFilePath = ""
	})
}
