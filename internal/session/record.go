package session

import (
	"encoding/json"
	"time"
)

// UploadStatus tracks one session document's upload and indexing lifecycle.
type UploadStatus string

const (
	UploadPending      UploadStatus = "initial_upload_pending"
	UploadingFile      UploadStatus = "uploading_file"
	CreatingVS         UploadStatus = "creating_vs"
	VSProcessing       UploadStatus = "vs_processing"
	UploadCompleted    UploadStatus = "completed"
	FailedUpload       UploadStatus = "failed_upload"
	FailedVSCreation   UploadStatus = "failed_vs_creation"
	FailedVSProcessing UploadStatus = "failed_vs_processing"
)

// Terminal reports whether the upload state machine has finished, in
// success or failure.
func (s UploadStatus) Terminal() bool {
	switch s {
	case UploadCompleted, FailedUpload, FailedVSCreation, FailedVSProcessing:
		return true
	}
	return false
}

// Failed reports whether the status is a terminal failure.
func (s UploadStatus) Failed() bool {
	return s.Terminal() && s != UploadCompleted
}

// AnalysisStatus tracks the background analysis pipeline, independently of
// the upload state machine.
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "pending"
	AnalysisInProgress AnalysisStatus = "in_progress"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

// Terminal reports whether the analysis pipeline has finished.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisCompleted || s == AnalysisFailed
}

// Record is the lifecycle state of exactly one user document. It is owned
// by the Registry; callers receive copies and mutate through Registry.Update.
type Record struct {
	SessionID string
	// UploadID identifies this particular upload. A replacement upload
	// mints a new one, so a pipeline started for the old document can
	// detect it has been superseded and discard its writes.
	UploadID     string
	FileName     string
	Title        string
	SizeKB       int64
	UploadedAt   time.Time
	TempFilePath string

	FileID        string
	VectorStoreID string
	UploadStatus  UploadStatus
	UploadMessage string

	AnalysisStatus AnalysisStatus
	AnalysisError  string
	ResultPath     string
	// CachedResult holds the persisted analysis document verbatim.
	CachedResult json.RawMessage
}
