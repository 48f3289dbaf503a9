package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry maps session identifiers to document lifecycle records. It is
// the single piece of mutable state shared between the request path and
// the background analysis pipeline, so every mutation happens under its
// lock via Update: readers never observe a terminal status without the
// fields it depends on.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Register creates a fresh record for the session, replacing any previous
// one, and returns the new upload's identifier. The caller is responsible
// for tearing down the previous session's remote resources first.
func (r *Registry) Register(sessionID, fileName string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	uploadID := uuid.NewString()
	r.records[sessionID] = &Record{
		SessionID:      sessionID,
		UploadID:       uploadID,
		FileName:       fileName,
		UploadedAt:     time.Now().UTC(),
		UploadStatus:   UploadPending,
		AnalysisStatus: AnalysisPending,
	}
	return uploadID
}

// Get returns a copy of the session's record.
func (r *Registry) Get(sessionID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[sessionID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Update applies fn to the session's record under the registry lock and
// reports whether the session still exists. All fields written inside fn
// become visible to readers atomically.
func (r *Registry) Update(sessionID string, fn func(*Record)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[sessionID]
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// Remove deletes the session's record and reports whether it existed.
func (r *Registry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[sessionID]
	delete(r.records, sessionID)
	return ok
}

// Len reports the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
