package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"equity-backend/internal/shared/util"
)

// Store persists finished analysis documents as JSON files, one per
// session, and reads them back for result requests.
type Store struct {
	Dir string
}

// NewStore constructs a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// path keeps client-supplied session IDs inside the artifact directory.
func (s *Store) path(sessionID string) string {
	return filepath.Join(s.Dir, util.SanitizeFileName(sessionID)+".json")
}

// Save writes the document and returns its path.
func (s *Store) Save(sessionID string, doc *ResultDocument) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal analysis artifact: %w", err)
	}
	path := s.path(sessionID)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write analysis artifact: %w", err)
	}
	return path, nil
}

// Load reads a previously saved document verbatim.
func (s *Store) Load(sessionID string) (json.RawMessage, error) {
	raw, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		return nil, fmt.Errorf("read analysis artifact: %w", err)
	}
	return raw, nil
}

// Remove deletes the session's artifact if present.
func (s *Store) Remove(sessionID string) {
	_ = os.Remove(s.path(sessionID))
}
