package util

import "strings"

// SanitizeFileName strips path separators and traversal sequences so the
// name is safe to join into the staging directory. An empty or all-junk
// name falls back to a generic one.
func SanitizeFileName(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "..", "_")
	if s == "" {
		return "upload"
	}
	return s
}

// VectorStoreName builds a safe remote index name from a session id and filename.
// The remote service caps names at 100 characters.
func VectorStoreName(sessionID, fileName string) string {
	name := "vs_" + sessionID + "_" + fileName
	name = strings.ReplaceAll(name, " ", "_")
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}
