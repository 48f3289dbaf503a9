// Package health reports component readiness for the health endpoint.
package health

import "equity-backend/internal/localindex"

// Report is the health payload. Status is "ok" only when every component
// is usable; otherwise "degraded" with the flags saying which one is not.
type Report struct {
	Status            string `json:"status"`
	OpenAIInitialized bool   `json:"openai_initialized"`
	LocalIndexLoaded  bool   `json:"local_index_loaded"`
	LocalIndexChunks  int    `json:"local_index_chunks"`
}

// Service encapsulates health-related checks.
type Service struct {
	openAIConfigured bool
	index            *localindex.Index
}

// NewService constructs a health service over the given components; index
// may be nil when the snapshot failed to load.
func NewService(openAIConfigured bool, index *localindex.Index) *Service {
	return &Service{openAIConfigured: openAIConfigured, index: index}
}

// Status returns the current readiness report.
func (s *Service) Status() Report {
	r := Report{
		OpenAIInitialized: s.openAIConfigured,
		LocalIndexLoaded:  s.index != nil,
	}
	if s.index != nil {
		r.LocalIndexChunks = s.index.Len()
	}
	if r.OpenAIInitialized && r.LocalIndexLoaded {
		r.Status = "ok"
	} else {
		r.Status = "degraded"
	}
	return r
}

// Ready reports whether retrieval-dependent endpoints can be served.
func (s *Service) Ready() bool {
	return s.openAIConfigured
}
