package sessions

import "equity-backend/internal/localindex"

// UploadResponse reports the synchronous upload and indexing outcome.
type UploadResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
}

// DocumentStatusResponse reports where the session's document is in the
// upload state machine.
type DocumentStatusResponse struct {
	SessionID    string `json:"session_id"`
	Filename     string `json:"filename"`
	UploadStatus string `json:"upload_status"`
	Message      string `json:"message,omitempty"`
}

// QueryRequest is one ad-hoc analysis question.
type QueryRequest struct {
	Query              string `json:"query" binding:"required"`
	FocusArea          string `json:"focus_area"`
	CustomInstructions string `json:"custom_instructions"`
}

// LocalSource is one framework chunk that grounded the answer. These are
// contextual only and intentionally separate from document citations.
type LocalSource struct {
	ID            int      `json:"id"`
	Text          string   `json:"text"`
	Score         float64  `json:"score"`
	Headings      []string `json:"headings"`
	PositionIndex int      `json:"position_index"`
	PositionTotal int      `json:"position_total"`
}

// QueryResponse carries the answer plus both kinds of supporting material.
type QueryResponse struct {
	Answer       string        `json:"answer"`
	LocalSources []LocalSource `json:"local_sources"`
	Sources      []string      `json:"sources"`
}

// AnalysisStatusResponse reports the background pipeline state.
type AnalysisStatusResponse struct {
	SessionID      string `json:"session_id"`
	AnalysisStatus string `json:"analysis_status"`
	Error          string `json:"error,omitempty"`
}

// EndSessionResponse reports the cleanup outcome.
type EndSessionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func toLocalSources(results []localindex.Result) []LocalSource {
	out := make([]LocalSource, 0, len(results))
	for _, r := range results {
		out = append(out, LocalSource{
			ID:            r.Chunk.ID,
			Text:          r.Chunk.Text,
			Score:         r.Score,
			Headings:      r.Chunk.Metadata.Headings,
			PositionIndex: r.Chunk.Metadata.PositionIndex,
			PositionTotal: r.Chunk.Metadata.PositionTotal,
		})
	}
	return out
}
