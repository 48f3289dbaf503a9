package sessions

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"equity-backend/internal/analysis"
	"equity-backend/internal/llm"
	"equity-backend/internal/rag"
	"equity-backend/internal/services/health"
	"equity-backend/internal/session"
	"equity-backend/internal/shared/server/middleware"
	"equity-backend/internal/shared/server/respond"
)

// QueryEngine answers ad-hoc session queries.
type QueryEngine interface {
	Answer(ctx context.Context, sessionID, query string, focus rag.Focus, custom string) (rag.Answer, error)
}

// AnalysisRunner executes the background analysis for a session.
type AnalysisRunner interface {
	Run(ctx context.Context, sessionID string)
}

// Handler exposes the session document lifecycle over HTTP.
type Handler struct {
	Uploader  *session.Uploader
	Registry  *session.Registry
	Engine    QueryEngine
	Runner    AnalysisRunner
	Artifacts *analysis.Store
	Health    *health.Service
}

// NewHandler constructs the handler with its dependencies.
func NewHandler(uploader *session.Uploader, registry *session.Registry, engine QueryEngine, runner AnalysisRunner, artifacts *analysis.Store, healthSvc *health.Service) *Handler {
	return &Handler{
		Uploader:  uploader,
		Registry:  registry,
		Engine:    engine,
		Runner:    runner,
		Artifacts: artifacts,
		Health:    healthSvc,
	}
}

// RegisterRoutes registers session endpoints on the group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.uploadDocument)
	rg.GET("/documents/status", h.documentStatus)
	rg.POST("/query", h.query)
	rg.GET("/analysis/status", h.analysisStatus)
	rg.GET("/analysis/result", h.analysisResult)
	rg.POST("/session/end", h.endSession)
}

func (h *Handler) uploadDocument(c *gin.Context) {
	if !h.Health.Ready() {
		respond.Error(c, http.StatusServiceUnavailable, "not_ready", "Core system components not initialized", nil)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_file", "A document file is required", nil)
		return
	}
	sessionID := middleware.EnsureSession(c)

	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "upload_failed", "Could not read uploaded file", nil)
		return
	}
	defer f.Close()

	ok, msg := h.Uploader.BeginUpload(c.Request.Context(), sessionID, fileHeader.Filename, f)
	if !ok {
		status := http.StatusInternalServerError
		code := "upload_failed"
		if rec, found := h.Registry.Get(sessionID); found && rec.UploadStatus == session.FailedVSProcessing {
			status = http.StatusBadRequest
			code = "document_processing_failed"
		}
		respond.Error(c, status, code, msg, nil)
		return
	}

	// A replaced document invalidates the previous report.
	h.Artifacts.Remove(sessionID)
	go h.Runner.Run(context.Background(), sessionID)

	respond.OK(c, UploadResponse{
		Success:   true,
		Message:   msg,
		SessionID: sessionID,
		Filename:  fileHeader.Filename,
	})
}

func (h *Handler) documentStatus(c *gin.Context) {
	rec, ok := h.sessionRecord(c)
	if !ok {
		return
	}
	respond.OK(c, DocumentStatusResponse{
		SessionID:    rec.SessionID,
		Filename:     rec.FileName,
		UploadStatus: string(rec.UploadStatus),
		Message:      rec.UploadMessage,
	})
}

func (h *Handler) query(c *gin.Context) {
	if !h.Health.Ready() {
		respond.Error(c, http.StatusServiceUnavailable, "not_ready", "Core system components not initialized", nil)
		return
	}
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Request body must include a query", nil)
		return
	}
	focus, err := rag.ParseFocus(req.FocusArea)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_focus", err.Error(), nil)
		return
	}
	sessionID := middleware.EnsureSession(c)

	ans, err := h.Engine.Answer(c.Request.Context(), sessionID, req.Query, focus, req.CustomInstructions)
	switch {
	case errors.Is(err, rag.ErrEmptyQuery):
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Query must not be empty", nil)
		return
	case errors.Is(err, llm.ErrRateLimited):
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "API rate limit exceeded, please try again later", nil)
		return
	case err != nil:
		respond.Error(c, http.StatusInternalServerError, "query_failed", "Failed to generate a response", nil)
		return
	}

	sources := ans.RemoteCitations
	if sources == nil {
		sources = []string{}
	}
	respond.OK(c, QueryResponse{
		Answer:       strings.TrimSpace(ans.Text),
		LocalSources: toLocalSources(ans.LocalChunks),
		Sources:      sources,
	})
}

func (h *Handler) analysisStatus(c *gin.Context) {
	rec, ok := h.sessionRecord(c)
	if !ok {
		return
	}
	respond.OK(c, AnalysisStatusResponse{
		SessionID:      rec.SessionID,
		AnalysisStatus: string(rec.AnalysisStatus),
		Error:          rec.AnalysisError,
	})
}

func (h *Handler) analysisResult(c *gin.Context) {
	rec, ok := h.sessionRecord(c)
	if !ok {
		return
	}
	switch rec.AnalysisStatus {
	case session.AnalysisCompleted:
	case session.AnalysisFailed:
		respond.Error(c, http.StatusInternalServerError, "analysis_failed", rec.AnalysisError, nil)
		return
	default:
		respond.Error(c, http.StatusConflict, "analysis_not_ready", "Analysis has not finished yet", nil)
		return
	}

	if rec.CachedResult != nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", rec.CachedResult)
		return
	}
	raw, err := h.Artifacts.Load(rec.SessionID)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "result_not_found", "Analysis result is no longer available", nil)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (h *Handler) endSession(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	if sessionID == "" {
		respond.OK(c, EndSessionResponse{Success: true, Message: "Session not found or already cleaned up."})
		return
	}
	_, existed := h.Registry.Get(sessionID)
	cleaned := h.Uploader.Teardown(c.Request.Context(), sessionID)
	h.Artifacts.Remove(sessionID)
	middleware.ClearSession(c)

	if !existed {
		respond.OK(c, EndSessionResponse{Success: true, Message: "Session not found or already cleaned up."})
		return
	}
	if !cleaned {
		respond.JSON(c, http.StatusInternalServerError, EndSessionResponse{
			Success: false,
			Message: "Session ended, but an error occurred during resource cleanup on the backend.",
		})
		return
	}
	respond.OK(c, EndSessionResponse{Success: true, Message: "Session ended and associated resources cleaned up successfully."})
}

// sessionRecord resolves the cookie session to a registry record, writing
// the error response when it cannot.
func (h *Handler) sessionRecord(c *gin.Context) (session.Record, bool) {
	sessionID := middleware.SessionIDFromContext(c)
	if sessionID == "" {
		respond.Error(c, http.StatusNotFound, "session_not_found", "No active session", nil)
		return session.Record{}, false
	}
	rec, ok := h.Registry.Get(sessionID)
	if !ok {
		respond.Error(c, http.StatusNotFound, "session_not_found", "No document uploaded for this session", nil)
		return session.Record{}, false
	}
	return rec, true
}
