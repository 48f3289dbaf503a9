package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"equity-backend/internal/analysis"
	"equity-backend/internal/llm/openai"
	"equity-backend/internal/localindex"
	"equity-backend/internal/rag"
	"equity-backend/internal/services/health"
	"equity-backend/internal/session"
	"equity-backend/internal/sessions"
	"equity-backend/internal/shared/config"
	"equity-backend/internal/shared/server/middleware"
	"equity-backend/internal/shared/server/respond"
	"equity-backend/internal/vectorstore"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
// A missing local index or API key degrades the service rather than
// aborting startup; the health endpoint reports which component is down.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Session(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"upload": {Rate: 0.2, Burst: 3},
				"query":  {Rate: 1, Burst: 5},
			},
			GroupFor: func(c *gin.Context) string {
				switch {
				case c.Request.Method == http.MethodPost && c.Request.URL.Path == "/api/v1/documents":
					return "upload"
				case c.Request.Method == http.MethodPost && c.Request.URL.Path == "/api/v1/query":
					return "query"
				}
				return ""
			},
		}),
	)

	// Dependencies
	registry := session.NewRegistry()
	artifacts := analysis.NewStore(cfg.AnalysisOutputDir)

	var index *localindex.Index
	if idx, err := localindex.Load(cfg.LocalIndexPath); err != nil {
		log.Printf("local index unavailable, continuing without framework context: %v", err)
	} else {
		index = idx
	}

	var engine *rag.Engine
	var uploader *session.Uploader
	var pipeline *analysis.Pipeline
	if cfg.OpenAIAPIKey != "" {
		client, err := openai.NewClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Printf("openai client init failed: %v", err)
		} else {
			if index != nil {
				if embedder, err := openai.NewEmbeddingClient(client, cfg.EmbeddingModel); err != nil {
					log.Printf("embedding client init failed: %v", err)
				} else {
					index.SetEmbedder(embedder)
				}
			}
			remote, err := vectorstore.NewClient(cfg.OpenAIAPIKey, vectorstore.PollPolicy{
				Timeout:  cfg.ProcessingTimeout,
				Interval: cfg.PollInterval,
			})
			if err != nil {
				log.Printf("vector store client init failed: %v", err)
			} else {
				uploader = session.NewUploader(registry, remote, cfg.TempUploadDir)
				engine = &rag.Engine{
					Local:            index,
					Generator:        client,
					Sessions:         registry,
					Model:            cfg.ResponsesModel,
					Temperature:      cfg.Temperature,
					MaxOutputTokens:  cfg.MaxOutputTokens,
					LocalTopK:        cfg.LocalTopK,
					MaxSearchResults: cfg.MaxSearchResults,
				}
				pipeline = &analysis.Pipeline{
					Sessions:       registry,
					Engine:         engine,
					Synth:          client,
					Artifacts:      artifacts,
					SynthesisModel: cfg.SynthesisModel,
					Limiter:        rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
				}
			}
		}
	}

	healthSvc := health.NewService(engine != nil, index)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	if engine != nil && uploader != nil && pipeline != nil {
		handler := sessions.NewHandler(uploader, registry, engine, pipeline, artifacts, healthSvc)
		handler.RegisterRoutes(api)
	} else {
		// Configuration errors refuse the session routes instead of crashing.
		unavailable := func(c *gin.Context) {
			respond.Error(c, http.StatusServiceUnavailable, "not_ready", "Core system components not initialized", nil)
		}
		for _, route := range []struct{ method, path string }{
			{http.MethodPost, "/documents"},
			{http.MethodGet, "/documents/status"},
			{http.MethodPost, "/query"},
			{http.MethodGet, "/analysis/status"},
			{http.MethodGet, "/analysis/result"},
			{http.MethodPost, "/session/end"},
		} {
			api.Handle(route.method, route.path, unavailable)
		}
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
