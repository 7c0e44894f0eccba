package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/Dev-derah/simple-content-ai/internal/core/input"
	"github.com/Dev-derah/simple-content-ai/internal/core/pipeline"
	"github.com/Dev-derah/simple-content-ai/internal/core/repurpose"
	"github.com/Dev-derah/simple-content-ai/internal/core/source"
	"github.com/Dev-derah/simple-content-ai/internal/core/version"
)

// Processor runs content requests. *pipeline.Orchestrator implements it.
type Processor interface {
	ProcessSource(ctx context.Context, req source.Request, limit int, opts pipeline.Options) ([]pipeline.ItemResult, error)
	ProcessText(ctx context.Context, text string, opts pipeline.Options) (*repurpose.Result, error)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ContentRequest is the body for the content endpoints and POST /api/v1/jobs.
type ContentRequest struct {
	URL         string         `json:"url,omitempty"`
	Text        string         `json:"text,omitempty"`
	Keyword     string         `json:"keyword,omitempty"`
	Platform    string         `json:"platform,omitempty"`
	ContentType string         `json:"contentType,omitempty"`
	Options     ContentOptions `json:"options"`
}

type ContentOptions struct {
	Platforms    []string `json:"platforms,omitempty"`
	CustomPrompt string   `json:"customPrompt,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

// ContentResponse is the body of a successful content request.
type ContentResponse struct {
	Success            bool `json:"success"`
	Data               any  `json:"data"`
	ProcessedPlatforms any  `json:"processedPlatforms"`
	CustomPromptUsed   bool `json:"customPromptUsed"`
}

// ItemView is one processed media item in a response.
type ItemView struct {
	Source            string            `json:"source"`
	SourcePlatform    string            `json:"sourcePlatform"`
	ExternalID        string            `json:"externalId"`
	Title             string            `json:"title,omitempty"`
	Status            pipeline.Status   `json:"status"`
	RepurposedContent *repurpose.Result `json:"repurposedContent,omitempty"`
	Error             string            `json:"error,omitempty"`
}

// Server is the HTTP server for contentai
type Server struct {
	port     int
	apiKey   string
	cfg      *config.Config
	proc     Processor
	jobQueue *JobQueue
	limiter  *clientLimiter
	server   *http.Server
	engine   *gin.Engine
}

// NewServer creates a new HTTP server around proc.
func NewServer(cfg *config.Config, proc Processor) *Server {
	s := &Server{
		port:   cfg.Server.Port,
		apiKey: cfg.Server.APIKey,
		cfg:    cfg,
		proc:   proc,
	}
	if s.port <= 0 {
		s.port = 3000
	}
	if n := cfg.Server.RequestsPerWindow; n >= 0 {
		if n == 0 {
			n = 15
		}
		s.limiter = newClientLimiter(n, 15*time.Minute)
	}
	s.jobQueue = NewJobQueue(cfg.Server.MaxConcurrent, s.runJob)
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(s.loggingMiddleware())
	if s.limiter != nil {
		r.Use(s.rateLimitMiddleware())
	}
	if s.apiKey != "" {
		r.Use(s.authMiddleware())
	}

	r.GET("/api/health", s.handleHealth)

	v1 := r.Group("/api/v1")
	v1.POST("/content/process", s.handleProcess)
	v1.POST("/content", s.handleContent)
	v1.POST("/jobs", s.handleAddJob)
	v1.GET("/jobs", s.handleGetJobs)
	v1.GET("/jobs/:id", s.handleGetJob)
	v1.DELETE("/jobs", s.handleClearJobs)
	v1.DELETE("/jobs/:id", s.handleDeleteJob)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Route not found"})
	})
	return r
}

// Start starts the job workers and the HTTP listener
func (s *Server) Start() error {
	s.jobQueue.Start()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // processing a source can take minutes
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("[server] listening on port %d", s.port)
	log.Printf("[server] staging directory: %s", s.cfg.DownloadDir)
	if s.apiKey != "" {
		log.Printf("[server] API key authentication enabled")
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.jobQueue.Stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Middleware

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Health endpoint doesn't require auth
		if c.Request.URL.Path == "/api/health" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-Key") != s.apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or missing API key"})
			return
		}
		c.Next()
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/api/health" {
			c.Next()
			return
		}
		if !s.limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[server] %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Handlers

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Version,
	})
}

// handleProcess validates the request before processing it.
func (s *Server) handleProcess(c *gin.Context) {
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	if req.URL == "" && req.Text == "" && req.Keyword == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Must provide either url, text, or keyword"})
		return
	}
	if req.Platform == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Platform must be specified"})
		return
	}
	s.process(c, req)
}

func (s *Server) handleContent(c *gin.Context) {
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	s.process(c, req)
}

func (s *Server) process(c *gin.Context, req ContentRequest) {
	data, err := s.execute(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), errorResponse(err))
		return
	}

	var processed any = "all"
	if len(req.Options.Platforms) > 0 {
		processed = req.Options.Platforms
	}
	c.JSON(http.StatusOK, ContentResponse{
		Success:            true,
		Data:               cleanValue(data),
		ProcessedPlatforms: processed,
		CustomPromptUsed:   req.Options.CustomPrompt != "",
	})
}

// requestError marks a problem with the request itself.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

// execute runs req and returns the response data: a list of item views for
// sources, or one result for text.
func (s *Server) execute(ctx context.Context, req ContentRequest) (any, error) {
	opts := pipeline.Options{CustomInstructions: req.Options.CustomPrompt}
	if len(req.Options.Platforms) > 0 {
		platforms, err := repurpose.ParsePlatforms(req.Options.Platforms)
		if err != nil {
			return nil, &requestError{msg: err.Error()}
		}
		opts.Platforms = platforms
	}

	raw := req.URL
	if raw == "" {
		raw = req.Keyword
	}
	if raw == "" {
		if strings.TrimSpace(req.Text) == "" {
			return nil, &requestError{msg: "Must provide either URL or text content"}
		}
		return s.proc.ProcessText(ctx, req.Text, opts)
	}

	srcReq, err := input.ResolveRequest(raw, req.Options.Limit)
	if err != nil {
		return nil, err
	}
	if req.ContentType != "" {
		ct, err := source.ParseContentType(req.ContentType)
		if err != nil {
			return nil, &requestError{msg: err.Error()}
		}
		if srcReq, err = srcReq.WithContentType(ct); err != nil {
			return nil, &requestError{msg: err.Error()}
		}
	}
	results, err := s.proc.ProcessSource(ctx, srcReq, req.Options.Limit, opts)
	if errors.Is(err, source.ErrNoResults) {
		return []ItemView{}, nil
	}
	if err != nil {
		return nil, err
	}
	return itemViews(results), nil
}

func itemViews(results []pipeline.ItemResult) []ItemView {
	views := make([]ItemView, len(results))
	for i, r := range results {
		item := r.Media.Item
		views[i] = ItemView{
			Source:            item.URL,
			SourcePlatform:    string(item.Platform),
			ExternalID:        item.ExternalID,
			Title:             item.Title,
			Status:            r.Media.Status(),
			RepurposedContent: r.Result,
		}
		if r.Err != nil {
			views[i].Error = r.Err.Error()
		}
	}
	return views
}

func statusFor(err error) int {
	var reqErr *requestError
	var inErr *input.InputValidationError
	switch {
	case errors.As(err, &reqErr), errors.As(err, &inErr), errors.Is(err, repurpose.ErrNoContent):
		return http.StatusBadRequest
	case errors.Is(err, source.ErrUnknownPlatform), errors.Is(err, source.ErrListingUnsupported):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse reports err with the root cause as details.
func errorResponse(err error) ErrorResponse {
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	resp := ErrorResponse{Error: err.Error()}
	if root != err {
		details := root.Error()
		if i := strings.IndexByte(details, '\n'); i >= 0 {
			details = details[:i]
		}
		resp.Details = strings.TrimSpace(details)
	}
	return resp
}
