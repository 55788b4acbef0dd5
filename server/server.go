package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mynkchaudhry/VendorDocComparsion/pipeline"
	"github.com/mynkchaudhry/VendorDocComparsion/task"
)

const (
	userHeader = "X-User-ID"
	userKey    = "owner"

	defaultMaxUploadSize = int64(50 << 20) // 50 MiB
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used by the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxUploadSize caps accepted document size in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// Server routes HTTP requests into the pipeline and task manager.
type Server struct {
	engine        *gin.Engine
	orchestrator  *pipeline.Orchestrator
	tasks         *task.Manager
	maxUploadSize int64
	logger        *slog.Logger
}

// New creates a Server and registers its routes.
func New(orchestrator *pipeline.Orchestrator, tasks *task.Manager, opts ...Option) *Server {
	s := &Server{
		engine:        gin.New(),
		orchestrator:  orchestrator,
		tasks:         tasks,
		maxUploadSize: defaultMaxUploadSize,
		logger:        slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)

	authed := s.engine.Group("/", s.requireUser)
	authed.POST("/documents/upload", s.handleUpload)
	authed.GET("/tasks", s.handleListTasks)
	authed.GET("/tasks/:id", s.handleGetTask)
	authed.POST("/tasks/:id/cancel", s.handleCancelTask)
}

// Handler returns the http.Handler for serving or tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.engine.Run(addr)
}

// requireUser resolves the caller identity from the X-User-ID header.
func (s *Server) requireUser(c *gin.Context) {
	owner := c.GetHeader(userHeader)
	if owner == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "missing " + userHeader + " header",
		})
		return
	}
	c.Set(userKey, owner)
	c.Next()
}
