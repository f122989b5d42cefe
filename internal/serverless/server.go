package serverless

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wizeapp/inference-worker/internal/job"
)

// Server is the local development surface: it accepts jobs over HTTP and runs
// them through the handler inline, so a handler can be exercised without the
// dispatch platform. It is not a product API.
type Server struct {
	handler job.Handler
	log     *zap.Logger
	engine  *gin.Engine
}

// runResponse wraps a handler result in the platform's status envelope.
type runResponse struct {
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Output *job.Result `json:"output"`
}

// NewServer creates a dev server around the given handler.
func NewServer(h job.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{handler: h, log: log, engine: engine}

	engine.GET("/health", s.health)
	engine.POST("/run", s.run)
	engine.POST("/runsync", s.run)

	return s
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// ListenAndServe blocks serving on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("dev server listening", zap.String("addr", addr))
	return s.engine.Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// run executes a job inline. Both /run and /runsync behave synchronously
// here; the async queue only exists on the real platform.
func (s *Server) run(c *gin.Context) {
	var req job.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job payload: " + err.Error()})
		return
	}
	if req.ID == "" {
		req.ID = "local-" + uuid.NewString()
	}

	result := s.handler(c.Request.Context(), &req)

	status := "COMPLETED"
	if result.Failed() {
		status = "FAILED"
	}

	s.log.Info("local job finished",
		zap.String("job_id", req.ID),
		zap.String("status", status))

	c.JSON(http.StatusOK, runResponse{ID: req.ID, Status: status, Output: result})
}
