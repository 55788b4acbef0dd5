package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
	"github.com/mynkchaudhry/VendorDocComparsion/extract"
	"github.com/mynkchaudhry/VendorDocComparsion/pipeline"
	"github.com/mynkchaudhry/VendorDocComparsion/task"
)

// taskResponse is the wire shape of a task. CANCELLED tasks never
// carry a result; COMPLETED tasks always do.
type taskResponse struct {
	TaskID             string               `json:"task_id"`
	Status             core.TaskStatus      `json:"status"`
	ProgressPercentage float64              `json:"progress_percentage"`
	CurrentStage       string               `json:"current_stage"`
	TotalSteps         int                  `json:"total_steps"`
	CompletedSteps     int                  `json:"completed_steps"`
	EstimatedDuration  int                  `json:"estimated_duration"`
	ErrorMessage       string               `json:"error_message,omitempty"`
	Result             *core.StructuredData `json:"result,omitempty"`
	Durable            bool                 `json:"durable"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

func toTaskResponse(t *core.Task) taskResponse {
	return taskResponse{
		TaskID:             t.ID,
		Status:             t.Status,
		ProgressPercentage: t.ProgressPercentage,
		CurrentStage:       t.CurrentStage,
		TotalSteps:         t.TotalSteps,
		CompletedSteps:     t.CompletedSteps,
		EstimatedDuration:  t.EstimatedDuration(),
		ErrorMessage:       t.ErrorMessage,
		Result:             t.Result,
		Durable:            t.Durable,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleUpload accepts a multipart document. Small documents come back
// as a synchronous record (200); larger ones return a task id to poll
// (202).
func (s *Server) handleUpload(c *gin.Context) {
	owner := c.GetString(userKey)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, s.maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading upload failed"})
		return
	}
	if int64(len(content)) > s.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document too large"})
		return
	}

	fileType := filepath.Ext(header.Filename)
	outcome, err := s.orchestrator.Process(c.Request.Context(), owner, content, fileType)
	if err != nil {
		s.uploadError(c, err)
		return
	}

	if outcome.TaskID != "" {
		c.JSON(http.StatusAccepted, gin.H{
			"task_id": outcome.TaskID,
			"status":  core.TaskPending,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": outcome.Record})
}

func (s *Server) uploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, task.ErrTooManyTasks):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrExtraction),
		errors.Is(err, extract.ErrUnsupportedFileType),
		errors.Is(err, core.ErrEmptyDocument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrNoUsableContent),
		errors.Is(err, core.ErrAllChunksFailed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		s.logger.Error("upload processing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
	}
}

func (s *Server) handleGetTask(c *gin.Context) {
	owner := c.GetString(userKey)
	got, err := s.tasks.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		s.taskError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(got))
}

func (s *Server) handleListTasks(c *gin.Context) {
	owner := c.GetString(userKey)
	list, err := s.tasks.ListForOwner(c.Request.Context(), owner)
	if err != nil {
		s.taskError(c, err)
		return
	}
	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

// handleCancelTask flags a task for cooperative cancellation and
// returns its current status; the transition to CANCELLED happens at
// the orchestrator's next checkpoint.
func (s *Server) handleCancelTask(c *gin.Context) {
	owner := c.GetString(userKey)
	got, err := s.tasks.RequestCancel(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		s.taskError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": got.ID,
		"status":  got.Status,
	})
}

func (s *Server) taskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		// Foreign tasks are reported as missing, not forbidden.
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, task.ErrTaskTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Error("task request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
