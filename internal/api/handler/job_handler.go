package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/acme/catalog-console/internal/api/dto"
	"github.com/acme/catalog-console/internal/jobs"
	"github.com/acme/catalog-console/internal/progress"
)

// JobHandler handles job submission and progress polling
type JobHandler struct {
	logger    *slog.Logger
	progress  progress.Store
	queue     JobQueue
	uploadDir string
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		progress:  deps.Progress,
		queue:     deps.Queue,
		uploadDir: deps.UploadDir,
	}
}

// submit claims a job id in the progress store and enqueues the job message.
// The create call is the claim point: once it succeeds a poll for the id
// sees status=queued even before any worker picks the job up.
func (h *JobHandler) submit(c *gin.Context, msg jobs.Message) bool {
	ctx := c.Request.Context()

	if err := h.progress.Create(ctx, msg.JobID); err != nil {
		h.logger.Error("Failed to create progress record",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create job"})
		return false
	}

	body, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode job message",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to enqueue job"})
		return false
	}

	if err := h.queue.Publish(ctx, body); err != nil {
		h.logger.Error("Failed to publish job message",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		// The record exists but no worker will ever pick it up, so
		// settle it as failed instead of leaving it queued forever.
		reason := "failed to enqueue job"
		_ = h.progress.Update(ctx, msg.JobID, progress.Patch{
			Status: progress.String(progress.StatusFailed),
			Reason: progress.String(reason),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"detail": reason})
		return false
	}

	return true
}

// Upload handles POST /api/upload/
// Spools the uploaded CSV to disk and starts an import job
func (h *JobHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file required"})
		return
	}

	uploadID := uuid.New().String()
	spoolPath := filepath.Join(h.uploadDir, uploadID+".csv")

	if err := c.SaveUploadedFile(file, spoolPath); err != nil {
		h.logger.Error("Failed to spool upload",
			slog.String("upload_id", uploadID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to store upload"})
		return
	}

	if !h.submit(c, jobs.Message{JobID: uploadID, Kind: jobs.KindImport, FilePath: spoolPath}) {
		return
	}

	h.logger.Info("Import job submitted",
		slog.String("upload_id", uploadID),
		slog.String("filename", file.Filename),
		slog.Int64("size", file.Size),
	)

	c.JSON(http.StatusOK, gin.H{"upload_id": uploadID})
}

// Progress handles GET /api/upload/:id/progress/
// An unknown id is a 404; a known id that no worker has touched yet polls
// as queued, never as an error.
func (h *JobHandler) Progress(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.progress.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "not_found"})
			return
		}
		h.logger.Error("Failed to read progress",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to read progress"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// BulkDelete handles POST /api/products/bulk_delete/
// Starts a bulk-delete job after an explicit confirmation
func (h *JobHandler) BulkDelete(c *gin.Context) {
	var req dto.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "confirmation required"})
		return
	}

	taskID := uuid.New().String()
	if !h.submit(c, jobs.Message{JobID: taskID, Kind: jobs.KindBulkDelete}) {
		return
	}

	h.logger.Info("Bulk delete job submitted",
		slog.String("task_id", taskID),
	)

	c.JSON(http.StatusOK, gin.H{"task_id": taskID})
}
