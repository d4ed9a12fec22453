package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"product-importer/internal/config"
	"product-importer/internal/dispatch"
	"product-importer/internal/models"
)

// JobsStore is the import job persistence surface the handler needs.
type JobsStore interface {
	Create(job *models.ImportJob) error
	GetJob(id string) (*models.ImportJob, error)
	List(limit int, status *models.JobStatus) ([]models.ImportJob, error)
}

// ImportsHandler serves CSV upload, job status polling, the SSE progress
// stream and the jobs listing.
type ImportsHandler struct {
	jobs       JobsStore
	dispatcher dispatch.Dispatcher
	cfg        *config.Config
	log        *logrus.Entry
}

func NewImportsHandler(jobs JobsStore, dispatcher dispatch.Dispatcher, cfg *config.Config, logger *logrus.Logger) *ImportsHandler {
	return &ImportsHandler{
		jobs:       jobs,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        logger.WithField("component", "imports-handler"),
	}
}

// UploadCSV accepts a product CSV and queues it for asynchronous import
// POST /api/products/upload-csv
func (h *ImportsHandler) UploadCSV(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "MISSING_FILE",
				Message: "no file provided in the 'file' form field",
			},
		})
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_FILE_TYPE",
				Message: "only CSV files are supported",
			},
		})
		return
	}

	maxBytes := int64(h.cfg.MaxFileSizeMB) << 20
	if header.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_TOO_LARGE",
				Message: fmt.Sprintf("file exceeds the %dMB limit", h.cfg.MaxFileSizeMB),
			},
		})
		return
	}

	jobID := uuid.New().String()
	filename := filepath.Base(header.Filename)
	destPath := filepath.Join(h.cfg.UploadDir, fmt.Sprintf("%s_%s", jobID, filename))

	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		h.internalError(c, err)
		return
	}
	dest, err := os.Create(destPath)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if _, err := io.Copy(dest, file); err != nil {
		dest.Close()
		os.Remove(destPath)
		h.internalError(c, err)
		return
	}
	dest.Close()

	totalRows, err := countCSVRows(destPath)
	if err != nil {
		os.Remove(destPath)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_CSV",
				Message: err.Error(),
			},
		})
		return
	}

	job := &models.ImportJob{
		ID:        jobID,
		Filename:  filename,
		TotalRows: totalRows,
		Status:    models.JobStatusPending,
		StartedAt: time.Now().UTC(),
	}
	if err := h.jobs.Create(job); err != nil {
		os.Remove(destPath)
		h.internalError(c, err)
		return
	}

	if err := h.dispatcher.EnqueueImport(jobID, destPath); err != nil {
		h.log.WithField("job_id", jobID).WithError(err).Error("Failed to enqueue import")
		h.internalError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"job_id":     jobID,
		"filename":   filename,
		"total_rows": totalRows,
	}).Info("CSV upload accepted")

	c.JSON(http.StatusAccepted, models.UploadResponse{
		JobID:    jobID,
		TaskID:   jobID,
		Filename: filename,
		Message:  "CSV upload accepted, import queued",
	})
}

// GetImportStatus returns the current state of one import job
// GET /api/products/import-status/:job_id
func (h *ImportsHandler) GetImportStatus(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job.StatusProjection())
}

// StreamImportProgress streams job progress as server-sent events until
// the job reaches a terminal state or the client disconnects
// GET /api/products/import-status/:job_id/stream
func (h *ImportsHandler) StreamImportProgress(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	writeSSE(c.Writer, "progress", job.StatusProjection())
	c.Writer.Flush()

	if job.Status.Terminal() {
		writeSSE(c.Writer, "done", job.StatusProjection())
		c.Writer.Flush()
		return
	}

	lastProcessed := job.ProcessedRows
	lastStatus := job.Status

	ctx := c.Request.Context()
	ticker := time.NewTicker(h.cfg.ProgressPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, err := h.jobs.GetJob(job.ID)
			if err != nil || current == nil {
				return
			}

			if current.ProcessedRows != lastProcessed || current.Status != lastStatus {
				lastProcessed = current.ProcessedRows
				lastStatus = current.Status
				writeSSE(c.Writer, "progress", current.StatusProjection())
				c.Writer.Flush()
			}

			if current.Status.Terminal() {
				writeSSE(c.Writer, "done", current.StatusProjection())
				c.Writer.Flush()
				return
			}
		}
	}
}

// ListImportJobs returns recent import jobs, newest first
// GET /api/products/import-jobs?limit=&status=
func (h *ImportsHandler) ListImportJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var status *models.JobStatus
	if raw := c.Query("status"); raw != "" {
		s := models.JobStatus(raw)
		switch s {
		case models.JobStatusPending, models.JobStatusProcessing,
			models.JobStatusCompleted, models.JobStatusFailed:
			status = &s
		default:
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "INVALID_STATUS",
					Message: fmt.Sprintf("unknown status %q", raw),
					Field:   "status",
				},
			})
			return
		}
	}

	jobs, err := h.jobs.List(limit, status)
	if err != nil {
		h.internalError(c, err)
		return
	}

	projections := make([]models.ImportJobStatus, len(jobs))
	for i := range jobs {
		projections[i] = jobs[i].StatusProjection()
	}
	c.JSON(http.StatusOK, gin.H{"jobs": projections, "count": len(projections)})
}

func (h *ImportsHandler) loadJob(c *gin.Context) (*models.ImportJob, bool) {
	jobID := c.Param("job_id")
	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		h.internalError(c, err)
		return nil, false
	}
	if job == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NOT_FOUND",
				Message: fmt.Sprintf("import job %s not found", jobID),
			},
		})
		return nil, false
	}
	return job, true
}

func (h *ImportsHandler) internalError(c *gin.Context, err error) {
	h.log.WithError(err).Error("Request failed")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INTERNAL_ERROR",
			Message: "an internal error occurred",
		},
	})
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}

// countCSVRows pre-scans the uploaded file to fix total_rows before the
// import starts. The header and fully blank lines do not count.
func countCSVRows(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return 0, fmt.Errorf("CSV file is empty")
		}
		return 0, fmt.Errorf("failed to read CSV header: %v", err)
	}

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("malformed CSV: %v", err)
		}
		blank := true
		for _, field := range record {
			if strings.TrimSpace(field) != "" {
				blank = false
				break
			}
		}
		if !blank {
			count++
		}
	}
	return count, nil
}
