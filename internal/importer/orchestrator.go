package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"product-importer/internal/models"
)

// maxSummaryErrors caps how many row errors make it into the job's
// error_message summary.
const maxSummaryErrors = 10

var requiredColumns = []string{"sku", "name", "description"}

// Orchestrator drives a full CSV import: it loads the job, streams the
// file in chunks, persists progress after every chunk and settles the job
// in a terminal state.
type Orchestrator struct {
	jobs      JobStore
	chunks    *ChunkProcessor
	notifier  Notifier
	chunkSize int
	log       *logrus.Entry
}

func NewOrchestrator(jobs JobStore, chunks *ChunkProcessor, notifier Notifier, chunkSize int, logger *logrus.Logger) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &Orchestrator{
		jobs:      jobs,
		chunks:    chunks,
		notifier:  notifier,
		chunkSize: chunkSize,
		log:       logger.WithField("component", "import-orchestrator"),
	}
}

// Run executes the import job against the uploaded file. Any returned
// error has already been recorded on the job as a failed status; the
// error is returned so a queue worker can decide whether to retry.
func (o *Orchestrator) Run(ctx context.Context, jobID, filePath string) (err error) {
	log := o.log.WithField("job_id", jobID)

	job, err := o.jobs.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to load import job %s: %v", jobID, err)
	}
	if job == nil {
		log.Error("Import job not found")
		return fmt.Errorf("import job %s not found", jobID)
	}

	// A redelivered task may find partial progress from an earlier
	// attempt. Upserts are idempotent, so the file is re-read from the
	// start with fresh counters.
	if job.ProcessedRows > 0 || job.SuccessCount > 0 || job.ErrorCount > 0 {
		log.WithField("processed_rows", job.ProcessedRows).Warn("Re-running job with partial progress, resetting counters")
		job.ProcessedRows = 0
		job.SuccessCount = 0
		job.ErrorCount = 0
		job.ErrorMessage = nil
	}

	defer func() {
		if err != nil {
			o.markFailed(job, err)
		}
	}()

	job.Status = models.JobStatusProcessing
	if err := o.jobs.SaveJob(job); err != nil {
		return fmt.Errorf("failed to update job status: %v", err)
	}
	log.Info("Starting CSV import")

	if _, statErr := os.Stat(filePath); statErr != nil {
		return fmt.Errorf("CSV file not found: %s", filePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := o.readHeader(reader)
	if err != nil {
		return err
	}

	var allErrors []string
	chunk := make([]ChunkRow, 0, o.chunkSize)
	rowNum := 1 // header is row 1, data starts at row 2

	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("error reading row %d: %v", rowNum+1, readErr)
		}
		rowNum++

		raw := make(RawRecord, len(header))
		for i, value := range record {
			if i < len(header) && header[i] != "" {
				raw[header[i]] = strings.TrimSpace(value)
			}
		}
		if IsBlank(raw) {
			continue
		}

		chunk = append(chunk, ChunkRow{Num: rowNum, Record: raw})
		if len(chunk) >= o.chunkSize {
			if err := o.flushChunk(ctx, job, chunk, &allErrors); err != nil {
				return err
			}
			chunk = chunk[:0]
		}
	}
	if len(chunk) > 0 {
		if err := o.flushChunk(ctx, job, chunk, &allErrors); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &now
	if len(allErrors) > 0 {
		summary := allErrors
		if len(summary) > maxSummaryErrors {
			summary = summary[:maxSummaryErrors]
		}
		msg := fmt.Sprintf("Completed with %d errors. First 10 errors:\n%s",
			job.ErrorCount, strings.Join(summary, "\n"))
		job.ErrorMessage = &msg
	}
	if err := o.jobs.SaveJob(job); err != nil {
		return fmt.Errorf("failed to finalize job: %v", err)
	}

	log.WithFields(logrus.Fields{
		"processed_rows": job.ProcessedRows,
		"success_count":  job.SuccessCount,
		"error_count":    job.ErrorCount,
	}).Info("CSV import completed")

	o.notifyCompletion(job)

	if rmErr := os.Remove(filePath); rmErr != nil {
		log.WithError(rmErr).Warn("Failed to remove uploaded file")
	}

	return nil
}

// readHeader reads and normalizes the header row, rejecting files that
// are empty or missing required columns.
func (o *Orchestrator) readHeader(reader *csv.Reader) ([]string, error) {
	record, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %v", err)
	}

	header := make([]string, len(record))
	present := make(map[string]bool, len(record))
	for i, col := range record {
		name := strings.ToLower(strings.TrimSpace(col))
		header[i] = name
		present[name] = true
	}

	var missing []string
	for _, col := range requiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return header, nil
}

// flushChunk processes one chunk and persists the updated counters so
// progress survives a crash and is visible to status polling.
func (o *Orchestrator) flushChunk(ctx context.Context, job *models.ImportJob, chunk []ChunkRow, allErrors *[]string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("import canceled: %v", err)
	}

	successCount, errs := o.chunks.Process(chunk)
	job.ProcessedRows += len(chunk)
	job.SuccessCount += successCount
	job.ErrorCount += len(errs)
	*allErrors = append(*allErrors, errs...)

	if err := o.jobs.SaveJob(job); err != nil {
		return fmt.Errorf("failed to persist progress: %v", err)
	}

	o.log.WithFields(logrus.Fields{
		"job_id":         job.ID,
		"processed_rows": job.ProcessedRows,
		"total_rows":     job.TotalRows,
	}).Info("Chunk processed")
	return nil
}

func (o *Orchestrator) markFailed(job *models.ImportJob, cause error) {
	now := time.Now().UTC()
	msg := cause.Error()
	job.Status = models.JobStatusFailed
	job.ErrorMessage = &msg
	job.CompletedAt = &now
	if err := o.jobs.SaveJob(job); err != nil {
		o.log.WithField("job_id", job.ID).WithError(err).Error("Failed to mark job as failed")
	}
}

func (o *Orchestrator) notifyCompletion(job *models.ImportJob) {
	if o.notifier == nil {
		return
	}
	event := models.Event{
		EventType: models.EventImportComplete,
		Data: map[string]interface{}{
			"job_id":         job.ID,
			"filename":       job.Filename,
			"total_rows":     job.TotalRows,
			"processed_rows": job.ProcessedRows,
			"success_count":  job.SuccessCount,
			"error_count":    job.ErrorCount,
			"status":         string(job.Status),
		},
	}
	if err := o.notifier.Notify(event); err != nil {
		o.log.WithField("job_id", job.ID).WithError(err).Warn("Failed to emit completion event")
	}
}
