package models

import (
	"math"
	"time"
)

// JobStatus is the lifecycle state of an import job. The state machine is
// forward-only: pending -> processing -> completed | failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ImportJob tracks one CSV import execution. TotalRows is fixed at upload
// time by the pre-scan; the counters are written only by the orchestrator
// that owns the job, chunk by chunk, and satisfy
// ProcessedRows == SuccessCount + ErrorCount at every persisted point.
type ImportJob struct {
	ID            string     `json:"job_id" gorm:"type:varchar(36);primaryKey"`
	Filename      string     `json:"filename" gorm:"size:255;not null"`
	TotalRows     int        `json:"total_rows" gorm:"not null;default:0"`
	ProcessedRows int        `json:"processed_rows" gorm:"not null;default:0"`
	SuccessCount  int        `json:"success_count" gorm:"not null;default:0"`
	ErrorCount    int        `json:"error_count" gorm:"not null;default:0"`
	Status        JobStatus  `json:"status" gorm:"size:20;not null;default:pending;index"`
	ErrorMessage  *string    `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ProgressPercentage derives completion as a percentage rounded to two
// decimals. A zero-row job reports 0.
func (j *ImportJob) ProgressPercentage() float64 {
	if j.TotalRows == 0 {
		return 0
	}
	pct := float64(j.ProcessedRows) / float64(j.TotalRows) * 100
	return math.Round(pct*100) / 100
}

// ImportJobStatus is the read projection returned to polling and
// streaming clients.
type ImportJobStatus struct {
	JobID              string     `json:"job_id"`
	Filename           string     `json:"filename"`
	TotalRows          int        `json:"total_rows"`
	ProcessedRows      int        `json:"processed_rows"`
	SuccessCount       int        `json:"success_count"`
	ErrorCount         int        `json:"error_count"`
	Status             JobStatus  `json:"status"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ProgressPercentage float64    `json:"progress_percentage"`
}

// StatusProjection builds the client-facing view of a job.
func (j *ImportJob) StatusProjection() ImportJobStatus {
	return ImportJobStatus{
		JobID:              j.ID,
		Filename:           j.Filename,
		TotalRows:          j.TotalRows,
		ProcessedRows:      j.ProcessedRows,
		SuccessCount:       j.SuccessCount,
		ErrorCount:         j.ErrorCount,
		Status:             j.Status,
		ErrorMessage:       j.ErrorMessage,
		StartedAt:          j.StartedAt,
		CompletedAt:        j.CompletedAt,
		ProgressPercentage: j.ProgressPercentage(),
	}
}

// UploadResponse acknowledges an accepted CSV upload.
type UploadResponse struct {
	JobID    string `json:"job_id"`
	TaskID   string `json:"task_id"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// TableName returns the table name for the ImportJob model
func (ImportJob) TableName() string {
	return "import_jobs"
}
