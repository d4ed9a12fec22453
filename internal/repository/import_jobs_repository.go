package repository

import (
	"errors"

	"gorm.io/gorm"

	"product-importer/internal/models"
)

type ImportJobsRepository struct {
	db *gorm.DB
}

func NewImportJobsRepository(db *gorm.DB) *ImportJobsRepository {
	return &ImportJobsRepository{db: db}
}

// Create inserts a new import job row.
func (r *ImportJobsRepository) Create(job *models.ImportJob) error {
	return r.db.Create(job).Error
}

// GetJob loads a job by ID, returning (nil, nil) when it does not exist.
func (r *ImportJobsRepository) GetJob(id string) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := r.db.First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// SaveJob persists the full job state, counters included.
func (r *ImportJobsRepository) SaveJob(job *models.ImportJob) error {
	return r.db.Save(job).Error
}

// List returns the most recent jobs, newest first, optionally filtered
// by status.
func (r *ImportJobsRepository) List(limit int, status *models.JobStatus) ([]models.ImportJob, error) {
	query := r.db.Model(&models.ImportJob{}).Order("started_at DESC").Limit(limit)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var jobs []models.ImportJob
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
