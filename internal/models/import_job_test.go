package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressPercentage(t *testing.T) {
	job := ImportJob{TotalRows: 3, ProcessedRows: 1}
	assert.Equal(t, 33.33, job.ProgressPercentage())

	job = ImportJob{TotalRows: 3, ProcessedRows: 3}
	assert.Equal(t, 100.0, job.ProgressPercentage())

	job = ImportJob{TotalRows: 0, ProcessedRows: 0}
	assert.Equal(t, 0.0, job.ProgressPercentage())
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}

func TestValidEventType(t *testing.T) {
	assert.True(t, ValidEventType(EventImportComplete))
	assert.True(t, ValidEventType(EventProductDeleted))
	assert.False(t, ValidEventType("shipment_created"))
}
