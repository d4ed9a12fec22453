package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-importer/internal/models"
)

// fakeJobStore keeps jobs in memory and records every persisted snapshot
// so tests can assert on intermediate progress.
type fakeJobStore struct {
	jobs      map[string]*models.ImportJob
	snapshots []models.ImportJob
}

var _ JobStore = (*fakeJobStore)(nil)

func newFakeJobStore(jobs ...*models.ImportJob) *fakeJobStore {
	s := &fakeJobStore{jobs: make(map[string]*models.ImportJob)}
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return s
}

func (s *fakeJobStore) GetJob(id string) (*models.ImportJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return job, nil
}

func (s *fakeJobStore) SaveJob(job *models.ImportJob) error {
	s.jobs[job.ID] = job
	s.snapshots = append(s.snapshots, *job)
	return nil
}

// fakeProductStore is a map-backed store with case-insensitive SKU lookup.
type fakeProductStore struct {
	byLowerSKU map[string]*models.Product
	nextID     uint
}

var _ ProductStore = (*fakeProductStore)(nil)

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{byLowerSKU: make(map[string]*models.Product), nextID: 1}
}

func (s *fakeProductStore) FindBySKU(sku string) (*models.Product, error) {
	return s.byLowerSKU[strings.ToLower(sku)], nil
}

func (s *fakeProductStore) Create(product *models.Product) error {
	product.ID = s.nextID
	s.nextID++
	s.byLowerSKU[strings.ToLower(product.SKU)] = product
	return nil
}

func (s *fakeProductStore) Update(product *models.Product) error {
	s.byLowerSKU[strings.ToLower(product.SKU)] = product
	return nil
}

type recordingNotifier struct {
	events []models.Event
}

func (n *recordingNotifier) Notify(event models.Event) error {
	n.events = append(n.events, event)
	return nil
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestOrchestrator(jobs JobStore, products ProductStore, notifier Notifier, chunkSize int) *Orchestrator {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	chunks := NewChunkProcessor(NewUpsertEngine(products), logger)
	return NewOrchestrator(jobs, chunks, notifier, chunkSize, logger)
}

func TestOrchestratorCompletesCleanImport(t *testing.T) {
	job := &models.ImportJob{ID: "job-1", Filename: "upload.csv", TotalRows: 3, Status: models.JobStatusPending}
	jobs := newFakeJobStore(job)
	products := newFakeProductStore()
	notifier := &recordingNotifier{}

	path := writeCSV(t, "sku,name,description,price\nA-1,First,desc,9.99\nA-2,Second,,\nA-3,Third,more,0\n")
	orch := newTestOrchestrator(jobs, products, notifier, 1000)

	require.NoError(t, orch.Run(context.Background(), "job-1", path))

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 3, job.ProcessedRows)
	assert.Equal(t, 3, job.SuccessCount)
	assert.Equal(t, 0, job.ErrorCount)
	assert.Nil(t, job.ErrorMessage)
	require.NotNil(t, job.CompletedAt)

	// The uploaded file is cleaned up on success.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.EventImportComplete, notifier.events[0].EventType)
	assert.Equal(t, "job-1", notifier.events[0].Data["job_id"])
	assert.Equal(t, 3, notifier.events[0].Data["success_count"])
}

func TestOrchestratorPersistsProgressPerChunk(t *testing.T) {
	const chunkSize = 10
	totalRows := 2*chunkSize + 7

	var sb strings.Builder
	sb.WriteString("sku,name,description\n")
	for i := 0; i < totalRows; i++ {
		fmt.Fprintf(&sb, "SKU-%d,Product %d,\n", i, i)
	}

	job := &models.ImportJob{ID: "job-2", Filename: "big.csv", TotalRows: totalRows, Status: models.JobStatusPending}
	jobs := newFakeJobStore(job)
	path := writeCSV(t, sb.String())
	orch := newTestOrchestrator(jobs, newFakeProductStore(), &recordingNotifier{}, chunkSize)

	require.NoError(t, orch.Run(context.Background(), "job-2", path))

	assert.Equal(t, totalRows, job.ProcessedRows)
	assert.Equal(t, totalRows, job.SuccessCount)

	// One snapshot per chunk, plus the processing transition and the
	// final completion save.
	var progressSaves []int
	for _, snap := range jobs.snapshots {
		if snap.Status == models.JobStatusProcessing && snap.ProcessedRows > 0 {
			progressSaves = append(progressSaves, snap.ProcessedRows)
		}
	}
	assert.Equal(t, []int{10, 20, 27}, progressSaves)

	// Counters satisfy processed == success + error at every save.
	for _, snap := range jobs.snapshots {
		assert.Equal(t, snap.ProcessedRows, snap.SuccessCount+snap.ErrorCount)
	}
}

func TestOrchestratorRowNumbersStartAtTwo(t *testing.T) {
	job := &models.ImportJob{ID: "job-3", Filename: "u.csv", TotalRows: 2, Status: models.JobStatusPending}
	jobs := newFakeJobStore(job)

	// First data row (file row 2) is invalid.
	path := writeCSV(t, "sku,name,description\n,NoSKU,\nA-1,Fine,\n")
	orch := newTestOrchestrator(jobs, newFakeProductStore(), &recordingNotifier{}, 1000)

	require.NoError(t, orch.Run(context.Background(), "job-3", path))

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.SuccessCount)
	assert.Equal(t, 1, job.ErrorCount)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "Row 2: ")
}

func TestOrchestratorSkipsBlankRows(t *testing.T) {
	job := &models.ImportJob{ID: "job-4", Filename: "u.csv", TotalRows: 2, Status: models.JobStatusPending}
	jobs := newFakeJobStore(job)

	path := writeCSV(t, "sku,name,description\nA-1,First,\n\n,,\nA-2,Second,\n")
	orch := newTestOrchestrator(jobs, newFakeProductStore(), &recordingNotifier{}, 1000)

	require.NoError(t, orch.Run(context.Background(), "job-4", path))

	assert.Equal(t, 2, job.ProcessedRows)
	assert.Equal(t, 2, job.SuccessCount)
	assert.Equal(t, 0, job.ErrorCount)
}

func TestOrchestratorErrorSummaryCapsAtTen(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("sku,name,description\n")
	for i := 0; i < 15; i++ {
		sb.WriteString(",missing sku,\n")
	}

	job := &models.ImportJob{ID: "job-5", Filename: "bad.csv", TotalRows: 15, Status: models.JobStatusPending}
	jobs := newFakeJobStore(job)
	path := writeCSV(t, sb.String())
	orch := newTestOrchestrator(jobs, newFakeProductStore(), &recordingNotifier{}, 1000)

	require.NoError(t, orch.Run(context.Background(), "job-5", path))

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 15, job.ErrorCount)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "Completed with 15 errors. First 10 errors:")
	assert.Equal(t, 10, strings.Count(*job.ErrorMessage, "Row "))
}

func TestOrchestratorFailsOnMissingColumns(t *testing.T) {
	job := &models.ImportJob{ID: "job-6", Filename: "u.csv", TotalRows: 1, Status: models.JobStatusPending}
	jobs := newFakeJobStore(job)
	notifier := &recordingNotifier{}

	path := writeCSV(t, "sku,price\nA-1,9.99\n")
	orch := newTestOrchestrator(jobs, newFakeProductStore(), notifier, 1000)

	err := orch.Run(context.Background(), "job-6", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "description")

	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	require.NotNil(t, job.CompletedAt)
	assert.Empty(t, notifier.events)
}

func TestOrchestratorFailsOnMissingFile(t *testing.T) {
	job := &models.ImportJob{ID: "job-7", Filename: "gone.csv", TotalRows: 1, Status: models.JobStatusPending}
	jobs := newFakeJobStore(job)
	orch := newTestOrchestrator(jobs, newFakeProductStore(), &recordingNotifier{}, 1000)

	err := orch.Run(context.Background(), "job-7", "/nonexistent/gone.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSV file not found")
	assert.Equal(t, models.JobStatusFailed, job.Status)
}

func TestOrchestratorFailsOnUnknownJob(t *testing.T) {
	jobs := newFakeJobStore()
	orch := newTestOrchestrator(jobs, newFakeProductStore(), &recordingNotifier{}, 1000)

	err := orch.Run(context.Background(), "missing", "/tmp/whatever.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Empty(t, jobs.snapshots)
}

func TestOrchestratorResetsCountersOnRerun(t *testing.T) {
	job := &models.ImportJob{
		ID:            "job-8",
		Filename:      "u.csv",
		TotalRows:     2,
		ProcessedRows: 1,
		SuccessCount:  1,
		Status:        models.JobStatusProcessing,
	}
	jobs := newFakeJobStore(job)
	products := newFakeProductStore()

	path := writeCSV(t, "sku,name,description\nA-1,First,\nA-2,Second,\n")
	orch := newTestOrchestrator(jobs, products, &recordingNotifier{}, 1000)

	require.NoError(t, orch.Run(context.Background(), "job-8", path))

	// Counters reflect one full pass, not the stale partial progress.
	assert.Equal(t, 2, job.ProcessedRows)
	assert.Equal(t, 2, job.SuccessCount)
	assert.Equal(t, 0, job.ErrorCount)
}

func TestOrchestratorUpsertsAreIdempotentAcrossRuns(t *testing.T) {
	products := newFakeProductStore()
	content := "sku,name,description\nabc-1,Widget,\n"

	for i, jobID := range []string{"run-1", "run-2"} {
		job := &models.ImportJob{ID: jobID, Filename: "u.csv", TotalRows: 1, Status: models.JobStatusPending}
		jobs := newFakeJobStore(job)
		path := writeCSV(t, content)
		orch := newTestOrchestrator(jobs, products, &recordingNotifier{}, 1000)
		require.NoError(t, orch.Run(context.Background(), jobID, path), "run %d", i+1)
	}

	// The second run updated the product created by the first.
	product, err := products.FindBySKU("ABC-1")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, uint(1), product.ID)
	assert.Equal(t, "ABC-1", product.SKU)
}

func TestOrchestratorSameSKUDifferentCaseUpdatesInPlace(t *testing.T) {
	job := &models.ImportJob{ID: "job-10", Filename: "u.csv", TotalRows: 2, Status: models.JobStatusPending}
	jobs := newFakeJobStore(job)
	products := newFakeProductStore()

	path := writeCSV(t, "sku,name,description,price\nA1,Widget,,9.99\n,,,\na1,Widget Updated,,12.50\n")
	orch := newTestOrchestrator(jobs, products, &recordingNotifier{}, 1000)

	require.NoError(t, orch.Run(context.Background(), "job-10", path))

	assert.Equal(t, 2, job.ProcessedRows)
	assert.Equal(t, 2, job.SuccessCount)
	assert.Equal(t, 0, job.ErrorCount)

	// Both rows land on one product; the second updates the first.
	require.Len(t, products.byLowerSKU, 1)
	product, err := products.FindBySKU("a1")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "A1", product.SKU)
	assert.Equal(t, "Widget Updated", product.Name)
	require.NotNil(t, product.Price)
	assert.Equal(t, 12.50, *product.Price)
}

func TestOrchestratorStopsWhenContextCanceled(t *testing.T) {
	job := &models.ImportJob{ID: "job-9", Filename: "u.csv", TotalRows: 2, Status: models.JobStatusPending}
	jobs := newFakeJobStore(job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeCSV(t, "sku,name,description\nA-1,First,\nA-2,Second,\n")
	orch := newTestOrchestrator(jobs, newFakeProductStore(), &recordingNotifier{}, 1)

	err := orch.Run(ctx, "job-9", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled")
	assert.Equal(t, models.JobStatusFailed, job.Status)
}
