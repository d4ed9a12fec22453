package handlers

import (
	"github.com/stretchr/testify/mock"

	"product-importer/internal/dispatch"
	"product-importer/internal/models"
	"product-importer/internal/repository"
)

// MockJobsStore is a mock implementation of JobsStore
type MockJobsStore struct {
	mock.Mock
}

var _ JobsStore = (*MockJobsStore)(nil)

func (m *MockJobsStore) Create(job *models.ImportJob) error {
	args := m.Called(job)
	return args.Error(0)
}

func (m *MockJobsStore) GetJob(id string) (*models.ImportJob, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportJob), args.Error(1)
}

func (m *MockJobsStore) List(limit int, status *models.JobStatus) ([]models.ImportJob, error) {
	args := m.Called(limit, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ImportJob), args.Error(1)
}

// MockProductStore is a mock implementation of ProductStore
type MockProductStore struct {
	mock.Mock
}

var _ ProductStore = (*MockProductStore)(nil)

func (m *MockProductStore) GetByID(id uint) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductStore) FindBySKU(sku string) (*models.Product, error) {
	args := m.Called(sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductStore) List(filter repository.ListFilter) ([]models.Product, int64, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductStore) Create(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductStore) Update(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductStore) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockProductStore) BulkDelete(ids []uint) (int64, error) {
	args := m.Called(ids)
	return args.Get(0).(int64), args.Error(1)
}

// MockWebhookStore is a mock implementation of WebhookStore
type MockWebhookStore struct {
	mock.Mock
}

var _ WebhookStore = (*MockWebhookStore)(nil)

func (m *MockWebhookStore) Create(webhook *models.Webhook) error {
	args := m.Called(webhook)
	if args.Error(0) == nil {
		webhook.ID = 1
	}
	return args.Error(0)
}

func (m *MockWebhookStore) GetByID(id uint) (*models.Webhook, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Webhook), args.Error(1)
}

func (m *MockWebhookStore) List() ([]models.Webhook, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Webhook), args.Error(1)
}

func (m *MockWebhookStore) Update(webhook *models.Webhook) error {
	args := m.Called(webhook)
	return args.Error(0)
}

func (m *MockWebhookStore) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockDeliverer is a mock implementation of Deliverer
type MockDeliverer struct {
	mock.Mock
}

var _ Deliverer = (*MockDeliverer)(nil)

func (m *MockDeliverer) Deliver(webhook *models.Webhook, event models.Event) error {
	args := m.Called(webhook, event)
	return args.Error(0)
}

// MockDispatcher is a mock implementation of dispatch.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

var _ dispatch.Dispatcher = (*MockDispatcher)(nil)

func (m *MockDispatcher) EnqueueImport(jobID, filePath string) error {
	args := m.Called(jobID, filePath)
	return args.Error(0)
}

func (m *MockDispatcher) EnqueueEvent(event models.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockDispatcher) Close() error {
	args := m.Called()
	return args.Error(0)
}
