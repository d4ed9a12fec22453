package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"product-importer/internal/models"
)

// MockProductStore is a mock implementation of ProductStore
type MockProductStore struct {
	mock.Mock
}

var _ ProductStore = (*MockProductStore)(nil)

func (m *MockProductStore) FindBySKU(sku string) (*models.Product, error) {
	args := m.Called(sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductStore) Create(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductStore) Update(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestUpsertEngineCreatesNewProduct(t *testing.T) {
	store := new(MockProductStore)
	store.On("FindBySKU", "abc-1").Return(nil, nil)
	store.On("Create", mock.AnythingOfType("*models.Product")).Return(nil)

	engine := NewUpsertEngine(store)
	err := engine.Apply(&ValidRow{SKU: "abc-1", Name: "Widget", Price: floatPtr(9.5)})
	require.NoError(t, err)

	store.AssertExpectations(t)
	created := store.Calls[1].Arguments.Get(0).(*models.Product)
	assert.Equal(t, "ABC-1", created.SKU)
	assert.Equal(t, "Widget", created.Name)
	assert.True(t, created.IsActive)
}

func TestUpsertEngineUpdatesExistingProduct(t *testing.T) {
	existing := &models.Product{
		ID:       7,
		SKU:      "Abc-1",
		Name:     "Old name",
		IsActive: false,
	}
	store := new(MockProductStore)
	store.On("FindBySKU", "ABC-1").Return(existing, nil)
	store.On("Update", existing).Return(nil)

	engine := NewUpsertEngine(store)
	err := engine.Apply(&ValidRow{
		SKU:         "ABC-1",
		Name:        "New name",
		Description: strPtr("fresh"),
		Price:       floatPtr(12),
	})
	require.NoError(t, err)

	assert.Equal(t, "New name", existing.Name)
	assert.Equal(t, "fresh", *existing.Description)
	assert.Equal(t, 12.0, *existing.Price)
	// Stored SKU casing and active flag survive updates.
	assert.Equal(t, "Abc-1", existing.SKU)
	assert.False(t, existing.IsActive)
	store.AssertExpectations(t)
}

func TestUpsertEngineReportsStoreErrors(t *testing.T) {
	store := new(MockProductStore)
	store.On("FindBySKU", "ABC").Return(nil, errors.New("connection refused"))

	engine := NewUpsertEngine(store)
	err := engine.Apply(&ValidRow{SKU: "ABC", Name: "Widget"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
}
