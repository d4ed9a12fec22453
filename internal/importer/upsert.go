package importer

import (
	"fmt"
	"strings"
	"time"

	"product-importer/internal/models"
)

// UpsertEngine applies a validated row to the product store. The SKU is
// the business key: an existing product (matched case-insensitively) is
// updated in place, otherwise a new one is created.
type UpsertEngine struct {
	store ProductStore
}

func NewUpsertEngine(store ProductStore) *UpsertEngine {
	return &UpsertEngine{store: store}
}

// Apply upserts one row. On update only name, description and price are
// overwritten; the stored SKU casing and is_active flag are preserved.
// New products are stored with an upper-cased SKU and start active.
func (e *UpsertEngine) Apply(row *ValidRow) error {
	existing, err := e.store.FindBySKU(row.SKU)
	if err != nil {
		return fmt.Errorf("database error: %v", err)
	}

	now := time.Now().UTC()
	if existing != nil {
		existing.Name = row.Name
		existing.Description = row.Description
		existing.Price = row.Price
		existing.UpdatedAt = now
		if err := e.store.Update(existing); err != nil {
			return fmt.Errorf("database error: %v", err)
		}
		return nil
	}

	product := &models.Product{
		SKU:         strings.ToUpper(row.SKU),
		Name:        row.Name,
		Description: row.Description,
		Price:       row.Price,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.Create(product); err != nil {
		return fmt.Errorf("database error: %v", err)
	}
	return nil
}
