package importer

import (
	"strings"

	"product-importer/internal/models"
)

// RawRecord is one CSV data row keyed by case-folded, trimmed column name.
type RawRecord map[string]string

// IsBlank reports whether every field of the record is empty after
// trimming. Blank rows are skipped silently and count toward nothing.
func IsBlank(rec RawRecord) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ValidRow is a CSV row that passed validation and is ready to upsert.
type ValidRow struct {
	SKU         string
	Name        string
	Description *string
	Price       *float64
}

// ChunkRow pairs a raw record with its 1-based row number in the source
// file (row 1 is the header), used for error reporting.
type ChunkRow struct {
	Num    int
	Record RawRecord
}

// ProductStore is the product persistence surface the upsert engine
// depends on. FindBySKU matches case-insensitively and returns (nil, nil)
// when no product exists.
type ProductStore interface {
	FindBySKU(sku string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
}

// JobStore persists import job state. GetJob returns (nil, nil) when the
// job does not exist.
type JobStore interface {
	GetJob(id string) (*models.ImportJob, error)
	SaveJob(job *models.ImportJob) error
}

// Notifier hands completion events to the webhook subsystem. Delivery is
// someone else's problem; the orchestrator only logs a Notify failure.
type Notifier interface {
	Notify(event models.Event) error
}
