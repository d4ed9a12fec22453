package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidateRow checks a single record against the product import rules and
// returns the normalized row. The returned error message describes the
// first failing field and echoes the offending raw value where relevant.
func ValidateRow(rec RawRecord) (*ValidRow, error) {
	sku := strings.TrimSpace(rec["sku"])
	if sku == "" {
		return nil, fmt.Errorf("sku cannot be empty or whitespace")
	}

	name := strings.TrimSpace(rec["name"])
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty or whitespace")
	}

	row := &ValidRow{SKU: sku, Name: name}

	if desc := strings.TrimSpace(rec["description"]); desc != "" {
		row.Description = &desc
	}

	if raw := strings.TrimSpace(rec["price"]); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return nil, fmt.Errorf("invalid price format: '%s'", raw)
		}
		if price < 0 {
			return nil, fmt.Errorf("price cannot be negative: '%s'", raw)
		}
		row.Price = &price
	}

	return row, nil
}
