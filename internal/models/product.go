package models

import (
	"time"
)

// Product is a catalog entry keyed by a case-insensitively unique SKU.
// SKUs are stored upper-cased; uniqueness is enforced by a functional
// index on LOWER(sku) so lookups stay case-insensitive.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SKU         string    `json:"sku" gorm:"size:100;not null;index"`
	Name        string    `json:"name" gorm:"size:255;not null;index"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	Price       *float64  `json:"price,omitempty" gorm:"type:numeric(10,2)"`
	IsActive    bool      `json:"isActive" gorm:"not null;default:true;index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateProductRequest is the payload for POST /products.
type CreateProductRequest struct {
	SKU         string   `json:"sku" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	IsActive    *bool    `json:"isActive"`
}

// UpdateProductRequest is the payload for PUT /products/:id.
// Nil fields are left untouched.
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	IsActive    *bool    `json:"isActive"`
}

// ProductListResponse is a paginated product listing.
type ProductListResponse struct {
	Items      []Product `json:"items"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
}

// BulkDeleteRequest is the payload for DELETE /products/bulk.
type BulkDeleteRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// BulkDeleteResponse reports how many products a bulk delete removed.
type BulkDeleteResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}
