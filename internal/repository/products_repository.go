package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"product-importer/internal/models"
)

// ProductCacheTTL bounds how long a single product stays cached.
const ProductCacheTTL = 5 * time.Minute

type ProductsRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewProductsRepository(db *gorm.DB, redisClient *redis.Client) *ProductsRepository {
	return &ProductsRepository{
		db:    db,
		redis: redisClient,
	}
}

func productCacheKey(id uint) string {
	return fmt.Sprintf("product:%d", id)
}

// invalidateProductCache drops the cached copy of a product after a write.
func (r *ProductsRepository) invalidateProductCache(id uint) {
	if r.redis == nil {
		return
	}
	r.redis.Del(context.Background(), productCacheKey(id))
}

// GetByID retrieves a product by ID with caching.
func (r *ProductsRepository) GetByID(id uint) (*models.Product, error) {
	ctx := context.Background()
	cacheKey := productCacheKey(id)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}

	return &product, nil
}

// FindBySKU looks up a product by SKU, matching case-insensitively.
// Returns (nil, nil) when no product exists.
func (r *ProductsRepository) FindBySKU(sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.Where("LOWER(sku) = LOWER(?)", sku).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListFilter narrows the product listing.
type ListFilter struct {
	Search   string
	IsActive *bool
	Page     int
	PageSize int
}

// List returns one page of products plus the total match count.
func (r *ProductsRepository) List(filter ListFilter) ([]models.Product, int64, error) {
	query := r.db.Model(&models.Product{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(sku) LIKE ? OR LOWER(name) LIKE ?", pattern, pattern)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	offset := (filter.Page - 1) * filter.PageSize
	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(filter.PageSize).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Create inserts a new product.
func (r *ProductsRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// Update persists all fields of an existing product and invalidates its
// cache entry.
func (r *ProductsRepository) Update(product *models.Product) error {
	err := r.db.Save(product).Error
	if err == nil {
		r.invalidateProductCache(product.ID)
	}
	return err
}

// Delete removes a product. Returns gorm.ErrRecordNotFound when the
// product does not exist.
func (r *ProductsRepository) Delete(id uint) error {
	result := r.db.Delete(&models.Product{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateProductCache(id)
	return nil
}

// BulkDelete removes products by ID and reports how many rows went away.
func (r *ProductsRepository) BulkDelete(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Delete(&models.Product{}, ids)
	if result.Error != nil {
		return 0, result.Error
	}
	for _, id := range ids {
		r.invalidateProductCache(id)
	}
	return result.RowsAffected, nil
}
