package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"product-importer/internal/config"
	"product-importer/internal/dispatch"
	"product-importer/internal/models"
	"product-importer/internal/repository"
)

// ProductStore is the product persistence surface the handler needs.
type ProductStore interface {
	GetByID(id uint) (*models.Product, error)
	FindBySKU(sku string) (*models.Product, error)
	List(filter repository.ListFilter) ([]models.Product, int64, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id uint) error
	BulkDelete(ids []uint) (int64, error)
}

type ProductsHandler struct {
	repo       ProductStore
	dispatcher dispatch.Dispatcher
	cfg        *config.Config
	log        *logrus.Entry
}

func NewProductsHandler(repo ProductStore, dispatcher dispatch.Dispatcher, cfg *config.Config, logger *logrus.Logger) *ProductsHandler {
	return &ProductsHandler{
		repo:       repo,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        logger.WithField("component", "products-handler"),
	}
}

// CreateProduct creates a new product
// POST /api/products
func (h *ProductsHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	if sku == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "sku cannot be empty or whitespace",
				Field:   "sku",
			},
		})
		return
	}
	if req.Price != nil && *req.Price < 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "price cannot be negative",
				Field:   "price",
			},
		})
		return
	}

	existing, err := h.repo.FindBySKU(sku)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "SKU_EXISTS",
				Message: fmt.Sprintf("product with SKU %s already exists", sku),
				Field:   "sku",
			},
		})
		return
	}

	now := time.Now().UTC()
	product := models.Product{
		SKU:         sku,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.repo.Create(&product); err != nil {
		h.internalError(c, err)
		return
	}

	h.emitProductEvent(models.EventProductCreated, &product)
	c.JSON(http.StatusCreated, product)
}

// GetProduct returns a single product
// GET /api/products/:id
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	product, err := h.repo.GetByID(id)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if product == nil {
		h.notFound(c, id)
		return
	}
	c.JSON(http.StatusOK, product)
}

// ListProducts returns a page of products
// GET /api/products?page=&page_size=&search=&is_active=
func (h *ProductsHandler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.cfg.DefaultPageSize)))
	if pageSize < 1 {
		pageSize = h.cfg.DefaultPageSize
	}
	if pageSize > h.cfg.MaxPageSize {
		pageSize = h.cfg.MaxPageSize
	}

	filter := repository.ListFilter{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "VALIDATION_ERROR",
					Message: "is_active must be a boolean",
					Field:   "is_active",
				},
			})
			return
		}
		filter.IsActive = &active
	}

	products, total, err := h.repo.List(filter)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	c.JSON(http.StatusOK, models.ProductListResponse{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// UpdateProduct updates selected fields of a product
// PUT /api/products/:id
func (h *ProductsHandler) UpdateProduct(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}
	if req.Price != nil && *req.Price < 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "price cannot be negative",
				Field:   "price",
			},
		})
		return
	}

	product, err := h.repo.GetByID(id)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if product == nil {
		h.notFound(c, id)
		return
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Price != nil {
		product.Price = req.Price
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	product.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(product); err != nil {
		h.internalError(c, err)
		return
	}

	h.emitProductEvent(models.EventProductUpdated, product)
	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product
// DELETE /api/products/:id
func (h *ProductsHandler) DeleteProduct(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	product, err := h.repo.GetByID(id)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if product == nil {
		h.notFound(c, id)
		return
	}

	if err := h.repo.Delete(id); err != nil {
		h.internalError(c, err)
		return
	}

	h.emitProductEvent(models.EventProductDeleted, product)
	c.Status(http.StatusNoContent)
}

// BulkDeleteProducts removes a set of products by ID
// POST /api/products/bulk-delete
func (h *ProductsHandler) BulkDeleteProducts(c *gin.Context) {
	var req models.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	count, err := h.repo.BulkDelete(req.IDs)
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BulkDeleteResponse{
		Message: fmt.Sprintf("Deleted %d products", count),
		Count:   count,
	})
}

func (h *ProductsHandler) emitProductEvent(eventType string, product *models.Product) {
	event := models.Event{
		EventType: eventType,
		Data: map[string]interface{}{
			"id":   product.ID,
			"sku":  product.SKU,
			"name": product.Name,
		},
	}
	if err := h.dispatcher.EnqueueEvent(event); err != nil {
		h.log.WithField("event_type", eventType).WithError(err).Warn("Failed to enqueue product event")
	}
}

func (h *ProductsHandler) parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "product ID must be a positive integer",
			},
		})
		return 0, false
	}
	return uint(id), true
}

func (h *ProductsHandler) notFound(c *gin.Context, id uint) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "NOT_FOUND",
			Message: fmt.Sprintf("product %d not found", id),
		},
	})
}

func (h *ProductsHandler) internalError(c *gin.Context, err error) {
	h.log.WithError(err).Error("Request failed")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INTERNAL_ERROR",
			Message: "an internal error occurred",
		},
	})
}
