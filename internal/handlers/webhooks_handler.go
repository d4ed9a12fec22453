package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"product-importer/internal/models"
)

// WebhookStore is the subscription persistence surface the handler needs.
type WebhookStore interface {
	Create(webhook *models.Webhook) error
	GetByID(id uint) (*models.Webhook, error)
	List() ([]models.Webhook, error)
	Update(webhook *models.Webhook) error
	Delete(id uint) error
}

// Deliverer sends one event to one webhook endpoint.
type Deliverer interface {
	Deliver(webhook *models.Webhook, event models.Event) error
}

type WebhooksHandler struct {
	repo   WebhookStore
	sender Deliverer
	log    *logrus.Entry
}

func NewWebhooksHandler(repo WebhookStore, sender Deliverer, logger *logrus.Logger) *WebhooksHandler {
	return &WebhooksHandler{
		repo:   repo,
		sender: sender,
		log:    logger.WithField("component", "webhooks-handler"),
	}
}

// CreateWebhook registers a new webhook subscription
// POST /api/webhooks
func (h *WebhooksHandler) CreateWebhook(c *gin.Context) {
	var req models.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error(), "")
		return
	}
	if !models.ValidEventType(req.EventType) {
		h.badRequest(c, fmt.Sprintf("unknown event type %q, allowed: %s",
			req.EventType, strings.Join(models.AllowedEventTypes, ", ")), "event_type")
		return
	}

	headers, err := encodeHeaders(req.Headers)
	if err != nil {
		h.badRequest(c, err.Error(), "headers")
		return
	}

	now := time.Now().UTC()
	webhook := models.Webhook{
		URL:       req.URL,
		EventType: req.EventType,
		IsEnabled: true,
		Headers:   headers,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.IsEnabled != nil {
		webhook.IsEnabled = *req.IsEnabled
	}

	if err := h.repo.Create(&webhook); err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, webhook)
}

// ListWebhooks returns all webhook subscriptions
// GET /api/webhooks
func (h *WebhooksHandler) ListWebhooks(c *gin.Context) {
	items, err := h.repo.List()
	if err != nil {
		h.internalError(c, err)
		return
	}
	if items == nil {
		items = []models.Webhook{}
	}
	c.JSON(http.StatusOK, gin.H{"webhooks": items, "count": len(items)})
}

// UpdateWebhook updates selected fields of a subscription
// PUT /api/webhooks/:id
func (h *WebhooksHandler) UpdateWebhook(c *gin.Context) {
	webhook, ok := h.loadWebhook(c)
	if !ok {
		return
	}

	var req models.UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error(), "")
		return
	}

	if req.URL != nil {
		if *req.URL == "" {
			h.badRequest(c, "url cannot be empty", "url")
			return
		}
		webhook.URL = *req.URL
	}
	if req.EventType != nil {
		if !models.ValidEventType(*req.EventType) {
			h.badRequest(c, fmt.Sprintf("unknown event type %q", *req.EventType), "event_type")
			return
		}
		webhook.EventType = *req.EventType
	}
	if req.IsEnabled != nil {
		webhook.IsEnabled = *req.IsEnabled
	}
	if req.Headers != nil {
		headers, err := encodeHeaders(req.Headers)
		if err != nil {
			h.badRequest(c, err.Error(), "headers")
			return
		}
		webhook.Headers = headers
	}
	webhook.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(webhook); err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, webhook)
}

// DeleteWebhook removes a subscription
// DELETE /api/webhooks/:id
func (h *WebhooksHandler) DeleteWebhook(c *gin.Context) {
	webhook, ok := h.loadWebhook(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(webhook.ID); err != nil {
		h.internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TestWebhook sends a synthetic event to one subscription so operators
// can verify connectivity
// POST /api/webhooks/:id/test
func (h *WebhooksHandler) TestWebhook(c *gin.Context) {
	webhook, ok := h.loadWebhook(c)
	if !ok {
		return
	}

	event := models.Event{
		EventType: webhook.EventType,
		Data: map[string]interface{}{
			"test":       true,
			"webhook_id": webhook.ID,
		},
	}
	if err := h.sender.Deliver(webhook, event); err != nil {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELIVERY_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	msg := "test event delivered"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &msg})
}

func (h *WebhooksHandler) loadWebhook(c *gin.Context) (*models.Webhook, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.badRequest(c, "webhook ID must be a positive integer", "id")
		return nil, false
	}

	webhook, err := h.repo.GetByID(uint(id))
	if err != nil {
		h.internalError(c, err)
		return nil, false
	}
	if webhook == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NOT_FOUND",
				Message: fmt.Sprintf("webhook %d not found", id),
			},
		})
		return nil, false
	}
	return webhook, true
}

func encodeHeaders(headers map[string]interface{}) (*string, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	for k, v := range headers {
		if _, ok := v.(string); !ok {
			return nil, fmt.Errorf("header %q must be a string value", k)
		}
		if strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("header names cannot be blank")
		}
	}
	data, err := json.Marshal(headers)
	if err != nil {
		return nil, err
	}
	encoded := string(data)
	return &encoded, nil
}

func (h *WebhooksHandler) badRequest(c *gin.Context, msg, field string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "VALIDATION_ERROR",
			Message: msg,
			Field:   field,
		},
	})
}

func (h *WebhooksHandler) internalError(c *gin.Context, err error) {
	h.log.WithError(err).Error("Request failed")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INTERNAL_ERROR",
			Message: "an internal error occurred",
		},
	})
}
