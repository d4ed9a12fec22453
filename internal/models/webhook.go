package models

import (
	"time"
)

// Event types delivered to configured webhooks.
const (
	EventImportComplete = "import_complete"
	EventProductCreated = "product_created"
	EventProductUpdated = "product_updated"
	EventProductDeleted = "product_deleted"
)

// AllowedEventTypes lists every event type a webhook can subscribe to.
var AllowedEventTypes = []string{
	EventImportComplete,
	EventProductCreated,
	EventProductUpdated,
	EventProductDeleted,
}

// ValidEventType reports whether t is a known event type.
func ValidEventType(t string) bool {
	for _, allowed := range AllowedEventTypes {
		if t == allowed {
			return true
		}
	}
	return false
}

// Webhook is a delivery target for event notifications. Headers holds an
// optional JSON object of custom HTTP headers sent with each delivery.
type Webhook struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	URL       string    `json:"url" gorm:"size:500;not null"`
	EventType string    `json:"event_type" gorm:"size:50;not null;index"`
	IsEnabled bool      `json:"is_enabled" gorm:"not null;default:true"`
	Headers   *string   `json:"headers,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is the typed notification handed to the webhook subsystem. Data is
// serialized as-is into the delivery payload's "data" field.
type Event struct {
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
}

// CreateWebhookRequest is the payload for POST /webhooks.
type CreateWebhookRequest struct {
	URL       string                 `json:"url" binding:"required,url"`
	EventType string                 `json:"event_type" binding:"required"`
	IsEnabled *bool                  `json:"is_enabled"`
	Headers   map[string]interface{} `json:"headers"`
}

// UpdateWebhookRequest is the payload for PUT /webhooks/:id.
type UpdateWebhookRequest struct {
	URL       *string                `json:"url"`
	EventType *string                `json:"event_type"`
	IsEnabled *bool                  `json:"is_enabled"`
	Headers   map[string]interface{} `json:"headers"`
}

// TableName returns the table name for the Webhook model
func (Webhook) TableName() string {
	return "webhooks"
}
