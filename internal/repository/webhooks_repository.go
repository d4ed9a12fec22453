package repository

import (
	"errors"

	"gorm.io/gorm"

	"product-importer/internal/models"
)

type WebhooksRepository struct {
	db *gorm.DB
}

func NewWebhooksRepository(db *gorm.DB) *WebhooksRepository {
	return &WebhooksRepository{db: db}
}

func (r *WebhooksRepository) Create(webhook *models.Webhook) error {
	return r.db.Create(webhook).Error
}

// GetByID returns (nil, nil) when the webhook does not exist.
func (r *WebhooksRepository) GetByID(id uint) (*models.Webhook, error) {
	var webhook models.Webhook
	if err := r.db.First(&webhook, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &webhook, nil
}

func (r *WebhooksRepository) List() ([]models.Webhook, error) {
	var webhooks []models.Webhook
	if err := r.db.Order("created_at DESC").Find(&webhooks).Error; err != nil {
		return nil, err
	}
	return webhooks, nil
}

// ListEnabledForEvent returns the enabled subscriptions for one event type.
func (r *WebhooksRepository) ListEnabledForEvent(eventType string) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	err := r.db.Where("event_type = ? AND is_enabled = ?", eventType, true).
		Find(&webhooks).Error
	if err != nil {
		return nil, err
	}
	return webhooks, nil
}

func (r *WebhooksRepository) Update(webhook *models.Webhook) error {
	return r.db.Save(webhook).Error
}

// Delete returns gorm.ErrRecordNotFound when nothing was removed.
func (r *WebhooksRepository) Delete(id uint) error {
	result := r.db.Delete(&models.Webhook{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
