package webhooks

import (
	"github.com/sirupsen/logrus"

	"product-importer/internal/models"
)

// SubscriptionStore lists the enabled subscriptions for an event type.
type SubscriptionStore interface {
	ListEnabledForEvent(eventType string) ([]models.Webhook, error)
}

// Trigger fans an event out to every enabled webhook subscribed to its
// type. One failing endpoint never blocks delivery to the others.
type Trigger struct {
	repo   SubscriptionStore
	sender *Sender
	log    *logrus.Entry
}

func NewTrigger(repo SubscriptionStore, sender *Sender, logger *logrus.Logger) *Trigger {
	return &Trigger{
		repo:   repo,
		sender: sender,
		log:    logger.WithField("component", "webhook-trigger"),
	}
}

// HandleEvent delivers the event to all matching subscriptions.
func (t *Trigger) HandleEvent(event models.Event) error {
	subs, err := t.repo.ListEnabledForEvent(event.EventType)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	t.log.WithFields(logrus.Fields{
		"event_type": event.EventType,
		"webhooks":   len(subs),
	}).Info("Triggering webhooks")

	for i := range subs {
		if err := t.sender.Deliver(&subs[i], event); err != nil {
			t.log.WithField("webhook_id", subs[i].ID).WithError(err).Error("Webhook delivery gave up")
		}
	}
	return nil
}
