package webhooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"product-importer/internal/models"
)

// payload is the body POSTed to webhook endpoints.
type payload struct {
	EventType string                 `json:"event_type"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Sender delivers events to webhook endpoints over HTTP. Server errors
// and network failures are retried with exponential backoff; client
// errors are not, since resending the same payload cannot fix them.
type Sender struct {
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	log        *logrus.Entry
}

func NewSender(timeout time.Duration, maxRetries int, logger *logrus.Logger) *Sender {
	return &Sender{
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		backoff:    time.Second,
		log:        logger.WithField("component", "webhook-sender"),
	}
}

// Deliver posts the event to one webhook endpoint, retrying transient
// failures up to maxRetries times. Disabled webhooks are skipped.
func (s *Sender) Deliver(webhook *models.Webhook, event models.Event) error {
	if !webhook.IsEnabled {
		s.log.WithField("webhook_id", webhook.ID).Info("Webhook disabled, skipping delivery")
		return nil
	}

	body, err := json.Marshal(payload{
		EventType: event.EventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      event.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %v", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.backoff * time.Duration(1<<(attempt-1)))
		}

		status, err := s.post(webhook, body)
		if err != nil {
			lastErr = err
			s.log.WithFields(logrus.Fields{
				"webhook_id": webhook.ID,
				"attempt":    attempt + 1,
			}).WithError(err).Warn("Webhook delivery failed")
			continue
		}
		if status >= 500 {
			lastErr = fmt.Errorf("webhook returned status %d", status)
			s.log.WithFields(logrus.Fields{
				"webhook_id": webhook.ID,
				"status":     status,
				"attempt":    attempt + 1,
			}).Warn("Webhook delivery failed")
			continue
		}
		if status >= 400 {
			// The endpoint rejected the payload; retrying will not help.
			return fmt.Errorf("webhook returned status %d", status)
		}

		s.log.WithFields(logrus.Fields{
			"webhook_id": webhook.ID,
			"event_type": event.EventType,
			"status":     status,
		}).Info("Webhook delivered")
		return nil
	}

	return fmt.Errorf("webhook delivery failed after %d attempts: %v", s.maxRetries+1, lastErr)
}

func (s *Sender) post(webhook *models.Webhook, body []byte) (int, error) {
	req, err := http.NewRequest(http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	// Custom headers are stored as a JSON object on the subscription.
	if webhook.Headers != nil && *webhook.Headers != "" {
		var custom map[string]string
		if err := json.Unmarshal([]byte(*webhook.Headers), &custom); err == nil {
			for k, v := range custom {
				req.Header.Set(k, v)
			}
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
