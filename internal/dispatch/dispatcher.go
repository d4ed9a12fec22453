package dispatch

import (
	"context"

	"github.com/sirupsen/logrus"

	"product-importer/internal/models"
)

// ImportTask is the queue payload for one import run.
type ImportTask struct {
	JobID    string `json:"job_id"`
	FilePath string `json:"file_path"`
}

// ImportRunner executes one import job end to end.
type ImportRunner interface {
	Run(ctx context.Context, jobID, filePath string) error
}

// EventHandler fans an event out to its webhook subscribers.
type EventHandler interface {
	HandleEvent(event models.Event) error
}

// Dispatcher hands work off for execution. The AMQP implementation
// publishes to queues consumed by a separate worker process; the direct
// implementation runs the work in-process when no broker is configured.
type Dispatcher interface {
	EnqueueImport(jobID, filePath string) error
	EnqueueEvent(event models.Event) error
	Close() error
}

// DirectDispatcher runs imports and event delivery in background
// goroutines of the API process itself.
type DirectDispatcher struct {
	runner  ImportRunner
	handler EventHandler
	log     *logrus.Entry
}

func NewDirectDispatcher(runner ImportRunner, handler EventHandler, logger *logrus.Logger) *DirectDispatcher {
	return &DirectDispatcher{
		runner:  runner,
		handler: handler,
		log:     logger.WithField("component", "direct-dispatcher"),
	}
}

func (d *DirectDispatcher) EnqueueImport(jobID, filePath string) error {
	go func() {
		if err := d.runner.Run(context.Background(), jobID, filePath); err != nil {
			d.log.WithField("job_id", jobID).WithError(err).Error("Import failed")
		}
	}()
	return nil
}

func (d *DirectDispatcher) EnqueueEvent(event models.Event) error {
	go func() {
		if err := d.handler.HandleEvent(event); err != nil {
			d.log.WithField("event_type", event.EventType).WithError(err).Error("Event delivery failed")
		}
	}()
	return nil
}

func (d *DirectDispatcher) Close() error { return nil }
