package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"product-importer/internal/models"
)

// Worker consumes the import and webhook queues and executes the work.
// Failed deliveries are republished with an incremented x-retry-count
// header until maxRetries, then dropped.
type Worker struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	importQueue  string
	webhookQueue string
	runner       ImportRunner
	handler      EventHandler
	maxRetries   int
	log          *logrus.Entry
}

func NewWorker(url, importQueue, webhookQueue string, runner ImportRunner, handler EventHandler, maxRetries int, logger *logrus.Logger) (*Worker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// One unacked message at a time keeps imports from piling up in a
	// single worker.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set Qos: %w", err)
	}

	for _, queue := range []string{importQueue, webhookQueue} {
		_, err = ch.QueueDeclare(queue, true, false, false, false, nil)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	return &Worker{
		conn:         conn,
		channel:      ch,
		importQueue:  importQueue,
		webhookQueue: webhookQueue,
		runner:       runner,
		handler:      handler,
		maxRetries:   maxRetries,
		log:          logger.WithField("component", "queue-worker"),
	}, nil
}

// Start consumes both queues until the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	importMsgs, err := w.channel.Consume(w.importQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", w.importQueue, err)
	}
	webhookMsgs, err := w.channel.Consume(w.webhookQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", w.webhookQueue, err)
	}

	w.log.WithFields(logrus.Fields{
		"import_queue":  w.importQueue,
		"webhook_queue": w.webhookQueue,
	}).Info("Worker started")

	go w.consume(ctx, w.importQueue, importMsgs, w.handleImport)
	go w.consume(ctx, w.webhookQueue, webhookMsgs, w.handleEvent)

	<-ctx.Done()
	return nil
}

func (w *Worker) consume(ctx context.Context, queue string, msgs <-chan amqp.Delivery, handle func(context.Context, []byte) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			w.process(ctx, queue, d, handle)
		}
	}
}

func (w *Worker) process(ctx context.Context, queue string, d amqp.Delivery, handle func(context.Context, []byte) error) {
	err := handle(ctx, d.Body)
	if err == nil {
		d.Ack(false)
		return
	}

	retryCount := getRetryCount(d.Headers)
	if isRetryableError(err) && retryCount < w.maxRetries {
		newCount := retryCount + 1
		w.log.WithFields(logrus.Fields{
			"queue": queue,
			"retry": newCount,
		}).WithError(err).Warn("Task failed, requeueing")

		time.Sleep(time.Duration(newCount) * time.Second)

		headers := make(amqp.Table, len(d.Headers)+1)
		for k, v := range d.Headers {
			headers[k] = v
		}
		headers["x-retry-count"] = int32(newCount)

		pubErr := w.channel.Publish("", queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			Body:         d.Body,
			Headers:      headers,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
		if pubErr != nil {
			d.Nack(false, true)
			return
		}
		d.Ack(false)
		return
	}

	w.log.WithField("queue", queue).WithError(err).Error("Task failed permanently")
	d.Nack(false, false)
}

func (w *Worker) handleImport(ctx context.Context, body []byte) error {
	var task ImportTask
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("failed to decode import task: %v", err)
	}
	return w.runner.Run(ctx, task.JobID, task.FilePath)
}

func (w *Worker) handleEvent(_ context.Context, body []byte) error {
	var event models.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode event: %v", err)
	}
	return w.handler.HandleEvent(event)
}

func (w *Worker) Close() error {
	if w.channel != nil {
		if err := w.channel.Close(); err != nil {
			return err
		}
	}
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

func getRetryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch count := headers["x-retry-count"].(type) {
	case int32:
		return int(count)
	case int64:
		return int(count)
	case int:
		return count
	}
	return 0
}

// isRetryableError reports whether the failure looks transient. Bad
// input (missing columns, malformed payloads) is never retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, candidate := range []string{
		"connection refused",
		"connection reset",
		"deadlock detected",
		"too many connections",
		"timeout",
		"temporary failure",
	} {
		if strings.Contains(msg, candidate) {
			return true
		}
	}
	return false
}
