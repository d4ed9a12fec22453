package dispatch

import (
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"product-importer/internal/models"
)

// AMQPDispatcher publishes import tasks and webhook events to RabbitMQ
// queues. Messages are persistent so queued work survives a broker
// restart.
type AMQPDispatcher struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	importQueue  string
	webhookQueue string
	log          *logrus.Entry
}

func NewAMQPDispatcher(url, importQueue, webhookQueue string, logger *logrus.Logger) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, queue := range []string{importQueue, webhookQueue} {
		_, err = ch.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	return &AMQPDispatcher{
		conn:         conn,
		channel:      ch,
		importQueue:  importQueue,
		webhookQueue: webhookQueue,
		log:          logger.WithField("component", "amqp-dispatcher"),
	}, nil
}

func (d *AMQPDispatcher) EnqueueImport(jobID, filePath string) error {
	body, err := json.Marshal(ImportTask{JobID: jobID, FilePath: filePath})
	if err != nil {
		return err
	}
	if err := d.publish(d.importQueue, body); err != nil {
		return fmt.Errorf("failed to enqueue import task: %w", err)
	}
	d.log.WithField("job_id", jobID).Info("Import task enqueued")
	return nil
}

func (d *AMQPDispatcher) EnqueueEvent(event models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := d.publish(d.webhookQueue, body); err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}
	return nil
}

func (d *AMQPDispatcher) publish(queue string, body []byte) error {
	return d.channel.Publish(
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func (d *AMQPDispatcher) Close() error {
	if d.channel != nil {
		if err := d.channel.Close(); err != nil {
			return err
		}
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
