package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPDispatcher publishes tasks to a RabbitMQ queue for cmd/worker to consume.
type AMQPDispatcher struct {
	conn   *amqp.Connection
	queue  string
	logger *zap.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

func NewAMQPDispatcher(conn *amqp.Connection, queue string, logger *zap.Logger) *AMQPDispatcher {
	return &AMQPDispatcher{
		conn:   conn,
		queue:  queue,
		logger: logger.With(zap.String("component", "rabbitmq")),
	}
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, task GenerationTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	ch, err := d.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", d.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    task.JobID.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}
	return nil
}

func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ch != nil && !d.ch.IsClosed() {
		return d.ch.Close()
	}
	return nil
}

func (d *AMQPDispatcher) channel() (*amqp.Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ch != nil && !d.ch.IsClosed() {
		return d.ch, nil
	}
	if d.conn == nil || d.conn.IsClosed() {
		return nil, fmt.Errorf("RabbitMQ connection is closed")
	}

	ch, err := d.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}
	d.ch = ch
	d.logger.Info("Publisher channel created", zap.String("queue", d.queue))
	return ch, nil
}

type ConsumeOptions struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
}

// AMQPConsumer runs tasks delivered through RabbitMQ.
type AMQPConsumer struct {
	conn   *amqp.Connection
	opts   ConsumeOptions
	logger *zap.Logger
}

func NewAMQPConsumer(conn *amqp.Connection, opts ConsumeOptions, logger *zap.Logger) *AMQPConsumer {
	return &AMQPConsumer{
		conn:   conn,
		opts:   opts,
		logger: logger.With(zap.String("component", "rabbitmq")),
	}
}

// Consume blocks until ctx is done or the delivery channel closes. Each
// delivery is acked after handling; failures are recorded by onFailure rather
// than requeued.
func (c *AMQPConsumer) Consume(ctx context.Context, handler Handler, onFailure FailureHook) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if c.opts.PrefetchCount > 0 {
		if err := ch.Qos(c.opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	msgs, err := ch.Consume(c.opts.Queue, c.opts.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Started consuming messages",
		zap.String("queue", c.opts.Queue),
		zap.String("consumer_tag", c.opts.ConsumerTag),
		zap.Int("prefetch_count", c.opts.PrefetchCount),
	)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", c.opts.Queue)
			}

			var task GenerationTask
			if err := json.Unmarshal(msg.Body, &task); err != nil {
				c.logger.Error("Dropping malformed task message", zap.Error(err))
				_ = msg.Nack(false, false)
				continue
			}

			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				RunSafely(ctx, c.logger, task, handler, onFailure)
				if err := d.Ack(false); err != nil {
					c.logger.Warn("Failed to ack task message", zap.String("job_id", task.JobID.String()), zap.Error(err))
				}
			}(msg)
		}
	}
}
