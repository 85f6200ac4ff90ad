package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultEmailQueue is the queue mail workers consume from.
const DefaultEmailQueue = "email_queue"

const jobVersion = "1.0"

// Publisher is the subset of *amqp.Channel used by AMQPNotifier.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type emailJob struct {
	Message
	Priority int         `json:"priority"`
	Metadata jobMetadata `json:"metadata"`
}

type jobMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// AMQPNotifier publishes each message as a persistent JSON job.
type AMQPNotifier struct {
	publisher Publisher
	queue     string
	now       func() time.Time

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPNotifier publishes to queue through p. It does not own p.
func NewAMQPNotifier(p Publisher, queue string) *AMQPNotifier {
	if queue == "" {
		queue = DefaultEmailQueue
	}
	return &AMQPNotifier{publisher: p, queue: queue, now: time.Now}
}

// DialAMQP connects to url, declares a durable queue and returns a notifier
// that owns the connection. Close releases it.
func DialAMQP(url, queue string) (*AMQPNotifier, error) {
	if queue == "" {
		queue = DefaultEmailQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", queue, err)
	}

	n := NewAMQPNotifier(ch, queue)
	n.conn = conn
	n.ch = ch
	return n, nil
}

// Send publishes msg to the configured queue.
func (n *AMQPNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("notify: message has no recipient")
	}
	body, err := json.Marshal(emailJob{
		Message:  msg,
		Priority: 1,
		Metadata: jobMetadata{Timestamp: n.now().UTC(), Version: jobVersion},
	})
	if err != nil {
		return fmt.Errorf("encode email job: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.publisher.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    n.now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish email job: %w", err)
	}
	return nil
}

// Close releases a connection opened by DialAMQP.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	var errs []error
	if n.ch != nil {
		errs = append(errs, n.ch.Close())
		n.ch = nil
	}
	if n.conn != nil {
		errs = append(errs, n.conn.Close())
		n.conn = nil
	}
	return errors.Join(errs...)
}
