// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/tombola/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list (queue) name for room action logs.
const DefaultQueueName = "tombola_actions"

// Publisher pushes room actions onto the historian's Redis queue.
type Publisher struct {
	client  *redis.Client
	queue   string
	timeout time.Duration
	logger  logrus.FieldLogger

	mu     sync.Mutex // guards closed and wg.Add against Close
	closed bool
	wg     sync.WaitGroup
}

// NewPublisher builds a Publisher for the Redis server at addr.
func NewPublisher(addr string, db int, queue string, timeout time.Duration, logger logrus.FieldLogger) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Publisher{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		queue:   queue,
		timeout: timeout,
		logger:  logger.WithField("component", "publisher"),
	}
}

// Ping checks that Redis is reachable.
func (p *Publisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", p.client.Options().Addr, err)
	}
	return nil
}

// PublishRoomAction serializes the given record to JSON, then pushes it to the Redis queue.
func (p *Publisher) PublishRoomAction(ctx context.Context, record models.RoomAction) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoomAction: %w", err)
	}
	if err := p.client.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// RecordAction publishes in the background so rooms never wait on Redis.
// Failures are logged and otherwise ignored. Once Close has started the
// record is dropped.
func (p *Publisher) RecordAction(record models.RoomAction) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.WithFields(logrus.Fields{
			"room":   record.RoomCode,
			"action": record.ActionType,
		}).Debug("publisher closed, action dropped")
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.PublishRoomAction(ctx, record); err != nil {
			p.logger.WithFields(logrus.Fields{
				"room":   record.RoomCode,
				"action": record.ActionType,
			}).Warnf("historian publish failed: %v", err)
		}
	}()
}

// Close stops accepting records, waits for in-flight publishes and closes
// the client. Later calls return nil.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	return p.client.Close()
}
