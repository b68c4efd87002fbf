// Package queue decouples notification dispatch from the request path. The
// queue is a process-local bounded channel: the relay is best-effort by
// contract, so losing events on overflow or crash is acceptable and durable
// storage would be dishonest about the guarantee.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/momentumblock/pcl-proxy/internal/models"
)

var (
	// ErrQueueFull means the event was dropped. Callers log it and move
	// on; the booking path never blocks on notifications.
	ErrQueueFull = errors.New("notifications queue full")
	// ErrQueueClosed means the queue is shutting down.
	ErrQueueClosed = errors.New("notifications queue closed")
)

type NotificationsQueue struct {
	mu     sync.Mutex
	ch     chan models.NotificationEvent
	closed bool
}

func NewNotificationsQueue(size int) *NotificationsQueue {
	return &NotificationsQueue{ch: make(chan models.NotificationEvent, size)}
}

// Publish enqueues without blocking. A full queue drops the event, and a
// closed queue reports ErrQueueClosed; requests that race shutdown must not
// reach the closed channel.
func (q *NotificationsQueue) Publish(evt models.NotificationEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- evt:
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume blocks until an event arrives, the queue closes, or ctx is done.
func (q *NotificationsQueue) Consume(ctx context.Context) (models.NotificationEvent, error) {
	select {
	case evt, ok := <-q.ch:
		if !ok {
			return models.NotificationEvent{}, ErrQueueClosed
		}
		return evt, nil
	case <-ctx.Done():
		return models.NotificationEvent{}, ctx.Err()
	}
}

// Close stops the queue. Events already enqueued remain consumable.
func (q *NotificationsQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
