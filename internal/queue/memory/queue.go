// Package memory provides a bounded in-process work queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/readyrobots/leadengine/internal/queue"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan queue.RunItem
	closeMu sync.Mutex
	closed  bool
}

// New constructs a queue with the provided capacity.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 64
	}
	return &Queue{ch: make(chan queue.RunItem, capacity)}
}

func (q *Queue) Enqueue(ctx context.Context, item queue.RunItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

func (q *Queue) Dequeue(ctx context.Context) (queue.RunItem, error) {
	select {
	case <-ctx.Done():
		return queue.RunItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return queue.RunItem{}, errors.New("queue closed")
		}
		return item, nil
	}
}

func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
