// Package queue defines the scrape work queue.
package queue

import (
	"context"
	"time"

	"github.com/readyrobots/leadengine/internal/leads"
)

// RunItem is one scheduled scrape of one target.
type RunItem struct {
	Target     leads.ScrapeTarget
	Reason     string
	EnqueuedAt time.Time
}

// Queue hands run items from schedulers and API triggers to workers.
type Queue interface {
	// Enqueue pushes an item or returns when the context ends.
	Enqueue(ctx context.Context, item RunItem) error
	// Dequeue pops the next item, respecting context cancellation.
	Dequeue(ctx context.Context) (RunItem, error)
	// Close releases the queue for shutdown.
	Close()
}
