// Package memory provides an in-process event publisher for local runs
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/readyrobots/leadengine/internal/events"
)

const defaultCapacity = 256

// Publisher retains the most recent updates in a bounded ring.
type Publisher struct {
	mu      sync.Mutex
	updates []events.LeadUpdate
	cap     int
}

func New() *Publisher {
	return &Publisher{cap: defaultCapacity}
}

func (p *Publisher) PublishLeadUpdate(_ context.Context, update events.LeadUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, update)
	if len(p.updates) > p.cap {
		p.updates = p.updates[len(p.updates)-p.cap:]
	}
	return nil
}

func (p *Publisher) Close() error { return nil }

// Updates returns a copy of the retained updates, oldest first.
func (p *Publisher) Updates() []events.LeadUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.LeadUpdate, len(p.updates))
	copy(out, p.updates)
	return out
}
