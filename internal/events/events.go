// Package events defines the outbound notification surface. A lead
// update fires whenever a company's score row changes; downstream
// consumers (CRM sync, alerting) subscribe to the topic.
package events

import (
	"context"
	"time"

	"github.com/readyrobots/leadengine/internal/leads"
)

// LeadUpdate is the payload published after each score recompute.
type LeadUpdate struct {
	CompanyID   string     `json:"company_id"`
	CompanyName string     `json:"company_name"`
	Overall     float64    `json:"overall_score"`
	Tier        leads.Tier `json:"priority_tier"`
	Junk        bool       `json:"is_junk"`
	ComputedAt  time.Time  `json:"computed_at"`
}

// Publisher sends lead updates to whatever transport is configured.
type Publisher interface {
	PublishLeadUpdate(ctx context.Context, update LeadUpdate) error
	Close() error
}

// NoOpPublisher discards updates. Used when no transport is configured.
type NoOpPublisher struct{}

func (NoOpPublisher) PublishLeadUpdate(context.Context, LeadUpdate) error { return nil }

func (NoOpPublisher) Close() error { return nil }
