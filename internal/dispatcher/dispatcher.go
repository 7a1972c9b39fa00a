// Package dispatcher owns the worker pool and the cadence scheduler.
// Workers drain the run queue; the scheduler feeds it with due targets.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/metrics"
	"github.com/readyrobots/leadengine/internal/queue"
	"github.com/readyrobots/leadengine/internal/registry"
	"github.com/readyrobots/leadengine/internal/runner"
	"github.com/readyrobots/leadengine/internal/store"
)

// Config sizes the pool and the scheduler tick.
type Config struct {
	Workers          int
	ScheduleInterval time.Duration
}

// Dispatcher runs the pool until its context ends.
type Dispatcher struct {
	cfg    Config
	q      queue.Queue
	runner *runner.Runner
	reg    *registry.Service
	clock  leads.Clock
	log    *zap.Logger
	wg     sync.WaitGroup
}

func New(cfg Config, q queue.Queue, r *runner.Runner, reg *registry.Service, clock leads.Clock, log *zap.Logger) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.ScheduleInterval <= 0 {
		cfg.ScheduleInterval = time.Minute
	}
	return &Dispatcher{
		cfg:    cfg,
		q:      q,
		runner: r,
		reg:    reg,
		clock:  clock,
		log:    log.Named("dispatcher"),
	}
}

// Start launches the workers and the scheduler. It returns immediately;
// use Wait for shutdown.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.wg.Add(1)
	go d.schedule(ctx)
	d.log.Info("dispatcher started", zap.Int("workers", d.cfg.Workers))
}

// Wait blocks until all workers and the scheduler have exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.log.With(zap.Int("worker", id))
	for {
		item, err := d.q.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping")
				return
			}
			log.Warn("dequeue failed", zap.Error(err))
			return
		}

		metrics.IncActiveWorkers()
		res, err := d.runner.Run(ctx, item)
		metrics.DecActiveWorkers()
		if err != nil {
			log.Error("run failed",
				zap.String("target_id", item.Target.ID),
				zap.String("outcome", res.Outcome),
				zap.Error(err),
			)
		}
	}
}

// schedule enqueues due targets on each tick. A full queue is not an
// error; the backlog catches up on the next tick.
func (d *Dispatcher) schedule(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.ScheduleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.enqueueDue(ctx); err != nil && ctx.Err() == nil {
				d.log.Warn("scheduling pass failed", zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) enqueueDue(ctx context.Context) (int, error) {
	due, err := d.reg.Due(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing due targets: %w", err)
	}
	n := 0
	for _, target := range due {
		item := queue.RunItem{Target: target, Reason: "scheduled", EnqueuedAt: d.clock.Now()}
		if err := d.q.Enqueue(ctx, item); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		d.log.Info("scheduled due targets", zap.Int("count", n))
	}
	return n, nil
}

// Trigger enqueues every active target matching the kind and industry
// filters; empty values match everything. Returns the number queued.
func (d *Dispatcher) Trigger(ctx context.Context, kind leads.ScraperKind, industry string) (int, error) {
	targets, err := d.reg.List(ctx, store.TargetFilter{Kind: kind, Industry: industry, ActiveOnly: true})
	if err != nil {
		return 0, fmt.Errorf("listing targets: %w", err)
	}
	n, err := d.TriggerTargets(ctx, targets)
	if err != nil {
		return n, err
	}
	d.log.Info("manual trigger queued",
		zap.String("kind", string(kind)), zap.String("industry", industry), zap.Int("count", n))
	return n, nil
}

// TriggerTargets enqueues the given targets directly, bypassing cadence.
func (d *Dispatcher) TriggerTargets(ctx context.Context, targets []leads.ScrapeTarget) (int, error) {
	for i, target := range targets {
		item := queue.RunItem{Target: target, Reason: "manual", EnqueuedAt: d.clock.Now()}
		if err := d.q.Enqueue(ctx, item); err != nil {
			return i, err
		}
	}
	return len(targets), nil
}
