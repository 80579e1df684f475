// Package scheduler polls for due monitors and enqueues search jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/chronique/chronique/internal/store"
)

// Job is a search job emitted by the scheduler.
type Job struct {
	MonitorID      string `json:"monitor_id"`
	PublicFigureID string `json:"public_figure_id"`
	TopicID        string `json:"topic_id"`
}

// Config configures the scheduler.
type Config struct {
	// CheckInterval is how often to poll for due monitors. Default: 1 minute.
	CheckInterval time.Duration
	// MaxFailCount is the maximum failure count before a monitor is skipped.
	MaxFailCount int
}

func (c *Config) defaults() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Minute
	}
	if c.MaxFailCount <= 0 {
		c.MaxFailCount = 10
	}
}

// JobSink receives enqueued jobs.
type JobSink func(ctx context.Context, job *Job) error

// Scheduler periodically checks for due monitors.
type Scheduler struct {
	store  *store.Store
	sink   JobSink
	config Config
	logger *slog.Logger
}

// New creates a Scheduler.
func New(st *store.Store, sink JobSink, cfg Config, logger *slog.Logger) *Scheduler {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:  st,
		sink:   sink,
		config: cfg,
		logger: logger,
	}
}

// Run polls for due monitors on a ticker. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	// Run once immediately on start.
	s.enqueueDueMonitors(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueueDueMonitors(ctx)
		}
	}
}

func (s *Scheduler) enqueueDueMonitors(ctx context.Context) {
	due, err := s.store.DueMonitors(ctx, s.config.MaxFailCount)
	if err != nil {
		s.logger.Error("scheduler: due monitors", "error", err)
		return
	}

	for _, mon := range due {
		job := &Job{
			MonitorID:      mon.ID,
			PublicFigureID: mon.PublicFigureID,
			TopicID:        mon.TopicID,
		}
		if err := s.sink(ctx, job); err != nil {
			s.logger.Warn("scheduler: enqueue job", "monitor_id", mon.ID, "error", err)
		}
	}

	if len(due) > 0 {
		s.logger.Debug("scheduler: enqueued", "jobs", len(due))
	}
}
