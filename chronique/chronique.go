package chronique

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/chronique/chronique/internal/pipeline"
	"github.com/hazyhaar/chronique/chronique/internal/scheduler"
	"github.com/hazyhaar/chronique/chronique/internal/store"
	"github.com/hazyhaar/chronique/idgen"
)

// Searcher produces candidate events for a monitor. The implementation
// (search API calls, LLM summarization) lives outside this service;
// chronique only consumes its output.
type Searcher interface {
	Search(ctx context.Context, mon *Monitor) (*SearchResult, error)
}

// Service is the main chronique orchestrator.
type Service struct {
	store     *store.Store
	ingestor  *pipeline.Ingestor
	scheduler *scheduler.Scheduler
	searcher  Searcher
	logger    *slog.Logger
	config    *Config
	newID     idgen.Generator
}

// New creates a chronique Service on an already-opened database. The
// caller applies the schema beforehand (see ApplySchema).
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("chronique: db is required")
	}
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		store:  store.NewStore(db),
		logger: logger,
		config: cfg,
		newID:  idgen.New,
	}

	for _, opt := range opts {
		opt(svc)
	}

	svc.ingestor = pipeline.NewIngestor(logger, svc.newID)

	sink := func(ctx context.Context, job *scheduler.Job) error {
		return svc.processJob(ctx, job)
	}
	svc.scheduler = scheduler.New(svc.store, sink, scheduler.Config{
		CheckInterval: cfg.CheckInterval,
		MaxFailCount:  cfg.MaxFailCount,
	}, logger)

	return svc, nil
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithSearcher sets the external search collaborator. Without one, the
// scheduler stays idle and ingestion happens only through Ingest calls.
func WithSearcher(s Searcher) ServiceOption {
	return func(svc *Service) { svc.searcher = s }
}

// WithIDGenerator overrides the ID generator (default: idgen.New).
func WithIDGenerator(gen idgen.Generator) ServiceOption {
	return func(svc *Service) { svc.newID = gen }
}

// Start launches the background scheduler. Non-blocking. Without a
// configured Searcher there is nothing to run.
func (svc *Service) Start(ctx context.Context) {
	if svc.searcher == nil {
		svc.logger.Info("chronique: started (no searcher, scheduler idle)")
		return
	}
	go svc.scheduler.Run(ctx)
	svc.logger.Info("chronique: started")
}

// Close shuts down the service.
func (svc *Service) Close() error {
	svc.logger.Info("chronique: closed")
	return nil
}

// --- Monitors ---

// AddMonitor adds a new monitor.
func (svc *Service) AddMonitor(ctx context.Context, m *Monitor) error {
	if m.ID == "" {
		m.ID = svc.newID()
	}

	// Apply defaults before validation.
	if m.SearchInterval == 0 {
		m.SearchInterval = 3600000
	}

	if err := validateMonitorInput(m); err != nil {
		return err
	}

	count, err := svc.store.CountMonitors(ctx)
	if err != nil {
		return fmt.Errorf("count monitors: %w", err)
	}
	if count >= svc.config.MaxMonitors {
		return fmt.Errorf("%w: maximum %d monitors", ErrQuotaExceeded, svc.config.MaxMonitors)
	}

	// Dedup check. The UNIQUE index on (public_figure_id, topic_id)
	// backs this up under concurrent adds.
	existing, _ := svc.store.GetMonitorByPair(ctx, m.PublicFigureID, m.TopicID)
	if existing != nil {
		return fmt.Errorf("%w: figure %s topic %s", ErrDuplicateMonitor, m.PublicFigureID, m.TopicID)
	}

	if err := svc.store.InsertMonitor(ctx, m); err != nil {
		if store.IsUniqueViolation(err, "monitors.public_figure_id") {
			return fmt.Errorf("%w: figure %s topic %s", ErrDuplicateMonitor, m.PublicFigureID, m.TopicID)
		}
		return err
	}
	return nil
}

// GetMonitor returns a monitor by ID.
func (svc *Service) GetMonitor(ctx context.Context, id string) (*Monitor, error) {
	m, err := svc.store.GetMonitor(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: monitor %s", ErrNotFound, id)
	}
	return m, nil
}

// ListMonitors returns all monitors.
func (svc *Service) ListMonitors(ctx context.Context) ([]*Monitor, error) {
	return svc.store.ListMonitors(ctx)
}

// UpdateMonitor updates a monitor's mutable fields.
func (svc *Service) UpdateMonitor(ctx context.Context, m *Monitor) error {
	existing, err := svc.store.GetMonitor(ctx, m.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: monitor %s", ErrNotFound, m.ID)
	}

	// Merge: use existing values for unset fields so validation passes.
	if m.Name == "" {
		m.Name = existing.Name
	}
	if m.PublicFigureID == "" {
		m.PublicFigureID = existing.PublicFigureID
	}
	if m.TopicID == "" {
		m.TopicID = existing.TopicID
	}
	if m.SearchInterval == 0 {
		m.SearchInterval = existing.SearchInterval
	}

	if err := validateMonitorInput(m); err != nil {
		return err
	}

	// Dedup check: if the pair changed, ensure no other monitor claims it.
	if m.PublicFigureID != existing.PublicFigureID || m.TopicID != existing.TopicID {
		other, _ := svc.store.GetMonitorByPair(ctx, m.PublicFigureID, m.TopicID)
		if other != nil && other.ID != m.ID {
			return fmt.Errorf("%w: figure %s topic %s", ErrDuplicateMonitor, m.PublicFigureID, m.TopicID)
		}
	}

	return svc.store.UpdateMonitor(ctx, m)
}

// DeleteMonitor removes a monitor and its ingest history. Events are kept;
// they describe the figure, not the subscription.
func (svc *Service) DeleteMonitor(ctx context.Context, id string) error {
	return svc.store.DeleteMonitor(ctx, id)
}

// ResetMonitor clears a monitor's error state so the scheduler picks it
// up again.
func (svc *Service) ResetMonitor(ctx context.Context, id string) error {
	return svc.store.ResetMonitor(ctx, id)
}

// --- Ingestion ---

// Ingest runs a candidate batch for a monitor and returns aggregate
// counts. The batch is processed in order; duplicates and invalid
// candidates are counted as skipped, and the monitor's last-searched
// timestamp is updated exactly once regardless of the outcome.
func (svc *Service) Ingest(ctx context.Context, monitorID string, result *SearchResult) (*Summary, error) {
	mon, err := svc.store.GetMonitor(ctx, monitorID)
	if err != nil {
		return nil, err
	}
	if mon == nil {
		return nil, fmt.Errorf("%w: monitor %s", ErrNotFound, monitorID)
	}
	return svc.ingestor.Run(ctx, svc.store, mon, result), nil
}

// RunMonitorNow triggers an immediate search+ingest cycle for one monitor
// through the configured Searcher.
func (svc *Service) RunMonitorNow(ctx context.Context, monitorID string) (*Summary, error) {
	if svc.searcher == nil {
		return nil, ErrNoSearcher
	}
	mon, err := svc.store.GetMonitor(ctx, monitorID)
	if err != nil {
		return nil, err
	}
	if mon == nil {
		return nil, fmt.Errorf("%w: monitor %s", ErrNotFound, monitorID)
	}

	result, err := svc.searcher.Search(ctx, mon)
	if err != nil {
		svc.store.RecordSearchError(ctx, mon.ID, err.Error())
		return nil, fmt.Errorf("search: %w", err)
	}
	return svc.ingestor.Run(ctx, svc.store, mon, result), nil
}

// --- Read operations ---

// ListEvents returns events for a monitor's figure×topic pair, newest first.
func (svc *Service) ListEvents(ctx context.Context, monitorID string, limit int) ([]*Event, error) {
	mon, err := svc.store.GetMonitor(ctx, monitorID)
	if err != nil {
		return nil, err
	}
	if mon == nil {
		return nil, fmt.Errorf("%w: monitor %s", ErrNotFound, monitorID)
	}
	return svc.store.ListEventsByPair(ctx, mon.PublicFigureID, mon.TopicID, limit)
}

// EventsForFigure returns events for a public figure across all topics.
func (svc *Service) EventsForFigure(ctx context.Context, figureID string, limit int) ([]*Event, error) {
	return svc.store.ListEventsByFigure(ctx, figureID, limit)
}

// GetEvent returns an event by ID.
func (svc *Service) GetEvent(ctx context.Context, id string) (*Event, error) {
	e, err := svc.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, id)
	}
	return e, nil
}

// ListArticles returns the citations stored for an event.
func (svc *Service) ListArticles(ctx context.Context, eventID string) ([]*Article, error) {
	return svc.store.ListArticlesByEvent(ctx, eventID)
}

// Search performs FTS5 search on events.
func (svc *Service) Search(ctx context.Context, query string, limit int) ([]*SearchHit, error) {
	return svc.store.Search(ctx, query, limit)
}

// GetStats returns aggregate counters.
func (svc *Service) GetStats(ctx context.Context) (*Stats, error) {
	return svc.store.Stats(ctx)
}

// IngestHistory returns ingest log entries for a monitor.
func (svc *Service) IngestHistory(ctx context.Context, monitorID string, limit int) ([]*IngestLogEntry, error) {
	return svc.store.IngestHistory(ctx, monitorID, limit)
}

// --- Internal ---

func (svc *Service) processJob(ctx context.Context, job *scheduler.Job) error {
	mon, err := svc.store.GetMonitor(ctx, job.MonitorID)
	if err != nil {
		return err
	}
	if mon == nil {
		svc.logger.Warn("chronique: scheduled monitor vanished", "monitor_id", job.MonitorID)
		return nil
	}

	result, err := svc.searcher.Search(ctx, mon)
	if err != nil {
		svc.store.RecordSearchError(ctx, mon.ID, err.Error())
		return fmt.Errorf("search monitor %s: %w", mon.ID, err)
	}

	svc.ingestor.Run(ctx, svc.store, mon, result)
	return nil
}

// ApplySchema applies the chronique schema to a database. It first
// backfills dedup hashes and removes duplicate events (idempotent), then
// applies the full schema including the UNIQUE index on
// events(dedup_hash).
func ApplySchema(db *sql.DB) error {
	if err := MigrateDedupHashes(db); err != nil {
		return fmt.Errorf("migrate dedup hashes: %w", err)
	}
	return store.ApplySchema(db)
}
