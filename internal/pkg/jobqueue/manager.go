package jobqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/ManuelReschke/Tochigi/internal/pkg/config"
	"github.com/ManuelReschke/Tochigi/internal/pkg/contentsync"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

const (
	JobContentSync    = "content-sync"
	JobScheduledPosts = "scheduled-posts"
	JobTokenRefresh   = "token-refresh"

	// JobStatsKeyPrefix prefixes the cache key holding the last run of a job.
	JobStatsKeyPrefix = "job_stats:"
	jobStatsTTL       = 7 * 24 * time.Hour

	// a content sync walks every connected company with a pause in between
	syncTimeout    = 2 * time.Hour
	publishTimeout = 5 * time.Minute
	refreshTimeout = 10 * time.Minute
)

// SyncRunner runs the content sync over all companies.
type SyncRunner interface {
	RunAll(ctx context.Context) (*contentsync.Result, error)
}

// DuePublisher publishes scheduled posts whose time has come.
type DuePublisher interface {
	PublishDue(ctx context.Context) (int, error)
}

// TokenRefresher renews Instagram tokens close to expiry.
type TokenRefresher interface {
	RefreshExpiring(ctx context.Context) (int, error)
}

// StatsStore keeps the outcome of the last run per job.
type StatsStore interface {
	SetJSON(ctx context.Context, key string, v any, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, v any) (bool, error)
}

// RunStats describes one job run.
type RunStats struct {
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
	Summary    any       `json:"summary,omitempty"`
}

// Manager owns the background scheduler.
type Manager struct {
	scheduler gocron.Scheduler
	sync      SyncRunner
	publisher DuePublisher
	refresher TokenRefresher
	stats     StatsStore
	cfg       config.CronConfig
	log       *logger.Logger
	jobs      map[string]gocron.Job
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	running   bool
}

// NewManager creates the scheduler and registers the jobs enabled in cfg. An
// interval of zero disables the job.
func NewManager(cfg config.CronConfig, syncRunner SyncRunner, publisher DuePublisher, stats StatsStore, log *logger.Logger) (*Manager, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		scheduler: scheduler,
		sync:      syncRunner,
		publisher: publisher,
		stats:     stats,
		cfg:       cfg,
		log:       log.Named("jobqueue"),
		jobs:      make(map[string]gocron.Job),
		ctx:       ctx,
		cancel:    cancel,
	}
	if err := m.registerJobs(); err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return m, nil
}

func (m *Manager) registerJobs() error {
	if m.sync != nil && m.cfg.SyncInterval > 0 {
		if err := m.register(JobContentSync, m.cfg.SyncInterval, m.runContentSync); err != nil {
			return err
		}
	}
	if m.publisher != nil && m.cfg.PublishInterval > 0 {
		if err := m.register(JobScheduledPosts, m.cfg.PublishInterval, m.runScheduledPosts); err != nil {
			return err
		}
	}
	m.log.Info().Int("jobs", len(m.jobs)).Msg("registered background jobs")
	return nil
}

func (m *Manager) register(name string, interval time.Duration, task func()) error {
	job, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		// runs of the same job never overlap
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", name, err)
	}
	m.jobs[name] = job
	m.log.Info().Str("job", name).Dur("interval", interval).Msg("job scheduled")
	return nil
}

// RegisterTokenRefresh adds the token refresh job. It must be called before
// Start; a zero interval leaves the job disabled.
func (m *Manager) RegisterTokenRefresh(r TokenRefresher, interval time.Duration) error {
	if r == nil || interval <= 0 {
		return nil
	}
	m.refresher = r
	return m.register(JobTokenRefresh, interval, m.runTokenRefresh)
}

// Start starts the scheduler. Calling it twice is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.scheduler.Start()
	m.running = true
	m.log.Info().Msg("background scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancel()
	if !m.running {
		return nil
	}
	m.running = false
	m.log.Info().Msg("stopping background scheduler")
	return m.scheduler.Shutdown()
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Jobs returns the names of the registered jobs.
func (m *Manager) Jobs() []string {
	names := make([]string, 0, len(m.jobs))
	for _, name := range []string{JobContentSync, JobScheduledPosts, JobTokenRefresh} {
		if _, ok := m.jobs[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// NextRun reports when a job fires next.
func (m *Manager) NextRun(name string) (time.Time, bool) {
	job, ok := m.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	next, err := job.NextRun()
	if err != nil {
		return time.Time{}, false
	}
	return next, true
}

// LastRun returns the stored stats of the last run of a job.
func (m *Manager) LastRun(ctx context.Context, name string) (*RunStats, bool) {
	if m.stats == nil {
		return nil, false
	}
	var s RunStats
	ok, err := m.stats.GetJSON(ctx, JobStatsKeyPrefix+name, &s)
	if err != nil || !ok {
		return nil, false
	}
	return &s, true
}

func (m *Manager) runContentSync() {
	ctx, cancel := context.WithTimeout(m.ctx, syncTimeout)
	defer cancel()

	started := time.Now()
	result, err := m.sync.RunAll(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("scheduled content sync failed")
	}
	m.record(ctx, JobContentSync, started, result, err)
}

func (m *Manager) runScheduledPosts() {
	ctx, cancel := context.WithTimeout(m.ctx, publishTimeout)
	defer cancel()

	started := time.Now()
	n, err := m.publisher.PublishDue(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("scheduled post publishing failed")
	} else if n > 0 {
		m.log.Info().Int("published", n).Msg("scheduled posts published")
	}
	m.record(ctx, JobScheduledPosts, started, map[string]int{"published": n}, err)
}

func (m *Manager) runTokenRefresh() {
	ctx, cancel := context.WithTimeout(m.ctx, refreshTimeout)
	defer cancel()

	started := time.Now()
	n, err := m.refresher.RefreshExpiring(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("instagram token refresh failed")
	}
	m.record(ctx, JobTokenRefresh, started, map[string]int{"refreshed": n}, err)
}

func (m *Manager) record(ctx context.Context, name string, started time.Time, summary any, runErr error) {
	if m.stats == nil {
		return
	}
	s := RunStats{
		Job:        name,
		StartedAt:  started.UTC(),
		DurationMs: time.Since(started).Milliseconds(),
		Summary:    summary,
	}
	if runErr != nil {
		s.Error = runErr.Error()
	}
	// the job context may already be done
	if err := m.stats.SetJSON(context.WithoutCancel(ctx), JobStatsKeyPrefix+name, s, jobStatsTTL); err != nil {
		m.log.Debug().Err(err).Str("job", name).Msg("failed to store job stats")
	}
}
