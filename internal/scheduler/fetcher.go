// Package scheduler fetches every known repository in the background.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitorbit/internal/config"
	"gitorbit/internal/domain"
	"gitorbit/internal/eventbus"
	"gitorbit/internal/orchestrator"
	"gitorbit/internal/repo"
)

// DefaultPollInterval is how often the fetcher checks whether a fetch is due
const DefaultPollInterval = 5 * time.Minute

// Source is the application state the fetcher reads and updates
type Source interface {
	Settings() config.Settings
	ReposLastFetched() time.Time
	SetReposLastFetched(t time.Time)
	AllRepositories() []*repo.Repository
	FetchRepositories(ctx context.Context, repos []*repo.Repository) orchestrator.Report
}

// Fetcher polls on a fixed interval and fetches all repositories once the
// configured fetch interval has passed
type Fetcher struct {
	source Source
	bus    eventbus.EventBus
	logger *zap.Logger
	poll   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running sync.WaitGroup
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(d time.Duration) Option {
	return func(f *Fetcher) { f.poll = d }
}

func WithBus(bus eventbus.EventBus) Option {
	return func(f *Fetcher) { f.bus = bus }
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// New creates a stopped fetcher
func New(source Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		source: source,
		logger: zap.NewNop(),
		poll:   DefaultPollInterval,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start begins polling. Calling Start on a running fetcher does nothing.
func (f *Fetcher) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	go f.loop(ctx, f.done)
	f.logger.Info("background fetcher started", zap.Duration("poll", f.poll))
}

// Stop ends polling. Fetches already running keep going in the background
// and their results are still applied.
func (f *Fetcher) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	f.logger.Info("background fetcher stopped")
}

// Wait blocks until every fetch started by the fetcher has settled
func (f *Fetcher) Wait() {
	f.running.Wait()
}

func (f *Fetcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if repos, ok := f.due(f.now()); ok {
				f.running.Add(1)
				go func() {
					defer f.running.Done()
					// Stop does not cancel running fetches
					f.fetch(context.WithoutCancel(ctx), repos)
				}()
			}
		}
	}
}

// Tick fetches every repository when a fetch is due at now. It reports whether
// a fetch ran and returns once it settled.
func (f *Fetcher) Tick(ctx context.Context, now time.Time) (orchestrator.Report, bool) {
	repos, ok := f.due(now)
	if !ok {
		return orchestrator.Report{}, false
	}
	return f.fetch(ctx, repos), true
}

// due decides whether to fetch and claims the run by moving ReposLastFetched
// to now before anything is fetched
func (f *Fetcher) due(now time.Time) ([]*repo.Repository, bool) {
	settings := f.source.Settings()
	if !settings.PeriodicallyFetchEnabled {
		f.logger.Debug("background fetch disabled")
		return nil, false
	}

	last := f.source.ReposLastFetched()
	elapsed := now.Sub(last).Minutes()
	if elapsed <= float64(settings.PeriodicallyFetchIntervalMinutes) {
		return nil, false
	}

	f.logger.Info("background fetch due",
		zap.Time("last_fetched", last),
		zap.Float64("elapsed_minutes", elapsed),
		zap.Int("interval_minutes", settings.PeriodicallyFetchIntervalMinutes))
	f.source.SetReposLastFetched(now)
	return f.source.AllRepositories(), true
}

func (f *Fetcher) fetch(ctx context.Context, repos []*repo.Repository) orchestrator.Report {
	if f.bus != nil {
		f.bus.Publish(domain.BackgroundFetchEvent{Repositories: len(repos)})
	}
	report := f.source.FetchRepositories(ctx, repos)
	f.logger.Info("background fetch completed",
		zap.Int("repositories", len(repos)),
		zap.Int("failed", report.Failed()))
	return report
}
