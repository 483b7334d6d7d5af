package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"gitorbit/internal/domain"
	"gitorbit/internal/eventbus"
	"gitorbit/internal/repo"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeSkipped = "skipped"
)

// Operation is applied to every repository of a batch
type Operation func(ctx context.Context, r *repo.Repository) repo.Result

// Batch describes one orchestrated run
type Batch struct {
	WorkspaceID     string
	Repos           []*repo.Repository
	ShowProgress    bool // mark repositories as busy while they run
	ClearPriorError bool // clear LastError of every target before starting
	Unattended      bool // never promote a failure to the global error
}

// Sink receives repositories after their operation settled
type Sink interface {
	CommitRepository(workspaceID string, r *repo.Repository)
	SetGlobalError(message string)
}

// Outcome is the settled result of one repository
type Outcome struct {
	Path    string
	Result  repo.Result
	Skipped bool // never started because the context was cancelled
}

// Report lists outcomes in submission order
type Report struct {
	Outcomes []Outcome
}

// Failed counts outcomes with an error
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Result.OK() {
			n++
		}
	}
	return n
}

// Orchestrator runs operations over many repositories with bounded concurrency
type Orchestrator struct {
	sink        Sink
	concurrency func() int
	inFlight    *InFlight
	metrics     *Metrics
	bus         eventbus.EventBus
	logger      *zap.Logger

	// serializes the completion step of every repository
	finishMu sync.Mutex
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

func WithInFlight(f *InFlight) Option {
	return func(o *Orchestrator) { o.inFlight = f }
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithBus(bus eventbus.EventBus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates an orchestrator. concurrency is read at the start of every batch.
func New(sink Sink, concurrency func() int, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sink:        sink,
		concurrency: concurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.inFlight == nil {
		o.inFlight = NewInFlight(o.bus)
	}
	return o
}

// InFlight returns the busy tracker
func (o *Orchestrator) InFlight() *InFlight {
	return o.inFlight
}

// Run applies op to every repository of the batch and returns once all of them settled.
// A failure or panic in one repository never affects the others. When the batch
// targets exactly one repository its error is promoted to the global error.
func (o *Orchestrator) Run(ctx context.Context, batch Batch, op Operation) Report {
	repos := batch.Repos
	report := Report{Outcomes: make([]Outcome, len(repos))}
	if len(repos) == 0 {
		return report
	}

	if batch.ClearPriorError {
		for _, r := range repos {
			r.ClearLastError()
		}
	}
	if batch.ShowProgress {
		for _, r := range repos {
			o.inFlight.Add(r.Path())
		}
	}

	limit := 1
	if o.concurrency != nil && o.concurrency() > 1 {
		limit = o.concurrency()
	}

	o.logger.Debug("batch started",
		zap.String("workspace", batch.WorkspaceID),
		zap.Int("repositories", len(repos)),
		zap.Int("concurrency", limit))
	o.metrics.batchStarted()
	o.publish(domain.BatchStartedEvent{WorkspaceID: batch.WorkspaceID, Size: len(repos)})

	// Weighted semaphores wake waiters in FIFO order, and acquiring here keeps submission order
	sem := semaphore.NewWeighted(int64(limit))
	var g errgroup.Group

	for i, r := range repos {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(repos); j++ {
				report.Outcomes[j] = Outcome{
					Path:    repos[j].Path(),
					Result:  repo.Result{Err: err},
					Skipped: true,
				}
				o.settleSkipped(batch, repos[j])
			}
			break
		}

		g.Go(func() error {
			defer sem.Release(1)

			start := time.Now()
			o.metrics.started()
			res := o.runOne(ctx, r, op)
			elapsed := time.Since(start)

			report.Outcomes[i] = Outcome{Path: r.Path(), Result: res}
			o.finish(batch, r, res, elapsed)
			return nil
		})
	}

	_ = g.Wait()

	failed := report.Failed()
	o.logger.Debug("batch completed",
		zap.String("workspace", batch.WorkspaceID),
		zap.Int("repositories", len(repos)),
		zap.Int("failed", failed))
	o.publish(domain.BatchCompletedEvent{WorkspaceID: batch.WorkspaceID, Size: len(repos), Failed: failed})

	return report
}

// runOne isolates panics of a single repository operation
func (o *Orchestrator) runOne(ctx context.Context, r *repo.Repository, op Operation) (res repo.Result) {
	defer func() {
		if p := recover(); p != nil {
			msg := fmt.Sprintf("operation panicked: %v", p)
			o.logger.Error("repository operation panic",
				zap.String("path", r.Path()),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()))
			r.RecordFailure("panic", msg)
			res = repo.Result{Operation: "panic", Err: fmt.Errorf("%s", msg)}
		}
	}()
	return op(ctx, r)
}

// finish drops the busy marker, commits the repository back and promotes the
// error of an attended single-target batch, as one step
func (o *Orchestrator) finish(batch Batch, r *repo.Repository, res repo.Result, elapsed time.Duration) {
	o.finishMu.Lock()
	defer o.finishMu.Unlock()

	lastError := r.LastError()
	outcome := outcomeSuccess
	if !res.OK() || lastError != "" {
		outcome = outcomeFailure
	}
	o.metrics.finished(outcome, elapsed)

	if batch.ShowProgress {
		o.inFlight.Done(r.Path())
	}
	if o.sink != nil {
		o.sink.CommitRepository(batch.WorkspaceID, r)
		if !batch.Unattended && len(batch.Repos) == 1 && lastError != "" {
			o.sink.SetGlobalError(lastError)
		}
	}

	if outcome == outcomeFailure {
		o.logger.Info("repository operation failed",
			zap.String("path", r.Path()),
			zap.String("operation", res.Operation),
			zap.String("error", lastError))
	}
}

// settleSkipped releases a repository that never ran
func (o *Orchestrator) settleSkipped(batch Batch, r *repo.Repository) {
	o.finishMu.Lock()
	defer o.finishMu.Unlock()

	o.metrics.skipped()
	if batch.ShowProgress {
		o.inFlight.Done(r.Path())
	}
}

func (o *Orchestrator) publish(event domain.DomainEvent) {
	if o.bus != nil {
		o.bus.Publish(event)
	}
}
