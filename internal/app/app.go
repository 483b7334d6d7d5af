// Package app owns the application state: workspaces, the checked set, user
// settings, recents, custom commands and the global error. Every mutation goes
// through App, is persisted and announced on the event bus.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitorbit/internal/config"
	"gitorbit/internal/domain"
	"gitorbit/internal/eventbus"
	"gitorbit/internal/git"
	"gitorbit/internal/orchestrator"
	"gitorbit/internal/persistence"
	"gitorbit/internal/repo"
	"gitorbit/internal/shell"
)

const (
	saveFailedMessage = "Failed to save appdata file. The appdata file is where application data such as workspaces, repositories, etc. are stored. If you restart the application your workspaces will not be restored if we are not able to write to this file. Message: "
	loadFailedMessage = "Failed to load appdata file. The appdata file is where application data such as workspaces, repositories, etc. are stored. Message: "

	maxRecentBranches = 5
)

// App is the single controller of the application state
type App struct {
	backend git.Backend
	runner  shell.Runner
	store   *persistence.Store
	bus     eventbus.EventBus
	logger  *zap.Logger
	metrics *orchestrator.Metrics
	now     func() time.Time
	newID   func() string

	orch *orchestrator.Orchestrator

	// serializes snapshot and write so saves land in mutation order
	persistMu sync.Mutex

	mu               sync.RWMutex
	loaded           bool
	settings         config.Settings
	workspaces       []Workspace
	checked          map[string]bool
	recentCommands   []string
	recentBranches   map[string][]string
	reposLastFetched time.Time
	diffViewType     config.DiffViewType
	customCommands   []domain.CustomCommand
	globalError      domain.GlobalError
}

// Option configures an App
type Option func(*App)

func WithBus(bus eventbus.EventBus) Option {
	return func(a *App) { a.bus = bus }
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithMetrics records orchestrator metrics
func WithMetrics(m *orchestrator.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithClock overrides the time source of the app and its repositories
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithIDGenerator overrides the workspace id generator
func WithIDGenerator(fn func() string) Option {
	return func(a *App) { a.newID = fn }
}

// New creates an app with first-run state. Call Load or Initialize to read the app data file.
func New(backend git.Backend, runner shell.Runner, store *persistence.Store, opts ...Option) *App {
	a := &App{
		backend: backend,
		runner:  runner,
		store:   store,
		logger:  zap.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.applyData(persistence.Default(store.Path()))

	a.orch = orchestrator.New(a, a.concurrency,
		orchestrator.WithBus(a.bus),
		orchestrator.WithMetrics(a.metrics),
		orchestrator.WithLogger(a.logger))
	return a
}

// Load reads the app data file once. A malformed file becomes a persistent
// global error and the app continues with first-run state.
func (a *App) Load() {
	a.mu.Lock()
	if a.loaded {
		a.mu.Unlock()
		return
	}
	a.loaded = true
	a.mu.Unlock()

	data, found, err := a.store.Load()
	if err != nil {
		a.logger.Error("failed to load app data", zap.String("path", a.store.Path()), zap.Error(err))
		a.setGlobalError(domain.GlobalError{Message: loadFailedMessage + err.Error(), Persistent: true})
		return
	}

	a.mu.Lock()
	a.applyData(data)
	a.mu.Unlock()

	a.logger.Info("app data loaded",
		zap.String("path", a.store.Path()),
		zap.Bool("found", found),
		zap.Int("workspaces", len(data.Workspaces)))
	a.publish(domain.WorkspacesChangedEvent{})
}

// Initialize loads the app data file and selects the stored workspace, which
// refreshes its repositories
func (a *App) Initialize(ctx context.Context) {
	a.Load()

	if ws, ok := a.SelectedWorkspace(); ok {
		if err := a.SetSelectedWorkspace(ctx, ws.ID); err != nil {
			a.logger.Warn("failed to select stored workspace", zap.Error(err))
		}
	}
}

// applyData replaces the state with data. The caller holds a.mu or owns a exclusively.
func (a *App) applyData(data persistence.AppData) {
	a.settings = data.Settings
	a.recentCommands = append([]string{}, data.RecentCommands...)
	a.recentBranches = make(map[string][]string, len(data.RecentBranches))
	for path, branches := range data.RecentBranches {
		a.recentBranches[path] = append([]string(nil), branches...)
	}
	a.diffViewType = data.DiffViewType
	a.customCommands = append([]domain.CustomCommand{}, data.CustomCommands...)

	a.reposLastFetched = a.now()
	if data.ReposLastFetched != nil {
		a.reposLastFetched = *data.ReposLastFetched
	}

	workspaces := make([]Workspace, 0, len(data.Workspaces))
	for _, rec := range data.Workspaces {
		ws := Workspace{ID: rec.ID, Name: rec.Name, Selected: rec.Selected}
		for _, r := range rec.Repositories {
			ws.Repositories = append(ws.Repositories, a.newRepository(r.Name, r.Path))
		}
		workspaces = append(workspaces, ws)
	}
	a.workspaces = ensureSelection(workspaces, a.newID)

	a.checked = make(map[string]bool)
	if ws, ok := selected(a.workspaces); ok {
		for _, r := range ws.Repositories {
			a.checked[r.Path()] = true
		}
	}
}

// ensureSelection makes exactly one workspace selected, creating the default one when there is none
func ensureSelection(ws []Workspace, newID func() string) []Workspace {
	if len(ws) == 0 {
		return []Workspace{{ID: newID(), Name: DefaultWorkspaceName, Selected: true}}
	}

	found := false
	for i := range ws {
		if ws[i].Selected && !found {
			found = true
			continue
		}
		ws[i].Selected = false
	}
	if !found {
		ws[0].Selected = true
	}
	return ws
}

func selected(ws []Workspace) (Workspace, bool) {
	for _, w := range ws {
		if w.Selected {
			return w, true
		}
	}
	return Workspace{}, false
}

func (a *App) newRepository(name, path string) *repo.Repository {
	return repo.New(name, path, a.backend, a.logger, repo.WithClock(a.now))
}

// snapshot projects the persisted part of the state
func (a *App) snapshot() persistence.AppData {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data := persistence.AppData{
		Version:        persistence.CurrentVersion,
		Settings:       a.settings,
		RecentCommands: append([]string{}, a.recentCommands...),
		RecentBranches: make(map[string][]string, len(a.recentBranches)),
		DiffViewType:   a.diffViewType,
		CustomCommands: append([]domain.CustomCommand{}, a.customCommands...),
		Workspaces:     make([]persistence.WorkspaceRecord, 0, len(a.workspaces)),
	}
	for path, branches := range a.recentBranches {
		data.RecentBranches[path] = append([]string(nil), branches...)
	}
	fetched := a.reposLastFetched
	data.ReposLastFetched = &fetched

	for _, ws := range a.workspaces {
		rec := persistence.WorkspaceRecord{
			ID:           ws.ID,
			Name:         ws.Name,
			Selected:     ws.Selected,
			Repositories: make([]persistence.RepositoryRecord, 0, len(ws.Repositories)),
		}
		for _, r := range ws.Repositories {
			rec.Repositories = append(rec.Repositories, persistence.RepositoryRecord{Name: r.Name(), Path: r.Path()})
		}
		data.Workspaces = append(data.Workspaces, rec)
	}
	return data
}

// Persist writes the app data file. A failed write becomes a persistent global error.
func (a *App) Persist() error {
	a.persistMu.Lock()
	defer a.persistMu.Unlock()

	data := a.snapshot()
	if err := a.store.Save(data); err != nil {
		a.logger.Error("failed to save app data", zap.Error(err))
		a.setGlobalError(domain.GlobalError{Message: saveFailedMessage + err.Error(), Persistent: true})
		return err
	}
	a.publish(domain.StateSavedEvent{Path: a.store.Path()})
	return nil
}

// persist is Persist for mutations that report the failure through the global error only
func (a *App) persist() {
	_ = a.Persist()
}

func (a *App) concurrency() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings.Concurrency
}

func (a *App) publish(event domain.DomainEvent) {
	if a.bus != nil {
		a.bus.Publish(event)
	}
}

// Settings returns the current user settings
func (a *App) Settings() config.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.settings
	s.ExternalEditors = append([]config.ExternalEditor{}, s.ExternalEditors...)
	return s
}

// SetSettings validates and stores settings
func (a *App) SetSettings(s config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	a.settings = s
	a.settings.ExternalEditors = append([]config.ExternalEditor{}, s.ExternalEditors...)
	a.mu.Unlock()

	a.persist()
	a.publish(domain.SettingsChangedEvent{})
	return nil
}

// DiffViewType returns the preferred diff layout
func (a *App) DiffViewType() config.DiffViewType {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.diffViewType
}

// SetDiffViewType stores the preferred diff layout
func (a *App) SetDiffViewType(v config.DiffViewType) error {
	if err := config.Validator().Var(string(v), "oneof=unified split"); err != nil {
		return fmt.Errorf("%w: unknown diff view type %q", domain.ErrInvalidSettings, v)
	}

	a.mu.Lock()
	a.diffViewType = v
	a.mu.Unlock()

	a.persist()
	return nil
}

// ReposLastFetched returns when the last background fetch started
func (a *App) ReposLastFetched() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.reposLastFetched
}

// SetReposLastFetched stores the start of a background fetch
func (a *App) SetReposLastFetched(t time.Time) {
	a.mu.Lock()
	a.reposLastFetched = t
	a.mu.Unlock()

	a.persist()
}

// GlobalError returns the user visible error; the zero value means none
func (a *App) GlobalError() domain.GlobalError {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.globalError
}

// SetGlobalError raises a transient global error. It implements orchestrator.Sink.
func (a *App) SetGlobalError(message string) {
	a.setGlobalError(domain.GlobalError{Message: message})
}

// ClearGlobalError dismisses the global error
func (a *App) ClearGlobalError() {
	a.setGlobalError(domain.GlobalError{})
}

func (a *App) setGlobalError(e domain.GlobalError) {
	a.mu.Lock()
	a.globalError = e
	a.mu.Unlock()
	a.publish(domain.GlobalErrorEvent{Error: e})
}

// Processing reports whether an operation with progress is running on path
func (a *App) Processing(path string) bool {
	return a.orch.InFlight().IsProcessing(path)
}

// ProcessingPaths lists the repositories with a running operation
func (a *App) ProcessingPaths() []string {
	return a.orch.InFlight().Paths()
}
