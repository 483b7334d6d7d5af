package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitorbit/internal/config"
	"gitorbit/internal/domain"
	"gitorbit/internal/git/gittest"
	"gitorbit/internal/persistence"
	"gitorbit/internal/repo"
	"gitorbit/internal/shell"
	"gitorbit/internal/storage"
)

const (
	appDataPath = "/data/appData.json"
	alphaPath   = "/work/alpha"
	betaPath    = "/work/beta"
	gammaPath   = "/work/gamma"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type execCall struct {
	Command string
	Args    []string
	Cwd     string
}

// fakeRunner scripts shell results by working directory, or by command when cwd is empty
type fakeRunner struct {
	mu      sync.Mutex
	calls   []execCall
	results map[string]shell.Result
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: make(map[string]shell.Result)}
}

func (f *fakeRunner) Exec(_ context.Context, command string, args []string, cwd string) shell.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, execCall{Command: command, Args: args, Cwd: cwd})

	key := cwd
	if key == "" {
		key = command
	}
	if res, ok := f.results[key]; ok {
		return res
	}
	return shell.Result{Success: true}
}

func (f *fakeRunner) script(key string, res shell.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[key] = res
}

func (f *fakeRunner) recorded() []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]execCall(nil), f.calls...)
}

type testEnv struct {
	app     *App
	backend *gittest.Fake
	fs      *storage.MemFileSystem
	runner  *fakeRunner
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("ws-%d", n)
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		backend: gittest.New(),
		fs:      storage.NewMemFileSystem(),
		runner:  newFakeRunner(),
	}
	env.app = env.newApp(t)
	return env
}

// newApp builds another app over the same backend and file system
func (e *testEnv) newApp(t *testing.T) *App {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := persistence.NewStore(e.fs, appDataPath, logger)
	return New(e.backend, e.runner, store,
		WithLogger(logger),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()))
}

func (e *testEnv) repository(path string) *repo.Repository {
	return repo.New("", path, e.backend, nil, repo.WithClock(func() time.Time { return fixedNow }))
}

func (e *testEnv) saved(t *testing.T) persistence.AppData {
	t.Helper()
	data, found, err := persistence.NewStore(e.fs, appDataPath, nil).Load()
	require.NoError(t, err)
	require.True(t, found, "app data file was never written")
	return data
}

func selectedID(t *testing.T, a *App) string {
	t.Helper()
	ws, ok := a.SelectedWorkspace()
	require.True(t, ok)
	return ws.ID
}

func paths(repos []*repo.Repository) []string {
	out := make([]string, 0, len(repos))
	for _, r := range repos {
		out = append(out, r.Path())
	}
	return out
}

func TestLoad_FirstRunCreatesDefaultWorkspace(t *testing.T) {
	env := newTestEnv(t)
	env.app.Load()

	workspaces := env.app.Workspaces()
	require.Len(t, workspaces, 1)
	assert.Equal(t, DefaultWorkspaceName, workspaces[0].Name)
	assert.True(t, workspaces[0].Selected)
	assert.Empty(t, env.app.GlobalError().Message)
	assert.Equal(t, config.DefaultSettings(appDataPath), env.app.Settings())
	assert.Equal(t, config.DiffUnified, env.app.DiffViewType())
}

func TestLoad_MalformedFileKeepsAppUsable(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.fs.SaveFile(appDataPath, []byte("{broken")))

	env.app.Load()

	gerr := env.app.GlobalError()
	assert.True(t, gerr.Persistent)
	assert.Contains(t, gerr.Message, "Failed to load appdata file")

	ws, err := env.app.AddWorkspace("Recovered")
	require.NoError(t, err)
	assert.Equal(t, ws.ID, selectedID(t, env.app))
}

func TestPersist_FailureRaisesPersistentError(t *testing.T) {
	env := newTestEnv(t)
	env.fs.FailWrites(errors.New("read-only file system"))

	_, err := env.app.AddWorkspace("Work")
	require.NoError(t, err, "a failed save does not fail the mutation")

	gerr := env.app.GlobalError()
	assert.True(t, gerr.Persistent)
	assert.Contains(t, gerr.Message, "Failed to save appdata file")
	assert.Contains(t, gerr.Message, "read-only file system")
}

func TestPersist_RoundTripKeepsTopologyOnly(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	env.backend.AddRepo(betaPath)
	ctx := context.Background()

	env.app.Load()
	work, err := env.app.AddWorkspace("Work")
	require.NoError(t, err)
	_, err = env.app.AddRepositories(ctx, work.ID, []*repo.Repository{env.repository(alphaPath), env.repository(betaPath)})
	require.NoError(t, err)
	env.app.AddRecentCommand("status")
	env.app.AddRecentBranch(alphaPath, "origin/feature-x")

	require.Equal(t, "main", env.app.FindRepository(alphaPath).Snapshot().Branch)

	reloaded := env.newApp(t)
	reloaded.Load()

	before := env.app.Workspaces()
	after := reloaded.Workspaces()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Name, after[i].Name)
		assert.Equal(t, before[i].Selected, after[i].Selected)
		assert.Equal(t, paths(before[i].Repositories), paths(after[i].Repositories))
	}

	alpha := reloaded.FindRepository(alphaPath)
	require.NotNil(t, alpha)
	assert.Equal(t, "alpha", alpha.Name())
	state := alpha.Snapshot()
	assert.Empty(t, state.Branch, "live status is never persisted")
	assert.True(t, state.LastStatus.IsZero())
	assert.Nil(t, state.Files)

	assert.Equal(t, []string{"status"}, reloaded.RecentCommands())
	assert.Equal(t, []string{"feature-x"}, reloaded.RecentBranches(alphaPath))
	assert.True(t, reloaded.IsChecked(alphaPath), "the selected workspace starts fully checked")
}

func TestInitialize_RefreshesSelectedWorkspace(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	env.backend.AddRepo(betaPath)

	data := persistence.Default(appDataPath)
	data.Workspaces = []persistence.WorkspaceRecord{
		{ID: "w1", Name: "Work", Selected: true, Repositories: []persistence.RepositoryRecord{{Name: "alpha", Path: alphaPath}}},
		{ID: "w2", Name: "Other", Repositories: []persistence.RepositoryRecord{{Name: "beta", Path: betaPath}}},
	}
	require.NoError(t, persistence.NewStore(env.fs, appDataPath, nil).Save(data))

	env.app.Initialize(context.Background())

	assert.Equal(t, "w1", selectedID(t, env.app))
	assert.Equal(t, 1, env.backend.CallCount(alphaPath, "status"))
	assert.Zero(t, env.backend.CallCount(betaPath, "status"))
	assert.Equal(t, fixedNow, env.app.FindRepository(alphaPath).Snapshot().LastStatus)
}

func TestSetSelectedWorkspace(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	env.backend.AddRepo(betaPath)
	ctx := context.Background()
	env.app.Load()

	first := selectedID(t, env.app)
	_, err := env.app.AddRepositories(ctx, first, []*repo.Repository{env.repository(alphaPath)})
	require.NoError(t, err)

	other, err := env.app.AddWorkspace("Other")
	require.NoError(t, err)
	_, err = env.app.AddRepositories(ctx, other.ID, []*repo.Repository{env.repository(betaPath)})
	require.NoError(t, err)

	statusBefore := env.backend.CallCount(alphaPath, "status")
	require.NoError(t, env.app.SetSelectedWorkspace(ctx, first))

	selectedCount := 0
	for _, ws := range env.app.Workspaces() {
		if ws.Selected {
			selectedCount++
			assert.Equal(t, first, ws.ID)
		}
	}
	assert.Equal(t, 1, selectedCount)
	assert.True(t, env.app.IsChecked(alphaPath))
	assert.False(t, env.app.IsChecked(betaPath))
	assert.Equal(t, statusBefore+1, env.backend.CallCount(alphaPath, "status"), "selection refreshes the workspace")

	saved := env.saved(t)
	for _, ws := range saved.Workspaces {
		assert.Equal(t, ws.ID == first, ws.Selected)
	}

	err = env.app.SetSelectedWorkspace(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
}

func TestAddRepositories_DeduplicatesByPath(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	env.backend.AddRepo(betaPath)
	ctx := context.Background()
	env.app.Load()
	wsID := selectedID(t, env.app)

	added, err := env.app.AddRepositories(ctx, wsID, []*repo.Repository{env.repository(alphaPath), env.repository(alphaPath)})
	require.NoError(t, err)
	require.Len(t, added, 1)

	ws, _ := env.app.Workspace(wsID)
	assert.Equal(t, []string{alphaPath}, paths(ws.Repositories))
	assert.Equal(t, 1, env.backend.CallCount(alphaPath, "status"))

	added, err = env.app.AddRepositories(ctx, wsID, []*repo.Repository{env.repository(alphaPath), env.repository(betaPath)})
	require.NoError(t, err)
	assert.Equal(t, []string{betaPath}, paths(added))

	ws, _ = env.app.Workspace(wsID)
	assert.Equal(t, []string{alphaPath, betaPath}, paths(ws.Repositories))
	assert.Equal(t, 1, env.backend.CallCount(alphaPath, "status"), "existing repositories are not refreshed again")
	assert.Equal(t, 1, env.backend.CallCount(betaPath, "status"))
	assert.True(t, env.app.IsChecked(betaPath))

	_, err = env.app.AddRepositories(ctx, "missing", nil)
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
}

func TestAddRepositoryPaths_ResolvesRoots(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	env.app.Load()
	wsID := selectedID(t, env.app)

	added, err := env.app.AddRepositoryPaths(context.Background(), wsID, []string{alphaPath + "/src/pkg", "/tmp/not-a-repo"})
	assert.ErrorIs(t, err, domain.ErrRepositoryNotFound)
	assert.Contains(t, err.Error(), "/tmp/not-a-repo")

	require.Len(t, added, 1)
	assert.Equal(t, alphaPath, added[0].Path())
	assert.Equal(t, "alpha", added[0].Name())
}

func TestRemoveRepositoryFromSelectedWorkspace(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	env.backend.AddRepo(betaPath)
	ctx := context.Background()
	env.app.Load()
	wsID := selectedID(t, env.app)

	_, err := env.app.AddRepositories(ctx, wsID, []*repo.Repository{env.repository(alphaPath), env.repository(betaPath)})
	require.NoError(t, err)

	require.NoError(t, env.app.RemoveRepositoryFromSelectedWorkspace(alphaPath))

	ws, _ := env.app.SelectedWorkspace()
	assert.Equal(t, []string{betaPath}, paths(ws.Repositories))
	assert.True(t, env.app.IsChecked(betaPath))
	assert.Len(t, env.saved(t).Workspaces[0].Repositories, 1)

	err = env.app.RemoveRepositoryFromSelectedWorkspace(alphaPath)
	assert.ErrorIs(t, err, domain.ErrRepositoryNotFound)
}

func TestRenameWorkspace(t *testing.T) {
	env := newTestEnv(t)
	env.app.Load()

	work, err := env.app.AddWorkspace("Work")
	require.NoError(t, err)
	_, err = env.app.AddWorkspace("Personal")
	require.NoError(t, err)

	err = env.app.RenameWorkspace(work.ID, "personal")
	assert.ErrorIs(t, err, domain.ErrWorkspaceNameTaken)

	err = env.app.RenameWorkspace(work.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrWorkspaceNameEmpty)

	require.NoError(t, env.app.RenameWorkspace(work.ID, "WORK"), "renaming to a different case of the same name is allowed")
	require.NoError(t, env.app.RenameWorkspace(work.ID, "Job"))
	ws, _ := env.app.Workspace(work.ID)
	assert.Equal(t, "Job", ws.Name)

	_, err = env.app.AddWorkspace("job")
	assert.ErrorIs(t, err, domain.ErrWorkspaceNameTaken)
}

func TestDeleteWorkspace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.app.Load()
	defaultID := selectedID(t, env.app)

	work, err := env.app.AddWorkspace("Work")
	require.NoError(t, err)
	require.Equal(t, work.ID, selectedID(t, env.app))

	require.NoError(t, env.app.DeleteWorkspace(ctx, work.ID))
	assert.Equal(t, defaultID, selectedID(t, env.app), "the first remaining workspace is selected")

	require.NoError(t, env.app.DeleteWorkspace(ctx, defaultID))
	workspaces := env.app.Workspaces()
	require.Len(t, workspaces, 1)
	assert.Equal(t, DefaultWorkspaceName, workspaces[0].Name)
	assert.NotEqual(t, defaultID, workspaces[0].ID)
	assert.True(t, workspaces[0].Selected)

	assert.ErrorIs(t, env.app.DeleteWorkspace(ctx, "missing"), domain.ErrWorkspaceNotFound)
}

func TestDeleteWorkspace_UnselectedKeepsSelection(t *testing.T) {
	env := newTestEnv(t)
	env.app.Load()

	other, err := env.app.AddWorkspace("Other")
	require.NoError(t, err)
	work, err := env.app.AddWorkspace("Work")
	require.NoError(t, err)

	require.NoError(t, env.app.DeleteWorkspace(context.Background(), other.ID))
	assert.Equal(t, work.ID, selectedID(t, env.app))
	assert.Len(t, env.app.Workspaces(), 2)
}

func TestRun_DefaultsToCheckedRepositories(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	env.backend.AddRepo(betaPath)
	ctx := context.Background()
	env.app.Load()
	wsID := selectedID(t, env.app)

	_, err := env.app.AddRepositories(ctx, wsID, []*repo.Repository{env.repository(alphaPath), env.repository(betaPath)})
	require.NoError(t, err)
	env.app.SetChecked(betaPath, false)

	report, err := env.app.Run(ctx, func(ctx context.Context, r *repo.Repository) repo.Result {
		return r.Fetch(ctx)
	})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, alphaPath, report.Outcomes[0].Path)
	assert.Equal(t, 1, env.backend.CallCount(alphaPath, "fetch"))
	assert.Zero(t, env.backend.CallCount(betaPath, "fetch"))
	assert.Equal(t, []string{alphaPath}, paths(env.app.CheckedRepositories()))
}

func TestRun_SingleTargetErrorBecomesGlobal(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	env.backend.AddRepo(betaPath)
	ctx := context.Background()
	env.app.Load()
	wsID := selectedID(t, env.app)

	_, err := env.app.AddRepositories(ctx, wsID, []*repo.Repository{env.repository(alphaPath), env.repository(betaPath)})
	require.NoError(t, err)
	env.backend.SetError(alphaPath, "pull", errors.New("fatal: unable to access remote"))

	pull := func(ctx context.Context, r *repo.Repository) repo.Result { return r.Pull(ctx) }

	_, err = env.app.Run(ctx, pull)
	require.NoError(t, err)
	alpha := env.app.FindRepository(alphaPath)
	assert.Equal(t, "fatal: unable to access remote", alpha.LastError())
	assert.Empty(t, env.app.GlobalError().Message, "batches of two or more never raise the global error")

	_, err = env.app.Run(ctx, pull, OnRepositories(alpha))
	require.NoError(t, err)
	assert.Equal(t, "fatal: unable to access remote", env.app.GlobalError().Message)
	assert.False(t, env.app.GlobalError().Persistent)

	env.app.ClearGlobalError()
	assert.Empty(t, env.app.GlobalError().Message)
}

func TestRun_FaultIsolation(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []string{alphaPath, betaPath, gammaPath} {
		env.backend.AddRepo(p)
	}
	ctx := context.Background()
	env.app.Load()
	wsID := selectedID(t, env.app)

	_, err := env.app.AddRepositories(ctx, wsID, []*repo.Repository{
		env.repository(alphaPath), env.repository(betaPath), env.repository(gammaPath),
	})
	require.NoError(t, err)
	env.backend.SetError(betaPath, "fetch", errors.New("fatal: could not read from remote repository"))

	report, err := env.app.Run(ctx, func(ctx context.Context, r *repo.Repository) repo.Result {
		return r.Fetch(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed())

	for _, p := range []string{alphaPath, gammaPath} {
		r := env.app.FindRepository(p)
		assert.Empty(t, r.LastError(), p)
		assert.Equal(t, 1, env.backend.CallCount(p, "fetch"), p)
	}
	assert.NotEmpty(t, env.app.FindRepository(betaPath).LastError())
}

func TestRun_ConcurrencyOneRefreshesStrictlyInTurn(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	beta := env.backend.AddRepo(betaPath)
	beta.Status.Ahead = 1
	beta.Status.Tracking = "origin/main"
	beta.Status.Modified = []string{"a.go", "b.go"}
	beta.Status.Files = []domain.FileStatus{
		{Path: "a.go", Index: ' ', WorkingDir: 'M'},
		{Path: "b.go", Index: ' ', WorkingDir: 'M'},
	}

	ctx := context.Background()
	env.app.Load()
	settings := env.app.Settings()
	settings.Concurrency = 1
	require.NoError(t, env.app.SetSettings(settings))

	wsID := selectedID(t, env.app)
	_, err := env.app.AddRepositories(ctx, wsID, []*repo.Repository{env.repository(alphaPath), env.repository(betaPath)})
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []string
	)
	env.backend.BeforeCall = func(_ context.Context, path, _ string) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, path)
		return nil
	}

	_, err = env.app.Run(ctx, refresh)
	require.NoError(t, err)

	switches := 0
	for i := 1; i < len(order); i++ {
		if order[i] != order[i-1] {
			switches++
		}
	}
	assert.Equal(t, 1, switches, "one repository finishes before the next starts: %v", order)

	alpha := env.app.FindRepository(alphaPath).Snapshot()
	betaState := env.app.FindRepository(betaPath).Snapshot()
	assert.False(t, alpha.Disabled)
	assert.Len(t, betaState.Files, 2)
	assert.Equal(t, 1, betaState.Ahead)
}

func TestRefreshSelected_NoProgressMarkers(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	ctx := context.Background()
	env.app.Load()
	wsID := selectedID(t, env.app)
	_, err := env.app.AddRepositories(ctx, wsID, []*repo.Repository{env.repository(alphaPath)})
	require.NoError(t, err)

	var busy []bool
	env.backend.BeforeCall = func(_ context.Context, path, op string) error {
		if op == "status" {
			busy = append(busy, env.app.Processing(path))
		}
		return nil
	}

	_, err = env.app.RefreshSelected(ctx)
	require.NoError(t, err)
	_, err = env.app.Run(ctx, refresh)
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true}, busy)
	assert.Empty(t, env.app.ProcessingPaths())
}

func TestFetchRepositories_UpdatesEveryWorkspace(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	ctx := context.Background()
	env.app.Load()

	first := selectedID(t, env.app)
	_, err := env.app.AddRepositories(ctx, first, []*repo.Repository{env.repository(alphaPath)})
	require.NoError(t, err)
	other, err := env.app.AddWorkspace("Other")
	require.NoError(t, err)
	_, err = env.app.AddRepositories(ctx, other.ID, []*repo.Repository{env.repository(alphaPath)})
	require.NoError(t, err)

	all := env.app.AllRepositories()
	require.Len(t, all, 1, "repositories are distinct by path")

	report := env.app.FetchRepositories(ctx, all)
	assert.Zero(t, report.Failed())
	assert.Equal(t, 1, env.backend.CallCount(alphaPath, "fetch"))

	for _, ws := range env.app.Workspaces() {
		assert.Same(t, all[0], ws.Repository(alphaPath), ws.Name)
	}
}

func TestFetchRepositories_SingleFailureStaysOnRepository(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddRepo(alphaPath)
	ctx := context.Background()
	env.app.Load()

	_, err := env.app.AddRepositories(ctx, selectedID(t, env.app), []*repo.Repository{env.repository(alphaPath)})
	require.NoError(t, err)
	env.backend.SetError(alphaPath, "fetch", errors.New("fatal: could not read from remote"))

	report := env.app.FetchRepositories(ctx, env.app.AllRepositories())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, "fatal: could not read from remote", env.app.FindRepository(alphaPath).LastError())
	assert.Empty(t, env.app.GlobalError().Message)
}

func TestRecentCommands(t *testing.T) {
	env := newTestEnv(t)
	env.app.Load()
	settings := env.app.Settings()
	settings.RecentCommandsToSave = 3
	require.NoError(t, env.app.SetSettings(settings))

	for _, c := range []string{"status", "log -1", "fetch --all", "status", "branch -a"} {
		env.app.AddRecentCommand(c)
	}
	assert.Equal(t, []string{"branch -a", "status", "fetch --all"}, env.app.RecentCommands())

	env.app.RemoveRecentCommand("status")
	assert.Equal(t, []string{"branch -a", "fetch --all"}, env.app.RecentCommands())
	assert.Equal(t, []string{"branch -a", "fetch --all"}, env.saved(t).RecentCommands)
}

func TestRecentCommands_OutOfRangeLimitFromFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.fs.SaveFile(appDataPath, []byte(`{"version": 2, "settings": {"recentCommandsToSave": -1}}`)))
	env.app.Load()

	assert.Empty(t, env.app.GlobalError().Message)
	assert.Equal(t, 10, env.app.Settings().RecentCommandsToSave)

	require.NotPanics(t, func() { env.app.AddRecentCommand("status") })
	assert.Equal(t, []string{"status"}, env.app.RecentCommands())
}

func TestRecentBranches(t *testing.T) {
	env := newTestEnv(t)
	env.app.Load()

	for _, b := range []string{"main", "remotes/origin/feature-x", "dev", "origin/main", "a", "b", "c"} {
		env.app.AddRecentBranch(alphaPath, b)
	}
	assert.Equal(t, []string{"c", "b", "a", "main", "dev"}, env.app.RecentBranches(alphaPath))
	assert.Empty(t, env.app.RecentBranches(betaPath))
}

func TestCustomCommands_SaveAndPin(t *testing.T) {
	env := newTestEnv(t)
	env.app.Load()

	require.ErrorIs(t, env.app.SaveCustomCommand("", domain.CustomCommand{Name: " "}), domain.ErrCommandNameEmpty)

	require.NoError(t, env.app.SaveCustomCommand("", domain.CustomCommand{Name: "build", CommandPerRepo: map[string]string{alphaPath: "make", betaPath: "  "}}))
	require.NoError(t, env.app.SaveCustomCommand("", domain.CustomCommand{Name: "lint", PinSetting: domain.PinWorkspace, PinToWorkspaceID: "w-lint"}))
	require.NoError(t, env.app.SaveCustomCommand("", domain.CustomCommand{Name: "hidden", PinSetting: domain.PinNone}))

	err := env.app.SaveCustomCommand("", domain.CustomCommand{Name: "broken", PinSetting: domain.PinWorkspace})
	assert.Error(t, err, "pinning to a workspace needs the workspace id")

	build := env.app.CustomCommands()[0]
	assert.Equal(t, domain.PinAllWorkspaces, build.PinSetting)
	assert.Equal(t, map[string]string{alphaPath: "make"}, build.CommandPerRepo, "blank command lines are dropped")

	names := func(cmds []domain.CustomCommand) []string {
		out := []string{}
		for _, c := range cmds {
			out = append(out, c.Name)
		}
		return out
	}
	assert.Equal(t, []string{"build", "lint"}, names(env.app.PinnedCommands("w-lint")))
	assert.Equal(t, []string{"build"}, names(env.app.PinnedCommands("other")))

	require.NoError(t, env.app.SaveCustomCommand("build", domain.CustomCommand{Name: "compile", PinSetting: domain.PinAllWorkspaces}))
	assert.Equal(t, []string{"lint", "hidden", "compile"}, names(env.app.CustomCommands()))

	env.app.RemoveCustomCommand("lint")
	assert.Equal(t, []string{"hidden", "compile"}, names(env.saved(t).CustomCommands))
}

func TestRunCustomCommand(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []string{alphaPath, betaPath, gammaPath} {
		env.backend.AddRepo(p)
	}
	ctx := context.Background()
	env.app.Load()
	wsID := selectedID(t, env.app)
	_, err := env.app.AddRepositories(ctx, wsID, []*repo.Repository{
		env.repository(alphaPath), env.repository(betaPath), env.repository(gammaPath),
	})
	require.NoError(t, err)

	env.runner.script(alphaPath, shell.Result{Success: false, Stderr: "make: *** No rule to make target"})
	env.runner.script(betaPath, shell.Result{Success: false, Stdout: "tests failed"})

	cmd := domain.CustomCommand{
		Name:           "build",
		PinSetting:     domain.PinAllWorkspaces,
		CommandPerRepo: map[string]string{alphaPath: "make", betaPath: "make test", gammaPath: " "},
	}
	report, err := env.app.RunCustomCommand(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed())

	assert.Equal(t, "make: *** No rule to make target", env.app.FindRepository(alphaPath).LastError())
	assert.Equal(t, "tests failed", env.app.FindRepository(betaPath).LastError(), "stdout is used when stderr is empty")
	assert.Empty(t, env.app.FindRepository(gammaPath).LastError())

	calls := env.runner.recorded()
	require.Len(t, calls, 2, "repositories without a command line are skipped")
	for _, c := range calls {
		assert.Contains(t, []string{alphaPath, betaPath}, c.Cwd)
	}
	assert.Empty(t, env.app.GlobalError().Message)

	_, err = env.app.RunCustomCommand(ctx, cmd, OnRepositories(env.app.FindRepository(alphaPath)))
	require.NoError(t, err)
	assert.Equal(t, "make: *** No rule to make target", env.app.GlobalError().Message)
}

func TestOpenInExternalGitClient(t *testing.T) {
	env := newTestEnv(t)
	env.app.Load()
	ctx := context.Background()

	err := env.app.OpenInExternalGitClient(ctx, alphaPath)
	assert.ErrorIs(t, err, domain.ErrNoExternalGitClient)
	assert.Contains(t, env.app.GlobalError().Message, "No external git client")
	assert.Empty(t, env.runner.recorded())

	settings := env.app.Settings()
	settings.ExternalGitClient = config.ExternalGitClientGitHubDesktop
	require.NoError(t, env.app.SetSettings(settings))

	require.NoError(t, env.app.OpenInExternalGitClient(ctx, alphaPath))
	calls := env.runner.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "github '/work/alpha'", calls[0].Command)

	env.runner.script("github '/work/alpha'", shell.Result{Stderr: "github: command not found"})
	err = env.app.OpenInExternalGitClient(ctx, alphaPath)
	assert.ErrorContains(t, err, "command not found")
	assert.Contains(t, env.app.GlobalError().Message, "Not able to execute command")
}

func TestOpenWithEditor(t *testing.T) {
	env := newTestEnv(t)
	env.app.Load()
	editor := config.ExternalEditor{Name: "VS Code", Executable: "code"}

	require.NoError(t, env.app.OpenWithEditor(context.Background(), editor, alphaPath, "src/main.go"))
	calls := env.runner.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "code", calls[0].Command)
	assert.Equal(t, []string{"'/work/alpha/src/main.go'"}, calls[0].Args)

	env.runner.script("code", shell.Result{Stderr: "code: not found"})
	err := env.app.OpenWithEditor(context.Background(), editor, alphaPath, "README.md")
	assert.Error(t, err)
	assert.Equal(t, "Not able to execute command: code", env.app.GlobalError().Message)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	env.app.Load()

	bad := env.app.Settings()
	bad.Concurrency = 0
	assert.ErrorIs(t, env.app.SetSettings(bad), domain.ErrInvalidSettings)
	assert.Equal(t, 10, env.app.Settings().Concurrency)

	good := env.app.Settings()
	good.Concurrency = 4
	good.HourFormat = config.Hour12
	require.NoError(t, env.app.SetSettings(good))
	assert.Equal(t, 4, env.saved(t).Settings.Concurrency)

	assert.ErrorIs(t, env.app.SetDiffViewType("sideways"), domain.ErrInvalidSettings)
	require.NoError(t, env.app.SetDiffViewType(config.DiffSplit))
	assert.Equal(t, config.DiffSplit, env.saved(t).DiffViewType)

	fetched := fixedNow.Add(-2 * time.Hour)
	env.app.SetReposLastFetched(fetched)
	assert.Equal(t, fetched, env.app.ReposLastFetched())
	require.NotNil(t, env.saved(t).ReposLastFetched)
	assert.True(t, fetched.Equal(*env.saved(t).ReposLastFetched))
}
