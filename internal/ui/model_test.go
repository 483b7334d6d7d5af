package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitorbit/internal/app"
	"gitorbit/internal/config"
	"gitorbit/internal/domain"
	"gitorbit/internal/git/gittest"
	"gitorbit/internal/orchestrator"
	"gitorbit/internal/persistence"
	"gitorbit/internal/repo"
	"gitorbit/internal/shell"
	"gitorbit/internal/storage"
)

const (
	alphaPath = "/work/alpha"
	betaPath  = "/work/beta"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type nopRunner struct{}

func (nopRunner) Exec(context.Context, string, []string, string) shell.Result {
	return shell.Result{Success: true}
}

func newTestModel(t *testing.T) (*Model, *app.App, *gittest.Fake) {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	backend := gittest.New()
	backend.AddRepo(alphaPath)
	backend.AddRepo(betaPath)

	store := persistence.NewStore(storage.NewMemFileSystem(), "/data/appData.json", logger)
	a := app.New(backend, nopRunner{}, store,
		app.WithLogger(logger),
		app.WithClock(func() time.Time { return fixedNow }))
	a.Load()

	ws, ok := a.SelectedWorkspace()
	require.True(t, ok)
	_, err := a.AddRepositoryPaths(ctx, ws.ID, []string{alphaPath, betaPath})
	require.NoError(t, err)

	m := NewModel(ctx, a, nil, config.UISettings{ShowAheadBehind: true, ShowLastCommit: true},
		WithClock(func() time.Time { return fixedNow }))
	return m, a, backend
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m *Model, msg tea.KeyMsg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	return cmd
}

// settle runs cmd and feeds its message back into the model
func settle(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func rowNames(m *Model) []string {
	names := make([]string, 0, len(m.rows))
	for _, r := range m.rows {
		names = append(names, r.Name())
	}
	return names
}

func TestModel_ListsSelectedWorkspace(t *testing.T) {
	m, _, _ := newTestModel(t)

	assert.Equal(t, []string{"alpha", "beta"}, rowNames(m))

	view := m.View()
	assert.Contains(t, view, app.DefaultWorkspaceName)
	assert.Contains(t, view, "alpha")
	assert.Contains(t, view, "beta")
	assert.Contains(t, view, "[x]")
	assert.Contains(t, view, "main")
}

func TestModel_ToggleChecked(t *testing.T) {
	m, a, _ := newTestModel(t)

	press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.False(t, a.IsChecked(alphaPath))
	assert.True(t, a.IsChecked(betaPath))

	press(t, m, keyRunes("j"))
	press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.False(t, a.IsChecked(betaPath))

	press(t, m, keyRunes("a"))
	assert.True(t, a.IsChecked(alphaPath))
	assert.True(t, a.IsChecked(betaPath))

	press(t, m, keyRunes("a"))
	assert.Empty(t, a.CheckedRepositories())
}

func TestModel_Filter(t *testing.T) {
	m, _, _ := newTestModel(t)

	press(t, m, keyRunes("/"))
	require.True(t, m.filtering)
	press(t, m, keyRunes("b"))
	press(t, m, keyRunes("e"))
	assert.Equal(t, []string{"beta"}, rowNames(m))

	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.filtering)
	assert.Equal(t, []string{"beta"}, rowNames(m), "filter stays applied")

	press(t, m, keyRunes("/"))
	press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, []string{"alpha", "beta"}, rowNames(m))
}

func TestModel_FetchRunsOnCheckedRepositories(t *testing.T) {
	m, a, backend := newTestModel(t)
	a.SetChecked(betaPath, false)

	settle(t, m, press(t, m, keyRunes("f")))

	assert.Equal(t, 1, backend.CallCount(alphaPath, "fetch"))
	assert.Zero(t, backend.CallCount(betaPath, "fetch"))
	assert.Equal(t, "fetch: 1 repositories done", m.status)
}

func TestModel_FailedBatchIsSummarized(t *testing.T) {
	m, _, backend := newTestModel(t)
	backend.SetError(betaPath, "pull", errors.New("fatal: couldn't find remote ref"))

	settle(t, m, press(t, m, keyRunes("p")))

	assert.Equal(t, "pull: 1 of 2 repositories failed", m.status)
	assert.Contains(t, m.View(), "fatal: couldn't find remote ref")
}

func TestModel_CycleWorkspace(t *testing.T) {
	m, a, _ := newTestModel(t)
	first, _ := a.SelectedWorkspace()

	_, err := a.AddWorkspace("Other")
	require.NoError(t, err)
	m.reload()
	assert.Empty(t, m.rows)

	settle(t, m, press(t, m, tea.KeyMsg{Type: tea.KeyTab}))

	ws, _ := a.SelectedWorkspace()
	assert.Equal(t, first.ID, ws.ID)
	assert.Equal(t, []string{"alpha", "beta"}, rowNames(m))
}

func TestModel_SingleWorkspaceDoesNotCycle(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.Nil(t, press(t, m, tea.KeyMsg{Type: tea.KeyTab}))
}

func TestModel_GlobalError(t *testing.T) {
	m, a, _ := newTestModel(t)

	a.SetGlobalError("Not able to execute command: github '/work/alpha'")
	assert.Contains(t, m.View(), "Not able to execute command")

	press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, a.GlobalError().Message)
	assert.NotContains(t, m.View(), "Not able to execute command")
}

func TestModel_OpenWithoutClientRaisesGlobalError(t *testing.T) {
	m, a, _ := newTestModel(t)

	settle(t, m, press(t, m, keyRunes("o")))

	assert.Contains(t, a.GlobalError().Message, "No external git client has been defined yet")
	assert.Contains(t, m.status, "Open alpha failed")
}

func TestModel_RemoveRepository(t *testing.T) {
	m, a, _ := newTestModel(t)

	press(t, m, keyRunes("x"))

	ws, _ := a.SelectedWorkspace()
	assert.False(t, ws.Contains(alphaPath))
	assert.Equal(t, []string{"beta"}, rowNames(m))
}

func TestModel_EventsReload(t *testing.T) {
	m, a, _ := newTestModel(t)
	require.NoError(t, a.RemoveRepositoryFromSelectedWorkspace(betaPath))

	_, cmd := m.Update(EventMsg{Event: domain.WorkspacesChangedEvent{}})
	assert.Nil(t, cmd, "no bus to wait on")
	assert.Equal(t, []string{"alpha"}, rowNames(m))
}

func TestFormatLog(t *testing.T) {
	entries := []domain.LogEntry{
		{Hash: "0123456789abcdef", Date: fixedNow.Add(-24 * time.Hour), AuthorName: "Ada", Message: "Add scheduler", Refs: "HEAD -> main, tag: v1.0.0"},
		{Hash: "abc", Date: fixedNow.Add(-5 * time.Minute), AuthorName: "Lin", Message: "Fix typo"},
	}

	out := FormatLog("alpha", entries, config.Hour24, fixedNow)

	assert.Contains(t, out, "alpha: 2 commits")
	assert.Contains(t, out, "0123456  May 3, 2026, 09:30 (Yesterday)  Ada  Add scheduler  [v1.0.0]")
	assert.Contains(t, out, "abc  May 4, 2026, 09:25 (5 minutes ago)  Lin  Fix typo\n")
}

func TestSummarize(t *testing.T) {
	ok := orchestrator.Report{Outcomes: []orchestrator.Outcome{{Path: alphaPath}}}
	failed := orchestrator.Report{Outcomes: []orchestrator.Outcome{
		{Path: alphaPath},
		{Path: betaPath, Result: repo.Result{Err: errors.New("boom")}},
	}}

	assert.Equal(t, "push: 1 repositories done", summarize("push", ok, nil))
	assert.Equal(t, "push: 1 of 2 repositories failed", summarize("push", failed, nil))
	assert.Equal(t, "push: no repositories checked", summarize("push", orchestrator.Report{}, nil))
	assert.Equal(t, "push: no workspace selected", summarize("push", orchestrator.Report{}, errors.New("no workspace selected")))
}
