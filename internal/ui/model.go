// Package ui is the terminal front-end: a Bubble Tea program listing the
// repositories of the selected workspace.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"gitorbit/internal/app"
	"gitorbit/internal/config"
	"gitorbit/internal/domain"
	"gitorbit/internal/eventbus"
	"gitorbit/internal/orchestrator"
	"gitorbit/internal/repo"
	"gitorbit/internal/util"
)

// eventBuffer bounds the events queued between the bus and the program
const eventBuffer = 256

// Model represents the UI state
type Model struct {
	ctx    context.Context
	app    *app.App
	events chan domain.DomainEvent
	uiCfg  config.UISettings
	styles *Styles
	keys   keyMap
	now    func() time.Time

	width   int
	height  int
	help    help.Model
	spinner spinner.Model
	filter  textinput.Model

	filtering bool
	sortMode  SortMode
	rows      []*repo.Repository
	cursor    int
	status    string
}

// Option configures a Model
type Option func(*Model)

// WithClock overrides the time source used for relative dates
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// NewModel creates the UI model. Events published on bus are forwarded to the
// program; bus may be nil.
func NewModel(ctx context.Context, a *app.App, bus eventbus.EventBus, uiCfg config.UISettings, opts ...Option) *Model {
	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "filter repositories"

	m := &Model{
		ctx:     ctx,
		app:     a,
		uiCfg:   uiCfg,
		styles:  NewStyles(),
		keys:    defaultKeyMap(),
		now:     time.Now,
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		filter:  filter,
	}
	for _, opt := range opts {
		opt(m)
	}

	if bus != nil {
		m.events = make(chan domain.DomainEvent, eventBuffer)
		bus.SubscribeAll(func(e domain.DomainEvent) {
			select {
			case m.events <- e:
			default:
				// the next event triggers a full reload anyway
			}
		})
	}

	m.reload()
	return m
}

// Init starts the spinner and the event listener
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

func (m *Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case e := <-m.events:
			return EventMsg{Event: e}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.reload()
		if e, ok := msg.Event.(domain.BackgroundFetchEvent); ok {
			m.status = fmt.Sprintf("Fetching %d repositories in the background", e.Repositories)
		}
		return m, m.waitForEvent()

	case batchDoneMsg:
		m.reload()
		m.status = summarize(msg.operation, msg.report, msg.err)
		return m, nil

	case workspaceSelectedMsg:
		m.reload()
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = msg.action + " done"
		}
		m.reload()
		return m, nil

	case pagerContentMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		return m, openPager(msg.content)

	case pagerDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("pager failed: %v", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.reload()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.reload()
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		if r := m.current(); r != nil {
			m.app.SetChecked(r.Path(), !m.app.IsChecked(r.Path()))
		}
	case key.Matches(msg, m.keys.ToggleAll):
		m.toggleAll()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.Fetch):
		return m, m.run("fetch", func(ctx context.Context, r *repo.Repository) repo.Result { return r.Fetch(ctx) })
	case key.Matches(msg, m.keys.Pull):
		return m, m.run("pull", func(ctx context.Context, r *repo.Repository) repo.Result { return r.Pull(ctx) })
	case key.Matches(msg, m.keys.Push):
		return m, m.run("push", func(ctx context.Context, r *repo.Repository) repo.Result { return r.Push(ctx) })

	case key.Matches(msg, m.keys.NextWorkspace):
		return m, m.cycleWorkspace(1)
	case key.Matches(msg, m.keys.PrevWorkspace):
		return m, m.cycleWorkspace(-1)

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, m.filter.Focus()

	case key.Matches(msg, m.keys.Sort):
		m.sortMode = m.sortMode.next()
		m.status = "Sorted by " + m.sortMode.String()
		m.reload()

	case key.Matches(msg, m.keys.Diff):
		if r := m.current(); r != nil {
			return m, loadDiff(m.ctx, r)
		}
	case key.Matches(msg, m.keys.Log):
		if r := m.current(); r != nil {
			return m, loadLog(m.ctx, r, m.app.Settings().HourFormat, m.now())
		}
	case key.Matches(msg, m.keys.Open):
		if r := m.current(); r != nil {
			return m, m.openExternal(r)
		}
	case key.Matches(msg, m.keys.Remove):
		if r := m.current(); r != nil {
			if err := m.app.RemoveRepositoryFromSelectedWorkspace(r.Path()); err != nil {
				m.status = err.Error()
			} else {
				m.status = fmt.Sprintf("Removed %s from the workspace", r.Name())
			}
			m.reload()
		}

	case key.Matches(msg, m.keys.ClearError):
		m.app.ClearGlobalError()
		m.status = ""
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

// reload rebuilds the visible rows from the selected workspace
func (m *Model) reload() {
	ws, ok := m.app.SelectedWorkspace()
	if !ok {
		m.rows = nil
		m.cursor = 0
		return
	}

	// fuzzy matches keep their rank order
	m.rows = util.FuzzyFilter(sortRepositories(ws.Repositories, m.sortMode), m.filter.Value(), func(r *repo.Repository) string {
		return r.Name()
	})
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m *Model) current() *repo.Repository {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor]
}

// toggleAll checks every visible repository, or unchecks them when all are checked
func (m *Model) toggleAll() {
	paths := lo.Map(m.rows, func(r *repo.Repository, _ int) string { return r.Path() })
	allChecked := lo.EveryBy(paths, m.app.IsChecked)

	checked := lo.Filter(m.app.CheckedRepositories(), func(r *repo.Repository, _ int) bool {
		return !lo.Contains(paths, r.Path())
	})
	keep := lo.Map(checked, func(r *repo.Repository, _ int) string { return r.Path() })
	if !allChecked {
		keep = append(keep, paths...)
	}
	m.app.SetCheckedRepos(keep)
}

func (m *Model) run(operation string, op orchestrator.Operation) tea.Cmd {
	m.status = fmt.Sprintf("Running %s on %d repositories", operation, len(m.app.CheckedRepositories()))
	return func() tea.Msg {
		report, err := m.app.Run(m.ctx, op)
		return batchDoneMsg{operation: operation, report: report, err: err}
	}
}

func (m *Model) refresh() tea.Cmd {
	m.status = "Refreshing workspace"
	return func() tea.Msg {
		report, err := m.app.RefreshSelected(m.ctx)
		return batchDoneMsg{operation: "refresh", report: report, err: err}
	}
}

func (m *Model) cycleWorkspace(step int) tea.Cmd {
	workspaces := m.app.Workspaces()
	if len(workspaces) < 2 {
		return nil
	}
	current, _ := m.app.SelectedWorkspace()
	_, i, _ := lo.FindIndexOf(workspaces, func(w app.Workspace) bool { return w.ID == current.ID })
	next := workspaces[(i+step+len(workspaces))%len(workspaces)]

	m.filter.SetValue("")
	m.cursor = 0
	m.status = fmt.Sprintf("Switching to %s", next.Name)
	return func() tea.Msg {
		return workspaceSelectedMsg{err: m.app.SetSelectedWorkspace(m.ctx, next.ID)}
	}
}

func (m *Model) openExternal(r *repo.Repository) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{
			action: "Open " + r.Name(),
			err:    m.app.OpenInExternalGitClient(m.ctx, r.Path()),
		}
	}
}

func summarize(operation string, report orchestrator.Report, err error) string {
	if err != nil {
		return fmt.Sprintf("%s: %v", operation, err)
	}
	total := len(report.Outcomes)
	if total == 0 {
		return fmt.Sprintf("%s: no repositories checked", operation)
	}
	if failed := report.Failed(); failed > 0 {
		return fmt.Sprintf("%s: %d of %d repositories failed", operation, failed, total)
	}
	return fmt.Sprintf("%s: %d repositories done", operation, total)
}
