package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gitorbit/internal/repo"
	"gitorbit/internal/util"
)

// View renders the UI
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("gitorbit"))
	b.WriteString("  ")
	b.WriteString(m.renderWorkspaces())
	b.WriteString("\n\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.styles.Filter.Render(m.filter.View()))
		b.WriteString("\n\n")
	}

	if len(m.rows) == 0 {
		if m.filter.Value() != "" {
			b.WriteString(m.styles.Dim.Render("No repositories match the filter"))
		} else {
			b.WriteString(m.styles.Dim.Render("No repositories in this workspace. Add some with `gitorbit repo add` or `gitorbit repo scan`."))
		}
		b.WriteString("\n")
	}

	nameWidth := 0
	for _, r := range m.rows {
		nameWidth = max(nameWidth, lipgloss.Width(r.Name()))
	}
	for i, r := range m.rows {
		b.WriteString(m.renderRow(r, i == m.cursor, nameWidth))
		b.WriteString("\n")
	}

	if ge := m.app.GlobalError(); ge.Message != "" {
		title := m.styles.GlobalErrorTitle.Render("Error")
		b.WriteString(m.styles.GlobalError.Render(title + "\n" + ge.Message))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(m.styles.Status.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render(m.help.View(m.keys)))

	return m.styles.Main.Render(b.String())
}

func (m *Model) renderWorkspaces() string {
	current, _ := m.app.SelectedWorkspace()
	tabs := make([]string, 0)
	for _, ws := range m.app.Workspaces() {
		style := m.styles.Workspace
		if ws.ID == current.ID {
			style = m.styles.WorkspaceActive
		}
		tabs = append(tabs, style.Render(ws.Name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderRow(r *repo.Repository, selected bool, nameWidth int) string {
	state := r.Snapshot()

	cursor := "  "
	if selected {
		cursor = m.styles.Highlight.Render("> ")
	}

	check := "[ ]"
	if m.app.IsChecked(r.Path()) {
		check = "[x]"
	}

	var indicator string
	switch {
	case m.app.Processing(r.Path()):
		indicator = m.spinner.View()
	case state.LastError != "":
		indicator = m.styles.StatusError.Render("✗")
	case state.LastStatus.IsZero():
		indicator = m.styles.StatusLoading.Render("·")
	default:
		indicator = m.styles.StatusSuccess.Render("✓")
	}

	name := r.Name() + strings.Repeat(" ", nameWidth-lipgloss.Width(r.Name()))
	if selected {
		name = m.styles.SelectionBg.Render(name)
	}

	parts := []string{cursor + check, indicator, name, m.renderBranch(state)}

	if m.uiCfg.ShowAheadBehind && state.Tracking != "" && (state.Ahead > 0 || state.Behind > 0) {
		parts = append(parts, m.styles.StatusWarning.Render(fmt.Sprintf("↑%d ↓%d", state.Ahead, state.Behind)))
	}
	if changes := len(state.Changes()); changes > 0 {
		parts = append(parts, m.styles.StatusWarning.Render(fmt.Sprintf("%d changes", changes)))
	}
	if state.RebaseInProgress {
		parts = append(parts, m.styles.StatusError.Render("rebasing"))
	}
	if m.uiCfg.ShowLastCommit && !state.LatestCommitDate.IsZero() {
		parts = append(parts, m.styles.Dim.Render(fmt.Sprintf("%s, %s", state.LatestCommitAuthor, util.DaysAgo(state.LatestCommitDate, m.now()))))
	}
	if state.LastError != "" {
		parts = append(parts, m.styles.StatusError.Render(firstLine(state.LastError)))
	}

	return strings.Join(parts, " ")
}

func (m *Model) renderBranch(state repo.State) string {
	branch := state.Branch
	label := branch
	if label == "" {
		label = "(detached)"
	}
	return lipgloss.NewStyle().Foreground(branchColor(branch)).Render(label)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
