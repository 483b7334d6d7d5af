package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"gitorbit/internal/app"
	"gitorbit/internal/orchestrator"
	"gitorbit/internal/repo"
	"gitorbit/internal/util"
)

// renderTable renders a borderless table with bold headers
func renderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	return t.String() + "\n"
}

func statusRows(repos []*repo.Repository, checked func(string) bool, now time.Time) [][]string {
	rows := make([][]string, 0, len(repos))
	for _, r := range repos {
		s := r.Snapshot()

		mark := " "
		if checked != nil && checked(r.Path()) {
			mark = "x"
		}

		branch := s.Branch
		if branch == "" {
			branch = "(detached)"
		}

		sync := "-"
		if s.Tracking != "" {
			sync = fmt.Sprintf("↑%d ↓%d", s.Ahead, s.Behind)
		}

		last := "-"
		if !s.LatestCommitDate.IsZero() {
			last = s.LatestCommitAuthor + ", " + util.DaysAgo(s.LatestCommitDate, now)
		}

		errMsg, _, _ := strings.Cut(strings.TrimSpace(s.LastError), "\n")
		rows = append(rows, []string{mark, r.Name(), branch, sync, fmt.Sprint(len(s.Changes())), last, errMsg})
	}
	return rows
}

var statusHeaders = []string{"", "NAME", "BRANCH", "SYNC", "CHANGES", "LAST COMMIT", "ERROR"}

// printReport writes one line per repository of a batch and returns an error when any failed
func printReport(w io.Writer, a *app.App, operation string, report orchestrator.Report) error {
	for _, o := range report.Outcomes {
		name := o.Path
		if r := a.FindRepository(o.Path); r != nil {
			name = r.Name()
		}

		switch {
		case o.Skipped:
			fmt.Fprintf(w, "%s: skipped\n", name)
		case !o.Result.OK():
			fmt.Fprintf(w, "%s: %v\n", name, o.Result.Err)
		default:
			fmt.Fprintf(w, "%s: ok\n", name)
			if out := strings.TrimSpace(o.Result.Output); out != "" {
				fmt.Fprintln(w, indent(out))
			}
		}
	}

	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%s failed in %d of %d repositories", operation, failed, len(report.Outcomes))
	}
	return nil
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
