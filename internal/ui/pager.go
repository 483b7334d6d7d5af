package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noborus/ov/oviewer"

	"gitorbit/internal/config"
	"gitorbit/internal/domain"
	"gitorbit/internal/repo"
	"gitorbit/internal/util"
)

const logLength = 50

// pagerContentMsg carries text to show in the pager
type pagerContentMsg struct {
	content string
	err     error
}

// pagerCommand shows text in ov. It implements tea.ExecCommand so the
// program releases the terminal while the pager runs.
type pagerCommand struct {
	content string
}

func (p *pagerCommand) SetStdin(io.Reader)  {}
func (p *pagerCommand) SetStdout(io.Writer) {}
func (p *pagerCommand) SetStderr(io.Writer) {}

func (p *pagerCommand) Run() error {
	root, err := oviewer.NewRoot(strings.NewReader(p.content))
	if err != nil {
		return err
	}

	cfg := oviewer.NewConfig()
	cfg.IsWriteOnExit = false
	cfg.IsWriteOriginal = false
	root.SetConfig(cfg)

	return root.Run()
}

// ShowInPager runs the pager outside of a Bubble Tea program
func ShowInPager(content string) error {
	return (&pagerCommand{content: content}).Run()
}

func openPager(content string) tea.Cmd {
	return tea.Exec(&pagerCommand{content: content}, func(err error) tea.Msg {
		return pagerDoneMsg{err: err}
	})
}

func loadDiff(ctx context.Context, r *repo.Repository) tea.Cmd {
	return func() tea.Msg {
		diff, err := r.Diff(ctx)
		if err != nil {
			return pagerContentMsg{err: err}
		}
		if strings.TrimSpace(diff) == "" {
			return pagerContentMsg{err: fmt.Errorf("%s has no unstaged changes", r.Name())}
		}
		return pagerContentMsg{content: diff}
	}
}

func loadLog(ctx context.Context, r *repo.Repository, hourFormat config.HourFormat, now time.Time) tea.Cmd {
	return func() tea.Msg {
		log, res := r.Log(ctx, domain.LogOptions{MaxCount: logLength})
		if !res.OK() {
			return pagerContentMsg{err: res.Err}
		}
		return pagerContentMsg{content: FormatLog(r.Name(), log.All, hourFormat, now)}
	}
}

// FormatLog renders log entries one commit per line
func FormatLog(name string, entries []domain.LogEntry, hourFormat config.HourFormat, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d commits\n\n", name, len(entries))
	for _, e := range entries {
		hash := e.Hash
		if len(hash) > 7 {
			hash = hash[:7]
		}
		fmt.Fprintf(&b, "%s  %s (%s)  %s  %s", hash, util.FormatDate(e.Date, hourFormat), util.DaysAgo(e.Date, now), e.AuthorName, e.Message)
		if tags := util.CommitTags(e.Refs); len(tags) > 0 {
			fmt.Fprintf(&b, "  [%s]", strings.Join(tags, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
