package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"gitorbit/internal/config"
	"gitorbit/internal/domain"
	"gitorbit/internal/orchestrator"
	"gitorbit/internal/repo"
	"gitorbit/internal/shell"
)

type runOptions struct {
	repos           []*repo.Repository
	explicit        bool
	showProgress    bool
	clearPriorError bool
}

// RunOption narrows a Run
type RunOption func(*runOptions)

// OnRepositories targets repos instead of the checked repositories of the selected workspace
func OnRepositories(repos ...*repo.Repository) RunOption {
	return func(o *runOptions) {
		o.repos = repos
		o.explicit = true
	}
}

// WithoutProgress leaves the busy markers untouched
func WithoutProgress() RunOption {
	return func(o *runOptions) { o.showProgress = false }
}

// KeepPriorErrors keeps LastError of the targets until their operation settles
func KeepPriorErrors() RunOption {
	return func(o *runOptions) { o.clearPriorError = false }
}

// Run applies op to the checked repositories of the selected workspace, or to
// the repositories given with OnRepositories. Settled repositories are written
// back into the selected workspace.
func (a *App) Run(ctx context.Context, op orchestrator.Operation, opts ...RunOption) (orchestrator.Report, error) {
	o := runOptions{showProgress: true, clearPriorError: true}
	for _, opt := range opts {
		opt(&o)
	}

	ws, ok := a.SelectedWorkspace()
	if !ok {
		return orchestrator.Report{}, domain.ErrNoWorkspaceSelected
	}

	repos := o.repos
	if !o.explicit {
		repos = a.CheckedRepositories()
	}
	return a.runBatch(ctx, ws.ID, repos, o.showProgress, o.clearPriorError, op), nil
}

func (a *App) runBatch(ctx context.Context, workspaceID string, repos []*repo.Repository, showProgress, clearPriorError bool, op orchestrator.Operation) orchestrator.Report {
	return a.orch.Run(ctx, orchestrator.Batch{
		WorkspaceID:     workspaceID,
		Repos:           repos,
		ShowProgress:    showProgress,
		ClearPriorError: clearPriorError,
	}, op)
}

// RefreshSelected refreshes the selected workspace without busy markers and
// without clearing errors, as done when the user comes back to the application
func (a *App) RefreshSelected(ctx context.Context) (orchestrator.Report, error) {
	ws, ok := a.SelectedWorkspace()
	if !ok {
		return orchestrator.Report{}, domain.ErrNoWorkspaceSelected
	}
	return a.Run(ctx, refresh, OnRepositories(ws.Repositories...), WithoutProgress(), KeepPriorErrors())
}

// FetchRepositories fetches repos without busy markers. Results are written
// back into every workspace that holds them. Failures stay on the repositories
// and never raise the global error.
func (a *App) FetchRepositories(ctx context.Context, repos []*repo.Repository) orchestrator.Report {
	return a.orch.Run(ctx, orchestrator.Batch{Repos: repos, Unattended: true}, func(ctx context.Context, r *repo.Repository) repo.Result {
		return r.Fetch(ctx)
	})
}

// RecentCommands returns the raw git commands entered most recently, newest first
func (a *App) RecentCommands() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string{}, a.recentCommands...)
}

// AddRecentCommand moves command to the front of the history, capped at RecentCommandsToSave
func (a *App) AddRecentCommand(command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}

	a.mu.Lock()
	next := append([]string{command}, lo.Without(a.recentCommands, command)...)
	if limit := max(a.settings.RecentCommandsToSave, 0); len(next) > limit {
		next = next[:limit]
	}
	a.recentCommands = next
	a.mu.Unlock()

	a.persist()
}

// RemoveRecentCommand forgets command
func (a *App) RemoveRecentCommand(command string) {
	a.mu.Lock()
	a.recentCommands = lo.Without(a.recentCommands, command)
	a.mu.Unlock()

	a.persist()
}

// RecentBranches returns the branches checked out most recently in repoPath, newest first
func (a *App) RecentBranches(repoPath string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string{}, a.recentBranches[repoPath]...)
}

// AddRecentBranch records branch for repoPath with the origin prefix stripped
func (a *App) AddRecentBranch(repoPath, branch string) {
	branch = strings.Replace(branch, "remotes/origin/", "", 1)
	branch = strings.Replace(branch, "origin/", "", 1)
	if branch == "" {
		return
	}

	a.mu.Lock()
	next := make(map[string][]string, len(a.recentBranches)+1)
	for p, b := range a.recentBranches {
		next[p] = b
	}
	branches := append([]string{branch}, lo.Without(a.recentBranches[repoPath], branch)...)
	if len(branches) > maxRecentBranches {
		branches = branches[:maxRecentBranches]
	}
	next[repoPath] = branches
	a.recentBranches = next
	a.mu.Unlock()

	a.persist()
}

// CustomCommands returns every saved custom command
func (a *App) CustomCommands() []domain.CustomCommand {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]domain.CustomCommand{}, a.customCommands...)
}

// PinnedCommands returns the custom commands offered in workspaceID
func (a *App) PinnedCommands(workspaceID string) []domain.CustomCommand {
	return lo.Filter(a.CustomCommands(), func(c domain.CustomCommand, _ int) bool {
		switch c.PinSetting {
		case domain.PinAllWorkspaces:
			return true
		case domain.PinWorkspace:
			return c.PinToWorkspaceID == workspaceID
		default:
			return false
		}
	})
}

// SaveCustomCommand stores command, replacing the command previously saved as name
func (a *App) SaveCustomCommand(name string, command domain.CustomCommand) error {
	command.Name = strings.TrimSpace(command.Name)
	if command.Name == "" {
		return domain.ErrCommandNameEmpty
	}
	if command.PinSetting == "" {
		command.PinSetting = domain.PinAllWorkspaces
	}
	if err := config.Validator().Struct(command); err != nil {
		return fmt.Errorf("invalid custom command %q: %w", command.Name, err)
	}
	command.CommandPerRepo = lo.PickBy(command.CommandPerRepo, func(_ string, line string) bool {
		return strings.TrimSpace(line) != ""
	})

	a.mu.Lock()
	next := lo.Reject(a.customCommands, func(c domain.CustomCommand, _ int) bool {
		return c.Name == name || c.Name == command.Name
	})
	a.customCommands = append(next, command)
	a.mu.Unlock()

	a.persist()
	return nil
}

// RemoveCustomCommand deletes the command called name
func (a *App) RemoveCustomCommand(name string) {
	a.mu.Lock()
	a.customCommands = lo.Reject(a.customCommands, func(c domain.CustomCommand, _ int) bool {
		return c.Name == name
	})
	a.mu.Unlock()

	a.persist()
}

// RunCustomCommand runs the command line stored for every targeted repository
// in that repository's directory. Repositories without a command line are
// left alone. A failure stores stderr, or stdout when stderr is empty, as the
// repository error.
func (a *App) RunCustomCommand(ctx context.Context, command domain.CustomCommand, opts ...RunOption) (orchestrator.Report, error) {
	operation := "custom:" + command.Name
	return a.Run(ctx, func(ctx context.Context, r *repo.Repository) repo.Result {
		line := strings.TrimSpace(command.CommandFor(r.Path()))
		if line == "" {
			return repo.Result{Operation: operation}
		}

		res := a.runner.Exec(ctx, line, nil, r.Path())
		if res.Success {
			return repo.Result{Operation: operation, Output: res.Stdout}
		}

		message := res.Stderr
		if message == "" {
			message = res.Stdout
		}
		r.RecordFailure(operation, message)
		return repo.Result{Operation: operation, Output: res.Stdout, Err: errors.New(message)}
	}, opts...)
}

// OpenInExternalGitClient launches the configured git client for repoPath.
// Failures also become the global error.
func (a *App) OpenInExternalGitClient(ctx context.Context, repoPath string) error {
	settings := a.Settings()
	line, err := settings.ExternalGitClientCommand()
	if err != nil {
		if settings.ExternalGitClient == config.ExternalGitClientNone {
			a.SetGlobalError("No external git client has been defined yet. Go to settings to select an external client")
		} else {
			a.SetGlobalError("No command defined for " + string(settings.ExternalGitClient))
		}
		return err
	}

	line = shell.ExpandRepositoryPath(line, repoPath)
	res := a.runner.Exec(ctx, line, nil, "")
	if !res.Success {
		a.logger.Warn("external git client failed", zap.String("command", line), zap.String("stderr", res.Stderr))
		a.SetGlobalError("Not able to execute command: " + line)
		return fmt.Errorf("failed to launch %q: %s", line, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// OpenWithEditor opens filePath of the repository at repoPath with editor.
// Failures also become the global error.
func (a *App) OpenWithEditor(ctx context.Context, editor config.ExternalEditor, repoPath, filePath string) error {
	target := filepath.Join(repoPath, filePath)
	res := a.runner.Exec(ctx, editor.Executable, []string{shell.Quote(target)}, "")
	if !res.Success {
		a.logger.Warn("external editor failed",
			zap.String("editor", editor.Name),
			zap.String("file", target),
			zap.String("stderr", res.Stderr))
		a.SetGlobalError("Not able to execute command: " + editor.Executable)
		return fmt.Errorf("failed to open %s with %s: %s", target, editor.Name, strings.TrimSpace(res.Stderr))
	}
	return nil
}
