package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"gitorbit/internal/domain"
	"gitorbit/internal/repo"
)

// Workspaces returns a copy of every workspace in display order
func (a *App) Workspaces() []Workspace {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneWorkspaces(a.workspaces)
}

// Workspace returns the workspace with id
func (a *App) Workspace(id string) (Workspace, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	idx := indexOfWorkspace(a.workspaces, id)
	if idx < 0 {
		return Workspace{}, false
	}
	return a.workspaces[idx].clone(), true
}

// SelectedWorkspace returns the selected workspace
func (a *App) SelectedWorkspace() (Workspace, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ws, ok := selected(a.workspaces)
	if !ok {
		return Workspace{}, false
	}
	return ws.clone(), true
}

// FindWorkspaceByName matches names case-insensitively
func (a *App) FindWorkspaceByName(name string) (Workspace, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ws, ok := lo.Find(a.workspaces, func(w Workspace) bool {
		return strings.EqualFold(w.Name, strings.TrimSpace(name))
	})
	if !ok {
		return Workspace{}, false
	}
	return ws.clone(), true
}

// SetSelectedWorkspace selects exactly the workspace id, checks all of its
// repositories, persists and refreshes them
func (a *App) SetSelectedWorkspace(ctx context.Context, id string) error {
	a.mu.Lock()
	idx := indexOfWorkspace(a.workspaces, id)
	if idx < 0 {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrWorkspaceNotFound, id)
	}

	next := cloneWorkspaces(a.workspaces)
	for i := range next {
		next[i].Selected = i == idx
	}
	a.workspaces = next

	target := next[idx]
	a.checked = make(map[string]bool, len(target.Repositories))
	for _, r := range target.Repositories {
		a.checked[r.Path()] = true
	}
	a.mu.Unlock()

	a.logger.Info("workspace selected", zap.String("id", target.ID), zap.String("name", target.Name))
	a.persist()
	a.publish(domain.WorkspaceSelectedEvent{ID: target.ID, Name: target.Name})

	a.runBatch(ctx, target.ID, target.Repositories, true, true, refresh)
	return nil
}

// AddWorkspace creates a workspace and selects it
func (a *App) AddWorkspace(name string) (Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Workspace{}, domain.ErrWorkspaceNameEmpty
	}

	a.mu.Lock()
	if nameTaken(a.workspaces, name, "") {
		a.mu.Unlock()
		return Workspace{}, fmt.Errorf("%w: %s", domain.ErrWorkspaceNameTaken, name)
	}

	ws := Workspace{ID: a.newID(), Name: name, Selected: true}
	next := cloneWorkspaces(a.workspaces)
	for i := range next {
		next[i].Selected = false
	}
	a.workspaces = append(next, ws)
	a.checked = make(map[string]bool)
	a.mu.Unlock()

	a.persist()
	a.publish(domain.WorkspacesChangedEvent{})
	a.publish(domain.WorkspaceSelectedEvent{ID: ws.ID, Name: ws.Name})
	return ws.clone(), nil
}

// RenameWorkspace renames id. Names are unique case-insensitively.
func (a *App) RenameWorkspace(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrWorkspaceNameEmpty
	}

	a.mu.Lock()
	idx := indexOfWorkspace(a.workspaces, id)
	if idx < 0 {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrWorkspaceNotFound, id)
	}
	if nameTaken(a.workspaces, name, id) {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrWorkspaceNameTaken, name)
	}

	next := cloneWorkspaces(a.workspaces)
	next[idx].Name = name
	a.workspaces = next
	a.mu.Unlock()

	a.persist()
	a.publish(domain.WorkspacesChangedEvent{})
	return nil
}

// DeleteWorkspace removes id. When the selected workspace goes away the first
// remaining one is selected; removing the last one recreates the default workspace.
func (a *App) DeleteWorkspace(ctx context.Context, id string) error {
	a.mu.Lock()
	idx := indexOfWorkspace(a.workspaces, id)
	if idx < 0 {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrWorkspaceNotFound, id)
	}

	wasSelected := a.workspaces[idx].Selected
	next := cloneWorkspaces(a.workspaces)
	next = append(next[:idx], next[idx+1:]...)

	var reselect string
	recreated := len(next) == 0
	if recreated {
		next = ensureSelection(next, a.newID)
		a.checked = make(map[string]bool)
	} else if wasSelected {
		reselect = next[0].ID
	}
	a.workspaces = next
	current, _ := selected(next)
	a.mu.Unlock()

	a.logger.Info("workspace deleted", zap.String("id", id))
	a.publish(domain.WorkspacesChangedEvent{})

	if reselect != "" {
		return a.SetSelectedWorkspace(ctx, reselect)
	}
	a.persist()
	if recreated {
		a.publish(domain.WorkspaceSelectedEvent{ID: current.ID, Name: current.Name})
	}
	return nil
}

// AddRepositories appends the repositories whose path is not yet in the
// workspace, checks them, persists and refreshes only the new ones.
// It returns the repositories that were added.
func (a *App) AddRepositories(ctx context.Context, workspaceID string, candidates []*repo.Repository) ([]*repo.Repository, error) {
	a.mu.Lock()
	idx := indexOfWorkspace(a.workspaces, workspaceID)
	if idx < 0 {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkspaceNotFound, workspaceID)
	}

	existing := a.workspaces[idx]
	added := lo.Compact(candidates)
	added = lo.UniqBy(added, func(r *repo.Repository) string { return r.Path() })
	added = lo.Reject(added, func(r *repo.Repository, _ int) bool {
		return existing.Contains(r.Path())
	})

	if len(added) > 0 {
		next := cloneWorkspaces(a.workspaces)
		next[idx].Repositories = append(next[idx].Repositories, added...)
		a.workspaces = next

		checked := make(map[string]bool, len(a.checked)+len(added))
		for path, v := range a.checked {
			checked[path] = v
		}
		for _, r := range added {
			checked[r.Path()] = true
		}
		a.checked = checked
	}
	a.mu.Unlock()

	if len(added) == 0 {
		return nil, nil
	}

	a.logger.Info("repositories added",
		zap.String("workspace", workspaceID),
		zap.Strings("paths", lo.Map(added, func(r *repo.Repository, _ int) string { return r.Path() })))
	a.persist()
	a.publish(domain.WorkspacesChangedEvent{})

	a.runBatch(ctx, workspaceID, added, true, true, refresh)
	return added, nil
}

// AddRepositoryPaths resolves every path to the root of its repository and adds
// the results to the workspace. Paths that are not inside a repository are
// reported in the returned error; the others are still added.
func (a *App) AddRepositoryPaths(ctx context.Context, workspaceID string, paths []string) ([]*repo.Repository, error) {
	var (
		candidates []*repo.Repository
		errs       []error
	)
	for _, p := range paths {
		root, err := a.backend.RepositoryRoot(ctx, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, p))
			continue
		}
		candidates = append(candidates, a.newRepository("", root))
	}

	added, err := a.AddRepositories(ctx, workspaceID, candidates)
	if err != nil {
		return nil, err
	}
	return added, errors.Join(errs...)
}

// RemoveRepositoryFromSelectedWorkspace drops path from the selected workspace
func (a *App) RemoveRepositoryFromSelectedWorkspace(path string) error {
	a.mu.Lock()
	current, ok := selected(a.workspaces)
	if !ok {
		a.mu.Unlock()
		return domain.ErrNoWorkspaceSelected
	}
	idx := indexOfWorkspace(a.workspaces, current.ID)
	if !current.Contains(path) {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	next := cloneWorkspaces(a.workspaces)
	next[idx].Repositories = lo.Reject(next[idx].Repositories, func(r *repo.Repository, _ int) bool {
		return r.Path() == path
	})
	a.workspaces = next
	a.mu.Unlock()

	a.persist()
	a.publish(domain.WorkspacesChangedEvent{})
	return nil
}

// IsChecked reports whether path is part of the default batch target
func (a *App) IsChecked(path string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.checked[path]
}

// SetChecked checks or unchecks one repository
func (a *App) SetChecked(path string, checked bool) {
	a.mu.Lock()
	next := make(map[string]bool, len(a.checked)+1)
	for p, v := range a.checked {
		next[p] = v
	}
	if checked {
		next[path] = true
	} else {
		delete(next, path)
	}
	a.checked = next
	a.mu.Unlock()
}

// SetCheckedRepos replaces the checked set
func (a *App) SetCheckedRepos(paths []string) {
	next := make(map[string]bool, len(paths))
	for _, p := range paths {
		next[p] = true
	}
	a.mu.Lock()
	a.checked = next
	a.mu.Unlock()
}

// CheckedRepositories returns the checked repositories of the selected workspace in display order
func (a *App) CheckedRepositories() []*repo.Repository {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ws, ok := selected(a.workspaces)
	if !ok {
		return nil
	}
	return lo.Filter(ws.Repositories, func(r *repo.Repository, _ int) bool {
		return a.checked[r.Path()]
	})
}

// AllRepositories returns the repositories of every workspace, distinct by path
func (a *App) AllRepositories() []*repo.Repository {
	a.mu.RLock()
	defer a.mu.RUnlock()
	all := lo.FlatMap(a.workspaces, func(w Workspace, _ int) []*repo.Repository {
		return w.Repositories
	})
	return lo.UniqBy(all, func(r *repo.Repository) string { return r.Path() })
}

// FindRepository looks path up in the selected workspace first, then in every other one
func (a *App) FindRepository(path string) *repo.Repository {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if ws, ok := selected(a.workspaces); ok {
		if r := ws.Repository(path); r != nil {
			return r
		}
	}
	for _, ws := range a.workspaces {
		if r := ws.Repository(path); r != nil {
			return r
		}
	}
	return nil
}

// CommitRepository writes a settled repository back into its workspace.
// An empty workspaceID updates every workspace that holds the path. A
// repository removed while its operation ran is not added back.
// It implements orchestrator.Sink.
func (a *App) CommitRepository(workspaceID string, r *repo.Repository) {
	a.mu.Lock()
	next := cloneWorkspaces(a.workspaces)
	touched := false
	for i := range next {
		if workspaceID != "" && next[i].ID != workspaceID {
			continue
		}
		for j, existing := range next[i].Repositories {
			if existing.Path() == r.Path() {
				next[i].Repositories[j] = r
				touched = true
			}
		}
	}
	if touched {
		a.workspaces = next
	}
	a.mu.Unlock()

	if touched {
		a.publish(domain.RepositoryUpdatedEvent{WorkspaceID: workspaceID, Path: r.Path()})
	}
}

func refresh(ctx context.Context, r *repo.Repository) repo.Result {
	return r.Refresh(ctx)
}
