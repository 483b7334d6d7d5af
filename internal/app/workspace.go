package app

import (
	"strings"

	"github.com/samber/lo"

	"gitorbit/internal/repo"
)

// DefaultWorkspaceName is the name of the workspace created on first run
const DefaultWorkspaceName = "Default workspace"

// Workspace is a named, ordered group of repositories.
// Values handed out by App are copies; changing them has no effect on the app.
type Workspace struct {
	ID           string
	Name         string
	Repositories []*repo.Repository
	Selected     bool
}

// Repository returns the repository with path, or nil
func (w Workspace) Repository(path string) *repo.Repository {
	r, _ := lo.Find(w.Repositories, func(r *repo.Repository) bool {
		return r.Path() == path
	})
	return r
}

// Contains reports whether the workspace holds a repository at path
func (w Workspace) Contains(path string) bool {
	return w.Repository(path) != nil
}

func (w Workspace) clone() Workspace {
	w.Repositories = append([]*repo.Repository(nil), w.Repositories...)
	return w
}

func cloneWorkspaces(ws []Workspace) []Workspace {
	return lo.Map(ws, func(w Workspace, _ int) Workspace { return w.clone() })
}

func indexOfWorkspace(ws []Workspace, id string) int {
	_, idx, ok := lo.FindIndexOf(ws, func(w Workspace) bool { return w.ID == id })
	if !ok {
		return -1
	}
	return idx
}

func nameTaken(ws []Workspace, name, exceptID string) bool {
	return lo.ContainsBy(ws, func(w Workspace) bool {
		return w.ID != exceptID && strings.EqualFold(w.Name, name)
	})
}
