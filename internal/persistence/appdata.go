package persistence

import (
	"time"

	"gitorbit/internal/config"
	"gitorbit/internal/domain"
)

// CurrentVersion is the schema version written by Save
const CurrentVersion = 2

// RepositoryRecord is the persisted identity of a repository
type RepositoryRecord struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// WorkspaceRecord is the persisted topology of a workspace
type WorkspaceRecord struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Selected     bool               `json:"selected"`
	Repositories []RepositoryRecord `json:"repositories"`
}

// AppData is the app data file. It never contains live git status.
type AppData struct {
	Version          int                    `json:"version"`
	Settings         config.Settings        `json:"settings"`
	RecentCommands   []string               `json:"recentCommands"`
	RecentBranches   map[string][]string    `json:"recentBranches"`
	ReposLastFetched *time.Time             `json:"reposLastFetched,omitempty"`
	DiffViewType     config.DiffViewType    `json:"diffViewType"`
	CustomCommands   []domain.CustomCommand `json:"customCommands"`
	Workspaces       []WorkspaceRecord      `json:"workspaces"`
}

// Default returns the first-run document
func Default(appDataPath string) AppData {
	return AppData{
		Version:        CurrentVersion,
		Settings:       config.DefaultSettings(appDataPath),
		RecentCommands: []string{},
		RecentBranches: map[string][]string{},
		DiffViewType:   config.DiffUnified,
		CustomCommands: []domain.CustomCommand{},
		Workspaces:     []WorkspaceRecord{},
	}
}
