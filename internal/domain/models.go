package domain

import (
	"path/filepath"
	"time"
)

// ChangeType is the kind of change a file has in the working tree
type ChangeType string

const (
	ChangeAdded      ChangeType = "added"
	ChangeDeleted    ChangeType = "deleted"
	ChangeModified   ChangeType = "modified"
	ChangeRenamed    ChangeType = "renamed"
	ChangeConflicted ChangeType = "conflicted"
)

// Change is a single typed entry of a repository's change list
type Change struct {
	Type          ChangeType
	FilePath      string
	DirectoryPath string // "" for files in the repository root
	FileName      string
	OldFilePath   string // only set for renames
	Untracked     bool   // new file that has not been added yet
}

// NewChange builds a change record, deriving directory and file name from the path
func NewChange(changeType ChangeType, filePath, oldFilePath string, untracked bool) Change {
	dir := filepath.Dir(filePath)
	if dir == "." {
		dir = ""
	}
	return Change{
		Type:          changeType,
		FilePath:      filePath,
		DirectoryPath: dir,
		FileName:      filepath.Base(filePath),
		OldFilePath:   oldFilePath,
		Untracked:     untracked,
	}
}

// FileStatus is one raw line of git status
type FileStatus struct {
	Path       string
	From       string // original path for renames and copies
	Index      byte   // staged state, ' ' when unchanged
	WorkingDir byte   // unstaged state, ' ' when unchanged
}

// Rename is a renamed file in the working tree
type Rename struct {
	From string
	To   string
}

// StatusResult is the structured output of git status
type StatusResult struct {
	Current    string // "" when detached or unborn
	Detached   bool
	Ahead      int
	Behind     int
	Tracking   string // "" when the branch has no upstream
	Files      []FileStatus
	NotAdded   []string
	Created    []string
	Deleted    []string
	Modified   []string
	Renamed    []Rename
	Conflicted []string
}

// Branch is one local or remote branch known to a repository
type Branch struct {
	Name    string // local branches by short name, remote ones as remotes/<remote>/<name>
	Current bool
	Commit  string
	Label   string // subject of the tip commit
}

// BranchSummary lists every branch of a repository
type BranchSummary struct {
	Current  string
	Branches map[string]Branch
}

// Remote is a configured git remote
type Remote struct {
	Name string
	URL  string
}

// LogEntry is one commit of git log
type LogEntry struct {
	Hash        string
	Date        time.Time
	Message     string
	AuthorName  string
	AuthorEmail string
	Body        string
	Refs        string
	Diff        string // only filled when LogOptions.Stat is set
}

// LogResult is the output of git log
type LogResult struct {
	All    []LogEntry
	Latest *LogEntry
}

// LogOptions narrows a log query
type LogOptions struct {
	MaxCount int
	Ref      string
	File     string
	Stat     bool
}

// PinSetting decides where a custom command is offered
type PinSetting string

const (
	PinAllWorkspaces PinSetting = "allWorkspaces"
	PinWorkspace     PinSetting = "workspace"
	PinNone          PinSetting = "none"
)

// CustomCommand is a user defined shell command with one command line per repository
type CustomCommand struct {
	Name             string            `json:"name" validate:"required"`
	PinSetting       PinSetting        `json:"pinSetting" validate:"omitempty,oneof=allWorkspaces workspace none"`
	PinToWorkspaceID string            `json:"pinToWorkspaceId,omitempty" validate:"required_if=PinSetting workspace"`
	CommandPerRepo   map[string]string `json:"commandPerRepo"`
}

// CommandFor returns the command line for a repository, "" meaning nothing to run
func (c CustomCommand) CommandFor(repoPath string) string {
	return c.CommandPerRepo[repoPath]
}

// GlobalError is the single user visible error of the application
type GlobalError struct {
	Message    string
	Persistent bool // stays until explicitly cleared, used for persistence failures
}
