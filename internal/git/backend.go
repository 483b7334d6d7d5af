package git

import (
	"context"
	"fmt"
	"strings"

	"gitorbit/internal/domain"
)

// Backend executes git sub-commands against a repository path.
// Every failure carries a human-readable message.
type Backend interface {
	CheckIsRepo(ctx context.Context, path string) (bool, error)
	RepositoryRoot(ctx context.Context, path string) (string, error)
	Status(ctx context.Context, path string) (domain.StatusResult, error)
	RevParse(ctx context.Context, path, ref string) (string, error)
	BranchSummary(ctx context.Context, path string) (domain.BranchSummary, error)
	Remotes(ctx context.Context, path string) ([]domain.Remote, error)
	Log(ctx context.Context, path string, opts domain.LogOptions) (domain.LogResult, error)
	Fetch(ctx context.Context, path string) (string, error)
	Pull(ctx context.Context, path string) (string, error)
	Push(ctx context.Context, path string, args ...string) (string, error)
	Merge(ctx context.Context, path, branch string) (string, error)
	Rebase(ctx context.Context, path string, args ...string) (string, error)
	Commit(ctx context.Context, path, message string, files ...string) (string, error)
	Add(ctx context.Context, path string, files ...string) (string, error)
	Checkout(ctx context.Context, path string, args ...string) (string, error)
	CreateBranch(ctx context.Context, path, name string) (string, error)
	Diff(ctx context.Context, path string, args ...string) (string, error)
	DiffSummary(ctx context.Context, path string, args ...string) (string, error)
	Show(ctx context.Context, path, hash string, args ...string) (string, error)
	Raw(ctx context.Context, path string, args ...string) (string, error)
}

// CommandError is returned when the git binary exits unsuccessfully
type CommandError struct {
	Args   []string
	Stderr string
	Stdout string
	Err    error
}

// Error returns what git printed on stderr, falling back to the process error
func (e *CommandError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
