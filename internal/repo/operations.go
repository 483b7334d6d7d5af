package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"gitorbit/internal/domain"
)

var errDetachedPush = errors.New("cannot push: HEAD is not on a branch")

// execute validates the repository, runs command and records the outcome.
// Git failures are captured in LastError and never returned to the caller as panics.
func (r *Repository) execute(ctx context.Context, operation string, command func(ctx context.Context) (string, error)) Result {
	ok, err := r.backend.CheckIsRepo(ctx, r.path)
	if err != nil {
		return r.record(Result{Operation: operation, Err: err}, false)
	}
	if !ok {
		notFound := fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, r.path)
		return r.record(Result{Operation: operation, Err: notFound}, true)
	}

	r.mu.Lock()
	r.state.Disabled = false
	r.state.LastError = ""
	r.mu.Unlock()

	out, err := command(ctx)
	if err != nil {
		r.logger.Debug("command failed", zap.String("operation", operation), zap.Error(err))
	}
	return r.record(Result{Operation: operation, Output: out, Err: err}, false)
}

func (r *Repository) record(res Result, disable bool) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if disable {
		r.state.Disabled = true
	}
	if res.Err != nil {
		r.state.LastError = res.Err.Error()
	}
	stored := res
	r.state.LastResult = &stored
	return res
}

// afterMutation refreshes when the mutation succeeded
func (r *Repository) afterMutation(ctx context.Context, res Result) Result {
	if !res.OK() {
		return res
	}
	r.Refresh(ctx)
	r.keepResult(res)
	return res
}

// alwaysRefresh refreshes even after a failure so conflicts become visible.
// The failure of the operation itself stays the repository's error.
func (r *Repository) alwaysRefresh(ctx context.Context, res Result) Result {
	r.Refresh(ctx)
	if !res.OK() {
		r.mu.Lock()
		r.state.LastError = res.Err.Error()
		r.mu.Unlock()
	}
	r.keepResult(res)
	return res
}

func (r *Repository) keepResult(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := res
	r.state.LastResult = &stored
}

// Refresh re-reads status, rebase marker, branches and the latest commit.
// When the path is not a repository it is disabled and cached fields are kept.
func (r *Repository) Refresh(ctx context.Context) Result {
	return r.execute(ctx, "refresh", func(ctx context.Context) (string, error) {
		status, err := r.backend.Status(ctx, r.path)
		if err != nil {
			return "", err
		}
		r.applyStatus(status)

		_, err = r.backend.RevParse(ctx, r.path, "REBASE_HEAD")
		rebasing := err == nil

		summary, err := r.backend.BranchSummary(ctx, r.path)
		if err != nil {
			return "", err
		}
		r.applyBranches(rebasing, summary)

		log, err := r.backend.Log(ctx, r.path, domain.LogOptions{MaxCount: 1})
		if err != nil {
			return "", err
		}

		r.mu.Lock()
		r.state.LatestCommitAuthor = ""
		r.state.LatestCommitDate = time.Time{}
		if log.Latest != nil {
			r.state.LatestCommitAuthor = log.Latest.AuthorName
			r.state.LatestCommitDate = log.Latest.Date
		}
		r.state.LastStatus = r.now()
		r.mu.Unlock()

		return "", nil
	})
}

func (r *Repository) applyStatus(status domain.StatusResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Branch = status.Current
	r.state.Ahead = status.Ahead
	r.state.Behind = status.Behind
	r.state.Tracking = status.Tracking
	r.state.Files = cloneSlice(status.Files)
	r.state.NotAdded = cloneSlice(status.NotAdded)
	r.state.Created = cloneSlice(status.Created)
	r.state.Deleted = cloneSlice(status.Deleted)
	r.state.Modified = cloneSlice(status.Modified)
	r.state.Renamed = cloneSlice(status.Renamed)
	r.state.Conflicts = cloneSlice(status.Conflicted)
}

func (r *Repository) applyBranches(rebasing bool, summary domain.BranchSummary) {
	branches := make([]domain.Branch, 0, len(summary.Branches))
	for _, b := range summary.Branches {
		branches = append(branches, b)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.RebaseInProgress = rebasing
	r.state.Branches = branches
	r.state.BranchSummary = nil
	if b, ok := summary.Branches[r.state.Branch]; ok && r.state.Branch != "" {
		r.state.BranchSummary = &b
	}
}

// Fetch updates remote tracking refs
func (r *Repository) Fetch(ctx context.Context) Result {
	res := r.execute(ctx, "fetch", func(ctx context.Context) (string, error) {
		return r.backend.Fetch(ctx, r.path)
	})
	return r.afterMutation(ctx, res)
}

// Pull integrates the upstream branch
func (r *Repository) Pull(ctx context.Context) Result {
	res := r.execute(ctx, "pull", func(ctx context.Context) (string, error) {
		return r.backend.Pull(ctx, r.path)
	})
	return r.afterMutation(ctx, res)
}

// Push pushes the current branch. An untracked branch is pushed to the first
// remote with -u so the upstream is established. A repository that was never
// refreshed has its status read first.
func (r *Repository) Push(ctx context.Context) Result {
	res := r.execute(ctx, "push", func(ctx context.Context) (string, error) {
		r.mu.RLock()
		tracking, branch, known := r.state.Tracking, r.state.Branch, !r.state.LastStatus.IsZero()
		r.mu.RUnlock()

		if !known {
			status, err := r.backend.Status(ctx, r.path)
			if err != nil {
				return "", err
			}
			r.applyStatus(status)
			tracking, branch = status.Tracking, status.Current
		}

		if tracking != "" {
			return r.backend.Push(ctx, r.path)
		}

		remotes, err := r.backend.Remotes(ctx, r.path)
		if err != nil {
			return "", err
		}
		if len(remotes) == 0 {
			return "", domain.ErrNoRemotes
		}
		if branch == "" {
			return "", errDetachedPush
		}
		return r.backend.Push(ctx, r.path, "-u", remotes[0].Name, branch)
	})
	return r.afterMutation(ctx, res)
}

// IsRemoteBranch reports whether name refers to a branch of origin
func IsRemoteBranch(name string) bool {
	return strings.HasPrefix(name, "origin/") || strings.HasPrefix(name, "remotes/origin/")
}

// CheckoutBranch switches branches. Remote branches are checked out into a new local tracking branch.
func (r *Repository) CheckoutBranch(ctx context.Context, name string) Result {
	args := []string{name}
	if IsRemoteBranch(name) {
		args = []string{"-t", name}
	}

	res := r.execute(ctx, "checkout", func(ctx context.Context) (string, error) {
		return r.backend.Checkout(ctx, r.path, args...)
	})
	return r.afterMutation(ctx, res)
}

// CreateBranch creates a branch at HEAD and optionally switches to it
func (r *Repository) CreateBranch(ctx context.Context, name string, checkout bool) Result {
	res := r.execute(ctx, "createBranch", func(ctx context.Context) (string, error) {
		return r.backend.CreateBranch(ctx, r.path, name)
	})
	if res.OK() && checkout {
		return r.CheckoutBranch(ctx, name)
	}
	return r.afterMutation(ctx, res)
}

// Merge merges branch into the current branch. The repository is refreshed
// even when the merge fails.
func (r *Repository) Merge(ctx context.Context, branch string) Result {
	res := r.execute(ctx, "merge", func(ctx context.Context) (string, error) {
		return r.backend.Merge(ctx, r.path, branch)
	})
	return r.alwaysRefresh(ctx, res)
}

// Rebase runs git rebase with args, e.g. a branch name, --continue or --abort.
// The repository is refreshed even when the rebase stops.
func (r *Repository) Rebase(ctx context.Context, args ...string) Result {
	res := r.execute(ctx, "rebase", func(ctx context.Context) (string, error) {
		return r.backend.Rebase(ctx, r.path, args...)
	})
	return r.alwaysRefresh(ctx, res)
}

// Commit records a commit of the staged changes, or of files when given
func (r *Repository) Commit(ctx context.Context, message string, files ...string) Result {
	res := r.execute(ctx, "commit", func(ctx context.Context) (string, error) {
		return r.backend.Commit(ctx, r.path, message, files...)
	})
	return r.afterMutation(ctx, res)
}

// Add stages files without refreshing
func (r *Repository) Add(ctx context.Context, files ...string) Result {
	return r.execute(ctx, "add", func(ctx context.Context) (string, error) {
		return r.backend.Add(ctx, r.path, files...)
	})
}

// DiscardChanges restores a tracked file. Untracked files must be deleted by the caller.
func (r *Repository) DiscardChanges(ctx context.Context, file string) Result {
	res := r.execute(ctx, "discard", func(ctx context.Context) (string, error) {
		return r.backend.Checkout(ctx, r.path, "--", file)
	})
	return r.afterMutation(ctx, res)
}

// RunRaw runs a git command line typed by the user, with or without the leading "git"
func (r *Repository) RunRaw(ctx context.Context, command string) Result {
	res := r.execute(ctx, "raw", func(ctx context.Context) (string, error) {
		args, err := SplitCommand(command)
		if err != nil {
			return "", err
		}
		return r.backend.Raw(ctx, r.path, args...)
	})
	return r.afterMutation(ctx, res)
}

// SplitCommand splits a git command line with shell quoting rules and drops a leading "git"
func SplitCommand(command string) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", command, err)
	}
	if len(args) > 0 && args[0] == "git" {
		args = args[1:]
	}
	if len(args) == 0 {
		return nil, errors.New("no git command given")
	}
	return args, nil
}

// Log returns the history of the repository
func (r *Repository) Log(ctx context.Context, opts domain.LogOptions) (domain.LogResult, Result) {
	var log domain.LogResult
	res := r.execute(ctx, "log", func(ctx context.Context) (string, error) {
		var err error
		log, err = r.backend.Log(ctx, r.path, opts)
		return "", err
	})
	return log, res
}

// Show returns one commit
func (r *Repository) Show(ctx context.Context, hash string, params ...string) Result {
	return r.execute(ctx, "show", func(ctx context.Context) (string, error) {
		return r.backend.Show(ctx, r.path, hash, params...)
	})
}

// DiffSummary returns per-file change statistics of the working tree
func (r *Repository) DiffSummary(ctx context.Context) Result {
	return r.execute(ctx, "diffSummary", func(ctx context.Context) (string, error) {
		return r.backend.DiffSummary(ctx, r.path)
	})
}

// Diff returns the diff text without touching the repository state
func (r *Repository) Diff(ctx context.Context, params ...string) (string, error) {
	return r.backend.Diff(ctx, r.path, params...)
}

// RevParse resolves ref, returning "" when it does not exist
func (r *Repository) RevParse(ctx context.Context, ref string) string {
	out, err := r.backend.RevParse(ctx, r.path, ref)
	if err != nil {
		return ""
	}
	return out
}
