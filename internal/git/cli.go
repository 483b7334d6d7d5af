package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v6"
	"go.uber.org/zap"

	"gitorbit/internal/domain"
)

// crlfWarning matches the line ending notice git prints on stderr for diffs of
// files subject to autocrlf. Such output is a successful diff.
var crlfWarning = regexp.MustCompile(`warning:.*(CRLF|CR|LF) will be replaced by (CRLF|CR|LF)`)

// CLI is a Backend that shells out to the git binary
type CLI struct {
	binary string
	logger *zap.Logger
}

// NewCLI creates a git backend using the given binary ("git" when empty)
func NewCLI(binary string, logger *zap.Logger) *CLI {
	if binary == "" {
		binary = "git"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLI{binary: binary, logger: logger}
}

var _ Backend = (*CLI)(nil)

// run executes git in the repository and returns stdout
func (c *CLI) run(ctx context.Context, path string, args ...string) (string, error) {
	startTime := time.Now()

	full := append([]string{"-C", path}, args...)
	cmd := exec.CommandContext(ctx, c.binary, full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Debug("git command failed",
			zap.String("path", path),
			zap.Strings("args", args),
			zap.Duration("duration", duration),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
			zap.Error(err))
		return stdout.String(), &CommandError{
			Args:   args,
			Stderr: stderr.String(),
			Stdout: stdout.String(),
			Err:    err,
		}
	}

	c.logger.Debug("git command",
		zap.String("path", path),
		zap.Strings("args", args),
		zap.Duration("duration", duration))
	return stdout.String(), nil
}

// CheckIsRepo reports whether path is inside a git working tree
func (c *CLI) CheckIsRepo(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return false, nil
	}
	if err != nil {
		// Missing directories and unreadable paths are not repositories either
		c.logger.Debug("open repository", zap.String("path", path), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// RepositoryRoot resolves any path inside a working tree to the top-level directory
func (c *CLI) RepositoryRoot(ctx context.Context, path string) (string, error) {
	out, err := c.run(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return filepath.Clean(strings.TrimSpace(out)), nil
}

// Status returns the parsed porcelain status including the branch header
func (c *CLI) Status(ctx context.Context, path string) (domain.StatusResult, error) {
	out, err := c.run(ctx, path, "status", "--porcelain=v1", "-b", "-z", "--untracked-files=all")
	if err != nil {
		return domain.StatusResult{}, err
	}
	return ParseStatus(out), nil
}

// RevParse resolves a ref to a commit hash
func (c *CLI) RevParse(ctx context.Context, path, ref string) (string, error) {
	out, err := c.run(ctx, path, "rev-parse", "--verify", "--quiet", ref)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && strings.TrimSpace(cmdErr.Stderr) == "" {
			return "", fmt.Errorf("unknown revision %s", ref)
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// BranchSummary lists local and remote branches
func (c *CLI) BranchSummary(ctx context.Context, path string) (domain.BranchSummary, error) {
	out, err := c.run(ctx, path, "for-each-ref", "--format="+branchFormat, "refs/heads", "refs/remotes")
	if err != nil {
		return domain.BranchSummary{}, err
	}
	return ParseBranches(out), nil
}

// Remotes lists the configured remotes in configuration order
func (c *CLI) Remotes(ctx context.Context, path string) ([]domain.Remote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		return nil, fmt.Errorf("read repository config: %w", err)
	}

	remotes := make([]domain.Remote, 0, len(cfg.Remotes))
	for name, rc := range cfg.Remotes {
		r := domain.Remote{Name: name}
		if len(rc.URLs) > 0 {
			r.URL = rc.URLs[0]
		}
		remotes = append(remotes, r)
	}
	sortRemotes(remotes)
	return remotes, nil
}

// Log returns commits, newest first
func (c *CLI) Log(ctx context.Context, path string, opts domain.LogOptions) (domain.LogResult, error) {
	args := []string{"log", "--format=" + logFormat}
	if opts.MaxCount > 0 {
		args = append(args, fmt.Sprintf("--max-count=%d", opts.MaxCount))
	}
	if opts.Stat {
		args = append(args, "--stat")
	}
	if opts.Ref != "" {
		args = append(args, opts.Ref)
	}
	if opts.File != "" {
		args = append(args, "--", opts.File)
	}

	out, err := c.run(ctx, path, args...)
	if err != nil {
		var cmdErr *CommandError
		// An unborn branch has no history
		if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, "does not have any commits yet") {
			return domain.LogResult{}, nil
		}
		return domain.LogResult{}, err
	}
	return ParseLog(out), nil
}

// Fetch updates remote tracking refs
func (c *CLI) Fetch(ctx context.Context, path string) (string, error) {
	return c.run(ctx, path, "fetch")
}

// Pull fetches and integrates the upstream branch
func (c *CLI) Pull(ctx context.Context, path string) (string, error) {
	return c.run(ctx, path, "pull")
}

// Push pushes the current branch with optional extra arguments
func (c *CLI) Push(ctx context.Context, path string, args ...string) (string, error) {
	return c.run(ctx, path, append([]string{"push"}, args...)...)
}

// Merge merges branch into the current branch
func (c *CLI) Merge(ctx context.Context, path, branch string) (string, error) {
	return c.run(ctx, path, "merge", branch)
}

// Rebase runs git rebase with the given arguments
func (c *CLI) Rebase(ctx context.Context, path string, args ...string) (string, error) {
	return c.run(ctx, path, append([]string{"rebase"}, args...)...)
}

// Commit records a commit. When files are given only those paths are committed.
func (c *CLI) Commit(ctx context.Context, path, message string, files ...string) (string, error) {
	args := []string{"commit", "-m", message}
	if len(files) > 0 {
		args = append(args, "--")
		args = append(args, files...)
	}
	return c.run(ctx, path, args...)
}

// Add stages files
func (c *CLI) Add(ctx context.Context, path string, files ...string) (string, error) {
	return c.run(ctx, path, append([]string{"add", "--"}, files...)...)
}

// Checkout runs git checkout with the given arguments
func (c *CLI) Checkout(ctx context.Context, path string, args ...string) (string, error) {
	return c.run(ctx, path, append([]string{"checkout"}, args...)...)
}

// CreateBranch creates a branch at HEAD without switching to it
func (c *CLI) CreateBranch(ctx context.Context, path, name string) (string, error) {
	return c.run(ctx, path, "branch", name)
}

// Diff returns the textual diff.
// Line ending warnings on stderr are returned as output instead of an error.
func (c *CLI) Diff(ctx context.Context, path string, args ...string) (string, error) {
	out, err := c.run(ctx, path, append([]string{"diff"}, args...)...)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && crlfWarning.MatchString(cmdErr.Stderr) {
			c.logger.Debug("treating line ending warning as diff output", zap.String("path", path))
			if cmdErr.Stdout != "" {
				return cmdErr.Stdout, nil
			}
			return cmdErr.Stderr, nil
		}
		return "", err
	}
	return out, nil
}

// DiffSummary returns the per-file change statistics
func (c *CLI) DiffSummary(ctx context.Context, path string, args ...string) (string, error) {
	return c.run(ctx, path, append([]string{"diff", "--stat"}, args...)...)
}

// Show returns a commit with optional extra arguments
func (c *CLI) Show(ctx context.Context, path, hash string, args ...string) (string, error) {
	full := append([]string{"show"}, args...)
	full = append(full, hash)
	return c.run(ctx, path, full...)
}

// Raw runs an arbitrary git sub-command
func (c *CLI) Raw(ctx context.Context, path string, args ...string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("no git command given")
	}
	return c.run(ctx, path, args...)
}
