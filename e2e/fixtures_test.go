//go:build e2e && unix

package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// RepoOption configures CreateRepo
type RepoOption func(*repoOptions)

type repoOptions struct {
	dirty      bool
	withRemote bool
	commits    []string
}

// WithDirtyState modifies README.md and leaves an untracked file
func WithDirtyState() RepoOption {
	return func(opts *repoOptions) { opts.dirty = true }
}

// WithRemote adds a bare origin and pushes main to it
func WithRemote() RepoOption {
	return func(opts *repoOptions) { opts.withRemote = true }
}

// WithCommits adds empty commits after the initial one
func WithCommits(messages ...string) RepoOption {
	return func(opts *repoOptions) { opts.commits = append(opts.commits, messages...) }
}

// CreateRepo creates a repository on branch main with one commit under Home/src
func (e *Env) CreateRepo(name string, options ...RepoOption) string {
	e.t.Helper()
	opts := &repoOptions{}
	for _, opt := range options {
		opt(opts)
	}

	path := filepath.Join(e.Home, "src", name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		e.t.Fatal(err)
	}

	e.git(path, "init")
	e.git(path, "checkout", "-b", "main")
	readme := fmt.Sprintf("# %s\n\nFixture repository.\n", name)
	if err := os.WriteFile(filepath.Join(path, "README.md"), []byte(readme), 0o644); err != nil {
		e.t.Fatal(err)
	}
	e.git(path, "add", ".")
	e.git(path, "commit", "-m", "Initial commit")
	for _, msg := range opts.commits {
		e.git(path, "commit", "--allow-empty", "-m", msg)
	}

	if opts.withRemote {
		remote := filepath.Join(e.Home, "remotes", name+".git")
		e.git("", "init", "--bare", remote)
		e.git(path, "remote", "add", "origin", remote)
		e.git(path, "push", "-u", "origin", "main")
	}

	if opts.dirty {
		if err := os.WriteFile(filepath.Join(path, "dirty.txt"), []byte("uncommitted\n"), 0o644); err != nil {
			e.t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(path, "README.md"), []byte(readme+"Work in progress.\n"), 0o644); err != nil {
			e.t.Fatal(err)
		}
	}
	return path
}

func (e *Env) git(dir string, args ...string) {
	e.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Orbit Test",
		"GIT_AUTHOR_EMAIL=test@gitorbit.test",
		"GIT_COMMITTER_NAME=Orbit Test",
		"GIT_COMMITTER_EMAIL=test@gitorbit.test",
		"GIT_CONFIG_GLOBAL=/dev/null",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		e.t.Fatalf("git %v failed: %v; out=%s", args, err, out)
	}
}
