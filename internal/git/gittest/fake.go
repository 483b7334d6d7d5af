// Package gittest provides an in-memory git.Backend for tests.
package gittest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"gitorbit/internal/domain"
	"gitorbit/internal/git"
)

// Call records one backend invocation
type Call struct {
	Path string
	Op   string
	Args []string
}

// FakeRepo is the scripted state of one repository
type FakeRepo struct {
	Status     domain.StatusResult
	Branches   domain.BranchSummary
	Remotes    []domain.Remote
	Log        domain.LogResult
	RebaseHead bool
	Errors     map[string]error  // op name -> failure
	Outputs    map[string]string // op name -> stdout
}

// Fake is a scriptable git.Backend
type Fake struct {
	mu    sync.Mutex
	repos map[string]*FakeRepo
	calls []Call

	// BeforeCall runs before every operation except CheckIsRepo.
	// A non-nil error fails the operation. It may block.
	BeforeCall func(ctx context.Context, path, op string) error
}

var _ git.Backend = (*Fake)(nil)

// New creates an empty fake
func New() *Fake {
	return &Fake{repos: make(map[string]*FakeRepo)}
}

// AddRepo registers a clean repository on branch main
func (f *Fake) AddRepo(path string) *FakeRepo {
	f.mu.Lock()
	defer f.mu.Unlock()

	r := &FakeRepo{
		Status: domain.StatusResult{Current: "main"},
		Branches: domain.BranchSummary{
			Current:  "main",
			Branches: map[string]domain.Branch{"main": {Name: "main", Current: true, Commit: "abc1234", Label: "initial commit"}},
		},
		Errors:  make(map[string]error),
		Outputs: make(map[string]string),
	}
	f.repos[path] = r
	return r
}

// RemoveRepo makes path stop being a repository
func (f *Fake) RemoveRepo(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.repos, path)
}

// Update mutates a repository under the fake's lock
func (f *Fake) Update(path string, fn func(r *FakeRepo)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.repos[path]; ok {
		fn(r)
	}
}

// SetError makes op fail for path; nil clears it
func (f *Fake) SetError(path, op string, err error) {
	f.Update(path, func(r *FakeRepo) {
		if err == nil {
			delete(r.Errors, op)
			return
		}
		r.Errors[op] = err
	})
}

// Calls returns the recorded calls, optionally filtered by op
func (f *Fake) Calls(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Call
	for _, c := range f.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// CallCount counts calls of op against path ("" matches any path)
func (f *Fake) CallCount(path, op string) int {
	n := 0
	for _, c := range f.Calls(op) {
		if path == "" || c.Path == path {
			n++
		}
	}
	return n
}

// begin records the call, runs the hook and returns the repository
func (f *Fake) begin(ctx context.Context, path, op string, args ...string) (*FakeRepo, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Path: path, Op: op, Args: args})
	hook := f.BeforeCall
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, path, op); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.repos[path]
	if !ok {
		return nil, fmt.Errorf("fatal: not a git repository: %s", path)
	}
	if err := r.Errors[op]; err != nil {
		return nil, err
	}
	return r, nil
}

func (f *Fake) output(r *FakeRepo, op string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return r.Outputs[op]
}

func (f *Fake) CheckIsRepo(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Path: path, Op: "checkIsRepo"})
	_, ok := f.repos[path]
	return ok, ctx.Err()
}

func (f *Fake) RepositoryRoot(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		if _, ok := f.repos[p]; ok {
			return p, nil
		}
		if p == filepath.Dir(p) {
			return "", fmt.Errorf("fatal: not a git repository: %s", path)
		}
	}
}

func (f *Fake) Status(ctx context.Context, path string) (domain.StatusResult, error) {
	r, err := f.begin(ctx, path, "status")
	if err != nil {
		return domain.StatusResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return r.Status, nil
}

func (f *Fake) RevParse(ctx context.Context, path, ref string) (string, error) {
	r, err := f.begin(ctx, path, "revParse", ref)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if ref == "REBASE_HEAD" && !r.RebaseHead {
		return "", fmt.Errorf("unknown revision %s", ref)
	}
	return "0123456789abcdef0123456789abcdef01234567", nil
}

func (f *Fake) BranchSummary(ctx context.Context, path string) (domain.BranchSummary, error) {
	r, err := f.begin(ctx, path, "branchSummary")
	if err != nil {
		return domain.BranchSummary{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := domain.BranchSummary{Current: r.Branches.Current, Branches: make(map[string]domain.Branch, len(r.Branches.Branches))}
	for k, v := range r.Branches.Branches {
		out.Branches[k] = v
	}
	return out, nil
}

func (f *Fake) Remotes(ctx context.Context, path string) ([]domain.Remote, error) {
	r, err := f.begin(ctx, path, "remotes")
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Remote(nil), r.Remotes...), nil
}

func (f *Fake) Log(ctx context.Context, path string, opts domain.LogOptions) (domain.LogResult, error) {
	r, err := f.begin(ctx, path, "log")
	if err != nil {
		return domain.LogResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return r.Log, nil
}

func (f *Fake) Fetch(ctx context.Context, path string) (string, error) {
	r, err := f.begin(ctx, path, "fetch")
	if err != nil {
		return "", err
	}
	return f.output(r, "fetch"), nil
}

func (f *Fake) Pull(ctx context.Context, path string) (string, error) {
	r, err := f.begin(ctx, path, "pull")
	if err != nil {
		return "", err
	}
	return f.output(r, "pull"), nil
}

func (f *Fake) Push(ctx context.Context, path string, args ...string) (string, error) {
	r, err := f.begin(ctx, path, "push", args...)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(args) == 3 && args[0] == "-u" {
		r.Status.Tracking = args[1] + "/" + args[2]
	}
	return r.Outputs["push"], nil
}

func (f *Fake) Merge(ctx context.Context, path, branch string) (string, error) {
	r, err := f.begin(ctx, path, "merge", branch)
	if err != nil {
		return "", err
	}
	return f.output(r, "merge"), nil
}

func (f *Fake) Rebase(ctx context.Context, path string, args ...string) (string, error) {
	r, err := f.begin(ctx, path, "rebase", args...)
	if err != nil {
		return "", err
	}
	return f.output(r, "rebase"), nil
}

func (f *Fake) Commit(ctx context.Context, path, message string, files ...string) (string, error) {
	r, err := f.begin(ctx, path, "commit", append([]string{message}, files...)...)
	if err != nil {
		return "", err
	}
	return f.output(r, "commit"), nil
}

func (f *Fake) Add(ctx context.Context, path string, files ...string) (string, error) {
	r, err := f.begin(ctx, path, "add", files...)
	if err != nil {
		return "", err
	}
	return f.output(r, "add"), nil
}

// Checkout switches branches. "-t <remote>/<name>" creates a tracking branch.
func (f *Fake) Checkout(ctx context.Context, path string, args ...string) (string, error) {
	r, err := f.begin(ctx, path, "checkout", args...)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(args) > 0 && args[0] == "--" {
		return r.Outputs["checkout"], nil
	}

	var name, tracking string
	switch {
	case len(args) == 2 && args[0] == "-t":
		remoteRef := strings.TrimPrefix(args[1], "remotes/")
		remote, branch, ok := strings.Cut(remoteRef, "/")
		if !ok {
			return "", fmt.Errorf("fatal: missing branch name; try -b")
		}
		if _, exists := r.Branches.Branches[branch]; exists {
			return "", fmt.Errorf("fatal: a branch named '%s' already exists", branch)
		}
		name, tracking = branch, remote+"/"+branch
	case len(args) == 1:
		name = args[0]
		if _, exists := r.Branches.Branches[name]; !exists {
			return "", fmt.Errorf("error: pathspec '%s' did not match any file(s) known to git", name)
		}
	default:
		return "", fmt.Errorf("unsupported checkout arguments %v", args)
	}

	for k, b := range r.Branches.Branches {
		b.Current = false
		r.Branches.Branches[k] = b
	}
	r.Branches.Branches[name] = domain.Branch{Name: name, Current: true, Commit: "abc1234"}
	r.Branches.Current = name
	r.Status.Current = name
	r.Status.Tracking = tracking
	return r.Outputs["checkout"], nil
}

func (f *Fake) CreateBranch(ctx context.Context, path, name string) (string, error) {
	r, err := f.begin(ctx, path, "createBranch", name)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := r.Branches.Branches[name]; exists {
		return "", fmt.Errorf("fatal: a branch named '%s' already exists", name)
	}
	r.Branches.Branches[name] = domain.Branch{Name: name, Commit: "abc1234"}
	return r.Outputs["createBranch"], nil
}

func (f *Fake) Diff(ctx context.Context, path string, args ...string) (string, error) {
	r, err := f.begin(ctx, path, "diff", args...)
	if err != nil {
		return "", err
	}
	return f.output(r, "diff"), nil
}

func (f *Fake) DiffSummary(ctx context.Context, path string, args ...string) (string, error) {
	r, err := f.begin(ctx, path, "diffSummary", args...)
	if err != nil {
		return "", err
	}
	return f.output(r, "diffSummary"), nil
}

func (f *Fake) Show(ctx context.Context, path, hash string, args ...string) (string, error) {
	r, err := f.begin(ctx, path, "show", append([]string{hash}, args...)...)
	if err != nil {
		return "", err
	}
	return f.output(r, "show"), nil
}

func (f *Fake) Raw(ctx context.Context, path string, args ...string) (string, error) {
	r, err := f.begin(ctx, path, "raw", args...)
	if err != nil {
		return "", err
	}
	return f.output(r, "raw"), nil
}
