package repo

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitorbit/internal/domain"
	"gitorbit/internal/git"
)

// Result is the outcome of one repository operation.
// Failures are also recorded on the repository as LastError.
type Result struct {
	Operation string
	Output    string
	Err       error
}

// OK reports whether the operation succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// State is the live git state of a repository
type State struct {
	Branch           string // "" when detached or unborn
	Ahead            int
	Behind           int
	Tracking         string // "" when untracked; Ahead and Behind are meaningless then
	RebaseInProgress bool
	Conflicts        []string
	Files            []domain.FileStatus
	NotAdded         []string
	Created          []string
	Deleted          []string
	Modified         []string
	Renamed          []domain.Rename

	Branches      []domain.Branch // local and remote, sorted by name
	BranchSummary *domain.Branch  // entry of the current branch

	LatestCommitAuthor string
	LatestCommitDate   time.Time

	LastError  string
	Disabled   bool
	LastStatus time.Time // zero until the first complete refresh
	LastResult *Result
}

// Repository is the in-memory model of one repository, keyed by its path
type Repository struct {
	name    string
	path    string
	backend git.Backend
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	state State
}

// Option configures a Repository
type Option func(*Repository)

// WithClock overrides the time source used for LastStatus
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// New creates a repository with no live state. name defaults to the base name of path.
func New(name, path string, backend git.Backend, logger *zap.Logger, opts ...Option) *Repository {
	if name == "" {
		name = filepath.Base(path)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{
		name:    name,
		path:    path,
		backend: backend,
		logger:  logger.With(zap.String("repo", name)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) Name() string { return r.name }
func (r *Repository) Path() string { return r.path }

// Equals compares repositories by path
func (r *Repository) Equals(other *Repository) bool {
	return other != nil && r.path == other.path
}

// Snapshot returns a deep copy of the current state
func (r *Repository) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.state
	s.Conflicts = cloneSlice(s.Conflicts)
	s.Files = cloneSlice(s.Files)
	s.NotAdded = cloneSlice(s.NotAdded)
	s.Created = cloneSlice(s.Created)
	s.Deleted = cloneSlice(s.Deleted)
	s.Modified = cloneSlice(s.Modified)
	s.Renamed = cloneSlice(s.Renamed)
	s.Branches = cloneSlice(s.Branches)
	if s.BranchSummary != nil {
		b := *s.BranchSummary
		s.BranchSummary = &b
	}
	if s.LastResult != nil {
		res := *s.LastResult
		s.LastResult = &res
	}
	return s
}

// LastError returns the message of the last failure, "" when the last operation succeeded
func (r *Repository) LastError() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.LastError
}

// ClearLastError forgets the last failure
func (r *Repository) ClearLastError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.LastError = ""
}

// RecordFailure attaches a failure reported by a collaborator, such as a custom command
func (r *Repository) RecordFailure(operation, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.LastError = message
	r.state.LastResult = &Result{Operation: operation, Err: errorString(message)}
}

// Changes merges the change lists and conflicts into one list sorted by path.
// It is computed on every call.
func (r *Repository) Changes() []domain.Change {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return changesOf(&r.state)
}

// Changes computes the change list of a snapshot
func (s State) Changes() []domain.Change {
	return changesOf(&s)
}

func changesOf(s *State) []domain.Change {
	changes := make([]domain.Change, 0,
		len(s.NotAdded)+len(s.Created)+len(s.Deleted)+len(s.Modified)+len(s.Conflicts)+len(s.Renamed))

	for _, p := range s.NotAdded {
		changes = append(changes, domain.NewChange(domain.ChangeAdded, p, "", true))
	}
	for _, p := range s.Created {
		changes = append(changes, domain.NewChange(domain.ChangeAdded, p, "", false))
	}
	for _, p := range s.Deleted {
		changes = append(changes, domain.NewChange(domain.ChangeDeleted, p, "", false))
	}
	for _, p := range s.Modified {
		changes = append(changes, domain.NewChange(domain.ChangeModified, p, "", false))
	}
	for _, p := range s.Conflicts {
		changes = append(changes, domain.NewChange(domain.ChangeConflicted, p, "", false))
	}
	for _, rn := range s.Renamed {
		changes = append(changes, domain.NewChange(domain.ChangeRenamed, rn.To, rn.From, false))
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].FilePath < changes[j].FilePath
	})
	return changes
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append([]T(nil), s...)
}

type errorString string

func (e errorString) Error() string { return string(e) }
