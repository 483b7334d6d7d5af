package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"gitorbit/internal/domain"
	"gitorbit/internal/eventbus"
)

// DefaultMaxDepth is how many directory levels below a root are searched
const DefaultMaxDepth = 5

// ErrScanInProgress is returned when Scan is called while another scan runs
var ErrScanInProgress = errors.New("scan already in progress")

// skipDirs are never searched for repositories
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	"venv":         true,
	"env":          true,
}

// Found is a repository located by a scan
type Found struct {
	Name string
	Path string
}

// Scanner finds git repositories below a set of directories
type Scanner struct {
	bus      eventbus.EventBus
	logger   *zap.Logger
	maxDepth int

	mu       sync.Mutex
	scanning bool
}

// Option configures a Scanner
type Option func(*Scanner)

func WithMaxDepth(depth int) Option {
	return func(s *Scanner) { s.maxDepth = depth }
}

func WithBus(bus eventbus.EventBus) Option {
	return func(s *Scanner) { s.bus = bus }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// NewScanner creates a scanner
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		logger:   zap.NewNop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks every root and returns the repositories found, sorted by path.
// A repository is not searched for nested repositories. Unreadable
// directories are skipped; a missing root is an error.
func (s *Scanner) Scan(ctx context.Context, roots ...string) ([]Found, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, ErrScanInProgress
	}
	s.scanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	var (
		found []Found
		errs  []error
	)
	for _, root := range roots {
		s.publish(domain.ScanStartedEvent{Root: root})

		repos, err := s.scanDirectory(ctx, root)
		found = append(found, repos...)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			errs = append(errs, fmt.Errorf("failed to scan %s: %w", root, err))
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	s.publish(domain.ScanCompletedEvent{ReposFound: len(found)})
	s.logger.Info("scan completed", zap.Strings("roots", roots), zap.Int("found", len(found)))
	return found, errors.Join(errs...)
}

func (s *Scanner) scanDirectory(ctx context.Context, root string) ([]Found, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var found []Found
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			s.logger.Debug("skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		if rel != "." && strings.Count(rel, string(filepath.Separator)) >= s.maxDepth {
			return filepath.SkipDir
		}

		name := d.Name()
		if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}

		// .git is a directory in a regular clone and a file in worktrees and submodules
		if _, statErr := os.Stat(filepath.Join(path, ".git")); statErr == nil {
			repo := Found{Name: filepath.Base(path), Path: path}
			found = append(found, repo)
			s.publish(domain.RepoDiscoveredEvent{Path: repo.Path, Name: repo.Name})
			return filepath.SkipDir
		}
		return nil
	})
	return found, err
}

func (s *Scanner) publish(event domain.DomainEvent) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}
