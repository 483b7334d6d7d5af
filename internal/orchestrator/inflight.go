package orchestrator

import (
	"sort"
	"sync"

	"gitorbit/internal/domain"
	"gitorbit/internal/eventbus"
)

// InFlight counts the running operations per repository path.
// Overlapping batches each add a marker, so a repository stays busy until the last one finishes.
type InFlight struct {
	mu     sync.Mutex
	counts map[string]int
	bus    eventbus.EventBus
}

// NewInFlight creates an empty tracker. bus may be nil.
func NewInFlight(bus eventbus.EventBus) *InFlight {
	return &InFlight{
		counts: make(map[string]int),
		bus:    bus,
	}
}

// Add marks one more operation on path
func (f *InFlight) Add(path string) {
	f.mu.Lock()
	f.counts[path]++
	n := f.counts[path]
	f.mu.Unlock()

	f.publish(path, n)
}

// Done removes one marker for path
func (f *InFlight) Done(path string) {
	f.mu.Lock()
	n, ok := f.counts[path]
	if !ok {
		f.mu.Unlock()
		return
	}
	n--
	if n <= 0 {
		delete(f.counts, path)
		n = 0
	} else {
		f.counts[path] = n
	}
	f.mu.Unlock()

	f.publish(path, n)
}

// Count returns the number of markers for path
func (f *InFlight) Count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[path]
}

// IsProcessing reports whether any operation on path is running
func (f *InFlight) IsProcessing(path string) bool {
	return f.Count(path) > 0
}

// Paths returns the busy paths, sorted
func (f *InFlight) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	paths := make([]string, 0, len(f.counts))
	for p := range f.counts {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (f *InFlight) publish(path string, n int) {
	if f.bus == nil {
		return
	}
	f.bus.Publish(domain.ProcessingChangedEvent{Path: path, Count: n})
}
