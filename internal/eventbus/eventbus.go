package eventbus

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"gitorbit/internal/domain"
)

// Re-export domain types for convenience
type DomainEvent = domain.DomainEvent
type EventType = domain.EventType

// Event type constants
const (
	EventRepositoryUpdated = domain.EventRepositoryUpdated
	EventProcessingChanged = domain.EventProcessingChanged
	EventGlobalError       = domain.EventGlobalError
	EventWorkspacesChanged = domain.EventWorkspacesChanged
	EventWorkspaceSelected = domain.EventWorkspaceSelected
	EventSettingsChanged   = domain.EventSettingsChanged
	EventStateSaved        = domain.EventStateSaved
	EventBatchStarted      = domain.EventBatchStarted
	EventBatchCompleted    = domain.EventBatchCompleted
	EventBackgroundFetch   = domain.EventBackgroundFetch
	EventScanStarted       = domain.EventScanStarted
	EventScanCompleted     = domain.EventScanCompleted
	EventRepoDiscovered    = domain.EventRepoDiscovered
)

// EventHandler is a function that handles domain events
type EventHandler func(DomainEvent)

// EventBus is the interface for the event bus
type EventBus interface {
	Publish(event DomainEvent)
	Subscribe(eventType EventType, handler EventHandler) func()
	SubscribeAll(handler EventHandler) func()
	Close()
}

type subscription struct {
	id      uint64
	handler EventHandler
}

// bus is the concrete implementation of EventBus
type bus struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	handlers  map[EventType][]subscription
	wildcard  []subscription
	nextID    uint64
	eventChan chan DomainEvent
	wg        sync.WaitGroup
	quit      chan struct{}
	closeOnce sync.Once
}

// New creates a new event bus
func New(logger *zap.Logger) EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &bus{
		logger:    logger,
		handlers:  make(map[EventType][]subscription),
		eventChan: make(chan DomainEvent, 1000),
		quit:      make(chan struct{}),
	}

	b.wg.Add(1)
	go b.dispatch()

	return b
}

// Publish publishes an event to all subscribers.
// Events are dropped when the queue is full so publishers never block.
func (b *bus) Publish(event DomainEvent) {
	switch event.Type() {
	case EventProcessingChanged, EventRepositoryUpdated:
		// too frequent to log
	default:
		b.logger.Debug("publishing event", zap.String("type", string(event.Type())))
	}

	select {
	case <-b.quit:
		return
	default:
	}

	select {
	case b.eventChan <- event:
	default:
		b.logger.Warn("event bus channel full, dropping event", zap.String("type", string(event.Type())))
	}
}

// Subscribe subscribes to events of a specific type.
// Returns an unsubscribe function
func (b *bus) Subscribe(eventType EventType, handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers[eventType] = remove(b.handlers[eventType], id)
	}
}

// SubscribeAll subscribes to every event type
func (b *bus) SubscribeAll(handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.wildcard = append(b.wildcard, subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.wildcard = remove(b.wildcard, id)
	}
}

// Close stops the dispatcher and waits for it to exit. A handler already
// running finishes; events still queued are discarded without delivery.
func (b *bus) Close() {
	b.closeOnce.Do(func() {
		close(b.quit)
	})
	b.wg.Wait()
}

func remove(subs []subscription, id uint64) []subscription {
	out := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// dispatch handles event distribution to subscribers
func (b *bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case <-b.quit:
			b.discardQueued()
			return
		default:
		}

		select {
		case event := <-b.eventChan:
			// Copy so handlers run without the lock held
			b.mu.RLock()
			handlers := make([]subscription, 0, len(b.handlers[event.Type()])+len(b.wildcard))
			handlers = append(handlers, b.handlers[event.Type()]...)
			handlers = append(handlers, b.wildcard...)
			b.mu.RUnlock()

			for _, sub := range handlers {
				b.call(sub.handler, event)
			}

		case <-b.quit:
			b.discardQueued()
			return
		}
	}
}

func (b *bus) discardQueued() {
	for {
		select {
		case <-b.eventChan:
		default:
			return
		}
	}
}

// call runs a handler, recovering from panics so one subscriber cannot stop the bus
func (b *bus) call(h EventHandler, event DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panic",
				zap.String("type", string(event.Type())),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	h(event)
}
