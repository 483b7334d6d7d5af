package domain

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventRepositoryUpdated EventType = "RepositoryUpdated"
	EventProcessingChanged EventType = "ProcessingChanged"
	EventGlobalError       EventType = "GlobalError"
	EventWorkspacesChanged EventType = "WorkspacesChanged"
	EventWorkspaceSelected EventType = "WorkspaceSelected"
	EventSettingsChanged   EventType = "SettingsChanged"
	EventStateSaved        EventType = "StateSaved"
	EventBatchStarted      EventType = "BatchStarted"
	EventBatchCompleted    EventType = "BatchCompleted"
	EventBackgroundFetch   EventType = "BackgroundFetch"
	EventScanStarted       EventType = "ScanStarted"
	EventScanCompleted     EventType = "ScanCompleted"
	EventRepoDiscovered    EventType = "RepoDiscovered"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// RepositoryUpdatedEvent is emitted when a repository has been written back into a workspace
type RepositoryUpdatedEvent struct {
	WorkspaceID string
	Path        string
}

func (e RepositoryUpdatedEvent) Type() EventType { return EventRepositoryUpdated }

// ProcessingChangedEvent is emitted when the in-flight count of a repository changes
type ProcessingChangedEvent struct {
	Path  string
	Count int
}

func (e ProcessingChangedEvent) Type() EventType { return EventProcessingChanged }

// GlobalErrorEvent is emitted when the global error is set or cleared
type GlobalErrorEvent struct {
	Error GlobalError
}

func (e GlobalErrorEvent) Type() EventType { return EventGlobalError }

// WorkspacesChangedEvent is emitted after workspaces or their repository lists change
type WorkspacesChangedEvent struct{}

func (e WorkspacesChangedEvent) Type() EventType { return EventWorkspacesChanged }

// WorkspaceSelectedEvent is emitted when the selected workspace changes
type WorkspaceSelectedEvent struct {
	ID   string
	Name string
}

func (e WorkspaceSelectedEvent) Type() EventType { return EventWorkspaceSelected }

// SettingsChangedEvent is emitted after settings were saved
type SettingsChangedEvent struct{}

func (e SettingsChangedEvent) Type() EventType { return EventSettingsChanged }

// StateSavedEvent is emitted after the app data file was written
type StateSavedEvent struct {
	Path string
}

func (e StateSavedEvent) Type() EventType { return EventStateSaved }

// BatchStartedEvent is emitted when the orchestrator starts a batch
type BatchStartedEvent struct {
	WorkspaceID string
	Size        int
}

func (e BatchStartedEvent) Type() EventType { return EventBatchStarted }

// BatchCompletedEvent is emitted when every repository of a batch has settled
type BatchCompletedEvent struct {
	WorkspaceID string
	Size        int
	Failed      int
}

func (e BatchCompletedEvent) Type() EventType { return EventBatchCompleted }

// BackgroundFetchEvent is emitted when the scheduler starts a background fetch
type BackgroundFetchEvent struct {
	Repositories int
}

func (e BackgroundFetchEvent) Type() EventType { return EventBackgroundFetch }

// ScanStartedEvent is emitted when repository scanning begins
type ScanStartedEvent struct {
	Root string
}

func (e ScanStartedEvent) Type() EventType { return EventScanStarted }

// ScanCompletedEvent is emitted when repository scanning completes
type ScanCompletedEvent struct {
	ReposFound int
}

func (e ScanCompletedEvent) Type() EventType { return EventScanCompleted }

// RepoDiscoveredEvent is emitted when a scan finds a repository
type RepoDiscoveredEvent struct {
	Path string
	Name string
}

func (e RepoDiscoveredEvent) Type() EventType { return EventRepoDiscovered }
