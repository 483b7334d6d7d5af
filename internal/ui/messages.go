package ui

import (
	"gitorbit/internal/eventbus"
	"gitorbit/internal/orchestrator"
)

// EventMsg wraps a domain event for the UI
type EventMsg struct {
	Event eventbus.DomainEvent
}

// batchDoneMsg carries the report of a batch started from the UI
type batchDoneMsg struct {
	operation string
	report    orchestrator.Report
	err       error
}

// workspaceSelectedMsg is sent once a workspace switch and its refresh finished
type workspaceSelectedMsg struct {
	err error
}

// actionDoneMsg reports the outcome of a single action such as opening a client
type actionDoneMsg struct {
	action string
	err    error
}

// pagerDoneMsg is sent when the pager returns control
type pagerDoneMsg struct {
	err error
}
