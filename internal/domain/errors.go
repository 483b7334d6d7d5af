package domain

import "errors"

var (
	ErrRepositoryNotFound  = errors.New("git repository not found in folder")
	ErrNoRemotes           = errors.New("no remotes defined, cannot push")
	ErrWorkspaceNotFound   = errors.New("workspace not found")
	ErrWorkspaceNameTaken  = errors.New("a workspace with that name already exists")
	ErrWorkspaceNameEmpty  = errors.New("workspace name is required")
	ErrCommandNameEmpty    = errors.New("command name is required")
	ErrNoExternalGitClient = errors.New("no external git client has been configured")
	ErrInvalidSettings     = errors.New("invalid settings")
	ErrNoWorkspaceSelected = errors.New("no workspace selected")
)
