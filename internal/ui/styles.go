package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the style definitions for the UI
type Styles struct {
	Title            lipgloss.Style
	Workspace        lipgloss.Style
	WorkspaceActive  lipgloss.Style
	Dim              lipgloss.Style
	Status           lipgloss.Style
	Filter           lipgloss.Style
	Help             lipgloss.Style
	Main             lipgloss.Style
	Highlight        lipgloss.Style
	SelectionBg      lipgloss.Style
	StatusError      lipgloss.Style
	StatusWarning    lipgloss.Style
	StatusLoading    lipgloss.Style
	StatusSuccess    lipgloss.Style
	GlobalError      lipgloss.Style
	GlobalErrorTitle lipgloss.Style
}

// NewStyles creates a new Styles instance with default values
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")),
		Workspace: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1),
		WorkspaceActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1),
		Dim: lipgloss.NewStyle().Faint(true),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
		Filter:        lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // yellow
		Help:          lipgloss.NewStyle().Faint(true),
		Main:          lipgloss.NewStyle().Padding(1, 2),
		Highlight:     lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		SelectionBg:   lipgloss.NewStyle().Background(lipgloss.Color("238")),
		StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")), // red
		StatusWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // yellow
		StatusLoading: lipgloss.NewStyle().Foreground(lipgloss.Color("241")), // gray
		StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("78")),  // green
		GlobalError: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("203")).
			Padding(0, 1).
			MarginTop(1),
		GlobalErrorTitle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}

// branchColor returns the color for a branch name
func branchColor(branchName string) lipgloss.Color {
	switch branchName {
	case "main", "master":
		return "78" // green
	case "develop", "dev":
		return "33" // blue
	case "":
		return "203" // detached HEAD or unborn
	default:
		return "214"
	}
}
