package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up            key.Binding
	Down          key.Binding
	Toggle        key.Binding
	ToggleAll     key.Binding
	Refresh       key.Binding
	Fetch         key.Binding
	Pull          key.Binding
	Push          key.Binding
	NextWorkspace key.Binding
	PrevWorkspace key.Binding
	Filter        key.Binding
	Sort          key.Binding
	Diff          key.Binding
	Log           key.Binding
	Open          key.Binding
	Remove        key.Binding
	ClearError    key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:        key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "check")),
		ToggleAll:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "check all")),
		Refresh:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Fetch:         key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fetch")),
		Pull:          key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pull")),
		Push:          key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "push")),
		NextWorkspace: key.NewBinding(key.WithKeys("tab", "]"), key.WithHelp("tab", "next workspace")),
		PrevWorkspace: key.NewBinding(key.WithKeys("shift+tab", "["), key.WithHelp("shift+tab", "previous workspace")),
		Filter:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Sort:          key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Diff:          key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "diff")),
		Log:           key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log")),
		Open:          key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in git client")),
		Remove:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove from workspace")),
		ClearError:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss error")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Refresh, k.Fetch, k.Pull, k.Push, k.NextWorkspace, k.Filter, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.ToggleAll},
		{k.Refresh, k.Fetch, k.Pull, k.Push},
		{k.NextWorkspace, k.PrevWorkspace, k.Filter, k.Sort},
		{k.Diff, k.Log, k.Open, k.Remove, k.ClearError},
		{k.Help, k.Quit},
	}
}
