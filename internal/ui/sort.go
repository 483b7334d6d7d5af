package ui

import (
	"sort"
	"strings"

	"gitorbit/internal/repo"
)

// SortMode represents different sort modes
type SortMode int

const (
	SortByWorkspace SortMode = iota // order the repositories were added in
	SortByName
	SortByStatus
	SortByBranch
)

var sortModeNames = map[SortMode]string{
	SortByWorkspace: "workspace order",
	SortByName:      "name",
	SortByStatus:    "status",
	SortByBranch:    "branch",
}

func (m SortMode) String() string { return sortModeNames[m] }

func (m SortMode) next() SortMode {
	return (m + 1) % SortMode(len(sortModeNames))
}

// sortRepositories returns repos ordered by mode; the input is not modified
func sortRepositories(repos []*repo.Repository, mode SortMode) []*repo.Repository {
	out := append([]*repo.Repository(nil), repos...)
	if mode == SortByWorkspace {
		return out
	}

	states := make(map[string]repo.State, len(out))
	for _, r := range out {
		states[r.Path()] = r.Snapshot()
	}
	byName := func(a, b *repo.Repository) bool {
		return strings.ToLower(a.Name()) < strings.ToLower(b.Name())
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch mode {
		case SortByStatus:
			pa, pb := statusPriority(states[a.Path()]), statusPriority(states[b.Path()])
			if pa != pb {
				return pa > pb
			}
		case SortByBranch:
			ba, bb := strings.ToLower(states[a.Path()].Branch), strings.ToLower(states[b.Path()].Branch)
			ra, rb := branchRank(ba), branchRank(bb)
			if ra != rb {
				return ra < rb
			}
			if ra > 0 && ba != bb {
				return ba < bb
			}
		}
		return byName(a, b)
	})
	return out
}

// branchRank puts main and master ahead of every other branch
func branchRank(branch string) int {
	if branch == "main" || branch == "master" {
		return 0
	}
	return 1
}

// statusPriority ranks repositories needing attention first: errors, then
// local changes, then divergence from upstream
func statusPriority(s repo.State) int {
	switch {
	case s.LastError != "":
		return 3
	case len(s.Changes()) > 0 || len(s.Conflicts) > 0:
		return 2
	case s.Tracking != "" && (s.Ahead > 0 || s.Behind > 0):
		return 1
	default:
		return 0
	}
}
