// Package util holds small helpers shared by the front-ends.
package util

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"gitorbit/internal/domain"
)

// TrimRemotePrefix strips remotes/origin/ or origin/ from a branch name
func TrimRemotePrefix(name string) string {
	name = strings.Replace(name, "remotes/origin/", "", 1)
	return strings.Replace(name, "origin/", "", 1)
}

func isRemote(name string) bool {
	return strings.HasPrefix(name, "remotes/") || strings.HasPrefix(name, "origin/")
}

// BranchNames lists the branch names of one repository. Remote branches are
// included only when asked for and only when no local branch has the same
// name; they are shown without the remotes/ prefix.
func BranchNames(branches []domain.Branch, includeRemote bool) []string {
	local := lo.SliceToMap(lo.Reject(branches, func(b domain.Branch, _ int) bool { return isRemote(b.Name) }),
		func(b domain.Branch) (string, bool) { return b.Name, true })

	names := make([]string, 0, len(branches))
	for _, b := range branches {
		if isRemote(b.Name) {
			if !includeRemote || local[TrimRemotePrefix(b.Name)] {
				continue
			}
		}
		names = append(names, strings.TrimPrefix(b.Name, "remotes/"))
	}
	return names
}

// DistinctBranchNames merges BranchNames of several repositories into one sorted list
func DistinctBranchNames(repos [][]domain.Branch, includeRemote bool) []string {
	names := lo.Uniq(lo.FlatMap(repos, func(branches []domain.Branch, _ int) []string {
		return BranchNames(branches, includeRemote)
	}))
	sort.Strings(names)
	return names
}

// CommitTags extracts tag names from the decoration of a log entry
func CommitTags(refs string) []string {
	var tags []string
	for _, ref := range strings.Split(refs, ", ") {
		if tag, ok := strings.CutPrefix(ref, "tag: "); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}
