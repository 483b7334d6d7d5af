package git

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"gitorbit/internal/domain"
)

const (
	branchFormat = "%(refname)%1f%(objectname:short)%1f%(HEAD)%1f%(contents:subject)"
	// Records start with RS so a trailing --stat block stays with its commit
	logFormat = "%x1e%H%x1f%aI%x1f%s%x1f%an%x1f%ae%x1f%b%x1f%D%x1f"
)

// ParseStatus parses the output of git status --porcelain=v1 -b -z
func ParseStatus(out string) domain.StatusResult {
	var result domain.StatusResult

	fields := strings.Split(out, "\x00")
	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if entry == "" {
			continue
		}

		if strings.HasPrefix(entry, "## ") {
			parseBranchHeader(&result, strings.TrimPrefix(entry, "## "))
			continue
		}
		if len(entry) < 4 {
			continue
		}

		fs := domain.FileStatus{
			Index:      entry[0],
			WorkingDir: entry[1],
			Path:       entry[3:],
		}
		// Renames and copies are followed by their source path
		if (fs.Index == 'R' || fs.Index == 'C') && i+1 < len(fields) {
			i++
			fs.From = fields[i]
		}

		classify(&result, fs)
		result.Files = append(result.Files, fs)
	}

	return result
}

func classify(result *domain.StatusResult, fs domain.FileStatus) {
	code := string([]byte{fs.Index, fs.WorkingDir})

	switch code {
	case "??":
		result.NotAdded = append(result.NotAdded, fs.Path)
		return
	case "!!":
		return
	case "DD", "AU", "UD", "UA", "DU", "AA", "UU":
		result.Conflicted = append(result.Conflicted, fs.Path)
		return
	}

	switch fs.Index {
	case 'A', 'C':
		result.Created = append(result.Created, fs.Path)
	case 'R':
		result.Renamed = append(result.Renamed, domain.Rename{From: fs.From, To: fs.Path})
	case 'D':
		result.Deleted = append(result.Deleted, fs.Path)
	case 'M':
		result.Modified = append(result.Modified, fs.Path)
	}

	switch fs.WorkingDir {
	case 'D':
		if fs.Index != 'D' && fs.Index != 'A' {
			result.Deleted = append(result.Deleted, fs.Path)
		}
	case 'M':
		if fs.Index != 'M' && fs.Index != 'A' {
			result.Modified = append(result.Modified, fs.Path)
		}
	}
}

// parseBranchHeader handles the "## " line, e.g.
// "main...origin/main [ahead 1, behind 2]", "HEAD (no branch)", "No commits yet on main"
func parseBranchHeader(result *domain.StatusResult, header string) {
	switch {
	case strings.HasPrefix(header, "HEAD (no branch)"):
		result.Detached = true
		return
	case strings.HasPrefix(header, "No commits yet on "), strings.HasPrefix(header, "Initial commit on "):
		// unborn branch
		return
	}

	info := ""
	if idx := strings.Index(header, " ["); idx >= 0 {
		info = strings.TrimSuffix(header[idx+2:], "]")
		header = header[:idx]
	}

	if local, tracking, ok := strings.Cut(header, "..."); ok {
		result.Current = local
		result.Tracking = tracking
	} else {
		result.Current = header
	}

	for _, part := range strings.Split(info, ", ") {
		name, value, ok := strings.Cut(part, " ")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		switch name {
		case "ahead":
			result.Ahead = n
		case "behind":
			result.Behind = n
		}
	}
}

// ParseBranches parses git for-each-ref output produced with branchFormat
func ParseBranches(out string) domain.BranchSummary {
	summary := domain.BranchSummary{Branches: make(map[string]domain.Branch)}

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\x1f", 4)
		if len(parts) < 4 {
			continue
		}

		ref := parts[0]
		var name string
		switch {
		case strings.HasPrefix(ref, "refs/heads/"):
			name = strings.TrimPrefix(ref, "refs/heads/")
		case strings.HasPrefix(ref, "refs/remotes/"):
			if strings.HasSuffix(ref, "/HEAD") {
				continue
			}
			name = "remotes/" + strings.TrimPrefix(ref, "refs/remotes/")
		default:
			continue
		}

		b := domain.Branch{
			Name:    name,
			Commit:  parts[1],
			Current: parts[2] == "*",
			Label:   parts[3],
		}
		if b.Current {
			summary.Current = name
		}
		summary.Branches[name] = b
	}

	return summary
}

// ParseLog parses git log output produced with logFormat
func ParseLog(out string) domain.LogResult {
	var result domain.LogResult

	for _, record := range strings.Split(out, "\x1e") {
		if strings.TrimSpace(record) == "" {
			continue
		}
		parts := strings.SplitN(record, "\x1f", 8)
		if len(parts) < 7 {
			continue
		}

		entry := domain.LogEntry{
			Hash:        parts[0],
			Message:     parts[2],
			AuthorName:  parts[3],
			AuthorEmail: parts[4],
			Body:        strings.TrimSpace(parts[5]),
			Refs:        parts[6],
		}
		if date, err := time.Parse(time.RFC3339, parts[1]); err == nil {
			entry.Date = date
		}
		if len(parts) == 8 {
			entry.Diff = strings.TrimSpace(parts[7])
		}
		result.All = append(result.All, entry)
	}

	if len(result.All) > 0 {
		result.Latest = &result.All[0]
	}
	return result
}

// sortRemotes orders remotes by name with origin first
func sortRemotes(remotes []domain.Remote) {
	sort.SliceStable(remotes, func(i, j int) bool {
		if remotes[i].Name == "origin" {
			return remotes[j].Name != "origin"
		}
		if remotes[j].Name == "origin" {
			return false
		}
		return remotes[i].Name < remotes[j].Name
	})
}
