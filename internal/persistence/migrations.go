package persistence

import (
	"fmt"

	"github.com/google/uuid"
)

// document is the raw JSON object of the app data file
type document map[string]any

// migration lifts a document from version N to N+1
type migration func(doc document, newID func() string) error

// migrations[i] lifts version i to version i+1
var migrations = []migration{
	addWorkspaceIDs,
	fillMissingCollections,
}

func init() {
	if len(migrations) != CurrentVersion {
		panic(fmt.Sprintf("persistence: %d migrations registered for schema version %d", len(migrations), CurrentVersion))
	}
}

// version reads the schema version; files written before versioning are version 0
func (d document) version() (int, error) {
	raw, ok := d["version"]
	if !ok || raw == nil {
		return 0, nil
	}
	f, ok := raw.(float64)
	if !ok || f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid version %v", raw)
	}
	return int(f), nil
}

// migrate applies every migration from the document's version up to CurrentVersion
func migrate(doc document, newID func() string) (from int, err error) {
	from, err = doc.version()
	if err != nil {
		return 0, err
	}

	for v := from; v < CurrentVersion; v++ {
		if err := migrations[v](doc, newID); err != nil {
			return from, fmt.Errorf("migrating from version %d: %w", v, err)
		}
		doc["version"] = float64(v + 1)
	}
	return from, nil
}

func newUUID() string {
	return uuid.NewString()
}

// addWorkspaceIDs gives every workspace without an id a new one
func addWorkspaceIDs(doc document, newID func() string) error {
	raw, ok := doc["workspaces"]
	if !ok || raw == nil {
		return nil
	}
	workspaces, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("workspaces is %T, want a list", raw)
	}

	for i, w := range workspaces {
		ws, ok := w.(map[string]any)
		if !ok {
			return fmt.Errorf("workspace %d is %T, want an object", i, w)
		}
		if id, _ := ws["id"].(string); id == "" {
			ws["id"] = newID()
		}
	}
	return nil
}

// fillMissingCollections defaults collections that older files omit
func fillMissingCollections(doc document, _ func() string) error {
	defaults := map[string]func() any{
		"recentCommands":   func() any { return []any{} },
		"recentBranches":   func() any { return map[string]any{} },
		"customCommands":   func() any { return []any{} },
		"workspaces":       func() any { return []any{} },
		"diffViewType":     func() any { return "unified" },
		"reposLastFetched": nil,
	}

	for key, def := range defaults {
		if def == nil {
			continue
		}
		if v, ok := doc[key]; !ok || v == nil {
			doc[key] = def()
		}
	}

	if workspaces, ok := doc["workspaces"].([]any); ok {
		for _, w := range workspaces {
			if ws, ok := w.(map[string]any); ok && ws["repositories"] == nil {
				ws["repositories"] = []any{}
			}
		}
	}
	return nil
}
