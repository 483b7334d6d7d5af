package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"gitorbit/internal/config"
)

// settingSetters maps the keys accepted by "settings set" to the field they change
var settingSetters = map[string]func(s *config.Settings, value string) error{
	"app-data-path": func(s *config.Settings, v string) error {
		s.AppDataPath = v
		return nil
	},
	"concurrency": func(s *config.Settings, v string) error {
		return parseInt(v, &s.Concurrency)
	},
	"recent-commands": func(s *config.Settings, v string) error {
		return parseInt(v, &s.RecentCommandsToSave)
	},
	"fetch": func(s *config.Settings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("want true or false, got %q", v)
		}
		s.PeriodicallyFetchEnabled = b
		return nil
	},
	"fetch-interval": func(s *config.Settings, v string) error {
		return parseInt(v, &s.PeriodicallyFetchIntervalMinutes)
	},
	"git-client": func(s *config.Settings, v string) error {
		s.ExternalGitClient = config.ExternalGitClient(v)
		return nil
	},
	"git-client-command": func(s *config.Settings, v string) error {
		s.ExternalGitClientCustomCommand = v
		return nil
	},
	"hour-format": func(s *config.Settings, v string) error {
		s.HourFormat = config.HourFormat(v)
		return nil
	},
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("want a number, got %q", v)
	}
	*dst = n
	return nil
}

func newSettingsCmd(c *cli) *cobra.Command {
	keys := lo.Keys(settingSetters)
	sort.Strings(keys)

	cmd := &cobra.Command{
		Use:     "settings",
		Short:   "Show or change the settings",
		GroupID: groupUtility,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				config.Settings
				DiffViewType config.DiffViewType `json:"diffViewType"`
			}{c.app.Settings(), c.app.DiffViewType()})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:       "set <key> <value>",
			Short:     "Change one setting",
			Long:      "Change one setting. Keys: diff-view, " + fmt.Sprint(keys),
			Args:      cobra.ExactArgs(2),
			ValidArgs: append([]string{"diff-view"}, keys...),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, value := args[0], args[1]
				if key == "diff-view" {
					return c.app.SetDiffViewType(config.DiffViewType(value))
				}

				set, ok := settingSetters[key]
				if !ok {
					return fmt.Errorf("unknown setting %q", key)
				}
				s := c.app.Settings()
				if err := set(&s, value); err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				return c.app.SetSettings(s)
			},
		},
		&cobra.Command{
			Use:   "add-editor <name> <executable>",
			Short: "Register an external editor",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s := c.app.Settings()
				s.ExternalEditors = append(lo.Reject(s.ExternalEditors, func(e config.ExternalEditor, _ int) bool {
					return e.Name == args[0]
				}), config.ExternalEditor{Name: args[0], Executable: args[1]})
				return c.app.SetSettings(s)
			},
		},
		&cobra.Command{
			Use:   "remove-editor <name>",
			Short: "Forget an external editor",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s := c.app.Settings()
				s.ExternalEditors = lo.Reject(s.ExternalEditors, func(e config.ExternalEditor, _ int) bool {
					return e.Name == args[0]
				})
				return c.app.SetSettings(s)
			},
		},
	)
	return cmd
}
