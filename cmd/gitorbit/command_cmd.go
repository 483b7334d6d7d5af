package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"gitorbit/internal/domain"
)

func newCommandCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "command",
		Short:   "Manage and run custom shell commands",
		Aliases: []string{"cmd"},
		GroupID: groupWorkspace,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List custom commands",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ws, _ := c.app.SelectedWorkspace()
				pinned := lo.SliceToMap(c.app.PinnedCommands(ws.ID), func(cc domain.CustomCommand) (string, bool) {
					return cc.Name, true
				})

				rows := lo.Map(c.app.CustomCommands(), func(cc domain.CustomCommand, _ int) []string {
					mark := " "
					if pinned[cc.Name] {
						mark = "*"
					}
					return []string{mark, cc.Name, string(cc.PinSetting), fmt.Sprint(len(cc.CommandPerRepo))}
				})
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"", "NAME", "PIN", "REPOSITORIES"}, rows))
				return nil
			},
		},
		newCommandSaveCmd(c),
		&cobra.Command{
			Use:     "remove <name>",
			Short:   "Delete a custom command",
			Aliases: []string{"rm"},
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := c.customCommand(args[0]); err != nil {
					return err
				}
				c.app.RemoveCustomCommand(args[0])
				return nil
			},
		},
		newCommandRunCmd(c),
		&cobra.Command{
			Use:   "show <name>",
			Short: "Show the command line of every repository",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cc, err := c.customCommand(args[0])
				if err != nil {
					return err
				}
				paths := lo.Keys(cc.CommandPerRepo)
				sort.Strings(paths)
				rows := lo.Map(paths, func(p string, _ int) []string { return []string{p, cc.CommandPerRepo[p]} })
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"REPOSITORY", "COMMAND"}, rows))
				return nil
			},
		},
	)
	return cmd
}

func newCommandSaveCmd(c *cli) *cobra.Command {
	var (
		rename  string
		names   []string
		pin     string
		pinToWS string
	)

	cmd := &cobra.Command{
		Use:   "save <name> <command line>",
		Short: "Save a command for the repositories of the selected workspace",
		Long: `Save a custom command. The command line runs through the shell in the
directory of every repository it is saved for: all repositories of the selected
workspace, or the ones given with --repo.`,
		Example: `  gitorbit command save install "npm ci"
  gitorbit command save lint "make lint" -r api --pin workspace`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, ok := c.app.SelectedWorkspace()
			if !ok {
				return domain.ErrNoWorkspaceSelected
			}

			repos := ws.Repositories
			if len(names) > 0 {
				repos = repos[:0:0]
				for _, name := range names {
					r, err := c.findInSelected(name)
					if err != nil {
						return err
					}
					repos = append(repos, r)
				}
			}

			line := strings.Join(args[1:], " ")
			command := domain.CustomCommand{
				Name:           args[0],
				PinSetting:     domain.PinSetting(pin),
				CommandPerRepo: make(map[string]string, len(repos)),
			}
			if command.PinSetting == domain.PinWorkspace {
				command.PinToWorkspaceID = pinToWS
				if command.PinToWorkspaceID == "" {
					command.PinToWorkspaceID = ws.ID
				}
			}
			for _, r := range repos {
				command.CommandPerRepo[r.Path()] = line
			}

			previous := rename
			if previous == "" {
				previous = command.Name
			}
			return c.app.SaveCustomCommand(previous, command)
		},
	}

	cmd.Flags().StringVar(&rename, "replace", "", "name of the command this one replaces")
	cmd.Flags().StringArrayVarP(&names, "repo", "r", nil, "save only for this repository (repeatable)")
	cmd.Flags().StringVar(&pin, "pin", string(domain.PinAllWorkspaces), "where the command is offered: allWorkspaces, workspace or none")
	cmd.Flags().StringVar(&pinToWS, "pin-workspace", "", "workspace id for --pin workspace (default the selected one)")
	return cmd
}

func newCommandRunCmd(c *cli) *cobra.Command {
	var names []string

	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a custom command in the repositories of the selected workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := c.customCommand(args[0])
			if err != nil {
				return err
			}
			opts, err := c.targets(names)
			if err != nil {
				return err
			}
			report, err := c.app.RunCustomCommand(cmd.Context(), cc, opts...)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), c.app, cc.Name, report)
		},
	}

	cmd.Flags().StringArrayVarP(&names, "repo", "r", nil, "run only in this repository (repeatable)")
	return cmd
}

func (c *cli) customCommand(name string) (domain.CustomCommand, error) {
	cc, ok := lo.Find(c.app.CustomCommands(), func(cc domain.CustomCommand) bool { return cc.Name == name })
	if !ok {
		return domain.CustomCommand{}, fmt.Errorf("no custom command %q", name)
	}
	return cc, nil
}
