package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitorbit/internal/app"
	"gitorbit/internal/domain"
)

func newWorkspaceCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Short:   "Manage workspaces",
		Aliases: []string{"ws"},
		GroupID: groupWorkspace,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List workspaces",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rows := [][]string{}
				for _, ws := range c.app.Workspaces() {
					mark := " "
					if ws.Selected {
						mark = "*"
					}
					rows = append(rows, []string{mark, ws.Name, fmt.Sprint(len(ws.Repositories)), ws.ID})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"", "NAME", "REPOSITORIES", "ID"}, rows))
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create a workspace and select it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ws, err := c.app.AddWorkspace(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created workspace %s\n", ws.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <name> <new-name>",
			Short: "Rename a workspace",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ws, err := c.workspace(args[0])
				if err != nil {
					return err
				}
				return c.app.RenameWorkspace(ws.ID, args[1])
			},
		},
		&cobra.Command{
			Use:     "delete <name>",
			Short:   "Delete a workspace",
			Aliases: []string{"rm"},
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ws, err := c.workspace(args[0])
				if err != nil {
					return err
				}
				return c.app.DeleteWorkspace(cmd.Context(), ws.ID)
			},
		},
		&cobra.Command{
			Use:   "select <name>",
			Short: "Select a workspace and refresh its repositories",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ws, err := c.workspace(args[0])
				if err != nil {
					return err
				}
				if err := c.app.SetSelectedWorkspace(cmd.Context(), ws.ID); err != nil {
					return err
				}
				return c.printStatus(cmd.Context(), cmd.OutOrStdout(), false)
			},
		},
	)
	return cmd
}

// workspace finds a workspace by name, falling back to its id
func (c *cli) workspace(nameOrID string) (app.Workspace, error) {
	if ws, ok := c.app.FindWorkspaceByName(nameOrID); ok {
		return ws, nil
	}
	if ws, ok := c.app.Workspace(nameOrID); ok {
		return ws, nil
	}
	return app.Workspace{}, fmt.Errorf("%w: %s", domain.ErrWorkspaceNotFound, nameOrID)
}
