package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"gitorbit/internal/util"
)

func newStatusCmd(c *cli) *cobra.Command {
	var (
		noRefresh bool
		filter    string
	)

	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show the repositories of the selected workspace",
		Aliases: []string{"st"},
		GroupID: groupGit,
		Args:    cobra.NoArgs,
		Example: `  gitorbit status               # Refresh and list the selected workspace
  gitorbit status -f api        # Only repositories fuzzily matching "api"
  gitorbit status --no-refresh  # List without running git`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filter != "" {
				return c.printFiltered(cmd.Context(), cmd.OutOrStdout(), filter, !noRefresh)
			}
			return c.printStatus(cmd.Context(), cmd.OutOrStdout(), !noRefresh)
		},
	}

	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "do not refresh before listing")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "fuzzy filter on repository names")
	return cmd
}

func (c *cli) printStatus(ctx context.Context, w io.Writer, refresh bool) error {
	return c.printFiltered(ctx, w, "", refresh)
}

func (c *cli) printFiltered(ctx context.Context, w io.Writer, filter string, refresh bool) error {
	ws, ok := c.app.SelectedWorkspace()
	if !ok {
		return fmt.Errorf("no workspace selected")
	}
	if refresh {
		if _, err := c.app.RefreshSelected(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "Workspace: %s\n\n", ws.Name)
	if len(ws.Repositories) == 0 {
		fmt.Fprintln(w, "No repositories. Use 'gitorbit repo add <path>' or 'gitorbit repo scan <dir>'.")
		return nil
	}

	repos := util.FuzzyFilter(ws.Repositories, filter, repoName)
	fmt.Fprint(w, renderTable(statusHeaders, statusRows(repos, c.app.IsChecked, time.Now())))
	return nil
}
