package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"gitorbit/internal/discovery"
	"gitorbit/internal/repo"
	"gitorbit/internal/util"
)

func repoName(r *repo.Repository) string { return r.Name() }

func newRepoCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "repo",
		Short:   "Manage the repositories of the selected workspace",
		Aliases: []string{"repos"},
		GroupID: groupWorkspace,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <path>...",
			Short: "Add the repositories containing the given paths",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ws, ok := c.app.SelectedWorkspace()
				if !ok {
					return errors.New("no workspace selected")
				}
				paths := lo.Map(args, func(p string, _ int) string {
					if abs, err := filepath.Abs(p); err == nil {
						return abs
					}
					return p
				})

				added, err := c.app.AddRepositoryPaths(cmd.Context(), ws.ID, paths)
				for _, r := range added {
					fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", r.Name(), r.Path())
				}
				return err
			},
		},
		&cobra.Command{
			Use:     "remove <name|path>",
			Short:   "Remove a repository from the selected workspace",
			Aliases: []string{"rm"},
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := c.findInSelected(args[0])
				if err != nil {
					return err
				}
				return c.app.RemoveRepositoryFromSelectedWorkspace(r.Path())
			},
		},
		newRepoScanCmd(c),
		&cobra.Command{
			Use:   "find <pattern>",
			Short: "Fuzzy find repositories across all workspaces",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				matches := util.FuzzyFilter(c.app.AllRepositories(), args[0], repoName)
				rows := lo.Map(matches, func(r *repo.Repository, _ int) []string {
					return []string{r.Name(), r.Path()}
				})
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"NAME", "PATH"}, rows))
				return nil
			},
		},
	)
	return cmd
}

func newRepoScanCmd(c *cli) *cobra.Command {
	var (
		depth int
		add   bool
	)

	cmd := &cobra.Command{
		Use:   "scan [dir]...",
		Short: "Find git repositories below directories",
		Long: `Scan directories for git repositories. Without arguments the base_dir of
the configuration is scanned. With --add the repositories found are added to
the selected workspace.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				roots = []string{c.cfg.BaseDir}
			}

			found, scanErr := c.scanner(depth).Scan(cmd.Context(), roots...)
			rows := lo.Map(found, func(f discovery.Found, _ int) []string { return []string{f.Name, f.Path} })
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"NAME", "PATH"}, rows))
			fmt.Fprintf(cmd.OutOrStdout(), "%d repositories found\n", len(found))

			if add && len(found) > 0 {
				ws, ok := c.app.SelectedWorkspace()
				if !ok {
					return errors.New("no workspace selected")
				}
				paths := lo.Map(found, func(f discovery.Found, _ int) string { return f.Path })
				added, err := c.app.AddRepositoryPaths(cmd.Context(), ws.ID, paths)
				fmt.Fprintf(cmd.OutOrStdout(), "%d added to %s\n", len(added), ws.Name)
				return errors.Join(scanErr, err)
			}
			return scanErr
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", discovery.DefaultMaxDepth, "directory levels to descend")
	cmd.Flags().BoolVarP(&add, "add", "a", false, "add the repositories found to the selected workspace")
	return cmd
}

// findInSelected resolves a repository of the selected workspace by name or path
func (c *cli) findInSelected(nameOrPath string) (*repo.Repository, error) {
	ws, ok := c.app.SelectedWorkspace()
	if !ok {
		return nil, errors.New("no workspace selected")
	}
	if r := ws.Repository(nameOrPath); r != nil {
		return r, nil
	}
	if abs, err := filepath.Abs(nameOrPath); err == nil {
		if r := ws.Repository(abs); r != nil {
			return r, nil
		}
	}
	if r, ok := lo.Find(ws.Repositories, func(r *repo.Repository) bool { return r.Name() == nameOrPath }); ok {
		return r, nil
	}
	return nil, fmt.Errorf("no repository %q in workspace %s", nameOrPath, ws.Name)
}
