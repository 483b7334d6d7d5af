package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"gitorbit/internal/app"
	"gitorbit/internal/domain"
	"gitorbit/internal/orchestrator"
	"gitorbit/internal/repo"
	"gitorbit/internal/util"
)

// targets resolves --repo names in the selected workspace; no names means all of them
func (c *cli) targets(names []string) ([]app.RunOption, error) {
	if len(names) == 0 {
		ws, ok := c.app.SelectedWorkspace()
		if !ok {
			return nil, domain.ErrNoWorkspaceSelected
		}
		return []app.RunOption{app.OnRepositories(ws.Repositories...)}, nil
	}
	repos := make([]*repo.Repository, 0, len(names))
	for _, name := range names {
		r, err := c.findInSelected(name)
		if err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return []app.RunOption{app.OnRepositories(repos...)}, nil
}

// runOperation runs op on the targets and prints one line per repository
func (c *cli) runOperation(cmd *cobra.Command, operation string, names []string, op orchestrator.Operation) error {
	opts, err := c.targets(names)
	if err != nil {
		return err
	}
	report, err := c.app.Run(cmd.Context(), op, opts...)
	if err != nil {
		return err
	}
	if len(report.Outcomes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No repositories to run on")
		return nil
	}
	return printReport(cmd.OutOrStdout(), c.app, operation, report)
}

func newRunCmd(c *cli) *cobra.Command {
	var (
		names  []string
		recent bool
		forget string
	)

	cmd := &cobra.Command{
		Use:     "run <git command>",
		Short:   "Run a git command line in every repository",
		GroupID: groupGit,
		Example: `  gitorbit run "stash list"
  gitorbit run -r api -r web git log -1 --oneline
  gitorbit run --recent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case recent:
				for _, line := range c.app.RecentCommands() {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			case forget != "":
				c.app.RemoveRecentCommand(forget)
				return nil
			case len(args) == 0:
				return fmt.Errorf("no git command given")
			}

			line := strings.Join(args, " ")
			gitArgs, err := repo.SplitCommand(line)
			if err != nil {
				return err
			}
			c.app.AddRecentCommand(line)
			return c.runOperation(cmd, "git "+strings.Join(gitArgs, " "), names, func(ctx context.Context, r *repo.Repository) repo.Result {
				return r.RunRaw(ctx, line)
			})
		},
	}

	cmd.Flags().StringArrayVarP(&names, "repo", "r", nil, "run only in this repository (repeatable)")
	cmd.Flags().BoolVar(&recent, "recent", false, "list recently run commands")
	cmd.Flags().StringVar(&forget, "forget", "", "remove a command from the recent list")
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newFetchCmd(c *cli) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "fetch",
		Short:   "Fetch the repositories of the selected workspace",
		GroupID: groupGit,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all {
				return c.runOperation(cmd, "fetch", nil, func(ctx context.Context, r *repo.Repository) repo.Result {
					return r.Fetch(ctx)
				})
			}

			report := c.app.FetchRepositories(cmd.Context(), c.app.AllRepositories())
			return printReport(cmd.OutOrStdout(), c.app, "fetch", report)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "fetch the repositories of every workspace")
	return cmd
}

func newGitCmds(c *cli) []*cobra.Command {
	var pullNames, pushNames, checkoutNames []string
	var create bool

	pull := &cobra.Command{
		Use:     "pull",
		Short:   "Pull the repositories of the selected workspace",
		GroupID: groupGit,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOperation(cmd, "pull", pullNames, func(ctx context.Context, r *repo.Repository) repo.Result {
				return r.Pull(ctx)
			})
		},
	}
	pull.Flags().StringArrayVarP(&pullNames, "repo", "r", nil, "pull only this repository (repeatable)")

	push := &cobra.Command{
		Use:     "push",
		Short:   "Push the repositories of the selected workspace, setting an upstream when missing",
		GroupID: groupGit,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOperation(cmd, "push", pushNames, func(ctx context.Context, r *repo.Repository) repo.Result {
				return r.Push(ctx)
			})
		},
	}
	push.Flags().StringArrayVarP(&pushNames, "repo", "r", nil, "push only this repository (repeatable)")

	checkout := &cobra.Command{
		Use:     "checkout [branch]",
		Short:   "Check out a branch in the repositories of the selected workspace",
		Long:    "Check out a branch in the repositories of the selected workspace. Without a branch the recently used and shared branch names are listed.",
		GroupID: groupGit,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return c.listBranches(cmd)
			}

			branch := args[0]
			return c.runOperation(cmd, "checkout "+branch, checkoutNames, func(ctx context.Context, r *repo.Repository) repo.Result {
				var res repo.Result
				if create {
					res = r.CreateBranch(ctx, branch, true)
				} else {
					res = r.CheckoutBranch(ctx, branch)
				}
				if res.OK() {
					c.app.AddRecentBranch(r.Path(), branch)
				}
				return res
			})
		},
	}
	checkout.Flags().StringArrayVarP(&checkoutNames, "repo", "r", nil, "check out only in this repository (repeatable)")
	checkout.Flags().BoolVarP(&create, "create", "b", false, "create the branch first")

	return []*cobra.Command{pull, push, checkout}
}

func (c *cli) listBranches(cmd *cobra.Command) error {
	if _, err := c.app.RefreshSelected(cmd.Context()); err != nil {
		return err
	}
	repos := c.app.CheckedRepositories()

	recent := lo.Uniq(lo.FlatMap(repos, func(r *repo.Repository, _ int) []string {
		return c.app.RecentBranches(r.Path())
	}))
	if len(recent) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Recent:")
		for _, b := range recent {
			fmt.Fprintln(cmd.OutOrStdout(), "  "+b)
		}
	}

	all := util.DistinctBranchNames(lo.Map(repos, func(r *repo.Repository, _ int) []domain.Branch {
		return r.Snapshot().Branches
	}), true)
	fmt.Fprintln(cmd.OutOrStdout(), "Branches:")
	for _, b := range all {
		fmt.Fprintln(cmd.OutOrStdout(), "  "+b)
	}
	return nil
}
