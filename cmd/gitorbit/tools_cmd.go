package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"gitorbit/internal/config"
	"gitorbit/internal/domain"
	"gitorbit/internal/ui"
)

// page shows content in the pager on a terminal and prints it otherwise
func page(cmd *cobra.Command, content string) error {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return ui.ShowInPager(content)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), content)
	return err
}

func newDiffCmd(c *cli) *cobra.Command {
	var staged bool

	cmd := &cobra.Command{
		Use:     "diff <repository> [file]",
		Short:   "Show the unstaged changes of a repository",
		GroupID: groupUtility,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.findInSelected(args[0])
			if err != nil {
				return err
			}

			var params []string
			if staged {
				params = append(params, "--cached")
			}
			if c.app.DiffViewType() == config.DiffSplit {
				params = append(params, "--word-diff")
			}
			if len(args) == 2 {
				params = append(params, "--", args[1])
			}

			diff, err := r.Diff(cmd.Context(), params...)
			if err != nil {
				return err
			}
			if strings.TrimSpace(diff) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes")
				return nil
			}
			return page(cmd, diff)
		},
	}

	cmd.Flags().BoolVar(&staged, "staged", false, "show staged changes instead")
	return cmd
}

func newLogCmd(c *cli) *cobra.Command {
	var (
		count int
		ref   string
	)

	cmd := &cobra.Command{
		Use:     "log <repository>",
		Short:   "Show the recent commits of a repository",
		GroupID: groupUtility,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.findInSelected(args[0])
			if err != nil {
				return err
			}
			log, res := r.Log(cmd.Context(), domain.LogOptions{MaxCount: count, Ref: ref})
			if !res.OK() {
				return res.Err
			}
			return page(cmd, ui.FormatLog(r.Name(), log.All, c.app.Settings().HourFormat, time.Now()))
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 50, "number of commits")
	cmd.Flags().StringVar(&ref, "ref", "", "branch or commit to start from")
	return cmd
}

func newOpenCmd(c *cli) *cobra.Command {
	var editor string

	cmd := &cobra.Command{
		Use:     "open <repository> [file]",
		Short:   "Open a repository in the external git client, or a file in an editor",
		GroupID: groupUtility,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.findInSelected(args[0])
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return c.app.OpenInExternalGitClient(cmd.Context(), r.Path())
			}

			editors := c.app.Settings().ExternalEditors
			if len(editors) == 0 {
				return fmt.Errorf("no external editor configured")
			}
			chosen := editors[0]
			if editor != "" {
				found := false
				for _, e := range editors {
					if strings.EqualFold(e.Name, editor) {
						chosen, found = e, true
						break
					}
				}
				if !found {
					return fmt.Errorf("no external editor named %q", editor)
				}
			}
			return c.app.OpenWithEditor(cmd.Context(), chosen, r.Path(), args[1])
		},
	}

	cmd.Flags().StringVarP(&editor, "editor", "e", "", "name of the external editor (default the first one)")
	return cmd
}
