package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitorbit/internal/app"
	"gitorbit/internal/config"
	"gitorbit/internal/discovery"
	"gitorbit/internal/eventbus"
	"gitorbit/internal/git"
	"gitorbit/internal/logging"
	"gitorbit/internal/orchestrator"
	"gitorbit/internal/persistence"
	"gitorbit/internal/scheduler"
	"gitorbit/internal/shell"
	"gitorbit/internal/storage"
	"gitorbit/internal/ui"
)

// Command group IDs for organizing help output
const (
	groupWorkspace = "workspace"
	groupGit       = "git"
	groupUtility   = "utility"
)

// cli holds the flags and the services shared by every command
type cli struct {
	configPath string
	logLevel   string

	cfg      *config.Config
	logger   *zap.Logger
	bus      eventbus.EventBus
	registry *prometheus.Registry
	app      *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "gitorbit",
		Short: "Run git operations across many repositories at once",
		Long: `gitorbit keeps workspaces of git repositories and runs git operations
on the repositories of the selected workspace concurrently.

Without a subcommand it opens the interactive UI when attached to a terminal
and prints the workspace status otherwise.`,
		SilenceUsage:               true,
		SilenceErrors:              true,
		SuggestionsMinimumDistance: 2,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "help" {
				return nil
			}
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return c.runTUI(cmd.Context())
			}
			return c.printStatus(cmd.Context(), cmd.OutOrStdout(), true)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.NewConfigService().Path()+")")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")

	root.AddGroup(
		&cobra.Group{ID: groupWorkspace, Title: "Workspace Commands:"},
		&cobra.Group{ID: groupGit, Title: "Git Commands:"},
		&cobra.Group{ID: groupUtility, Title: "Utility Commands:"},
	)

	root.AddCommand(
		newStatusCmd(c),
		newWorkspaceCmd(c),
		newRepoCmd(c),
		newRunCmd(c),
		newCommandCmd(c),
		newFetchCmd(c),
		newDiffCmd(c),
		newLogCmd(c),
		newOpenCmd(c),
		newSettingsCmd(c),
		newDaemonCmd(c),
	)
	root.AddCommand(newGitCmds(c)...)
	return root
}

// setup loads the configuration and wires the services
func (c *cli) setup() error {
	svc := config.NewConfigService()
	if c.configPath != "" {
		svc = config.NewConfigServiceAt(c.configPath)
	}

	cfg, err := svc.Load()
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = logger
	c.bus = eventbus.New(logger)

	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := persistence.NewStore(storage.NewOSFileSystem(), cfg.AppDataPath, logger)
	c.app = app.New(git.NewCLI(cfg.GitBinary, logger), shell.NewRunner(logger), store,
		app.WithBus(c.bus),
		app.WithLogger(logger),
		app.WithMetrics(orchestrator.NewMetrics(c.registry)))
	c.app.Load()

	logger.Debug("gitorbit started", zap.String("config", svc.Path()), zap.String("appData", store.Path()))
	return nil
}

// close reports a pending global error and releases the services
func (c *cli) close(stderr io.Writer) {
	if c.app == nil {
		return
	}
	if ge := c.app.GlobalError(); ge.Message != "" {
		fmt.Fprintln(stderr, "gitorbit:", ge.Message)
	}
	c.bus.Close()
	_ = c.logger.Sync()
}

func (c *cli) runTUI(ctx context.Context) error {
	// the UI refreshes the selected workspace in the background
	go c.app.Initialize(ctx)

	fetcher := scheduler.New(c.app, scheduler.WithBus(c.bus), scheduler.WithLogger(c.logger))
	fetcher.Start(ctx)
	defer fetcher.Stop()

	model := ui.NewModel(ctx, c.app, c.bus, c.cfg.UISettings)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// scanner returns a repository scanner publishing on the shared bus
func (c *cli) scanner(depth int) *discovery.Scanner {
	return discovery.NewScanner(
		discovery.WithBus(c.bus),
		discovery.WithLogger(c.logger),
		discovery.WithMaxDepth(depth))
}
