package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitorbit/internal/domain"
	"gitorbit/internal/scheduler"
)

func newDaemonCmd(c *cli) *cobra.Command {
	var (
		metricsAddr string
		poll        time.Duration
	)

	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Fetch every repository in the background until interrupted",
		GroupID: groupUtility,
		Args:    cobra.NoArgs,
		Long: `Run the background fetcher without the interactive UI. Every repository of
every workspace is fetched once the configured fetch interval has passed.
With --metrics-addr Prometheus metrics are served on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !c.app.Settings().PeriodicallyFetchEnabled {
				fmt.Fprintln(cmd.ErrOrStderr(), "Periodic fetch is disabled; enable it with 'gitorbit settings set fetch true'")
			}

			c.bus.Subscribe(domain.EventBatchCompleted, func(e domain.DomainEvent) {
				if done, ok := e.(domain.BatchCompletedEvent); ok && done.WorkspaceID == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s fetched %d repositories, %d failed\n",
						time.Now().Format(time.TimeOnly), done.Size, done.Failed)
				}
			})

			fetcher := scheduler.New(c.app,
				scheduler.WithBus(c.bus),
				scheduler.WithLogger(c.logger),
				scheduler.WithPollInterval(poll))

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				fetcher.Start(ctx)
				<-ctx.Done()
				fetcher.Stop()
				fetcher.Wait()
				return nil
			})

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           metricsHandler(c),
					ReadHeaderTimeout: 5 * time.Second,
				}
				g.Go(func() error {
					c.logger.Info("serving metrics", zap.String("addr", metricsAddr))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090")
	cmd.Flags().DurationVar(&poll, "poll", scheduler.DefaultPollInterval, "how often to check whether a fetch is due")
	return cmd
}

func metricsHandler(c *cli) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return mux
}
