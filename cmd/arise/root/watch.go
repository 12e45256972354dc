package root

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crach-ad/crachToDo/internal/engine"
	"github.com/crach-ad/crachToDo/internal/ui"
)

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep sweeping recurring tasks on an interval",
		Long: `Run the recurrence sweeper in the foreground until interrupted.

With --metrics-addr (or metrics.addr in config) Prometheus metrics are
served on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("interval") {
				a.cfg.Sweep.Interval = interval
			}
			if cmd.Flags().Changed("metrics-addr") {
				a.cfg.Metrics.Addr = metricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())

			svc, cleanup, err := a.openService(ctx, reg)
			if err != nil {
				return err
			}
			defer cleanup()

			sweeper, err := engine.NewSweeper(svc, a.cfg.UserID, a.cfg.Sweep.Interval)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s sweeping every %s as %s (ctrl+c to stop)\n",
				ui.IconLoop, a.cfg.Sweep.Interval, a.cfg.UserID)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return sweeper.Run(ctx, func(res *engine.SweepResult) {
					for _, t := range res.Spawned {
						fmt.Fprintf(out, "%s %s %s\n", ui.IconLoop, ui.Muted.Render(shortID(t.ID)), t.Name)
					}
				})
			})
			if a.cfg.Metrics.Addr != "" {
				srv := &http.Server{
					Addr:              a.cfg.Metrics.Addr,
					Handler:           metricsMux(reg),
					ReadHeaderTimeout: 5 * time.Second,
				}
				g.Go(func() error {
					a.log.Info("metrics listening", zap.String("addr", srv.Addr))
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

	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "Sweep interval (overrides sweep.interval)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
