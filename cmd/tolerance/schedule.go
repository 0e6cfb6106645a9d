package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/tolerance-rules/internal/scheduler"
	"github.com/nhle/tolerance-rules/internal/ui/dashboard"
)

func (e *env) scheduler(orgs []string) (*scheduler.Scheduler, error) {
	targets, err := e.organizations(orgs)
	if err != nil {
		return nil, err
	}
	return scheduler.New(e.evaluator(), targets, scheduler.Options{
		Interval:   time.Duration(e.cfg.Scheduler.IntervalSec) * time.Second,
		Timeout:    time.Duration(e.cfg.Scheduler.TimeoutSec) * time.Second,
		RunOnStart: e.cfg.Scheduler.RunOnStart,
	}, e.logger), nil
}

func scheduleCmd(a *app) *cobra.Command {
	var orgs []string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Evaluate organizations periodically",
		Long: `Run the scheduler in the foreground: every organization is evaluated
each scheduler.interval_sec seconds until interrupted. Prometheus
metrics are served on metrics.addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			sched, err := e.scheduler(orgs)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := serveMetrics(e.cfg.Metrics.Addr, e.logger)
			defer shutdown(srv, e.logger)

			sched.Start()
			defer sched.Stop()

			for {
				select {
				case <-ctx.Done():
					e.logger.Info("shutting down")
					return nil
				case <-sched.Results():
					// The scheduler logs each run; draining keeps the
					// channel from filling up.
				}
			}
		},
	}

	cmd.Flags().StringSliceVar(&orgs, "org", nil, "Organization id (repeatable); defaults to scheduler.organizations")
	return cmd
}

func watchCmd(a *app) *cobra.Command {
	var orgs []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the scheduler with a live terminal dashboard",
		Long: `Run the scheduler and show each organization's state, last result and
active exceptions. Logs only go to log.file while the dashboard is up.

Keys: j/k move, enter runs the selected organization, r runs all, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.setup(nil)
			if err != nil {
				return err
			}
			defer e.Close()

			sched, err := e.scheduler(orgs)
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			p := tea.NewProgram(
				dashboard.New(sched, e.store),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringSliceVar(&orgs, "org", nil, "Organization id (repeatable); defaults to scheduler.organizations")
	return cmd
}

// serveMetrics exposes the default Prometheus registry. An empty addr
// disables the endpoint.
func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

func shutdown(srv *http.Server, logger *zap.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("stopping metrics server", zap.Error(err))
	}
}
