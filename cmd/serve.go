package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nichescout/internal/api"
)

// newServeCmd creates the 'serve' subcommand: the HTTP status surface,
// optionally running discovery passes on an interval.
func newServeCmd() *cobra.Command {
	var (
		port     int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve results, throttle state, and metrics over HTTP",
		Long: `Starts an HTTP server exposing run results, the persisted product
leaderboard, per-domain throttle state, and Prometheus metrics. With
--interval set, a discovery pass runs in the background on that cadence
and its outcome is published to /v1/results.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if port == 0 {
				port = a.cfg.Server.Port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(a.store, a.registry, a.logger)
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           server.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			if interval > 0 {
				go runLoop(ctx, a, server, interval)
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("http server started", zap.Int("port", port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info("shutdown initiated")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (defaults to server.port)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "run discovery on this cadence (0 disables)")
	return cmd
}

// runLoop executes discovery passes until the context is cancelled. The
// first pass starts immediately; failures wait out the interval like
// successes do.
func runLoop(ctx context.Context, a *app, server *api.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		outcome, err := a.finder.Run(ctx, nil)
		if err != nil {
			a.logger.Error("scheduled discovery run failed", zap.Error(err))
		} else {
			server.SetOutcome(outcome)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
