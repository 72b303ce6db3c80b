package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aixgo-dev/gremlin/pkg/client"
	"github.com/aixgo-dev/gremlin/pkg/observability"
)

func newMetricsCmd(opts *rootOpts) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Serve Prometheus metrics and health checks for the server connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			observability.InitMetrics()

			graph, closeGraph, err := opts.openGraph(cmd, client.WithMetrics())
			if err != nil {
				return err
			}
			defer closeGraph()

			checker := observability.NewHealthChecker(Version)
			checker.RegisterCheck(observability.ServerCheck(graph.Client().Ping))
			srv := observability.NewServer(addr, checker)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "serving metrics on %s\n", addr)

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("shutdown metrics server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9090", "listen address")
	return cmd
}
