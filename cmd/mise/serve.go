package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/mise"
	"github.com/aretw0/mise/internal/cli"
	httpAdapter "github.com/aretw0/mise/pkg/adapters/http"
	"github.com/aretw0/mise/pkg/adapters/process"
	"github.com/aretw0/mise/pkg/observability"
	"github.com/aretw0/mise/pkg/persistence/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the kitchen as a JSON API over HTTP, with live session events on /events
and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		a, err := setup(ctx, cmd, extras{
			store:   []middleware.Middleware{middleware.NewMetricsMiddleware(middleware.NewStoreMetrics(reg))},
			kitchen: []mise.Option{mise.WithMetrics(observability.NewMetrics(reg))},
		})
		if err != nil {
			return err
		}
		defer a.Close()

		if cmd.Flags().Changed("addr") {
			a.cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}

		hooks := process.NewRunner(process.WithHooks(a.cfg.Hooks...), process.WithLogger(a.logger))
		defer hooks.Wait()
		unsubscribe := a.kitchen.Subscribe(hooks.Listener(ctx))
		defer unsubscribe()

		serverOpts := []httpAdapter.Option{httpAdapter.WithLogger(a.logger)}
		if a.cfg.HTTP.Metrics {
			serverOpts = append(serverOpts, httpAdapter.WithRoutes(func(r chi.Router) {
				r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			}))
		}
		handler := httpAdapter.NewServer(a.kitchen, serverOpts...)
		defer handler.Close()

		srv := &http.Server{
			Addr:              a.cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			a.logger.Info("mise server listening", "addr", srv.Addr, "store", a.cfg.Store.Driver, "hooks", len(hooks.Hooks()))
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			a.logger.Info("Shutting down", "signal", ctx.Signal())

			// SSE streams never finish on their own.
			handler.Close()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("Graceful shutdown did not complete", "timeout", a.cfg.HTTP.ShutdownTimeout, "err", err)
				return srv.Close()
			}
			a.logger.Info("mise server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides http.addr)")
}
