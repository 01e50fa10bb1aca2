package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/mise"
	"github.com/aretw0/mise/internal/cli"
	"github.com/aretw0/mise/internal/config"
	"github.com/aretw0/mise/pkg/persistence/middleware"
	"github.com/aretw0/mise/pkg/recipebook"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "mise",
	Short:         "mise is a step-by-step cooking timer",
	Long:          `mise keeps a book of recipes and walks you through them one timed step at a time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./"+config.DefaultFile+" when present)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("store", "", "Recipe store: memory, file, sqlite or redis")
	flags.String("store-path", "", "Path of the file or sqlite store")
	flags.StringSlice("seed", nil, "Recipe book files (yaml or json) imported at startup")
}

// app bundles what every command needs once the config is resolved.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	backend *cli.Backend
	kitchen *mise.Kitchen
}

// loadConfig reads the config and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	overrides := []struct {
		flag   string
		target *string
	}{
		{"log-level", &cfg.Log.Level},
		{"log-format", &cfg.Log.Format},
		{"store", &cfg.Store.Driver},
		{"store-path", &cfg.Store.Path},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.target, _ = cmd.Flags().GetString(o.flag)
		}
	}
	return cfg, cfg.Validate()
}

// extras are the per-command additions to the default wiring.
type extras struct {
	store   []middleware.Middleware
	kitchen []mise.Option
}

// setup opens the store and builds a Kitchen over it.
// The caller owns the returned app and must close it.
func setup(ctx context.Context, cmd *cobra.Command, ex extras) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	backend, err := cli.OpenBackend(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	kitchenOpts := []mise.Option{
		mise.WithLogger(logger),
		mise.WithTickInterval(cfg.Timer.Interval),
	}
	if backend.Locker != nil {
		kitchenOpts = append(kitchenOpts, mise.WithLocker(backend.Locker))
	}
	store := middleware.Chain(backend.Store, append([]middleware.Middleware{middleware.NewLoggingMiddleware(logger)}, ex.store...)...)
	kitchen := mise.New(store, append(kitchenOpts, ex.kitchen...)...)

	a := &app{cfg: cfg, logger: logger, backend: backend, kitchen: kitchen}

	seeds, _ := cmd.Flags().GetStringSlice("seed")
	for _, path := range seeds {
		list, err := recipebook.Load(path)
		if err != nil {
			a.Close()
			return nil, err
		}
		n, err := kitchen.ImportRecipes(ctx, list)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("seed %s: %w", path, err)
		}
		logger.Debug("Recipes seeded", "path", path, "count", n)
	}
	return a, nil
}

func (a *app) Close() {
	a.kitchen.Close()
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("Failed to close store", "err", err)
	}
}
