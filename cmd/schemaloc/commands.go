package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/schema-locations/internal/api"
	"github.com/nerrad567/schema-locations/internal/app"
	"github.com/nerrad567/schema-locations/internal/infrastructure/config"
	"github.com/nerrad567/schema-locations/internal/infrastructure/logging"
	"github.com/nerrad567/schema-locations/internal/locations"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnv names the environment variable that overrides the config path.
const configEnv = config.EnvPrefix + "CONFIG"

// newRootCommand builds the schemaloc command tree.
func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "schemaloc",
		Short: "Database schema migration runner",
		Long: `schemaloc applies versioned SQL migration scripts from an ordered list of
locations (classpath:, filesystem:). Configuration units can declare
additional locations, which are appended to the configured list at startup.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("config file (default $%s or %s)", configEnv, defaultConfigPath))

	resolve := func() string { return getConfigPath(configPath) }

	root.AddCommand(
		newMigrateCommand(resolve),
		newLocationsCommand(resolve),
		newStatusCommand(resolve),
		newDownCommand(resolve),
		newServeCommand(resolve),
		newVersionCommand(),
	)

	return root
}

// getConfigPath returns the configuration file path: the flag, then
// SCHEMALOC_CONFIG, then the default.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// withRuntime loads configuration, bootstraps a Runtime, runs fn and closes
// the Runtime.
func withRuntime(ctx context.Context, configPath string, fn func(rt *app.Runtime, log *logging.Logger) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("configuration loaded", "path", configPath)

	rt, err := app.Bootstrap(ctx, cfg, log, app.Options{Version: version})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			log.Error("error during shutdown", "error", closeErr)
		}
	}()

	return fn(rt, log)
}

func newMigrateCommand(configPath func() string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), configPath(), func(rt *app.Runtime, _ *logging.Logger) error {
				run, err := rt.Migrate(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), run)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "run %s: applied %d migration(s) in %s\n", run.ID, len(run.Applied), run.Duration)
				for _, m := range run.Applied {
					fmt.Fprintf(out, "  %s  %s/%s\n", m.Version, m.Location, m.Script)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run as JSON")
	return cmd
}

func newLocationsCommand(configPath func() string) *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Show the effective migration locations",
		Long: `Show the migration locations after additional locations declared by
configuration units have been merged in. With --trace, print which
configuration source supplies the value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), configPath(), func(rt *app.Runtime, _ *logging.Logger) error {
				if trace {
					return writeJSON(cmd.OutOrStdout(), rt.Store().Trace(locations.PropertyKey))
				}
				if rt.Settings() == nil {
					return app.ErrMigrationsDisabled
				}
				for _, loc := range rt.Locations() {
					fmt.Fprintln(cmd.OutOrStdout(), loc)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "print the configuration trace as JSON")
	return cmd
}

func newStatusCommand(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), configPath(), func(rt *app.Runtime, _ *logging.Logger) error {
				applied, pending, err := rt.Status(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "applied: %d\n", len(applied))
				for _, r := range applied {
					fmt.Fprintf(out, "  %s  %s/%s  %s\n", r.Version, r.Location, r.Script, r.AppliedAt.Format("2006-01-02 15:04:05"))
				}
				fmt.Fprintf(out, "pending: %d\n", len(pending))
				for _, m := range pending {
					fmt.Fprintf(out, "  %s  %s/%s\n", m.Version, m.Location, m.Script)
				}
				return nil
			})
		},
	}
}

func newDownCommand(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), configPath(), func(rt *app.Runtime, _ *logging.Logger) error {
				m, err := rt.Rollback(cmd.Context())
				if err != nil {
					return err
				}
				if m == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s  %s/%s\n", m.Version, m.Location, m.Script)
				return nil
			})
		},
	}
}

func newServeCommand(configPath func() string) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP status API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withRuntime(ctx, configPath(), func(rt *app.Runtime, log *logging.Logger) error {
				if migrate && rt.Settings() != nil {
					if _, err := rt.Migrate(ctx); err != nil {
						return err
					}
				}
				return serve(ctx, rt, log)
			})
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

// serve runs the status API until ctx is cancelled.
func serve(ctx context.Context, rt *app.Runtime, log *logging.Logger) error {
	checks := make(map[string]api.HealthChecker)
	for name, check := range rt.HealthChecks() {
		checks[name] = check
	}

	deps := api.Deps{
		Config:     rt.Config().API,
		Logger:     log,
		Store:      rt.Store(),
		Migrations: rt,
		Audit:      rt.Audit(),
		DB:         rt.DB(),
		Checks:     checks,
		Version:    version,
	}
	if client := rt.MQTT(); client != nil {
		deps.MQTT = client
	}

	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal", "address", srv.Addr())
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "schemaloc %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
