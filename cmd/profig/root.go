package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/profig"
)

var (
	configFiles []string
	envPrefix   string
	verbose     bool
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "profig",
	Short: "Inspect layered configuration profiles",
	Long: `Profig reads profile-structured configuration files (TOML, YAML, JSON),
resolves named profiles against the defaults, and prints or watches the
effective options. Later files win; environment variables win over files.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "configuration file to load (repeatable, later files win)")
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", "", "overlay environment variables carrying this prefix")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(getDumpCmd())
	rootCmd.AddCommand(getGetCmd())
	rootCmd.AddCommand(getWatchCmd())
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// Logs go to stderr so command output stays pipeable.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// loadRegistry builds a registry from the global flags and loads it.
func loadRegistry(ctx context.Context, watch bool) (*profig.Registry, error) {
	opts := []profig.RegistryOption{profig.WithLogger(slog.Default())}
	for _, file := range configFiles {
		opts = append(opts, profig.WithFile(file))
	}
	if envPrefix != "" {
		opts = append(opts, profig.WithEnvPrefix(envPrefix))
	}
	if watch {
		opts = append(opts, profig.WithWatcher(true))
		if pollInterval > 0 {
			opts = append(opts, profig.WithPollInterval(pollInterval))
		}
	}

	reg := profig.NewRegistry(opts...)
	if err := reg.Load(ctx); err != nil {
		_ = reg.Close()
		return nil, err
	}
	return reg, nil
}
