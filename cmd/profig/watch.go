package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/profig/notify"
)

var pollInterval time.Duration

func getWatchCmd() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch configuration files and stream profile changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg, err := loadRegistry(ctx, true)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close() }()

			reg.Subscribe(func(change notify.Change) {
				switch change.Type {
				case notify.ChangeReload:
					cmd.Printf("%s reloaded\n", change.Profile)
				case notify.ChangeRemove:
					cmd.Printf("%s %s: removed (was %v)\n", change.Profile, change.Path, change.OldValue)
				default:
					cmd.Printf("%s %s: %v -> %v\n", change.Profile, change.Path, change.OldValue, change.NewValue)
				}
			})

			slog.Info("watching for configuration changes",
				"files", configFiles, "profiles", reg.Names())
			<-ctx.Done()
			return nil
		},
	}
	watchCmd.Flags().DurationVar(&pollInterval, "poll-interval", 500*time.Millisecond, "how often to poll watched files")
	return watchCmd
}
