package commands

import (
	"context"

	"bidwatch/lib/telemetry"
	"bidwatch/services/publisher"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Runs cycles on the configured schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		svc, pub := buildServices(cfg)
		telemetry.InstrumentPerfStats(cmd.Context())

		daemon := publisher.NewDaemon(
			cfg.Schedule,
			clockwork.NewRealClock(),
			func(ctx context.Context) error {
				return runOnce(ctx, svc, pub)
			},
		)
		daemon.Run(cmd.Context())
	},
}
