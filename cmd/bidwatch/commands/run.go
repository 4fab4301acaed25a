package commands

import (
	"context"
	"log/slog"

	"bidwatch/lib/serviceutil"
	"bidwatch/services/monitor"
	"bidwatch/services/publisher"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

// runOnce is one complete cycle: bring the working copy up to date, let
// the producer rewrite the artifacts, then publish whatever changed. A
// producer failure aborts the cycle before anything is committed.
func runOnce(ctx context.Context, svc *monitor.Service, pub *publisher.Publisher) error {
	err := pub.Acquire(ctx)
	if err != nil {
		return err
	}

	changed, err := svc.Sync(ctx)
	if err != nil {
		return err
	}

	result, err := pub.Publish(ctx, publisher.CommitMessage(pub.Files()))
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "run finished", "new_notices", changed, "result", result.String())
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Performs a single check, produce and publish cycle.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		svc, pub := buildServices(cfg)

		err := runOnce(cmd.Context(), svc, pub)
		if err != nil {
			serviceutil.Fatal("run failed", err)
		}
	},
}
