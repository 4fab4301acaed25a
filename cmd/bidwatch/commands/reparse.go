package commands

import (
	"log/slog"

	"bidwatch/lib/serviceutil"
	"bidwatch/services/publisher"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reparseCmd)
}

var reparseCmd = &cobra.Command{
	Use:   "reparse",
	Short: "Rebuilds the parsed artifacts from the raw artifacts and publishes the result.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()
		svc, pub := buildServices(cfg)

		err := pub.Acquire(ctx)
		if err != nil {
			serviceutil.Fatal("failed to acquire working copy", err)
		}

		if cfg.Monitor.Awards.Enabled {
			err := svc.ReparseAwards(ctx)
			if err != nil {
				serviceutil.Fatal("failed to reparse awards", err)
			}
		}
		if cfg.Monitor.Candidates.Enabled {
			err := svc.ReparseCandidates(ctx)
			if err != nil {
				serviceutil.Fatal("failed to reparse candidates", err)
			}
		}

		result, err := pub.Publish(ctx, publisher.CommitMessage(pub.Files()))
		if err != nil {
			serviceutil.Fatal("failed to publish reparsed artifacts", err)
		}
		slog.InfoContext(ctx, "reparse finished", "result", result.String())
	},
}
