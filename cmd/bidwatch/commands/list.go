package commands

import (
	"encoding/json"
	"os"
	"path/filepath"

	"bidwatch/lib/scrapers/epoint"
	"bidwatch/lib/serviceutil"
	"bidwatch/services/monitor"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

func readArtifact[T any](dir, name string) []T {
	contents, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		serviceutil.Fatal("failed to read artifact", err)
	}
	var items []T
	err = json.Unmarshal(contents, &items)
	if err != nil {
		serviceutil.Fatal("failed to decode artifact", err)
	}
	return items
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints the stored award records as a table.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		dir := cfg.Repo.Dir
		notices := readArtifact[epoint.Notice](dir, cfg.Monitor.Awards.RawFile)
		records := readArtifact[monitor.Record](dir, cfg.Monitor.Awards.ParsedFile)

		byID := make(map[string]epoint.Notice, len(notices))
		for _, n := range notices {
			byID[n.InfoID] = n
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"日期", "标题", "中标人", "中标价"})
		for _, rec := range records {
			n := byID[rec.InfoID]
			t.AppendRow(table.Row{
				n.InfoDate,
				n.Title,
				rec.Data["中标人"],
				monitor.FormatPrice(rec.Data["中标价"]),
			})
		}
		t.Render()
	},
}
