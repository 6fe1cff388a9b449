package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"threadscraper/pkg/aggregate"
	"threadscraper/pkg/export"
	"threadscraper/pkg/ui"
)

var shareLabels []string

// aggregateCmd builds the per-user datasets
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Build per-user datasets from raw thread files",
	Long: `Group the configured threads (threads sharing a 'group' are merged and
deduplicated) and write users_<group>.csv, histogram_<group>.csv and
users_all_games.csv to the derived directory. Groups without raw files are
skipped.`,
	Args: cobra.NoArgs,
	RunE: runAggregate,
}

// shareCmd computes how concentrated commenting is
var shareCmd = &cobra.Command{
	Use:   "share [label...]",
	Short: "Share of comments written by the most active authors",
	Long: `Concatenate the raw files of the given labels (default: every configured
thread) and report the share of comments written by the top fraction of
authors.`,
	Example: `  threadscraper share --top-fraction 0.01
  threadscraper share bills_broncos_p1 bills_broncos_p2`,
	RunE: runShare,
}

// exportCmd loads raw rows and user stats into SQLite
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Load raw rows and user statistics into a SQLite database",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(exportCmd)

	aggregateCmd.Flags().String("derived-dir", "", "directory for aggregated files")
	shareCmd.Flags().Float64("top-fraction", 0, "fraction of authors counted as top (e.g. 0.05)")
	shareCmd.Flags().StringSliceVar(&shareLabels, "labels", nil, "labels to include (alternative to arguments)")
	exportCmd.Flags().String("database", "", "SQLite database path")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Threads) == 0 {
		return fmt.Errorf("no threads configured")
	}

	report, err := aggregate.New(cfg, log).Run(cfg.Threads)
	if err != nil {
		return err
	}

	console := ui.Default()
	for _, name := range report.Skipped {
		console.Warning("No raw files, skipped group", name)
	}
	if len(report.Groups) == 0 {
		return fmt.Errorf("no raw files found in %s", cfg.Output.Directory)
	}

	console.Block(console.GroupSummaries(report))
	for _, g := range report.Groups {
		console.Highlight(fmt.Sprintf("%s: top commenters", g.Group.Name))
		console.Block(console.TopUsers(g.Summary.Top))
		if preview := console.Histogram(g.Histogram, cfg.Aggregate.HistogramPreview); preview != "" {
			console.Block(preview)
		}
	}
	for _, f := range report.Files {
		console.Info("Wrote", f)
	}
	return nil
}

func runShare(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	labels := append(append([]string(nil), args...), shareLabels...)
	if len(labels) == 0 {
		for _, t := range cfg.Threads {
			labels = append(labels, t.Label)
		}
	}
	if len(labels) == 0 {
		return fmt.Errorf("no labels given and no threads configured")
	}

	share, err := aggregate.New(cfg, log).TopShare(labels, 0)
	if err != nil {
		return err
	}

	console := ui.Default()
	console.Info("Threads", strings.Join(labels, ", "))
	console.Block(console.Share(share))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := export.Open(cfg.Export.Database, log)
	if err != nil {
		return err
	}
	defer exp.Close()

	summary, err := exp.Run(cmd.Context(), cfg, cfg.Threads)
	if err != nil {
		return err
	}
	console := ui.Default()
	console.Block(console.ExportSummary(cfg.Export.Database, summary))
	return nil
}
