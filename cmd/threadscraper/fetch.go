package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"threadscraper/pkg/config"
	"threadscraper/pkg/scraper"
	"threadscraper/pkg/ui"
)

var (
	// fetch and run flags
	forceRestart bool
	accountName  string
	threadID     string
	threadLabel  string
	dryRun       bool
	onlyLabels   []string
)

// fetchCmd fetches a single thread
var fetchCmd = &cobra.Command{
	Use:   "fetch [label]",
	Short: "Fetch the complete comment tree of one thread",
	Long: `Fetch one thread and write raw_<label>.csv plus meta_<label>.json.

The thread is either a configured label or an ad-hoc id given with --id.
An existing checkpoint for the label is resumed unless --force-restart is set.`,
	Example: `  # Fetch a configured thread
  threadscraper fetch bills_broncos_p1

  # Fetch any thread by id
  threadscraper fetch --id 1qfnyfb --label bills_broncos_p1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

// runCmd fetches every configured thread in order
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch every configured thread in order",
	Long: `Fetch the configured threads one after another with a cooldown between
threads that hit the API. Threads that already have raw output are skipped
unless --overwrite is set. A failed thread is reported and the batch moves on.`,
	Example: `  # Show what would happen
  threadscraper run --dry-run

  # Fetch two threads with a shorter cooldown
  threadscraper run --only packers_cowboys,bears_eagles --cooldown 5m`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(runCmd)

	for _, c := range []*cobra.Command{fetchCmd, runCmd} {
		f := c.Flags()
		f.BoolVar(&forceRestart, "force-restart", false, "discard existing checkpoints")
		f.StringVarP(&accountName, "account", "a", "", "use a specific stored account")
		f.String("user-agent", "", "User-Agent header sent to the API")
		f.Int("max-attempts", 0, "attempts per request before giving up")
		f.Int("requests-per-minute", 0, "global request cap (0 disables)")
		f.Int("checkpoint-every", 0, "save a checkpoint every N chunks")
		f.Duration("pacing-delay", 0, "pause between continuation requests")
	}

	fetchCmd.Flags().StringVar(&threadID, "id", "", "thread id to fetch instead of a configured label")
	fetchCmd.Flags().StringVar(&threadLabel, "label", "", "label for --id (default: the id)")

	runCmd.Flags().Bool("overwrite", false, "refetch threads that already have raw output")
	runCmd.Flags().Duration("cooldown", 0, "pause between threads")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show raw and checkpoint status without fetching")
	runCmd.Flags().StringSliceVar(&onlyLabels, "only", nil, "restrict the run to these labels")
}

func resolveTarget(cfg *config.Config, args []string) (config.ThreadTarget, error) {
	if threadID != "" {
		label := threadLabel
		if label == "" {
			label = threadID
		}
		if t, ok := cfg.FindThread(label); ok && t.ID != threadID {
			return config.ThreadTarget{}, fmt.Errorf("label %q is configured for thread %s", label, t.ID)
		}
		target := config.ThreadTarget{ID: threadID, Label: label}
		if err := target.Validate(); err != nil {
			return config.ThreadTarget{}, fmt.Errorf("invalid thread target: %w", err)
		}
		return target, nil
	}

	if len(args) == 0 {
		return config.ThreadTarget{}, fmt.Errorf("give a configured label or --id")
	}
	t, ok := cfg.FindThread(args[0])
	if !ok {
		return config.ThreadTarget{}, fmt.Errorf("no configured thread with label %q", args[0])
	}
	return t, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	target, err := resolveTarget(cfg, args)
	if err != nil {
		return err
	}
	if err := applyCredentials(cfg, log, accountName); err != nil {
		return err
	}

	p, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer p.flushMetrics()

	ui.PrintInfo("Thread", fmt.Sprintf("%s (%s)", target.Label, target.ID))
	res, err := p.fetcher.Fetch(cmd.Context(), target, scraper.Options{ForceRestart: forceRestart})
	report := scraper.RunReport{Target: target, Result: res, Err: err}
	p.progress.ThreadFinished(report.Outcome())
	p.metrics.ThreadFinished(report.Outcome())

	ui.Default().Block(ui.Default().RunReports([]scraper.RunReport{report}))
	if err != nil {
		reportInterrupt(err)
		return err
	}
	ui.PrintSuccess("Wrote " + res.RawPath)
	return nil
}

func selectTargets(cfg *config.Config) ([]config.ThreadTarget, error) {
	if len(onlyLabels) == 0 {
		return cfg.Threads, nil
	}
	targets := make([]config.ThreadTarget, 0, len(onlyLabels))
	for _, label := range onlyLabels {
		t, ok := cfg.FindThread(strings.TrimSpace(label))
		if !ok {
			return nil, fmt.Errorf("no configured thread with label %q", label)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	targets, err := selectTargets(cfg)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no threads configured; add them under 'threads:' (see 'threadscraper config init')")
	}

	if !dryRun {
		if err := applyCredentials(cfg, log, accountName); err != nil {
			return err
		}
	}

	p, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}
	runner := p.runner()
	console := ui.Default()

	if dryRun {
		statuses, err := runner.Status(targets)
		if err != nil {
			return err
		}
		console.Block(console.Statuses(statuses, now()))
		return nil
	}
	defer p.flushMetrics()

	ui.PrintInfo("Run", runner.RunID())
	ui.PrintInfo("Threads", fmt.Sprintf("%d, cooldown %s", len(targets), cfg.Fetch.ThreadCooldown))

	reports, err := runner.Run(cmd.Context(), targets, scraper.RunOptions{
		ForceRestart: forceRestart,
		Overwrite:    cfg.Output.Overwrite,
	})
	console.Block(console.RunReports(reports))
	console.Println(console.RunTotals(reports))
	if err != nil {
		reportInterrupt(err)
		return err
	}
	return nil
}
