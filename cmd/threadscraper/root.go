package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"threadscraper/pkg/config"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/ui"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	noColor    bool
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "threadscraper",
	Short: "Archive complete comment trees of discussion threads",
	Long: `threadscraper downloads every comment of a thread, including the parts
hidden behind "load more" continuations, and turns the archived threads into
per-user datasets.

Fetching is sequential and paced. Progress is checkpointed so an interrupted
run resumes where it stopped.

Typical workflow:
  threadscraper config init      write threadscraper.yaml with your thread list
  threadscraper run              fetch every configured thread
  threadscraper aggregate        build users_*.csv and histogram_*.csv
  threadscraper share            concentration of comments among top authors
  threadscraper export           load raw rows and user stats into SQLite`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
		ui.Configure(noColor, quiet)
	},
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError("Error", err)
		return 1
	}
	return 0
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default is ./threadscraper.yaml)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "also write logs to this file")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors and tables")
	pf.BoolVarP(&verbose, "verbose", "v", false, "show debug logs")
	pf.String("output-dir", "", "directory for raw thread files")
	pf.String("checkpoint-dir", "", "directory for checkpoints (default: output dir)")
	pf.String("metrics-textfile", "", "write Prometheus metrics to this file when done")

	rootCmd.SetVersionTemplate(`threadscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// mergeableFlags are the flag names config.MergeCommandLineFlags understands
var mergeableFlags = []string{
	"output-dir", "checkpoint-dir", "derived-dir", "database", "user-agent",
	"log-level", "log-file", "metrics-textfile", "no-color", "overwrite",
	"max-attempts", "requests-per-minute", "checkpoint-every", "pacing-delay",
	"cooldown", "top-fraction",
}

// collectFlags returns the explicitly set flags of cmd keyed by name
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	fs := cmd.Flags()

	for _, name := range mergeableFlags {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		var (
			v   interface{}
			err error
		)
		switch f.Value.Type() {
		case "string":
			v, err = fs.GetString(name)
		case "bool":
			v, err = fs.GetBool(name)
		case "int":
			v, err = fs.GetInt(name)
		case "duration":
			v, err = fs.GetDuration(name)
		case "float64":
			v, err = fs.GetFloat64(name)
		default:
			continue
		}
		if err == nil {
			flags[name] = v
		}
	}
	return flags
}

// loadConfig loads configuration with cmd's flags applied and initialises
// the global logger
func loadConfig(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	flags := collectFlags(cmd)
	switch {
	case verbose:
		flags["log-level"] = "debug"
	case quiet:
		flags["log-level"] = "error"
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.GetLogger().WithField("command", cmd.Name())
	log.DebugWithFields("Configuration loaded", map[string]interface{}{
		"config":  configFile,
		"output":  cfg.Output.Directory,
		"threads": len(cfg.Threads),
	})
	return cfg, log, nil
}

// versionCmd prints the same text as --version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "threadscraper %s (commit: %s, built: %s)\n", version, gitCommit, buildDate)
		fmt.Fprintf(cmd.OutOrStdout(), "Go Version: %s\nOS/Arch: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
