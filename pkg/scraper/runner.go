package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"threadscraper/pkg/checkpoint"
	"threadscraper/pkg/config"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/ratelimit"
)

// RunOptions control a batch run
type RunOptions struct {
	// ForceRestart discards checkpoints of every target
	ForceRestart bool
	// Overwrite refetches targets that already have raw output
	Overwrite bool
}

// RunReport is the outcome for one target
type RunReport struct {
	Target  config.ThreadTarget
	Result  *Result
	Err     error
	Skipped bool
}

// Outcome names the report for display and metrics
func (r RunReport) Outcome() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Err != nil:
		return "failed"
	default:
		return "done"
	}
}

// TargetStatus describes what a run would do with a target
type TargetStatus struct {
	Target     config.ThreadTarget
	HasRaw     bool
	Checkpoint *checkpoint.Info
}

// Runner fetches a list of threads strictly in order with a cooldown between
// threads that hit the API
type Runner struct {
	fetcher  *Fetcher
	cooldown time.Duration
	sleeper  ratelimit.Sleeper
	recorder Recorder
	logger   logger.Logger
	runID    string
}

// RunnerOption customises a Runner
type RunnerOption func(*Runner)

// WithCooldown overrides fetch.thread_cooldown
func WithCooldown(d time.Duration) RunnerOption {
	return func(r *Runner) { r.cooldown = d }
}

// WithRunnerSleeper replaces the sleeper used for cooldowns
func WithRunnerSleeper(s ratelimit.Sleeper) RunnerOption {
	return func(r *Runner) {
		if s != nil {
			r.sleeper = s
		}
	}
}

// WithRunnerRecorder registers a recorder for per-thread outcomes
func WithRunnerRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewRunner creates a runner around fetcher
func NewRunner(fetcher *Fetcher, log logger.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	r := &Runner{
		fetcher:  fetcher,
		cooldown: fetcher.config.Fetch.ThreadCooldown,
		sleeper:  ratelimit.RealSleeper{},
		recorder: nopRecorder{},
		logger:   log,
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID identifies this batch in logs and metadata
func (r *Runner) RunID() string {
	return r.runID
}

// Run processes targets in order. Per-thread failures are recorded in the
// reports and do not stop the batch; only cancellation does, in which case
// the reports gathered so far are returned with the context error.
func (r *Runner) Run(ctx context.Context, targets []config.ThreadTarget, opts RunOptions) ([]RunReport, error) {
	log := r.logger.WithField("run_id", r.runID)
	logger.LogComponentStart(log, "runner", map[string]interface{}{
		"targets":  len(targets),
		"cooldown": r.cooldown.String(),
	})

	reports := make([]RunReport, 0, len(targets))
	fetchedBefore := false

	for i, target := range targets {
		tlog := log.WithFields(map[string]interface{}{
			"label":    target.Label,
			"position": fmt.Sprintf("%d/%d", i+1, len(targets)),
		})

		if !opts.Overwrite && r.fetcher.Storage().HasRaw(target.Label) {
			tlog.Info("Raw output exists, skipping")
			report := RunReport{Target: target, Skipped: true}
			r.recorder.ThreadFinished(report.Outcome())
			reports = append(reports, report)
			continue
		}

		if fetchedBefore && r.cooldown > 0 {
			tlog.InfoWithFields("Cooling down before next thread", map[string]interface{}{
				"cooldown": r.cooldown.String(),
			})
			if err := r.sleeper.Sleep(ctx, r.cooldown); err != nil {
				logger.LogComponentStop(log, "runner", "cancelled")
				return reports, fmt.Errorf("run interrupted: %w", err)
			}
		}
		fetchedBefore = true

		res, err := r.fetcher.Fetch(ctx, target, Options{
			ForceRestart: opts.ForceRestart,
			RunID:        r.runID,
		})
		report := RunReport{Target: target, Result: res, Err: err}
		r.recorder.ThreadFinished(report.Outcome())
		reports = append(reports, report)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.LogComponentStop(log, "runner", "cancelled")
				return reports, err
			}
			tlog.WithError(err).Error("Thread failed, continuing with next target")
		}
	}

	logger.LogComponentStop(log, "runner", "completed")
	return reports, nil
}

// Status reports raw output and checkpoint state for each target without
// touching the network
func (r *Runner) Status(targets []config.ThreadTarget) ([]TargetStatus, error) {
	statuses := make([]TargetStatus, 0, len(targets))
	for _, target := range targets {
		cpMgr, err := checkpoint.NewManager(r.fetcher.config.CheckpointDir(), target.Label, r.logger)
		if err != nil {
			return nil, err
		}
		info, err := cpMgr.GetCheckpointInfo()
		if err != nil {
			return nil, fmt.Errorf("checkpoint %s: %w", target.Label, err)
		}
		statuses = append(statuses, TargetStatus{
			Target:     target,
			HasRaw:     r.fetcher.Storage().HasRaw(target.Label),
			Checkpoint: info,
		})
	}
	return statuses, nil
}

// Summarize counts report outcomes
func Summarize(reports []RunReport) (done, failed, skipped int) {
	for _, rep := range reports {
		switch rep.Outcome() {
		case "done":
			done++
		case "failed":
			failed++
		case "skipped":
			skipped++
		}
	}
	return done, failed, skipped
}
