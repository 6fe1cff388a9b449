package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"threadscraper/pkg/auth"
	"threadscraper/pkg/config"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/metrics"
	"threadscraper/pkg/reddit"
	"threadscraper/pkg/scraper"
	"threadscraper/pkg/ui"
)

// pipeline bundles the fetch components one command invocation needs
type pipeline struct {
	cfg      *config.Config
	log      logger.Logger
	metrics  *metrics.Collector
	progress *ui.Progress
	fetcher  *scraper.Fetcher
}

func newPipeline(cfg *config.Config, log logger.Logger) (*pipeline, error) {
	collector := metrics.New()
	progress := ui.NewProgress(ui.Default())

	client := reddit.NewClient(cfg, log, reddit.WithObserver(collector))
	fetcher, err := scraper.NewFetcher(client, cfg, log,
		scraper.WithRecorder(scraper.Recorders{collector, progress}))
	if err != nil {
		return nil, err
	}

	if cfg.API.AccessToken != "" {
		ui.PrintInfo("API host", client.BaseURL()+" (authenticated)")
	} else {
		ui.PrintInfo("API host", client.BaseURL())
	}

	return &pipeline{
		cfg:      cfg,
		log:      log,
		metrics:  collector,
		progress: progress,
		fetcher:  fetcher,
	}, nil
}

func (p *pipeline) runner() *scraper.Runner {
	return scraper.NewRunner(p.fetcher, p.log,
		scraper.WithRunnerRecorder(scraper.Recorders{p.metrics, p.progress}))
}

// flushMetrics writes the textfile when one is configured
func (p *pipeline) flushMetrics() {
	if p.cfg.Metrics.Textfile == "" {
		return
	}
	if err := p.metrics.WriteTextfile(p.cfg.Metrics.Textfile); err != nil {
		p.log.WithError(err).Warn("Failed to write metrics textfile")
		return
	}
	p.log.WithField("path", p.cfg.Metrics.Textfile).Debug("Metrics written")
}

var newCredentialManager = auth.NewManager

// applyCredentials fills the access token from stored credentials unless the
// configuration already carries one. A named account must exist; the
// default account is optional.
func applyCredentials(cfg *config.Config, log logger.Logger, account string) error {
	if cfg.API.AccessToken != "" {
		return nil
	}

	manager, err := newCredentialManager()
	if err != nil {
		if account != "" {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		log.WithError(err).Debug("Credential manager unavailable, continuing anonymously")
		return nil
	}

	var acct *auth.Account
	if account != "" {
		acct, err = manager.Retrieve(account)
		if err != nil {
			return err
		}
	} else {
		acct, err = manager.RetrieveDefault()
		if err != nil {
			if !errors.Is(err, auth.ErrCredentialsNotFound) {
				log.WithError(err).Warn("Could not read stored credentials, continuing anonymously")
			}
			return nil
		}
	}

	if acct.Expired(time.Now()) {
		ui.PrintWarning("Stored token has expired, continuing anonymously", acct.Name)
		log.WithField("account", acct.Name).Warn("Access token expired")
		return nil
	}

	acct.Apply(cfg)
	log.WithField("account", acct.Name).Info("Using stored credentials")
	return nil
}

// now is replaced in tests
var now = time.Now

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func reportInterrupt(err error) {
	if isCancelled(err) {
		ui.PrintWarning("Interrupted; checkpoints are kept, rerun the same command to resume")
	}
}
