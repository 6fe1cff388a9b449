// Package scraper retrieves complete comment trees and writes them as flat
// record files.
//
// A Fetcher handles one thread and moves through INIT, FETCHING_ROOT,
// EXPANDING and finally DONE or FAILED:
//
//   - INIT loads the label's checkpoint, if any, into the accumulator
//   - FETCHING_ROOT requests the root listing and parses its comment tree
//   - EXPANDING drains a FIFO of continuation batches in chunks of at most
//     100 ids, pausing between chunk requests and checkpointing periodically
//   - DONE writes raw_<label>.csv and meta_<label>.json, then removes the
//     checkpoint
//
// A failed chunk loses only that chunk. A failed root request, or a cancelled
// context, ends in FAILED without output; progress made during expansion is
// checkpointed so the next run resumes from it.
//
// A Runner applies a Fetcher to a list of targets in order, skipping those
// with existing output and cooling down between threads:
//
//	client := reddit.NewClient(cfg, log, reddit.WithObserver(collector))
//	fetcher, err := scraper.NewFetcher(client, cfg, log, scraper.WithRecorder(collector))
//	if err != nil {
//		return err
//	}
//	reports, err := scraper.NewRunner(fetcher, log).Run(ctx, cfg.Threads, scraper.RunOptions{})
package scraper
