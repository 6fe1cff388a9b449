// Package logger provides the structured logging interface used across threadscraper.
//
// It wraps zerolog with a small interface so packages can accept a Logger and
// tests can substitute NewTestLogger or NewNopLogger.
//
// Basic Usage:
//
//	cfg := &config.LoggingConfig{Level: "info"}
//	if err := logger.Initialize(cfg); err != nil {
//	    return err
//	}
//
//	log := logger.GetLogger().WithField("label", "bills_broncos_p1")
//	log.InfoWithFields("Fetched root listing", map[string]interface{}{
//	    "comments": 412,
//	    "batches":  9,
//	})
//
// Console output is written to stderr. Colours are disabled when stderr is not
// a terminal or when LoggingConfig.NoColor is set. When LoggingConfig.File is
// set, JSON lines are appended to that file as well.
package logger
