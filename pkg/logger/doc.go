// Package logger provides structured logging for airgapintel on top of zerolog.
//
// Operators get colored console lines on stderr; setting logging.file adds a
// JSON copy appended to that file. Components take a Logger so tests can pass
// NewNopLogger or NewTestLogger instead of the global instance.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "executor")
//	log.InfoWithFields("Feed stored", map[string]interface{}{
//	    "category": "CIRCL Feeds",
//	    "size":     1024,
//	})
package logger
