// Package logging provides structured logging for the Anker Solix client.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the client. Components take a *zap.Logger at
// construction; this package supplies a shared instance for the CLI and a
// silent nop logger by default so library use produces no output.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (hex dumps, cloud request/response envelopes)
//   - Info: Normal operations (login, poll summaries, topic subscriptions)
//   - Warn: Non-fatal issues (partial poll failures, throttled endpoints)
//   - Error: Fatal issues (authentication failures, transport errors)
//
// # Configuration
//
// Logging is silent unless enabled, either explicitly or through the
// SOLIX_LOG_LEVEL environment variable:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
