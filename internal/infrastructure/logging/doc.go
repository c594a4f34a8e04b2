// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON lines, durations in milliseconds
//   - Development: colored console output at debug level (LOG_DEV=true)
//
// Components receive a named child (logger.Component("dispatch")) and attach
// job scoped fields through Job.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level})
//	log := logger.Component("ws")
//	log.Info("Job accepted", logging.Job(jobID, connID, url)...)
package logging
