// Package logger wraps charmbracelet/log with per-subsystem prefixes so
// multiplexed engine output is attributable to the component that logged it.
package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// New creates a logger for a subsystem, honoring the process-wide log level.
func New(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// NewWithConfig creates a logger with explicit level/caller/timestamp/format
// overrides, used by the daemon entry point once Configuration is loaded.
func NewWithConfig(prefix string, level log.Level, caller, timestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: timestamp,
		Formatter:       fmt,
	})
}

// SetGlobalLevel adjusts the shared default level used by loggers that have
// not been given an explicit level (debuglevel config option, §6).
func SetGlobalLevel(debugLevel int) {
	switch {
	case debugLevel <= 0:
		log.SetLevel(log.InfoLevel)
	case debugLevel == 1:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}
}
