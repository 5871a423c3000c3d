// Package debug provides conditional debug logging for atlasview.
//
// Debug logging is enabled by setting the AV_DEBUG environment variable:
//
//	AV_DEBUG=1 atlasview --data ./snapshots
//
// When enabled, debug messages are written to stderr with timestamps.
// When disabled (default), all debug functions are no-ops with zero overhead.
// The frame loop logs through this package; anything user facing goes through
// the charmbracelet logger owned by cmd.
package debug

import (
	"log"
	"os"
	"time"
)

var (
	// enabled is true when AV_DEBUG env var is set
	enabled bool
	// logger writes to stderr with [AV_DEBUG] prefix
	logger *log.Logger
)

func init() {
	if os.Getenv("AV_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, "[AV_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}
