package shared

import (
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures the process logger. Debug wins over any configured
// level string.
func SetupLogger(level string, debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})

	if debug {
		logger.SetLevel(log.DebugLevel)
		return logger
	}

	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}
