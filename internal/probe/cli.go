package probe

import (
	"fmt"
	"os"

	"github.com/okian/marquee/pkg/logger"
)

// SetupLogging initialises the logger and, when logFile is set, mirrors output
// into a rotated file.
func SetupLogging(logFile string, verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if logFile != "" {
		if err := logger.SetOutputFile(logFile); err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the section probe.
func ShowHelp() {
	os.Stdout.WriteString(`marquee section probe
=====================

Fetches sections from a running marquee server and checks the limit bound,
id and title presence, enrichment sentinels, and that search results keep
the order of the unfiltered listing.

Usage:
  go run ./cmd/section-probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sections string
        Comma-separated categories (default "popular,upcoming,now_playing,top_rated")
  -q string
        Comma-separated search texts (default "the,man")
  -limit int
        Limit for unfiltered requests (default 10)
  -workers int
        Number of concurrent requests (default 4)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for probe output
  -verbose
        Log every movie
  -help
        Show this help message
`)
}
