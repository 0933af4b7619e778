package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/okian/marquee/internal/probe"
)

const (
	defaultLimit        = 10
	defaultWorkers      = 4
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sections = flag.String("sections", "popular,upcoming,now_playing,top_rated", "Comma-separated categories")
		queries  = flag.String("q", "the,man", "Comma-separated search texts")
		limit    = flag.Int("limit", defaultLimit, "Limit for unfiltered requests")
		workers  = flag.Int("workers", defaultWorkers, "Number of concurrent requests")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile  = flag.String("log", "", "Log file for probe output")
		verbose  = flag.Bool("verbose", false, "Log every movie")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	if err := probe.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	config := &probe.Config{
		BaseURL:  strings.TrimRight(*baseURL, "/"),
		Sections: splitList(*sections),
		Queries:  splitList(*queries),
		Limit:    *limit,
		Workers:  *workers,
		Timeout:  *timeout,
		Verbose:  *verbose,
	}

	if _, err := probe.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
