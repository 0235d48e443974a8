package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ledgerforge/ledgerd/internal/benchmark"
)

func main() {
	profilePath := flag.String("profile", "", "path to a benchmark profile YAML file")
	flag.Parse()

	if *profilePath == "" {
		fmt.Fprintln(os.Stderr, "usage: benchmark -profile run.yaml")
		os.Exit(1)
	}

	profile, err := benchmark.LoadProfile(*profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load profile: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("running %q against %s: %d workers for %s\n", profile.Name, profile.BaseURL, profile.Concurrency, profile.Duration())

	runner := benchmark.NewRunner(profile)
	report := runner.Run(context.Background())

	fmt.Printf("total=%d errors=%d throughput=%.1f req/s p50=%s p95=%s p99=%s\n",
		report.Total, report.Errors, report.Throughput, report.P50, report.P95, report.P99)

	if report.Errors > 0 {
		os.Exit(1)
	}
}
