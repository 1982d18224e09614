// Package main is the entry point for davprobe, a litmus-style
// compliance prober for WebDAV servers. It waits for the target to
// become reachable, runs the selected check suites and reports a
// pass/fail summary.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okhani/dav/internal/probe"
	"github.com/okhani/dav/pkg/logger"
)

// Default probe settings.
const (
	defaultTarget       = "http://localhost:4918"
	defaultTimeout      = 30 * time.Second
	defaultReadyTimeout = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	var (
		target       string
		prefix       string
		suites       []string
		timeout      time.Duration
		readyTimeout time.Duration
		logLevel     string
	)

	rootCmd := &cobra.Command{
		Use:   "davprobe",
		Short: "WebDAV compliance prober",
		Long: `davprobe runs litmus-style compliance checks against a running
WebDAV server: basic resource handling, properties, copy/move and
locking. It exits non-zero when any check fails.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			if err := logger.SetLevelString(logLevel); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sum, err := probe.Run(ctx, probe.Config{
				Target:       target,
				Prefix:       prefix,
				Suites:       suites,
				Timeout:      timeout,
				ReadyTimeout: readyTimeout,
			})
			if err != nil {
				return err
			}

			fmt.Printf("passed: %d, failed: %d\n", sum.Passed, sum.Failed)
			for _, f := range sum.Failures {
				fmt.Println("  FAIL " + f)
			}
			if sum.Failed > 0 {
				return fmt.Errorf("%d checks failed", sum.Failed)
			}
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&target, "target", defaultTarget, "Base URL of the server under test")
	flags.StringVar(&prefix, "prefix", "", "URL prefix the DAV tree is mounted at")
	flags.StringSliceVar(&suites, "suite", nil, "Suites to run (basic, props, copymove, locks); default all")
	flags.DurationVar(&timeout, "timeout", defaultTimeout, "Per-request timeout")
	flags.DurationVar(&readyTimeout, "ready-timeout", defaultReadyTimeout, "How long to wait for the server to come up")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return rootCmd.Execute()
}
