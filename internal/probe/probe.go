package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okhani/dav/pkg/logger"
)

// Default probe configuration constants.
const (
	defaultTimeout      = 30 * time.Second
	defaultReadyTimeout = 30 * time.Second
)

// Config parameterizes a probe run.
type Config struct {
	Target       string        // base URL of the server under test
	Prefix       string        // URL prefix the DAV tree is mounted at
	Suites       []string      // suite names; empty means all
	Timeout      time.Duration // per-request timeout
	ReadyTimeout time.Duration // how long to wait for the server to come up
}

// Check is a single named compliance check.
type Check struct {
	Name string
	Run  func(ctx context.Context, c *Client) error
}

// Suite is a named group of checks sharing a scratch area.
type Suite struct {
	Name   string
	Checks []Check
}

// Summary reports the outcome of a probe run.
type Summary struct {
	Passed   int
	Failed   int
	Failures []string
}

// Run executes the configured suites against the target.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}

	log := logger.Get().Named("probe")
	client := NewClient(cfg.Target, cfg.Prefix, &http.Client{Timeout: cfg.Timeout})

	if err := waitReady(ctx, client, cfg.ReadyTimeout); err != nil {
		return Summary{}, fmt.Errorf("server not reachable: %w", err)
	}

	suites, err := selectSuites(cfg.Suites)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, suite := range suites {
		log.Info(ctx, "running suite", logger.String("suite", suite.Name))
		for _, check := range suite.Checks {
			name := suite.Name + "/" + check.Name
			if err := check.Run(ctx, client); err != nil {
				sum.Failed++
				sum.Failures = append(sum.Failures, fmt.Sprintf("%s: %v", name, err))
				log.Warn(ctx, "check failed", logger.String("check", name), logger.Error(err))
				continue
			}
			sum.Passed++
			log.Debug(ctx, "check passed", logger.String("check", name))
		}
	}

	log.Info(ctx, "probe finished",
		logger.Int("passed", sum.Passed),
		logger.Int("failed", sum.Failed),
	)
	return sum, nil
}

// waitReady polls OPTIONS until the server answers, with exponential
// backoff capped at the ready timeout.
func waitReady(ctx context.Context, c *Client, timeout time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = timeout

	return backoff.Retry(func() error {
		resp, err := c.Do(ctx, http.MethodOptions, "/", "", nil)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("OPTIONS /: got %d", resp.StatusCode)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

// selectSuites resolves suite names, defaulting to every suite.
func selectSuites(names []string) ([]Suite, error) {
	all := []Suite{basicSuite(), propsSuite(), copyMoveSuite(), locksSuite()}
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]Suite, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}

	var out []Suite
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSuite, name)
		}
		out = append(out, s)
	}
	return out, nil
}
