package probing

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/slotwatch/internal/common"
	"github.com/projectdiscovery/httpx/runner"
	"github.com/rs/zerolog"
)

// ProbeResult is the outcome of one preflight probe of the portal.
type ProbeResult struct {
	URL           string
	StatusCode    int
	ContentLength int64
	ContentType   string
	Duration      time.Duration
	Error         string
}

// Reachable reports whether the portal answered with something a fetch
// could work with. 4xx still counts: the portal is up, the page may need
// the browser mode to render.
func (r *ProbeResult) Reachable() bool {
	return r.Error == "" && r.StatusCode > 0 && r.StatusCode < 500
}

// Prober runs a lightweight HTTP probe against the portal before a fetch
// cycle. A failed probe lets the monitor skip the expensive browser fetch
// and classify the cycle as a network failure straight away.
type Prober struct {
	timeout time.Duration
	retries int
	logger  zerolog.Logger
}

// NewProber creates a prober. Timeout is per-request.
func NewProber(timeout time.Duration, retries int, logger zerolog.Logger) *Prober {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		timeout: timeout,
		retries: retries,
		logger:  logger.With().Str("component", "Prober").Logger(),
	}
}

// Probe checks the portal URL. The httpx runner delivers results through a
// callback, so a mutex guards the captured result.
func (p *Prober) Probe(url string) (*ProbeResult, error) {
	var (
		mu     sync.Mutex
		result *ProbeResult
	)
	started := time.Now()

	options := &runner.Options{
		Methods:            "GET",
		InputTargetHost:    []string{url},
		FollowRedirects:    true,
		Timeout:            int(p.timeout.Seconds()),
		Retries:            p.retries,
		Threads:            1,
		Silent:             true,
		DisableUpdateCheck: true,
		OnResult: func(res runner.Result) {
			mu.Lock()
			defer mu.Unlock()
			result = &ProbeResult{
				URL:           res.URL,
				StatusCode:    res.StatusCode,
				ContentLength: int64(res.ContentLength),
				ContentType:   res.ContentType,
				Duration:      time.Since(started),
				Error:         res.Error,
			}
		},
	}

	httpxRunner, err := runner.New(options)
	if err != nil {
		return nil, common.WrapError(err, "failed to initialize probe runner")
	}
	defer httpxRunner.Close()

	httpxRunner.RunEnumeration()

	mu.Lock()
	defer mu.Unlock()
	if result == nil {
		return nil, common.NewNetworkError(url, "probe produced no result", common.ErrNetworkFailure)
	}

	p.logger.Debug().
		Str("url", result.URL).
		Int("status", result.StatusCode).
		Dur("duration", result.Duration).
		Msg("Preflight probe complete")
	return result, nil
}

// CheckReachable probes the URL and fails when the portal cannot serve a
// fetch. Used as the monitor's start-up preflight.
func (p *Prober) CheckReachable(url string) error {
	result, err := p.Probe(url)
	if err != nil {
		return err
	}
	if !result.Reachable() {
		reason := "portal unreachable"
		if result.Error != "" {
			reason = result.Error
		} else if result.StatusCode >= 500 {
			reason = fmt.Sprintf("portal returned status %d", result.StatusCode)
		}
		return common.NewNetworkError(url, reason, common.ErrServiceUnavailable)
	}
	return nil
}
