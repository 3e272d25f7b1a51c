package deploy

import (
	"fmt"
	"net/http"
	"time"

	"moodops/internal/ops"
)

// Probe waits for the redeployed service to become ready.
type Probe interface {
	// Wait blocks until the service is ready or the deadline passes. It
	// returns an error if the deadline passed without a ready signal.
	Wait(timeout time.Duration) error
}

// HTTPProbe polls a health endpoint until it answers with a 2xx status.
type HTTPProbe struct {
	url      string
	client   *http.Client
	interval time.Duration
	logger   ops.Logger
}

var _ Probe = (*HTTPProbe)(nil)

// NewHTTPProbe creates a probe polling url every few seconds.
func NewHTTPProbe(url string, logger ops.Logger) *HTTPProbe {
	return &HTTPProbe{
		url:      url,
		client:   &http.Client{Timeout: 5 * time.Second},
		interval: 3 * time.Second,
		logger:   logger,
	}
}

func (p *HTTPProbe) Wait(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	lastEcho := time.Now()

	for {
		resp, err := p.client.Get(p.url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
		}

		if time.Now().After(deadline) {
			if err != nil {
				return fmt.Errorf("service not ready after %s: %w", timeout, err)
			}
			return fmt.Errorf("service not ready after %s: last status %d", timeout, resp.StatusCode)
		}

		if time.Since(lastEcho) >= 20*time.Second {
			remaining := time.Until(deadline).Round(time.Second)
			p.logger.Info("waiting for service to become ready", "url", p.url, "remaining", remaining.String())
			lastEcho = time.Now()
		}

		time.Sleep(p.interval)
	}
}

// SleepProbe waits a fixed duration without checking anything. Used when
// no health URL is configured.
type SleepProbe struct {
	logger ops.Logger
}

var _ Probe = (*SleepProbe)(nil)

func NewSleepProbe(logger ops.Logger) *SleepProbe {
	return &SleepProbe{logger: logger}
}

func (p *SleepProbe) Wait(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		step := 20 * time.Second
		if remaining < step {
			step = remaining
		}
		time.Sleep(step)
		if left := time.Until(deadline).Round(time.Second); left > 0 {
			p.logger.Info("waiting for service restart", "remaining", left.String())
		}
	}
}
