// Package probe periodically checks whether the Manus API is reachable.
// The result feeds the /ready endpoint and the upstream_reachable gauge.
package probe

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/HyphaGroup/manus-mcp/internal/logger"
	"github.com/HyphaGroup/manus-mcp/internal/metrics"
)

const checkTimeout = 10 * time.Second

// Probe tracks upstream reachability on a fixed cadence.
type Probe struct {
	baseURL  string
	interval time.Duration
	cron     *cron.Cron
	wg       sync.WaitGroup

	mu          sync.RWMutex
	reachable   bool
	lastChecked time.Time
}

// New creates a probe for the given upstream base URL.
func New(baseURL string, interval time.Duration) *Probe {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Probe{
		baseURL:  baseURL,
		interval: interval,
		// Optimistic until the first check completes so the server does
		// not report not-ready during startup.
		reachable: true,
	}
}

// Start schedules the recurring check and kicks off an immediate one.
func (p *Probe) Start() error {
	p.cron = cron.New()
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := p.cron.AddFunc(spec, p.check); err != nil {
		return fmt.Errorf("failed to schedule probe: %w", err)
	}
	p.cron.Start()
	// The immediate first check runs outside cron, so track it separately
	// for Stop to drain.
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.check()
	}()
	logger.Info("Upstream probe started (%s, every %s)", p.baseURL, p.interval)
	return nil
}

// Stop halts the recurring check and waits for in-flight ones.
func (p *Probe) Stop() {
	if p.cron != nil {
		ctx := p.cron.Stop()
		<-ctx.Done()
	}
	p.wg.Wait()
	logger.Info("Upstream probe stopped")
}

// Reachable returns the last observed reachability.
func (p *Probe) Reachable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reachable
}

// LastChecked returns when the probe last completed. Zero before the first
// check finishes.
func (p *Probe) LastChecked() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastChecked
}

// check performs one reachability test. Any HTTP response counts as
// reachable, including auth rejections; only transport failures do not.
func (p *Probe) check() {
	client := &http.Client{Timeout: checkTimeout}

	reachable := false
	resp, err := client.Head(p.baseURL + "/tasks")
	if err == nil {
		_ = resp.Body.Close()
		reachable = true
	}

	p.mu.Lock()
	changed := p.reachable != reachable
	p.reachable = reachable
	p.lastChecked = time.Now()
	p.mu.Unlock()

	metrics.SetUpstreamReachable(reachable)

	if changed {
		if reachable {
			logger.Info("Manus API is reachable again")
		} else {
			logger.Error("Manus API is unreachable: %v", err)
		}
	}
}
