// Package telemetry provides an optional New Relic APM wrapper around
// solve attempts and STRATUM round-trips.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/fusion32/eqminer/internal/config"
	"github.com/fusion32/eqminer/internal/util"
)

// Agent wraps New Relic APM functionality. It is a no-op when disabled
// or unconfigured.
type Agent struct {
	cfg *config.TelemetryConfig
	app *newrelic.Application
	mu  sync.RWMutex
}

// NewAgent builds an Agent from cfg.
func NewAgent(cfg *config.TelemetryConfig) *Agent {
	return &Agent{cfg: cfg}
}

// Start initializes the New Relic application.
func (a *Agent) Start() error {
	if !a.cfg.Enabled {
		util.Info("telemetry disabled")
		return nil
	}

	if a.cfg.LicenseKey == "" {
		util.Warn("telemetry enabled but no license key configured, disabling")
		return nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(a.cfg.AppName),
		newrelic.ConfigLicense(a.cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return err
	}

	if err := app.WaitForConnection(5 * time.Second); err != nil {
		util.Warnf("telemetry connection timeout: %v (will retry in background)", err)
	}

	a.mu.Lock()
	a.app = app
	a.mu.Unlock()

	util.Infof("telemetry enabled for app: %s", a.cfg.AppName)
	return nil
}

// Stop shuts down the agent, flushing any buffered data.
func (a *Agent) Stop() {
	a.mu.RLock()
	app := a.app
	a.mu.RUnlock()

	if app != nil {
		util.Info("shutting down telemetry agent")
		app.Shutdown(10 * time.Second)
	}
}

// IsEnabled reports whether the agent has a live application.
func (a *Agent) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.app != nil
}

func (a *Agent) application() *newrelic.Application {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.app
}

// StartSolveTransaction starts a transaction bracketing one nonce
// search attempt against a single job.
func (a *Agent) StartSolveTransaction(jobID string) *newrelic.Transaction {
	app := a.application()
	if app == nil {
		return nil
	}
	txn := app.StartTransaction("solve_attempt")
	txn.AddAttribute("job_id", jobID)
	return txn
}

// StartStratumTransaction starts a transaction bracketing one STRATUM
// request/response round-trip.
func (a *Agent) StartStratumTransaction(method string) *newrelic.Transaction {
	app := a.application()
	if app == nil {
		return nil
	}
	txn := app.StartTransaction("stratum_" + method)
	return txn
}

// NoticeError records err against txn, if both are non-nil.
func (a *Agent) NoticeError(txn *newrelic.Transaction, err error) {
	if txn != nil && err != nil {
		txn.NoticeError(err)
	}
}

// NewContext attaches txn to ctx.
func (a *Agent) NewContext(ctx context.Context, txn *newrelic.Transaction) context.Context {
	if txn == nil {
		return ctx
	}
	return newrelic.NewContext(ctx, txn)
}

// FromContext retrieves a transaction previously attached with NewContext.
func (a *Agent) FromContext(ctx context.Context) *newrelic.Transaction {
	return newrelic.FromContext(ctx)
}

// RecordSolveAttempt records one completed nonce-search attempt: how
// long it ran, the discard counters passed in (miner.Driver passes the
// solver's running totals since it was created, not per-attempt counts),
// and whether the solver returned any solution.
func (a *Agent) RecordSolveAttempt(jobID string, duration time.Duration, discardedSeeds, discardedCollisions, discardedSolutions int64, found bool) {
	app := a.application()
	if app == nil {
		return
	}
	app.RecordCustomEvent("SolveAttempt", map[string]interface{}{
		"job_id":               jobID,
		"duration_ms":          duration.Milliseconds(),
		"discarded_seeds":      discardedSeeds,
		"discarded_collisions": discardedCollisions,
		"discarded_solutions":  discardedSolutions,
		"found":                found,
	})
}

// RecordShareSubmission records the outcome of one mining.submit call.
func (a *Agent) RecordShareSubmission(jobID string, accepted bool) {
	app := a.application()
	if app == nil {
		return
	}
	status := "accepted"
	if !accepted {
		status = "rejected"
	}
	app.RecordCustomEvent("ShareSubmission", map[string]interface{}{
		"job_id": jobID,
		"status": status,
	})
}

// RecordBlockFound records a full block found by this miner.
func (a *Agent) RecordBlockFound(jobID string, headerHex string) {
	app := a.application()
	if app == nil {
		return
	}
	app.RecordCustomEvent("BlockFound", map[string]interface{}{
		"job_id":     jobID,
		"header_hex": headerHex,
	})
}

// UpdateHashrate reports an estimated current hashrate.
func (a *Agent) UpdateHashrate(hashesPerSec float64) {
	app := a.application()
	if app == nil {
		return
	}
	app.RecordCustomMetric("Custom/Miner/Hashrate", hashesPerSec)
}
