/*
scheduler.go - Automated compliance scheduler

PURPOSE:
  Periodically re-runs the full pipeline over the stored fleet: generates
  newly due accrual periods, re-derives aggregates, and repairs blocking
  findings. This is what keeps milestone grants appearing on time without
  anyone pressing a button.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each sweep is idempotent: a fleet that is already consistent with
    today's date produces zero changes
  - A sweep runs immediately on Start, then on every tick

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewComplianceScheduler(store, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ReconcileFleet endpoint (manual sweep)
  - yukyu/pipeline.go: What one sweep does
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jokken79/yukyuantiguov1.0-sub000/yukyu"
)

// ComplianceScheduler runs periodic pipeline sweeps over the fleet.
type ComplianceScheduler struct {
	Store         yukyu.Store
	Pipeline      *yukyu.Pipeline
	Logger        *slog.Logger
	CheckInterval time.Duration
	Enabled       bool

	// Now is the clock for as-of calculations. Overridable in tests.
	Now func() yukyu.Date

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewComplianceScheduler creates a new scheduler.
func NewComplianceScheduler(store yukyu.Store, logger *slog.Logger) *ComplianceScheduler {
	return &ComplianceScheduler{
		Store:         store,
		Pipeline:      yukyu.NewPipeline(logger),
		Logger:        logger,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Now:           yukyu.Today,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (cs *ComplianceScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.Logger.Info("scheduler disabled, not starting")
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.wg.Add(1)
	go cs.run()

	cs.Logger.Info("scheduler started", "interval", cs.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (cs *ComplianceScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.Logger.Info("scheduler stopped")
	}
}

func (cs *ComplianceScheduler) run() {
	defer cs.wg.Done()

	cs.Sweep(context.Background())

	for {
		select {
		case <-cs.ticker.C:
			cs.Sweep(context.Background())
		case <-cs.stop:
			return
		}
	}
}

// Sweep runs one pipeline pass over the stored fleet and persists the
// result. Exported so tests and the manual endpoint can trigger it.
func (cs *ComplianceScheduler) Sweep(ctx context.Context) {
	asOf := cs.Now()

	employees, err := cs.Store.LoadEmployees(ctx)
	if err != nil {
		cs.Logger.Error("sweep: load employees", "error", err)
		return
	}
	if len(employees) == 0 {
		return
	}

	processed, report := cs.Pipeline.Process(employees, asOf)
	if err := cs.Store.ReplaceEmployees(ctx, processed); err != nil {
		cs.Logger.Error("sweep: store employees", "error", err)
		return
	}

	cs.Logger.Info("compliance sweep complete",
		"asOf", asOf.String(),
		"checked", report.Checked,
		"findings", len(report.Results),
		"blocking", report.HasBlockingIssues(),
	)
}
