// Package scheduler wires up the cron job that periodically rescores the
// whole listing population, bounding the staleness that per-listing
// rescoring tolerates between searches.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Rescorer recomputes every stored listing's score against a fresh
// population snapshot.
type Rescorer interface {
	RescoreAll(ctx context.Context) error
}

// Scheduler wraps robfig/cron and manages the rescore sweep.
type Scheduler struct {
	cron     *cron.Cron
	rescorer Rescorer
	spec     string // cron spec, e.g. "@every 6h"
	disabled bool
}

// New creates a Scheduler that fires every intervalHours hours. An interval
// of zero disables the sweep entirely.
func New(rescorer Rescorer, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cron.DefaultLogger)),
		rescorer: rescorer,
		spec:     fmt.Sprintf("@every %dh", intervalHours),
		disabled: intervalHours <= 0,
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so scores settle without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.disabled {
		log.Println("[scheduler] RESCORE_INTERVAL_H is 0 — rescore sweep disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s", s.spec)

	// Run immediately on startup (non-blocking)
	go s.runSweep(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	if s.disabled {
		return
	}
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) runSweep(ctx context.Context) {
	log.Println("[scheduler] Rescore sweep started")
	if err := s.rescorer.RescoreAll(ctx); err != nil {
		log.Printf("[scheduler] Rescore sweep error: %v", err)
		return
	}
	log.Println("[scheduler] Rescore sweep complete")
}
