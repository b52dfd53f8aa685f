// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package jobs drives the background maintenance work at fixed intervals.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkosonen/kulkue/internal/audit"
	"github.com/mkosonen/kulkue/internal/logging"
	"github.com/mkosonen/kulkue/internal/metrics"
)

// Job is one scheduled unit of work. Every run opens a fresh audit scope
// (job key, new run id) so the audit recorder attributes each mutation to
// the run that made it.
type Job struct {
	Key    string
	Period time.Duration
	Run    func(ctx context.Context) error
}

// Scheduler ticks each registered job on its own interval. A run that
// fails or panics is logged and retried on the next tick; there is no
// retry queue.
type Scheduler struct {
	jobs []Job
}

// NewScheduler returns a scheduler over the given jobs.
func NewScheduler(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs}
}

// Serve runs every job loop until the context is cancelled. Implements
// the suture service contract.
func (s *Scheduler) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	// First run happens at startup, then on every tick.
	s.runOnce(ctx, job)

	ticker := time.NewTicker(job.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

// runOnce executes one scheduled invocation inside its audit scope,
// isolating panics so a broken run never takes down the loop.
func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	scoped, runID := audit.WithJobScope(ctx, job.Key)
	log := logging.With().Str("job", job.Key).Str("run_id", runID).Logger()

	start := time.Now()
	err := s.invoke(scoped, job)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("job run failed")
	} else {
		log.Debug().Dur("elapsed", elapsed).Msg("job run completed")
	}
	metrics.JobRunsTotal.WithLabelValues(job.Key, outcome).Inc()
	metrics.JobRunDuration.WithLabelValues(job.Key).Observe(elapsed.Seconds())
}

func (s *Scheduler) invoke(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Key, r)
		}
	}()
	return job.Run(ctx)
}
