// Package driver fans a single FindMaxima invocation out over a worker
// pool for batch runs across many images, following the channel-token
// worker pool pattern used for per-image processing.
package driver

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/aherbert/gdsc-sub001/internal/config"
	"github.com/aherbert/gdsc-sub001/internal/logger"
	"github.com/aherbert/gdsc-sub001/internal/pipeline"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// Job is a single image submitted to the pool, identified by Name for
// result correlation and error reporting.
type Job struct {
	Name   string
	Source voxel.Source
	Config config.Resolved
}

// Outcome pairs a Job's Name with its pipeline result or error.
type Outcome struct {
	Name   string
	Result pipeline.Result
	Err    error
}

// Pool runs FindMaxima over a bounded number of goroutines, reporting
// progress via a shared atomic counter so a caller (CLI progress bar,
// GUI status line) can poll completion without synchronising on the
// result channel.
type Pool struct {
	orch      *pipeline.Orchestrator
	workers   chan struct{}
	completed atomic.Int64
	total     atomic.Int64
}

// NewPool returns a Pool sized to the host's CPU count, or concurrency
// if positive.
func NewPool(collaborators pipeline.Collaborators, log logger.Logger, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	workers := make(chan struct{}, concurrency)
	for i := 0; i < concurrency; i++ {
		workers <- struct{}{}
	}
	return &Pool{
		orch:    pipeline.New(collaborators, log),
		workers: workers,
	}
}

// Completed returns the number of jobs finished so far (success or
// failure), safe to poll concurrently with Run.
func (p *Pool) Completed() int64 { return p.completed.Load() }

// Total returns the number of jobs submitted to the current Run call.
func (p *Pool) Total() int64 { return p.total.Load() }

// Run submits jobs to the pool and blocks until every job has completed
// or ctx is cancelled. Outcomes are returned in the same order as jobs,
// not completion order, so callers can zip them back to their inputs.
func (p *Pool) Run(ctx context.Context, jobs []Job, capacity int, interrupted func() bool) ([]Outcome, error) {
	p.completed.Store(0)
	p.total.Store(int64(len(jobs)))

	outcomes := make([]Outcome, len(jobs))
	var wg sync.WaitGroup

	for i, job := range jobs {
		select {
		case <-ctx.Done():
			return outcomes, fmt.Errorf("driver: %w", ctx.Err())
		default:
		}

		wg.Add(1)
		go func(idx int, j Job) {
			defer wg.Done()

			select {
			case <-p.workers:
				defer func() { p.workers <- struct{}{} }()
			case <-ctx.Done():
				outcomes[idx] = Outcome{Name: j.Name, Err: ctx.Err()}
				p.completed.Add(1)
				return
			}

			result, err := p.orch.FindMaxima(ctx, j.Source, j.Config, capacity, interrupted)
			if err != nil {
				outcomes[idx] = Outcome{Name: j.Name, Err: fmt.Errorf("%s: %w", j.Name, err)}
			} else {
				outcomes[idx] = Outcome{Name: j.Name, Result: result}
			}
			p.completed.Add(1)
		}(i, job)
	}

	wg.Wait()
	return outcomes, nil
}
