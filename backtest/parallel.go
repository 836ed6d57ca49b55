package backtest

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Job is one isolated backtest. Run must build its own account, feed and
// journal; only read-only inputs such as a datasource.Provider may be shared.
type Job struct {
	Name string
	Run  func(ctx context.Context) (Result, error)
}

type JobResult struct {
	Name   string
	Result Result
	Err    error
}

// RunParallel runs jobs with at most workers in flight (NumCPU when
// workers <= 0). Results come back in job order. A failing job is reported
// in its JobResult and does not stop the others.
func RunParallel(ctx context.Context, jobs []Job, workers int) []JobResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([]JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := job.Run(gctx)
			out[i] = JobResult{Name: job.Name, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
