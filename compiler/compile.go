package compiler

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/errors"
)

// Job is one independent compilation.
type Job struct {
	Run  func(*Unit) error
	Name string
}

// Result reports how a Job ended. Results are in job order.
type Result struct {
	Err            error
	Name           string
	Layouts        int
	Pages          int
	BytesAllocated uintptr
	BytesUsed      uintptr
}

// Compile runs jobs on up to cfg.Workers goroutines, each in a fresh Unit
// that is closed when the job returns. Jobs not yet started when ctx is done
// report a canceled error.
func Compile(ctx context.Context, ts jitlayout.TypeSystem, cfg Config, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(jobs))

	work := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				results[i] = runJob(ctx, ts, cfg, jobs[i])
			}
		}()
	}

	for i := range jobs {
		work <- i
	}
	close(work)
	wg.Wait()

	return results
}

func runJob(ctx context.Context, ts jitlayout.TypeSystem, cfg Config, job Job) Result {
	res := Result{Name: job.Name}
	if err := ctx.Err(); err != nil {
		res.Err = errors.Wrap(errors.PhaseCompile, errors.KindCanceled, err, "job "+job.Name)
		return res
	}

	u := NewUnit(ts, cfg)
	defer u.Close()

	res.Err = u.Run(job.Run)
	res.Layouts = u.table.Len()
	res.Pages = u.arena.PageCount()
	res.BytesAllocated = u.arena.TotalBytesAllocated()
	res.BytesUsed = u.arena.TotalBytesUsed()

	if res.Err != nil {
		Logger().Debug("job failed", zap.String("job", job.Name), zap.Error(res.Err))
	}
	return res
}
