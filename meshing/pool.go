package meshing

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/voxterrain/dvid"
)

// Job is one mesh to build.  Output must be non-nil and not shared with another job.
type Job struct {
	Input  Input
	Output *Output
}

// Pool builds meshes on a fixed number of workers, each owning its mesher cache.
type Pool struct {
	workers int
	results *ResultCache
}

// NewPool returns a pool of the given number of workers, or one per CPU if workers is
// not positive.  results may be nil.
func NewPool(workers int, results *ResultCache) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers, results: results}
}

func (p *Pool) Workers() int {
	return p.workers
}

// Results returns the result cache of the pool, nil if meshes are not cached.
func (p *Pool) Results() *ResultCache {
	return p.results
}

// Build meshes one input with the given cache, going through the result cache if any.
func (p *Pool) Build(m Mesher, out *Output, in Input, cache Cache) error {
	var key string
	var hash uint64
	if p.results != nil && in.Voxels != nil {
		key = m.ConfigKey()
		hash = in.Voxels.ContentHash()
		found, err := p.results.Get(key, hash, out)
		if err != nil {
			dvid.Errorf("mesh cache lookup failed: %v\n", err)
		} else if found {
			return nil
		}
	}
	name := MesherName(m)
	start := time.Now()
	if err := m.Build(out, in, cache); err != nil {
		return err
	}
	instrumentBuild(name, start, out)
	if p.results != nil && in.Voxels != nil {
		if err := p.results.Set(key, hash, out); err != nil {
			dvid.Debugf("mesh not cached: %v\n", err)
		}
	}
	return nil
}

// BuildAll meshes every job.  Cancellation of ctx is checked between jobs; a build in
// progress always completes.  The first error stops the remaining jobs.
func (p *Pool) BuildAll(ctx context.Context, m Mesher, jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}
	for i := range jobs {
		if jobs[i].Output == nil {
			return fmt.Errorf("mesh job %d has no output", i)
		}
	}
	timedLog := dvid.NewTimeLog()
	g, ctx := errgroup.WithContext(ctx)
	next := make(chan int)
	g.Go(func() error {
		defer close(next)
		for i := range jobs {
			select {
			case next <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	workers := p.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			cache := m.NewCache()
			for i := range next {
				if err := ctx.Err(); err != nil {
					return err
				}
				job := jobs[i]
				if err := p.Build(m, job.Output, job.Input, cache); err != nil {
					return fmt.Errorf("mesh job %d: %w", i, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	timedLog.Debugf("Built %d %s meshes with %d workers", len(jobs), MesherName(m), workers)
	return nil
}
