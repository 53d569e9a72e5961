// Package workpool runs independent jobs over a bounded set of goroutines.
package workpool

import (
	"runtime"
	"sync"
)

// Pool distributes jobs across workers and collects their results.
type Pool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// New sizes the pool. numWorkers <= 0 uses GOMAXPROCS; the pool never
// starts more workers than there are jobs.
func New[Job any, Result any](numWorkers, numJobs int) *Pool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}
	return &Pool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numJobs),
		results:    make(chan Result, numJobs),
	}
}

func (p *Pool[Job, Result]) Workers() int { return p.numWorkers }

// Start launches the workers; fn is called once per submitted job.
func (p *Pool[Job, Result]) Start(fn func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- fn(job)
			}
		}()
	}
}

func (p *Pool[Job, Result]) Submit(job Job) {
	p.jobs <- job
}

// Close stops accepting jobs. Results is closed once every worker is done.
func (p *Pool[Job, Result]) Close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

func (p *Pool[Job, Result]) Results() <-chan Result {
	return p.results
}

// Map runs fn over jobs with at most workers goroutines and returns the
// results in completion order.
func Map[Job any, Result any](workers int, jobs []Job, fn func(Job) Result) []Result {
	p := New[Job, Result](workers, len(jobs))
	p.Start(fn)
	for _, j := range jobs {
		p.Submit(j)
	}
	p.Close()
	out := make([]Result, 0, len(jobs))
	for r := range p.Results() {
		out = append(out, r)
	}
	return out
}
