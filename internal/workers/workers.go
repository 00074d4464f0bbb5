package workers

import (
	"context"
	"sync"
)

// Workers runs a fixed set of workers, each on its own goroutine.
type Workers struct {
	workers []Worker
	wg      sync.WaitGroup
}

func NewWorkers(ws ...Worker) *Workers {
	return &Workers{workers: ws}
}

// Run starts every worker and returns at once.
func (w *Workers) Run(ctx context.Context) {
	for _, worker := range w.workers {
		w.wg.Go(func() {
			worker.Run(ctx)
		})
	}
}

// Wait blocks until every started worker has returned.
func (w *Workers) Wait() {
	w.wg.Wait()
}
