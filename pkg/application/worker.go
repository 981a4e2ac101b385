package application

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/repository"
)

// Worker processes queued candidates
type Worker struct {
	id      int
	useCase *ScanUseCase
	queue   repository.CandidateQueue

	currentURL atomic.Value // stores string
	isActive   atomic.Bool
}

// Run starts the worker processing loop. Once ctx is done the worker stops
// taking new candidates, but the one in hand is finished.
func (w *Worker) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c, ok := w.queue.Dequeue()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			return
		}

		w.isActive.Store(true)
		w.currentURL.Store(c.URL)
		w.useCase.process(context.WithoutCancel(ctx), c)
		w.currentURL.Store("")
		w.isActive.Store(false)
	}
}

// IsActive returns whether the worker is currently processing a candidate
func (w *Worker) IsActive() bool {
	return w.isActive.Load()
}

// GetCurrentURL returns the url currently being processed
func (w *Worker) GetCurrentURL() string {
	if v := w.currentURL.Load(); v != nil {
		return v.(string)
	}
	return ""
}
