package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
)

// ErrQueueClosed is returned when enqueueing into a closed queue
var ErrQueueClosed = errors.New("queue is closed")

// CandidateQueue implements repository.CandidateQueue over a bounded channel.
// Enqueue blocks while the queue is full, which is what throttles the source.
type CandidateQueue struct {
	ch     chan entity.Candidate
	done   chan struct{}
	closed bool
	mu     sync.RWMutex
	once   sync.Once
}

// NewCandidateQueue creates a new candidate queue
func NewCandidateQueue(size int) *CandidateQueue {
	return &CandidateQueue{
		ch:   make(chan entity.Candidate, size),
		done: make(chan struct{}),
	}
}

// Enqueue adds a candidate, blocking until there is room or ctx is done
func (q *CandidateQueue) Enqueue(ctx context.Context, c entity.Candidate) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	}
}

// Dequeue removes and returns a candidate from the queue
func (q *CandidateQueue) Dequeue() (entity.Candidate, bool) {
	c, ok := <-q.ch
	return c, ok
}

// Len returns the current queue length
func (q *CandidateQueue) Len() int {
	return len(q.ch)
}

// Close closes the queue. Queued candidates can still be dequeued.
func (q *CandidateQueue) Close() {
	// Unblock pending Enqueue calls before taking the write lock they hold
	q.once.Do(func() { close(q.done) })

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
