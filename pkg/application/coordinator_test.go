package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCoordinator_NeverExceedsLimit(t *testing.T) {
	const (
		limit  = 5
		checks = 100
	)
	coord := NewCoordinator(limit)

	var (
		running atomic.Int64
		maxSeen atomic.Int64
		wg      sync.WaitGroup
	)
	for i := 0; i < checks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := coord.Do(context.Background(), func(context.Context) error {
				n := running.Add(1)
				defer running.Add(-1)
				for {
					m := maxSeen.Load()
					if n <= m || maxSeen.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := maxSeen.Load(); got > limit {
		t.Errorf("observed %d concurrent operations, limit is %d", got, limit)
	}
	if got := coord.Peak(); got > limit || got < 1 {
		t.Errorf("Peak() = %d, want within [1, %d]", got, limit)
	}
	if got := coord.Admitted(); got != checks {
		t.Errorf("Admitted() = %d, want %d", got, checks)
	}
	if got := coord.InFlight(); got != 0 {
		t.Errorf("InFlight() = %d after completion, want 0", got)
	}
}

func TestCoordinator_CancelledWhileWaiting(t *testing.T) {
	coord := NewCoordinator(1)

	release := make(chan struct{})
	started := make(chan struct{})
	go coord.Do(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ran := false
	err := coord.Do(ctx, func(context.Context) error {
		ran = true
		return nil
	})
	close(release)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want deadline exceeded", err)
	}
	if ran {
		t.Error("fn ran without a free slot")
	}
}

func TestCoordinator_PropagatesError(t *testing.T) {
	coord := NewCoordinator(0)
	if coord.Limit() != 1 {
		t.Errorf("Limit() = %d, want 1", coord.Limit())
	}

	want := errors.New("boom")
	if err := coord.Do(context.Background(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("Do() error = %v, want %v", err, want)
	}
}
