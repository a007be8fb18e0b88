package worker

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool runs blocking calls on worker goroutines, at most Workers() at a time.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

func (p *Pool) Workers() int {
	return p.size
}

// Do runs fn on a worker and waits for it to finish. If ctx is done first,
// Do returns ctx.Err() and fn keeps running until it observes the same ctx.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		jobsTotal.WithLabelValues("rejected").Inc()
		return err
	}

	done := make(chan error, 1)
	inFlight.Inc()
	go func() {
		defer p.sem.Release(1)
		defer inFlight.Dec()
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("worker panic: %v", r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			jobsTotal.WithLabelValues("error").Inc()
		} else {
			jobsTotal.WithLabelValues("ok").Inc()
		}
		return err
	case <-ctx.Done():
		jobsTotal.WithLabelValues("cancelled").Inc()
		return ctx.Err()
	}
}
