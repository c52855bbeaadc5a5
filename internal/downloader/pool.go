package downloader

import "context"

// Pool bounds how many download tasks run at once. Waiters are admitted in
// roughly the order they arrived.
type Pool struct {
	slots chan struct{}
}

// NewPool returns a pool with capacity slots. Capacities below one are
// raised to one.
func NewPool(capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (p *Pool) Release() {
	<-p.slots
}

// Capacity is the maximum number of slots held at once.
func (p *Pool) Capacity() int {
	return cap(p.slots)
}

// InUse is the number of slots currently held.
func (p *Pool) InUse() int {
	return len(p.slots)
}
