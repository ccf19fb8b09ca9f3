package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Coordinator owns the process-wide research coordination state: the set of
// lead IDs with a research run in flight, and the gate bounding simultaneous
// provider calls. One Coordinator is shared by every orchestrator, batch, and
// HTTP handler in the process.
type Coordinator struct {
	sem *semaphore.Weighted

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCoordinator creates a coordinator with the given provider-call bound.
// A bound <= 0 falls back to 2.
func NewCoordinator(maxConcurrent int) *Coordinator {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &Coordinator{
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		inFlight: make(map[string]struct{}),
	}
}

// Begin atomically marks the lead as in flight. It returns false if a run
// for the same lead is already in flight, in which case the caller must not
// call End.
func (c *Coordinator) Begin(leadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inFlight[leadID]; ok {
		return false
	}
	c.inFlight[leadID] = struct{}{}
	return true
}

// End clears the lead's in-flight marker. It must run on every exit path of
// a research attempt, success or failure.
func (c *Coordinator) End(leadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, leadID)
}

// InFlight reports whether a research run for the lead is currently active.
func (c *Coordinator) InFlight(leadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[leadID]
	return ok
}

// Acquire blocks until a provider-call slot is free or the context ends.
func (c *Coordinator) Acquire(ctx context.Context) error {
	return c.sem.Acquire(ctx, 1)
}

// Release frees a provider-call slot taken by Acquire.
func (c *Coordinator) Release() {
	c.sem.Release(1)
}
