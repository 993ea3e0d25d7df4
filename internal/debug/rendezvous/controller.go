// Package rendezvous implements the blocking handoff between the
// interpreter's execution thread and the network-facing decision maker.
//
// The interpreter invokes the break callback synchronously on its own thread
// and cannot proceed until a decision arrives. Suspend genuinely blocks that
// thread on a condition variable; Resume and Cancel are called from the
// network side. Cancel is sticky and idempotent: once cancelled, every
// current and future Suspend returns Dead immediately, which is what makes
// session teardown safe while a thread is parked.
package rendezvous

import (
	"sync"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/execution"
)

// Controller coordinates one session's suspend/resume handshake.
type Controller struct {
	mu        sync.Mutex
	cond      *sync.Cond
	decided   bool
	state     execution.State
	cancelled bool
}

// New creates a controller with no pending decision.
func New() *Controller {
	c := &Controller{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Arm discards any stale decision so the next Suspend waits for a fresh one.
// Called at the top of each break-hook invocation.
func (c *Controller) Arm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decided = false
}

// Suspend blocks until Resume or Cancel and returns the post-wait state.
// A decision that arrived before Suspend is consumed without blocking.
// After Cancel the return value is always Dead and the caller must unwind
// without resuming interpreter logic.
func (c *Controller) Suspend() execution.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	for !c.decided && !c.cancelled {
		c.cond.Wait()
	}
	if c.cancelled {
		return execution.Dead
	}
	// The decision stays visible until the next Arm, so a second Suspend in
	// the same hook invocation (step-over depth recheck) sees it too.
	return c.state
}

// Resume releases a suspended thread into state.
func (c *Controller) Resume(state execution.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.decided = true
	c.cond.Broadcast()
}

// Cancel permanently releases the controller. Safe to call multiple times
// and from multiple goroutines.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
	c.cond.Broadcast()
}

// Decided reports whether a decision is already pending, in which case
// Suspend will return without blocking. Cancellation counts as a decision.
func (c *Controller) Decided() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decided || c.cancelled
}

// Cancelled reports whether the controller has been torn down.
func (c *Controller) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}
