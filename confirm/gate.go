// Package confirm implements the rendezvous that suspends a dangerous tool
// call until a human approves or denies it.
package confirm

import (
	"context"
	"sync"
)

// Gate parks one waiter per tool-call id until Resolve delivers the human
// decision. The protocol only ever has one outstanding confirmation per task,
// but waiters are keyed by id so a stale resolution can never hit the wrong
// call.
type Gate struct {
	mu      sync.Mutex
	waiters map[string]chan bool
}

func NewGate() *Gate {
	return &Gate{waiters: make(map[string]chan bool)}
}

// Wait blocks until the decision for toolCallID arrives or ctx is cancelled.
// Cancellation counts as a denial: the suspended tool must not execute.
// No timeout is imposed; a human may take arbitrarily long.
func (g *Gate) Wait(ctx context.Context, toolCallID string) bool {
	ch := make(chan bool, 1)

	g.mu.Lock()
	g.waiters[toolCallID] = ch
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.waiters, toolCallID)
		g.mu.Unlock()
	}()

	select {
	case approved := <-ch:
		return approved
	case <-ctx.Done():
		return false
	}
}

// Resolve delivers the decision for toolCallID. Resolving an unknown or
// already-resolved id is a no-op, not a fault.
func (g *Gate) Resolve(toolCallID string, approved bool) {
	g.mu.Lock()
	ch, ok := g.waiters[toolCallID]
	if ok {
		delete(g.waiters, toolCallID)
	}
	g.mu.Unlock()

	if ok {
		ch <- approved
	}
}

// Pending reports whether a waiter is currently parked for toolCallID.
func (g *Gate) Pending(toolCallID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.waiters[toolCallID]
	return ok
}
