package probe

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pitprobe/pitprobe/internal/probe/protocol"
)

// ErrCommandTimeout is delivered to a waiter whose response never arrived.
var ErrCommandTimeout = errors.New("probe: command timed out")

// Router correlates an outgoing command code to the caller awaiting its
// response. A waiter is completed exactly once: by the first matching
// response, by its timeout, or by FailAll on teardown, whichever comes
// first. Registration and timeout firing are serialized under one mutex so a
// response racing a timeout can never complete a waiter twice.
type Router struct {
	mu      sync.Mutex
	pending map[byte]*pendingCommand
}

type pendingCommand struct {
	cmd      byte
	timer    CancelFunc
	complete func(protocol.SOHFrame, error)
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{pending: make(map[byte]*pendingCommand)}
}

// Await registers a waiter for the given command code. At most one waiter
// per code may be outstanding.
func (r *Router) Await(sched Scheduler, cmd byte, timeout time.Duration, complete func(protocol.SOHFrame, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[cmd]; exists {
		return fmt.Errorf("probe: command 0x%02X already has a pending waiter", cmd)
	}

	p := &pendingCommand{cmd: cmd, complete: complete}
	p.timer = sched.After(timeout, func() {
		r.fail(cmd, p, ErrCommandTimeout)
	})
	r.pending[cmd] = p
	return nil
}

// Resolve completes the waiter matching the frame's command code, if any.
// Returns true when a waiter consumed the frame.
func (r *Router) Resolve(f protocol.SOHFrame) bool {
	r.mu.Lock()
	p, ok := r.pending[f.Cmd]
	if ok {
		delete(r.pending, f.Cmd)
		p.timer()
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	p.complete(f, nil)
	return true
}

// FailAll completes every outstanding waiter with err immediately. Used on
// disconnect so callers never sit out a full timeout for a dead link.
func (r *Router) FailAll(err error) {
	r.mu.Lock()
	outstanding := make([]*pendingCommand, 0, len(r.pending))
	for cmd, p := range r.pending {
		delete(r.pending, cmd)
		p.timer()
		outstanding = append(outstanding, p)
	}
	r.mu.Unlock()

	for _, p := range outstanding {
		p.complete(protocol.SOHFrame{}, err)
	}
}

// PendingCount returns the number of outstanding waiters.
func (r *Router) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// fail completes a specific waiter if it is still the registered one.
func (r *Router) fail(cmd byte, p *pendingCommand, err error) {
	r.mu.Lock()
	current, ok := r.pending[cmd]
	if !ok || current != p {
		// Already resolved, or superseded by a later waiter.
		r.mu.Unlock()
		return
	}
	delete(r.pending, cmd)
	r.mu.Unlock()

	p.complete(protocol.SOHFrame{}, err)
}
