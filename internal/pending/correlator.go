// Package pending bridges a synchronous-looking await inside the task loop
// to an asynchronous human answer arriving from outside the process,
// typically over a WebSocket connection or the CLI prompt.
package pending

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"codescout/internal/logging"
)

// DefaultTimeout bounds how long a prompt may stay unanswered.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrTimeout is returned when no answer arrived before the deadline.
	ErrTimeout = errors.New("pending: prompt timed out waiting for an answer")

	// ErrCancelled is returned when the owning connection closed with the
	// prompt still outstanding.
	ErrCancelled = errors.New("pending: prompt cancelled, connection closed")
)

type outcome struct {
	answer string
	err    error
}

type entry struct {
	question string
	done     chan outcome // buffered; receives exactly one outcome
	timer    *time.Timer
	settled  bool // outcome already sent; guards exactly-once delivery
}

// Correlator issues prompt ids, stores resolvers, applies timeouts, and
// resolves or rejects entries when an external answer event arrives.
// One Correlator is owned per connection so a closing connection can
// proactively reject everything it still owes an answer to.
type Correlator struct {
	mu      sync.Mutex
	entries map[string]*entry
	timeout time.Duration
}

// New creates a Correlator. A non-positive timeout falls back to DefaultTimeout.
func New(timeout time.Duration) *Correlator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Correlator{
		entries: make(map[string]*entry),
		timeout: timeout,
	}
}

// Create registers a question and returns its prompt id. The entry is
// rejected with ErrTimeout if no answer arrives before the deadline.
func (c *Correlator) Create(question string) string {
	id := uuid.NewString()

	e := &entry{
		question: question,
		done:     make(chan outcome, 1),
	}
	e.timer = time.AfterFunc(c.timeout, func() {
		c.reject(id, ErrTimeout)
		// An entry settled but never awaited would otherwise stay in the
		// map forever; the deadline is its last chance to be collected.
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
	})

	c.mu.Lock()
	c.entries[id] = e
	c.mu.Unlock()

	logging.PendingDebug("registered prompt %s (timeout=%v)", id, c.timeout)
	return id
}

// Await blocks until the prompt is resolved, rejected, or ctx expires.
// The entry stays registered until awaited, so an answer arriving before
// Await (the synchronous CLI prompt path) is not lost.
func (c *Correlator) Await(ctx context.Context, id string) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[id]
	c.mu.Unlock()
	if !ok {
		return "", ErrCancelled
	}
	defer func() {
		e.timer.Stop()
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
	}()

	select {
	case out := <-e.done:
		return out.answer, out.err
	case <-ctx.Done():
		c.reject(id, ctx.Err())
		// The rejection may have lost the race against a concurrent resolve;
		// drain whichever outcome actually won.
		out := <-e.done
		return out.answer, out.err
	}
}

// Resolve delivers an answer for an outstanding prompt. Resolving an
// unknown or already-resolved id is a silent no-op.
func (c *Correlator) Resolve(id, answer string) {
	e := c.take(id)
	if e == nil {
		logging.PendingDebug("resolve for unknown prompt %s ignored", id)
		return
	}
	logging.Pending("prompt %s resolved", id)
	e.done <- outcome{answer: answer}
}

// CancelAll rejects every outstanding prompt. Called when the owning
// connection closes so no await can hang forever.
func (c *Correlator) CancelAll() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.entries))
	for id, e := range c.entries {
		if !e.settled {
			ids = append(ids, id)
		}
	}
	c.mu.Unlock()

	if len(ids) > 0 {
		logging.Pending("cancelling %d outstanding prompt(s)", len(ids))
	}
	for _, id := range ids {
		c.reject(id, ErrCancelled)
	}
}

// Outstanding returns the number of unanswered prompts.
func (c *Correlator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if !e.settled {
			n++
		}
	}
	return n
}

// take marks the entry for id settled and returns it. Returns nil if the
// id is unknown or already settled, which makes duplicate resolves a no-op.
// The timer keeps running so a settled entry whose Await never comes is
// still swept from the map at the deadline.
func (c *Correlator) take(id string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok || e.settled {
		return nil
	}
	e.settled = true
	return e
}

func (c *Correlator) reject(id string, err error) {
	e := c.take(id)
	if e == nil {
		return
	}
	logging.Pending("prompt %s rejected: %v", id, err)
	e.done <- outcome{err: err}
}
