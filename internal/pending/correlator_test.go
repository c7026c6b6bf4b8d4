package pending

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestResolveDeliversAnswer(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New(time.Second)
	id := c.Create("proceed?")

	go c.Resolve(id, "yes")

	answer, err := c.Await(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "yes", answer)
	assert.Equal(t, 0, c.Outstanding())
}

func TestDoubleResolveIsNoOp(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New(time.Second)
	id := c.Create("proceed?")

	c.Resolve(id, "first")
	c.Resolve(id, "second") // must not panic or overwrite

	answer, err := c.Await(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "first", answer)
}

func TestResolveUnknownIDIsNoOp(t *testing.T) {
	c := New(time.Second)
	c.Resolve("no-such-id", "answer")
	assert.Equal(t, 0, c.Outstanding())
}

func TestTimeoutRejects(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New(20 * time.Millisecond)
	id := c.Create("anyone there?")

	_, err := c.Await(context.Background(), id)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 0, c.Outstanding())
}

func TestCancelAllRejectsEverything(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New(time.Minute)
	ids := []string{c.Create("q1"), c.Create("q2"), c.Create("q3")}
	require.Equal(t, 3, c.Outstanding())

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = c.Await(context.Background(), id)
		}(i, id)
	}

	// Let the awaiters park before cancelling.
	time.Sleep(10 * time.Millisecond)
	c.CancelAll()
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, ErrCancelled)
	}
	assert.Equal(t, 0, c.Outstanding())
}

// An answer delivered to a prompt that is never awaited must not keep the
// entry in the map forever; the deadline sweeps it.
func TestSettledEntryIsSweptAtDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New(20 * time.Millisecond)
	id := c.Create("forgotten")
	c.Resolve(id, "yes")

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.entries) == 0
	}, time.Second, 5*time.Millisecond)
}

// CancelAll after a resolve must not discard the buffered answer; a late
// Await still reads it.
func TestCancelAllPreservesResolvedAnswer(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New(time.Second)
	id := c.Create("proceed?")

	c.Resolve(id, "yes")
	c.CancelAll()

	answer, err := c.Await(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "yes", answer)
}

func TestAwaitRespectsContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New(time.Minute)
	id := c.Create("slow question")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Await(ctx, id)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 0, c.Outstanding())
}

func TestConcurrentResolveAndTimeoutSettleOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Race a resolve against a very short timeout; whichever wins, Await
	// must return exactly once and the entry must be gone.
	for i := 0; i < 50; i++ {
		c := New(time.Millisecond)
		id := c.Create("race")
		go c.Resolve(id, "yes")

		_, err := c.Await(context.Background(), id)
		if err != nil {
			assert.ErrorIs(t, err, ErrTimeout)
		}
		assert.Equal(t, 0, c.Outstanding())
	}
}
