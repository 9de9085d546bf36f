package checkout

import (
	"sync"
	"time"
)

// CompletionTracker counts completed customers against the expected total.
// The finished transition happens exactly once.
type CompletionTracker struct {
	total int

	mu         sync.Mutex
	completed  int
	finishedAt time.Time
	done       chan struct{}
}

// NewCompletionTracker expects total completions.
func NewCompletionTracker(total int) *CompletionTracker {
	return &CompletionTracker{
		total: total,
		done:  make(chan struct{}),
	}
}

// Complete records one completion at time at. It returns the new count and
// whether this call finished the run. Completions past the total are ignored.
func (t *CompletionTracker) Complete(at time.Time) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.completed >= t.total {
		return t.completed, false
	}

	t.completed++
	if t.completed < t.total {
		return t.completed, false
	}

	t.finishedAt = at
	close(t.done)

	return t.completed, true
}

// Done is closed once every expected customer has completed.
func (t *CompletionTracker) Done() <-chan struct{} {
	return t.done
}

// Total returns the expected number of completions.
func (t *CompletionTracker) Total() int {
	return t.total
}

// Completed returns the current count.
func (t *CompletionTracker) Completed() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.completed
}

// Finished reports whether the run finished and when.
func (t *CompletionTracker) Finished() (bool, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.completed >= t.total, t.finishedAt
}
