// Package turn models the till's cooperative event loop. Work deferred
// during one turn runs only when the owner yields, never inline.
package turn

// Queue is a FIFO of deferred tasks. It is owned by a single goroutine.
type Queue struct {
	tasks []func()
}

func New() *Queue {
	return &Queue{}
}

// Defer schedules fn for a later turn.
func (q *Queue) Defer(fn func()) {
	if fn == nil {
		return
	}
	q.tasks = append(q.tasks, fn)
}

// Yield ends the current turn: tasks queued before the call run in order.
// Tasks they defer wait for the next Yield. It returns the number of tasks run.
func (q *Queue) Yield() int {
	batch := q.tasks
	q.tasks = nil
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Pending reports how many tasks are waiting for a turn.
func (q *Queue) Pending() int {
	return len(q.tasks)
}

// Drain yields until nothing is pending.
func (q *Queue) Drain() int {
	n := 0
	for len(q.tasks) > 0 {
		n += q.Yield()
	}
	return n
}
