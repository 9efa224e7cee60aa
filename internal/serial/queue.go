// Package serial provides a single-worker FIFO task queue. Each store
// instance owns one, which gives its operations a strict issue order without
// callers taking locks.
package serial

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("serial: queue closed")

// Queue runs submitted tasks one at a time, in submission order, on a single
// goroutine. Submit never blocks: pending tasks are kept in an unbounded list.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool
	done   chan struct{}
}

func New() *Queue {
	q := &Queue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Submit appends f to the queue. It returns ErrClosed once Close was called.
// Tasks may submit further tasks; those run after everything already queued.
func (q *Queue) Submit(f func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.tasks = append(q.tasks, f)
	q.mu.Unlock()
	q.cond.Signal()
	return nil
}

// Close stops accepting tasks, runs the ones already queued, and waits for the
// worker to exit. Safe to call more than once. Must not be called from a task.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	<-q.done
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		f := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		f()
	}
}
