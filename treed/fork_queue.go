package treed

import (
	"runtime"
	"sync/atomic"
)

// A forkQueue runs recursive divide-and-conquer work, such as building the
// two branches of a tree, on a fixed pool of Goroutines.
//
// The root task is started with Run(). Inside a task, Fork() evaluates two
// sub-tasks, offering the second one to idle workers and running it inline if
// nobody has picked it up by the time the first one is finished.
type forkQueue[T any] struct {
	tasks chan *forkTask[T]
}

type forkTask[T any] struct {
	claimed int32
	fn      func() T
	done    chan T
}

// claim returns true exactly once, for whichever Goroutine gets to run t.
func (t *forkTask[T]) claim() bool {
	return atomic.CompareAndSwapInt32(&t.claimed, 0, 1)
}

func newForkQueue[T any](numWorkers int) *forkQueue[T] {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	q := &forkQueue[T]{
		tasks: make(chan *forkTask[T], numWorkers*1000),
	}
	for i := 0; i < numWorkers; i++ {
		go q.worker()
	}
	return q
}

// Run executes the root task and shuts down the workers once it returns.
// A queue may only be Run once.
func (q *forkQueue[T]) Run(fn func() T) T {
	defer close(q.tasks)
	task := &forkTask[T]{fn: fn, done: make(chan T, 1)}
	q.tasks <- task
	return <-task.done
}

func (q *forkQueue[T]) Fork(fn1, fn2 func() T) (T, T) {
	task := &forkTask[T]{fn: fn2, done: make(chan T, 1)}
	select {
	case q.tasks <- task:
	default:
		// The backlog is full, so bound memory by doing the work here.
		task.claim()
		task.done <- fn2()
	}
	res1 := fn1()
	if task.claim() {
		return res1, fn2()
	}
	return res1, <-task.done
}

func (q *forkQueue[T]) worker() {
	for task := range q.tasks {
		if task.claim() {
			task.done <- task.fn()
		}
	}
}
