package jsfs

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Dispatcher runs fs calls as tasks on a single worker goroutine, in the order
// they were submitted. The guest's call returns as soon as its task is queued;
// the task's callback fires on the worker.
type Dispatcher struct {
	m      sync.RWMutex
	closed bool

	tasks chan func()
	g     errgroup.Group
}

// NewDispatcher starts a dispatcher whose queue holds up to queue pending
// tasks, and at least one. Submit blocks while the queue is full, so a
// callback that issues the guest's next call from the worker needs a free
// slot: at most queue such calls may be outstanding at once.
func NewDispatcher(queue int) *Dispatcher {
	if queue < 1 {
		queue = 1
	}
	d := &Dispatcher{tasks: make(chan func(), queue)}
	d.g.Go(func() error {
		for task := range d.tasks {
			task()
		}
		return nil
	})
	return d
}

// Submit queues task. It fails once the dispatcher is closed.
func (d *Dispatcher) Submit(task func()) error {
	d.m.RLock()
	defer d.m.RUnlock()

	if d.closed {
		return errDispatcherClosed
	}
	d.tasks <- task
	return nil
}

// Close stops accepting tasks and waits for queued tasks to finish.
func (d *Dispatcher) Close() error {
	d.m.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.m.Unlock()

	return d.g.Wait()
}
