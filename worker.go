package worksteal

import (
	"time"

	"github.com/bytedance/gopkg/lang/fastrand"
)

// Worker is an OS-thread-shaped execution loop paired with exactly one
// deque. Worker methods that mutate the deque bottom (Schedule,
// ScheduleChild, Spawn) or consume work (Wait) are owner-side operations:
// they may only be called from this worker's goroutine, in practice from
// inside a payload that received the worker handle.
type Worker struct {
	id      int
	fleet   *Fleet
	deque   *Deque
	current *Task // task executing on this worker; worker-goroutine local
	backoff stealBackoff
}

// ID returns the worker id in [0, fleet size).
func (w *Worker) ID() int {
	return w.id
}

// Deque returns the worker's own deque.
func (w *Worker) Deque() *Deque {
	return w.deque
}

// Current returns the task currently executing on this worker. Only
// meaningful when called from the worker's own goroutine.
func (w *Worker) Current() *Task {
	return w.current
}

// run is the worker main loop: drain the local deque, then attempt a
// single steal from a uniformly random victim (self included), observing
// the shutdown flag at the top of each iteration. In-flight tasks run to
// completion; shutdown only prevents new work from being picked up.
func (w *Worker) run() {
	defer w.fleet.workerStopped(w)
	w.fleet.workerStarted(w)

	cur := w.deque.Pop()
	for !w.fleet.done.Load() {
		for cur != nil {
			w.backoff.hit()
			w.execute(cur)
			cur = w.deque.Pop()
		}
		cur = w.stealOnce()
		if cur == nil {
			w.backoff.miss()
		}
	}
	// a task taken off a deque before the flag was observed still runs
	if cur != nil {
		w.execute(cur)
	}
}

// stealOnce picks a uniformly random victim and attempts one steal.
// The per-P generators behind fastrand are seeded independently, so
// freshly started workers do not gang up on the same victim.
func (w *Worker) stealOnce() *Task {
	workers := w.fleet.workers
	victim := workers[fastrand.Intn(len(workers))]
	t := victim.deque.Steal()
	if t == nil {
		w.fleet.metrics.StealMisses.Add(1)
		return nil
	}
	if victim.id != w.id {
		w.fleet.metrics.Stolen.Add(1)
	}
	return t
}

// execute runs a task on this worker. current is left pointing at the
// finished task; Wait manages saving and restoring it around nested
// execution.
func (w *Worker) execute(t *Task) {
	w.current = t
	w.invoke(t)
}

// invoke runs the payload with panic recovery and marks the task
// complete whatever the outcome: a panicking payload still completes,
// the panic value goes to the fleet's panic handler.
func (w *Worker) invoke(t *Task) {
	f := w.fleet
	var started time.Time
	if f.hooks != nil {
		started = time.Now()
		if f.hooks.HasHooks(HookBeforeTask) {
			f.hooks.Trigger(HookBeforeTask, &TaskInfo{
				FleetID:   f.id,
				WorkerID:  w.id,
				StartedAt: started,
			})
		}
	}

	defer func() {
		var panicVal any
		if r := recover(); r != nil {
			panicVal = r
			f.metrics.Panics.Add(1)
			f.handlePanic(w, r)
		}
		f.metrics.Executed.Add(1)
		t.done.Store(true)
		t.release()

		if f.hooks != nil && f.hooks.HasHooks(HookAfterTask) {
			now := time.Now()
			f.hooks.Trigger(HookAfterTask, &TaskInfo{
				FleetID:    f.id,
				WorkerID:   w.id,
				StartedAt:  started,
				FinishedAt: now,
				ExecTime:   now.Sub(started),
				Error:      panicVal,
			})
		}
	}()

	t.fn(w, t.data)
}

// Schedule pushes a root task on this worker's own deque. No parent
// bookkeeping is done; use ScheduleChild or Spawn to link a child.
func (w *Worker) Schedule(t *Task) error {
	if t == nil {
		return ErrNilTask
	}
	if w.fleet.done.Load() {
		return ErrFleetClosed
	}
	if err := w.deque.Push(t); err != nil {
		return err
	}
	w.fleet.metrics.Submitted.Add(1)
	return nil
}

// ScheduleChild links child under parent and pushes it on this worker's
// deque. The parent's counter is reserved before the push: once the
// child is visible to thieves it can complete at any moment.
func (w *Worker) ScheduleChild(parent, child *Task) error {
	if parent == nil || child == nil {
		return ErrNilTask
	}
	if w.fleet.done.Load() {
		return ErrFleetClosed
	}
	parent.addChild(child)
	if err := w.deque.Push(child); err != nil {
		parent.unlinkChild(child)
		return err
	}
	w.fleet.metrics.Spawned.Add(1)
	return nil
}

// Spawn schedules child under the task currently executing on this
// worker. Calling it outside a running payload is a precondition
// violation and returns ErrNoCurrentTask.
func (w *Worker) Spawn(child *Task) error {
	parent := w.current
	if parent == nil {
		return ErrNoCurrentTask
	}
	return w.ScheduleChild(parent, child)
}

// Wait blocks the calling task, not the worker, until t is done: the
// worker keeps popping its own deque and stealing from random victims,
// executing whatever it obtains. The common case, the awaited child
// still sitting on this worker's deque, resolves on the first pop.
//
// Wait is reentrant; the goroutine stack grows with the depth of the
// wait chain. Waiting on an already-done task returns immediately.
func (w *Worker) Wait(t *Task) {
	if t == nil || t.Done() {
		return
	}
	w.fleet.metrics.Waits.Add(1)
	old := w.current
	for !t.Done() {
		next := w.deque.Pop()
		if next == nil {
			next = w.stealOnce()
		}
		if next == nil {
			w.backoff.miss()
			continue
		}
		w.backoff.hit()
		w.execute(next)
	}
	w.current = old
}
