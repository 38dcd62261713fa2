// Package worksteal provides a multi-threaded task scheduler built on the
// Arora–Blumofe–Plaxton lock-free work-stealing deque.
//
// Each worker goroutine owns a bounded deque of tasks. A worker drains its
// own deque LIFO and, when empty, steals the oldest task from a uniformly
// random peer. Tasks may spawn children and cooperatively wait for them
// without ever blocking the worker.
//
// Basic usage:
//
//	fleet, _ := worksteal.Start(4)
//	defer fleet.Stop()
//
//	root := worksteal.NewTask(func(w *worksteal.Worker, data any) {
//	    child := worksteal.NewTask(process, payload)
//	    w.Spawn(child)
//	    w.Wait(child)
//	}, nil)
//	fleet.Submit(0, root)
//
// Prometheus metric export lives in the prom subpackage.
package worksteal
