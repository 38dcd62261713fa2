package worksteal

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Configuration
// ============================================================================

// Config holds fleet configuration
type Config struct {
	// DequeCapacity is the fixed per-worker deque bound
	DequeCapacity int

	// SpinBeforeYield is the number of consecutive failed steal attempts
	// a worker spins through before yielding its OS thread
	SpinBeforeYield int

	// PanicHandler receives payload panic values
	PanicHandler func(any)

	// Hooks are the lifecycle hooks, nil disables them
	Hooks *Hooks

	// Logger receives fleet lifecycle events, nil means silent
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		DequeCapacity:   DefaultDequeCapacity,
		SpinBeforeYield: DefaultSpinBeforeYield,
		PanicHandler:    defaultPanicHandler,
	}
}

func defaultPanicHandler(v any) {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	fmt.Printf("[WORKSTEAL PANIC] recovered: %v\n%s\n", v, buf[:n])
}

// Option is a configuration option function
type Option func(*Config)

// WithDequeCapacity sets the fixed per-worker deque capacity
func WithDequeCapacity(n int) Option {
	return func(c *Config) {
		c.DequeCapacity = n
	}
}

// WithSpinBeforeYield sets how many failed steal attempts a worker spins
// through before yielding
func WithSpinBeforeYield(n int) Option {
	return func(c *Config) {
		c.SpinBeforeYield = n
	}
}

// WithPanicHandler sets the payload panic handler
func WithPanicHandler(h func(any)) Option {
	return func(c *Config) {
		c.PanicHandler = h
	}
}

// WithHooks sets the lifecycle hooks
func WithHooks(h *Hooks) Option {
	return func(c *Config) {
		c.Hooks = h
	}
}

// WithLogger sets the structured logger for fleet lifecycle events
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// ============================================================================
// Fleet
// ============================================================================

const (
	stateRunning = iota
	stateClosed
)

// Fleet is the global set of workers and their deques, with an explicit
// start/stop lifecycle. A stopped fleet cannot be restarted.
type Fleet struct {
	id      string
	cfg     Config
	workers []*Worker

	// done is the shutdown flag; read by workers at the top of every
	// loop iteration, written once by Stop or StopTimeout
	done  atomic.Bool
	state atomic.Int32
	wg    sync.WaitGroup

	metrics *Metrics
	hooks   *Hooks
	log     *slog.Logger

	createdAt time.Time
}

// Start spawns n workers, each bound to its own deque, and returns the
// fleet handle. The returned fleet is immediately able to accept roots
// via Submit.
func Start(n int, opts ...Option) (*Fleet, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: fleet size %d", ErrInvalidWorker, n)
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DequeCapacity <= 0 {
		cfg.DequeCapacity = DefaultDequeCapacity
	}
	if cfg.SpinBeforeYield <= 0 {
		cfg.SpinBeforeYield = DefaultSpinBeforeYield
	}

	f := &Fleet{
		id:        uuid.NewString(),
		cfg:       cfg,
		workers:   make([]*Worker, n),
		metrics:   &Metrics{},
		hooks:     cfg.Hooks,
		log:       cfg.Logger,
		createdAt: time.Now(),
	}

	for i := range f.workers {
		f.workers[i] = &Worker{
			id:      i,
			fleet:   f,
			deque:   NewDeque(cfg.DequeCapacity),
			backoff: newStealBackoff(cfg.SpinBeforeYield),
		}
	}

	f.wg.Add(n)
	for _, w := range f.workers {
		go w.run()
	}

	if f.log != nil {
		f.log.Info("fleet started",
			slog.String("fleet_id", f.id),
			slog.Int("workers", n),
			slog.Int("deque_capacity", cfg.DequeCapacity),
		)
	}
	return f, nil
}

// ID returns the fleet instance id.
func (f *Fleet) ID() string {
	return f.id
}

// Size returns the number of workers.
func (f *Fleet) Size() int {
	return len(f.workers)
}

// Worker returns the worker with the given id, or nil if out of range.
func (f *Fleet) Worker(id int) *Worker {
	if id < 0 || id >= len(f.workers) {
		return nil
	}
	return f.workers[id]
}

// IsClosed reports whether Stop has begun.
func (f *Fleet) IsClosed() bool {
	return f.state.Load() == stateClosed
}

// Metrics returns a snapshot of the fleet counters.
func (f *Fleet) Metrics() MetricsSnapshot {
	return f.metrics.Snapshot()
}

// Uptime returns the time since Start.
func (f *Fleet) Uptime() time.Duration {
	return time.Since(f.createdAt)
}

// Submit places a root task on the chosen worker's deque. This is the
// driver-side entry point.
//
// The bottom end of a deque is single-producer: Submit must not race
// with pushes made by the target worker's own payloads. Submit roots
// before the target worker is busy, or give each submitting goroutine
// its own target worker.
//
// Once shutdown has begun submissions are rejected with ErrFleetClosed;
// the fleet gives no delivery guarantee past that point.
func (f *Fleet) Submit(workerID int, t *Task) error {
	if t == nil {
		return ErrNilTask
	}
	if workerID < 0 || workerID >= len(f.workers) {
		return fmt.Errorf("%w: %d", ErrInvalidWorker, workerID)
	}
	if f.done.Load() {
		return ErrFleetClosed
	}
	if err := f.workers[workerID].deque.Push(t); err != nil {
		return err
	}
	f.metrics.Submitted.Add(1)
	return nil
}

// Stop raises the shutdown flag and joins all workers. In-flight tasks
// run to completion; queued tasks that no worker picked up before
// observing the flag are not executed. Idempotent.
func (f *Fleet) Stop() {
	if !f.state.CompareAndSwap(stateRunning, stateClosed) {
		return
	}
	f.done.Store(true)
	f.wg.Wait()

	if f.log != nil {
		s := f.metrics.Snapshot()
		f.log.Info("fleet stopped",
			slog.String("fleet_id", f.id),
			slog.Int64("executed", s.Executed),
			slog.Int64("stolen", s.Stolen),
			slog.Duration("uptime", f.Uptime()),
		)
	}
}

// StopTimeout is Stop with a bound on the join. Returns ErrTimeout when
// some worker has not exited in time; the shutdown flag stays raised and
// the stragglers will still exit once their current payloads return.
func (f *Fleet) StopTimeout(d time.Duration) error {
	if !f.state.CompareAndSwap(stateRunning, stateClosed) {
		return nil
	}
	f.done.Store(true)

	joined := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
		if f.log != nil {
			f.log.Info("fleet stopped", slog.String("fleet_id", f.id))
		}
		return nil
	case <-time.After(d):
		return ErrTimeout
	}
}

// workerStarted is called by each worker on loop entry.
func (f *Fleet) workerStarted(w *Worker) {
	if f.hooks != nil && f.hooks.HasHooks(HookOnWorkerStart) {
		f.hooks.Trigger(HookOnWorkerStart, &WorkerInfo{
			ID:        w.id,
			FleetID:   f.id,
			StartedAt: time.Now(),
		})
	}
}

// workerStopped is called by each worker on loop exit.
func (f *Fleet) workerStopped(w *Worker) {
	if f.hooks != nil && f.hooks.HasHooks(HookOnWorkerStop) {
		f.hooks.Trigger(HookOnWorkerStop, &WorkerInfo{
			ID:        w.id,
			FleetID:   f.id,
			StoppedAt: time.Now(),
		})
	}
	f.wg.Done()
}

// handlePanic routes a recovered payload panic to the hooks and the
// configured handler.
func (f *Fleet) handlePanic(w *Worker, v any) {
	if f.hooks != nil && f.hooks.HasHooks(HookOnPanic) {
		f.hooks.Trigger(HookOnPanic, &TaskInfo{
			FleetID:  f.id,
			WorkerID: w.id,
			Error:    v,
		})
	}
	if f.cfg.PanicHandler == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	f.cfg.PanicHandler(v)
}
