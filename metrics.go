package worksteal

import "sync/atomic"

// Metrics holds the fleet's performance counters. All fields are updated
// atomically by workers on their scheduling paths; payload execution
// itself is never instrumented beyond one counter bump.
type Metrics struct {
	Submitted   atomic.Int64 // roots placed on deques (Submit / Schedule)
	Spawned     atomic.Int64 // children linked and published
	Executed    atomic.Int64 // payloads run to completion (incl. panics)
	Stolen      atomic.Int64 // successful steals from another worker
	StealMisses atomic.Int64 // steal attempts that found nothing or lost the CAS
	Waits       atomic.Int64 // cooperative waits that actually had to spin
	Panics      atomic.Int64 // payloads that panicked
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Submitted:   m.Submitted.Load(),
		Spawned:     m.Spawned.Load(),
		Executed:    m.Executed.Load(),
		Stolen:      m.Stolen.Load(),
		StealMisses: m.StealMisses.Load(),
		Waits:       m.Waits.Load(),
		Panics:      m.Panics.Load(),
	}
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	m.Submitted.Store(0)
	m.Spawned.Store(0)
	m.Executed.Store(0)
	m.Stolen.Store(0)
	m.StealMisses.Store(0)
	m.Waits.Store(0)
	m.Panics.Store(0)
}

// MetricsSnapshot is a point-in-time metrics snapshot.
type MetricsSnapshot struct {
	Submitted   int64
	Spawned     int64
	Executed    int64
	Stolen      int64
	StealMisses int64
	Waits       int64
	Panics      int64
}

// StealHitRate returns the fraction of steal attempts that obtained a
// task. Returns 1 when no steal was ever attempted.
func (s MetricsSnapshot) StealHitRate() float64 {
	attempts := s.Stolen + s.StealMisses
	if attempts == 0 {
		return 1.0
	}
	return float64(s.Stolen) / float64(attempts)
}
