package railsim

import "sync/atomic"

// Stats holds in-memory, atomically-updated run counters. It uses the same
// "mutable shared state behind an explicit accessor" discipline as
// AllocationState: every field is private, Snapshot returns a value copy,
// and no goroutine reads the live fields directly.
type Stats struct {
	grants      atomic.Int64
	waits       atomic.Int64
	preemptions atomic.Int64
	completions atomic.Int64
	denied      atomic.Int64
}

// StatsSnapshot is a point-in-time value copy of Stats, safe to read
// without synchronization once obtained.
type StatsSnapshot struct {
	Grants      int64
	Waits       int64
	Preemptions int64
	Completions int64
	Denied      int64
}

func (s *Stats) recordGrant()      { s.grants.Add(1) }
func (s *Stats) recordWait()       { s.waits.Add(1) }
func (s *Stats) recordPreemption() { s.preemptions.Add(1) }
func (s *Stats) recordCompletion() { s.completions.Add(1) }
func (s *Stats) recordDenied()     { s.denied.Add(1) }

// Snapshot returns a consistent value copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Grants:      s.grants.Load(),
		Waits:       s.waits.Load(),
		Preemptions: s.preemptions.Load(),
		Completions: s.completions.Load(),
		Denied:      s.denied.Load(),
	}
}
