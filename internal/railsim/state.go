package railsim

import "sync"

// AcquireResult is the outcome of TryAcquire.
type AcquireResult int

const (
	// Granted means the calling train now holds the intersection.
	Granted AcquireResult = iota
	// Full means the intersection was at capacity and the request was not
	// granted. A train that already holds the intersection never gets Full.
	Full
)

// ReleaseResult is the outcome of Release.
type ReleaseResult int

const (
	// Released means the calling train's holding was cleared.
	Released ReleaseResult = iota
	// NotHeld means the train did not hold the intersection - a double
	// release or a release by a non-holder. Logged as a warning, not fatal.
	NotHeld
)

// intersectionState is the per-intersection slice of the allocation
// matrices, plus its own wait queue and mutex. Splitting the lock per
// intersection (rather than one lock for the whole Held/Waiting matrix)
// lets unrelated intersections make progress concurrently, the same
// trade-off the teacher's loggerShared makes by guarding only the state a
// given concern actually touches.
type intersectionState struct {
	mu       sync.Mutex
	capacity int
	holders  map[int]bool // train index -> held
	waiting  map[int]bool // train index -> waiting
	queue    []int        // FIFO of train indices, Invariant Q1/Q2
}

// AllocationState is the C1 component: the Held/Waiting matrices, the
// per-intersection wait queues, and the simulated clock. It is the sole
// owner of this data; every exported method is atomic, and the Scheduler is
// the only caller permitted to mutate it (the Detector only reads, via
// Snapshot/HoldersOf/WaitsOf).
type AllocationState struct {
	intersections []*intersectionState

	// snapMu guards the consistency of a Snapshot against the per-intersection
	// mutators below. Every mutator takes it as a reader, so unrelated
	// intersections still make progress concurrently with each other;
	// Snapshot takes it as a writer, excluding every mutator for the
	// duration of the full multi-intersection read.
	snapMu sync.RWMutex

	clockMu sync.Mutex
	clock   uint64
}

// NewAllocationState allocates the matrices for the given model.
func NewAllocationState(model *Model) *AllocationState {
	s := &AllocationState{
		intersections: make([]*intersectionState, len(model.Intersections)),
	}
	for i, in := range model.Intersections {
		s.intersections[i] = &intersectionState{
			capacity: in.Capacity,
			holders:  make(map[int]bool),
			waiting:  make(map[int]bool),
		}
	}
	return s
}

// TryAcquire attempts to grant intersection i to train. An already-holding
// train gets an idempotent Granted rather than a second allocation.
func (s *AllocationState) TryAcquire(train, i int) AcquireResult {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()

	is := s.intersections[i]
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.holders[train] {
		// idempotent: already holding, no mutation needed.
		return Granted
	}

	if len(is.holders) >= is.capacity {
		return Full
	}

	is.holders[train] = true
	s.clearWaitLocked(is, train)
	return Granted
}

// Release clears train's holding of intersection i, if any.
func (s *AllocationState) Release(train, i int) ReleaseResult {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()

	is := s.intersections[i]
	is.mu.Lock()
	defer is.mu.Unlock()

	if !is.holders[train] {
		return NotHeld
	}
	delete(is.holders, train)
	return Released
}

// EnqueueWait marks train as waiting on intersection i and appends it to
// the FIFO wait queue, unless it is already present (Invariant Q1).
func (s *AllocationState) EnqueueWait(train, i int) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()

	is := s.intersections[i]
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.waiting[train] {
		return
	}
	is.waiting[train] = true
	is.queue = append(is.queue, train)
}

// clearWaitLocked removes train from intersection is's wait bookkeeping.
// Callers must hold is.mu.
func (s *AllocationState) clearWaitLocked(is *intersectionState, train int) {
	if !is.waiting[train] {
		return
	}
	delete(is.waiting, train)
	for idx, t := range is.queue {
		if t == train {
			is.queue = append(is.queue[:idx], is.queue[idx+1:]...)
			break
		}
	}
}

// PeekWaitHead returns the train index at the head of intersection i's wait
// queue, and whether one exists.
func (s *AllocationState) PeekWaitHead(i int) (int, bool) {
	is := s.intersections[i]
	is.mu.Lock()
	defer is.mu.Unlock()
	if len(is.queue) == 0 {
		return 0, false
	}
	return is.queue[0], true
}

// HoldersOf returns the set of trains currently holding intersection i.
func (s *AllocationState) HoldersOf(i int) []int {
	is := s.intersections[i]
	is.mu.Lock()
	defer is.mu.Unlock()
	out := make([]int, 0, len(is.holders))
	for t := range is.holders {
		out = append(out, t)
	}
	return out
}

// WaitsOf returns the ordered (FIFO) list of trains waiting on intersection i.
func (s *AllocationState) WaitsOf(i int) []int {
	is := s.intersections[i]
	is.mu.Lock()
	defer is.mu.Unlock()
	out := make([]int, len(is.queue))
	copy(out, is.queue)
	return out
}

// Snapshot returns a consistent, torn-read-free copy of the full Held and
// Waiting matrices, keyed as held[intersectionIndex][trainIndex] = true,
// for the Detector to build its wait-for graph from. It holds snapMu for
// the duration of the whole multi-intersection read, so no TryAcquire,
// Release, or EnqueueWait call can interleave between one intersection's
// read and the next - the result reflects one single instant across every
// intersection, not a splice of several.
func (s *AllocationState) Snapshot() (held, waiting []map[int]bool) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	held = make([]map[int]bool, len(s.intersections))
	waiting = make([]map[int]bool, len(s.intersections))
	for i, is := range s.intersections {
		is.mu.Lock()
		h := make(map[int]bool, len(is.holders))
		for t := range is.holders {
			h[t] = true
		}
		w := make(map[int]bool, len(is.waiting))
		for t := range is.waiting {
			w[t] = true
		}
		is.mu.Unlock()
		held[i] = h
		waiting[i] = w
	}
	return held, waiting
}

// Tick returns the current value of the simulated clock without advancing it.
func (s *AllocationState) Tick() uint64 {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	return s.clock
}

// Advance increments the simulated clock by one and returns the new value.
// Only the scheduler goroutine calls this - once per processed request.
func (s *AllocationState) Advance() uint64 {
	return s.AdvanceBy(1)
}

// AdvanceBy increments the simulated clock by n and returns the new value,
// for the one unit-of-traversal-time-per-tick accounting a RELEASE reports
// alongside it. n == 0 is a no-op read.
func (s *AllocationState) AdvanceBy(n uint64) uint64 {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.clock += n
	return s.clock
}
