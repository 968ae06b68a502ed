package railsim

import "context"

// Scheduler is the C3 component: the single arbiter goroutine. Its shape -
// one goroutine, one select loop, a done channel closed on exit - is the
// same one the teacher's microbatch.Batcher.run uses for its ping/pong
// request loop; here the "ping" is an ACQUIRE/RELEASE/DONE Request instead
// of a batch job, and the "pong" is a routed Response instead of a shared
// batch handle.
type Scheduler struct {
	model *Model
	state *AllocationState
	sink  Sink
	stats *Stats

	reqCh    <-chan Request
	respChs  []chan Response // one per train, indexed by train index
	preempts <-chan preemption

	completed    map[int]bool
	doneCh       chan struct{} // closed when all trains report Done, or when Run returns
	traversalSum map[int]int   // trainIndex -> ticks accounted for (diagnostic only)
}

// NewScheduler constructs a Scheduler wired to the given transport. respChs
// must have one entry per train, in train-index order.
func NewScheduler(model *Model, state *AllocationState, sink Sink, stats *Stats, reqCh <-chan Request, respChs []chan Response, preempts <-chan preemption) *Scheduler {
	return &Scheduler{
		model:        model,
		state:        state,
		sink:         sink,
		stats:        stats,
		reqCh:        reqCh,
		respChs:      respChs,
		preempts:     preempts,
		completed:    make(map[int]bool, len(model.Trains)),
		doneCh:       make(chan struct{}),
		traversalSum: make(map[int]int, len(model.Trains)),
	}
}

// Done returns a channel closed once every train has reported Done. It is
// also closed when Run returns for any other reason (ctx canceled, request
// channel closed).
func (s *Scheduler) Done() <-chan struct{} {
	return s.doneCh
}

// Run executes the scheduler's select loop until every train has completed
// or ctx is canceled. It owns the AllocationState's mutations exclusively;
// no other goroutine may call TryAcquire/Release/EnqueueWait.
func (s *Scheduler) Run(ctx context.Context) {
	defer func() {
		select {
		case <-s.doneCh: // already closed by onDone
		default:
			close(s.doneCh)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case req, ok := <-s.reqCh:
			if !ok {
				return
			}
			if s.handleRequest(req) {
				return
			}

		case p := <-s.preempts:
			s.handlePreemption(p)
		}
	}
}

// handleRequest processes one Request and reports whether the scheduler
// should now exit (all trains Done).
func (s *Scheduler) handleRequest(req Request) bool {
	s.state.Advance()

	train, trainOK := s.model.TrainIndex(req.TrainName)

	switch req.Tag {
	case Acquire:
		i, interOK := s.model.IntersectionIndex(req.IntersectionName)
		if !trainOK || !interOK {
			s.denyMalformed(train, trainOK, req)
			return false
		}
		s.onAcquire(train, i)

	case Release:
		i, interOK := s.model.IntersectionIndex(req.IntersectionName)
		if !trainOK || !interOK {
			s.denyMalformed(train, trainOK, req)
			return false
		}
		if req.TraversalTicks > 0 {
			s.state.AdvanceBy(req.TraversalTicks)
			s.traversalSum[train] += int(req.TraversalTicks)
		}
		s.onRelease(train, i)

	case Done:
		if trainOK {
			s.onDone(train)
		}
	}

	return len(s.completed) == len(s.model.Trains)
}

// denyMalformed logs and answers a request referencing an unknown train or
// intersection. A Response can only be routed if the train itself was
// recognized - an unknown train name has no channel to answer on.
func (s *Scheduler) denyMalformed(train int, trainOK bool, req Request) {
	s.sink.Emit(Event{
		Kind:         EventMalformedRequest,
		Tick:         s.state.Tick(),
		Train:        req.TrainName,
		Intersection: req.IntersectionName,
		Message:      "unknown train or intersection",
	})
	s.stats.recordDenied()
	if trainOK {
		s.respChs[train] <- Response{Verdict: Deny, IntersectionName: req.IntersectionName, Tick: s.state.Tick()}
	}
}

// onAcquire handles an ACQUIRE request: grant immediately if capacity
// allows, otherwise enqueue the train on the intersection's wait queue.
func (s *Scheduler) onAcquire(train, i int) {
	name := s.model.Intersections[i].Name
	tick := s.state.Tick()

	switch s.state.TryAcquire(train, i) {
	case Granted:
		s.sink.Emit(Event{Kind: EventGranted, Tick: tick, Train: s.model.Trains[train].Name, Intersection: name})
		s.stats.recordGrant()
		s.respChs[train] <- Response{Verdict: Grant, IntersectionName: name, Tick: tick}

	case Full:
		s.state.EnqueueWait(train, i)
		s.sink.Emit(Event{Kind: EventBusyEnqueued, Tick: tick, Train: s.model.Trains[train].Name, Intersection: name})
		s.stats.recordWait()
		s.respChs[train] <- Response{Verdict: Wait, IntersectionName: name, Tick: tick}
	}
}

// onRelease handles a RELEASE request, clearing the holding and then
// waking up the intersection's wait queue.
func (s *Scheduler) onRelease(train, i int) {
	name := s.model.Intersections[i].Name
	tick := s.state.Tick()

	switch s.state.Release(train, i) {
	case Released:
		s.sink.Emit(Event{Kind: EventReleased, Tick: tick, Train: s.model.Trains[train].Name, Intersection: name})
	case NotHeld:
		s.sink.Emit(Event{Kind: EventReleaseIgnored, Tick: tick, Train: s.model.Trains[train].Name, Intersection: name})
	}

	s.wakeUp(i)
}

// wakeUp grants the intersection to as many queued waiters as capacity
// allows, in strict FIFO order (Invariant Q2 / Fairness F1), stopping at
// the first waiter that cannot yet be granted.
func (s *Scheduler) wakeUp(i int) {
	name := s.model.Intersections[i].Name
	for {
		head, ok := s.state.PeekWaitHead(i)
		if !ok {
			return
		}
		if s.state.TryAcquire(head, i) != Granted {
			return
		}
		tick := s.state.Tick()
		s.sink.Emit(Event{Kind: EventGranted, Tick: tick, Train: s.model.Trains[head].Name, Intersection: name})
		s.stats.recordGrant()
		s.respChs[head] <- Response{Verdict: Grant, IntersectionName: name, Tick: tick}
	}
}

func (s *Scheduler) onDone(train int) {
	if s.completed[train] {
		return
	}
	s.completed[train] = true
	s.sink.Emit(Event{Kind: EventCompletedRoute, Tick: s.state.Tick(), Train: s.model.Trains[train].Name})
	s.stats.recordCompletion()
	if len(s.completed) == len(s.model.Trains) {
		s.sink.Emit(Event{Kind: EventAllFinished, Tick: s.state.Tick()})
		close(s.doneCh)
	}
}

// handlePreemption performs a deadlock-breaking synthetic RELEASE requested
// by the detector: release the victim's holding, log the cycle that forced
// it, then run the ordinary wake-up on the freed intersection.
func (s *Scheduler) handlePreemption(p preemption) {
	name := s.model.Intersections[p.intersection].Name
	trainName := s.model.Trains[p.train].Name
	tick := s.state.Advance()

	s.state.Release(p.train, p.intersection)
	s.sink.Emit(Event{
		Kind:         EventDeadlock,
		Tick:         tick,
		Train:        trainName,
		Intersection: name,
		Cycle:        p.cycle,
	})
	s.stats.recordPreemption()

	s.wakeUp(p.intersection)

	if p.done != nil {
		close(p.done)
	}
}
