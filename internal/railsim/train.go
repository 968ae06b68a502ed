package railsim

import "context"

// TraversalFunc simulates the opaque traversal time a train spends holding
// an intersection, returning the number of simulated-clock ticks elapsed.
// Tests typically supply a function returning a small constant; production
// use can derive it from a route's declared weight, or a PRNG seeded from
// Config for determinism. The core treats the result as opaque.
type TraversalFunc func(train, intersectionIndex int) uint64

// RunTrain executes one train's route to completion (or abort). It is a
// straight-line function with blocking channel receives - the teacher's
// Design Note favors exactly this shape over a hand-rolled state machine
// struct, the same way longpoll.Channel is a single function with nested
// blocking selects rather than an object with a Poll method.
func RunTrain(ctx context.Context, model *Model, trainIndex int, reqCh chan<- Request, respCh <-chan Response, sink Sink, traversal TraversalFunc) {
	name := model.Trains[trainIndex].Name
	route := model.Route(trainIndex)

	for _, interIdx := range route {
		interName := model.Intersections[interIdx].Name

		sink.Emit(Event{Kind: EventSentAcquire, Train: name, Intersection: interName})
		select {
		case <-ctx.Done():
			return
		case reqCh <- Request{Tag: Acquire, TrainName: name, IntersectionName: interName}:
		}

		if !awaitGrant(ctx, name, interName, respCh, sink) {
			// DENY, or the scheduler exited without answering: abort the route.
			sendDone(ctx, name, reqCh)
			return
		}

		ticks := traversal(trainIndex, interIdx)

		sink.Emit(Event{Kind: EventSentRelease, Train: name, Intersection: interName})
		select {
		case <-ctx.Done():
			return
		case reqCh <- Request{Tag: Release, TrainName: name, IntersectionName: interName, TraversalTicks: ticks}:
		}
	}

	sendDone(ctx, name, reqCh)
}

// awaitGrant blocks for RESP messages concerning a single outstanding
// ACQUIRE: WAIT keeps blocking for the same intersection, GRANT proceeds,
// DENY aborts. A train never assumes any particular interleaving relative
// to other trains while doing so.
func awaitGrant(ctx context.Context, train, intersection string, respCh <-chan Response, sink Sink) bool {
	for {
		var resp Response
		var ok bool
		select {
		case <-ctx.Done():
			return false
		case resp, ok = <-respCh:
			if !ok {
				// the scheduler exited; treat as an aborted route, not fatal.
				return false
			}
		}

		switch resp.Verdict {
		case Grant:
			sink.Emit(Event{Kind: EventRecvGrant, Train: train, Intersection: intersection, Tick: resp.Tick})
			return true
		case Wait:
			sink.Emit(Event{Kind: EventRecvWait, Train: train, Intersection: intersection, Tick: resp.Tick})
			// continue: block for the eventual GRANT on this same intersection.
		case Deny:
			sink.Emit(Event{Kind: EventRecvDeny, Train: train, Intersection: intersection, Tick: resp.Tick})
			sink.Emit(Event{Kind: EventAborted, Train: train, Intersection: intersection, Tick: resp.Tick})
			return false
		}
	}
}

func sendDone(ctx context.Context, name string, reqCh chan<- Request) {
	select {
	case <-ctx.Done():
	case reqCh <- Request{Tag: Done, TrainName: name}:
	}
}
