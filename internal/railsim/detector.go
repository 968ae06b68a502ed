package railsim

import (
	"context"
	"sort"
	"time"
)

// graphNode is a node in the bipartite wait-for graph: either a train or an
// intersection, identified by its kind and index, with outgoing edges to
// the other kind. This is the direct
// Go-generic analogue of the original C++ prototype's
// unordered_map<string, Node>-keyed DFS (original_source/PostWeek2/
// DeadlockDetection.cpp's buildGraph/isCyclic), using small integer IDs
// instead of string-keyed nodes per the Design Note on cyclic references.
type graphNode struct {
	isTrain bool
	index   int
	edges   []graphNode
}

func (n graphNode) key() [2]int {
	k := 0
	if n.isTrain {
		k = 1
	}
	return [2]int{k, n.index}
}

// Detector is the C5 component. It runs on its own goroutine, woken by a
// time.Ticker, and communicates preemption decisions to the Scheduler
// through a dedicated channel - it never mutates AllocationState directly.
type Detector struct {
	model    *Model
	state    *AllocationState
	sink     Sink
	preempts chan<- preemption
	interval time.Duration
}

// NewDetector constructs a Detector. interval must be positive.
func NewDetector(model *Model, state *AllocationState, sink Sink, preempts chan<- preemption, interval time.Duration) *Detector {
	return &Detector{model: model, state: state, sink: sink, preempts: preempts, interval: interval}
}

// Run polls for deadlocks every interval until ctx is canceled, resolving
// every cycle it finds before waiting for the next tick.
func (d *Detector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.resolveAll(ctx)
		}
	}
}

// resolveAll repeatedly detects and preempts until a pass finds no cycle.
// Each preemption strictly reduces the number of holding edges, so this
// terminates.
func (d *Detector) resolveAll(ctx context.Context) {
	for {
		cycle := d.detect()
		if cycle == nil {
			return
		}
		victimTrain, victimIntersection := d.selectVictim(cycle)

		names := make([]string, len(cycle))
		for i, n := range cycle {
			if n.isTrain {
				names[i] = d.model.Trains[n.index].Name
			} else {
				names[i] = d.model.Intersections[n.index].Name
			}
		}

		done := make(chan struct{})
		select {
		case <-ctx.Done():
			return
		case d.preempts <- preemption{train: victimTrain, intersection: victimIntersection, cycle: names, done: done}:
		}

		select {
		case <-ctx.Done():
			return
		case <-done:
		}
	}
}

// detect builds the wait-for graph from a consistent snapshot and runs a
// DFS cycle search, returning the cycle (Train,Intersection,Train,...) as
// an ordered list of nodes, or nil if the graph is currently acyclic.
func (d *Detector) detect() []graphNode {
	held, waiting := d.state.Snapshot()

	trainNodes := make([]graphNode, len(d.model.Trains))
	interNodes := make([]graphNode, len(d.model.Intersections))
	for t := range trainNodes {
		trainNodes[t] = graphNode{isTrain: true, index: t}
	}
	for i := range interNodes {
		interNodes[i] = graphNode{isTrain: false, index: i}
	}

	// Train -> Intersection holding edges.
	for i, holders := range held {
		for t := range holders {
			trainNodes[t].edges = append(trainNodes[t].edges, interNodes[i])
		}
	}
	// Intersection -> Train wait edges, only when the intersection is at
	// capacity (otherwise the waiter would already have been granted on
	// the next scheduler pass, so it is not a genuine block).
	for i, waiters := range waiting {
		if len(held[i]) < d.model.Intersections[i].Capacity {
			continue
		}
		for t := range waiters {
			interNodes[i].edges = append(interNodes[i].edges, trainNodes[t])
		}
	}

	// deterministic edge order keeps the reported cycle reproducible
	for t := range trainNodes {
		sortNodes(trainNodes[t].edges)
	}
	for i := range interNodes {
		sortNodes(interNodes[i].edges)
	}

	visited := make(map[[2]int]bool)
	onStack := make(map[[2]int]bool)

	var cycle []graphNode
	var visit func(n graphNode) bool
	visit = func(n graphNode) bool {
		k := n.key()
		if onStack[k] {
			cycle = append(cycle, n)
			return true
		}
		if visited[k] {
			return false
		}
		visited[k] = true
		onStack[k] = true
		cycle = append(cycle, n)

		for _, next := range n.edges {
			// edges hold value copies taken while the graph was still being
			// built; resolve each to its fully-built node before descending.
			if next.isTrain {
				next = trainNodes[next.index]
			} else {
				next = interNodes[next.index]
			}
			if visit(next) {
				return true
			}
		}

		onStack[k] = false
		cycle = cycle[:len(cycle)-1]
		return false
	}

	// trains first, in index order, for a deterministic starting point
	for _, n := range trainNodes {
		if !visited[n.key()] {
			if visit(n) {
				return trimToCycle(cycle)
			}
		}
	}
	for _, n := range interNodes {
		if !visited[n.key()] {
			if visit(n) {
				return trimToCycle(cycle)
			}
		}
	}
	return nil
}

// trimToCycle drops the acyclic prefix DFS accumulates before reaching the
// repeated node, leaving only the cycle itself, closed (first == last).
func trimToCycle(path []graphNode) []graphNode {
	if len(path) == 0 {
		return nil
	}
	closing := path[len(path)-1].key()
	for i, n := range path {
		if n.key() == closing {
			return path[i:]
		}
	}
	return path
}

func sortNodes(nodes []graphNode) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i].key(), nodes[j].key()
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
}

// selectVictim applies a deterministic tie-break: the cycle train with the
// smallest index, then that train's held intersection (on the cycle) with
// the smallest index.
func (d *Detector) selectVictim(cycle []graphNode) (train, intersection int) {
	train = -1
	for _, n := range cycle {
		if n.isTrain && (train == -1 || n.index < train) {
			train = n.index
		}
	}

	intersection = -1
	for _, n := range cycle {
		if n.isTrain {
			continue
		}
		onCycle := false
		for _, m := range cycle {
			if m.isTrain && m.index == train {
				for _, e := range m.edges {
					if !e.isTrain && e.index == n.index {
						onCycle = true
					}
				}
			}
		}
		if onCycle && (intersection == -1 || n.index < intersection) {
			intersection = n.index
		}
	}
	return train, intersection
}
