// Package railsim implements the core of the simulated railway
// intersection resource manager: the shared allocation state, the
// request/response protocol, the scheduler, train actors, and the
// deadlock detector/resolver.
package railsim

import "fmt"

// IntersectionKind tags an Intersection by its capacity shape. A capacity-1
// intersection is EXCLUSIVE; anything larger is COUNTING. The distinction is
// purely descriptive - TryAcquire/Release use the same code path for both;
// no separate code path is necessary.
type IntersectionKind int

const (
	// Exclusive intersections have capacity == 1.
	Exclusive IntersectionKind = iota
	// Counting intersections have capacity > 1.
	Counting
)

func (k IntersectionKind) String() string {
	if k == Exclusive {
		return "EXCLUSIVE"
	}
	return "COUNTING"
}

// Intersection is a named shared resource with a fixed capacity. Instances
// are created at bootstrap and are immutable thereafter; Index is the
// stable, 0-based identifier used everywhere internally in place of the
// name, so the hot paths never do string comparisons.
type Intersection struct {
	Name     string
	Capacity int
	Index    int
}

// Kind reports whether the intersection is EXCLUSIVE or COUNTING.
func (i Intersection) Kind() IntersectionKind {
	if i.Capacity == 1 {
		return Exclusive
	}
	return Counting
}

// Train is an actor that traverses an ordered Route of intersection names,
// acquiring each before entry and releasing it on exit. Index is the
// stable, 0-based identifier derived at bootstrap.
type Train struct {
	Name  string
	Route []string
	Index int
}

// TrainState is the server's view of a train's protocol state, one of
// IDLE, HOLDING, WAITING, or DONE. It exists for observability/testing;
// the scheduler itself never branches on it directly (Held/Waiting already
// encode the same information), but it is a convenient summary.
type TrainState int

const (
	// StateIdle is the initial state, before the first ACQUIRE is sent.
	StateIdle TrainState = iota
	// StateHolding means the train holds at least one intersection and is
	// not blocked on an acquire.
	StateHolding
	// StateWaiting means the train has an outstanding ACQUIRE that has not
	// yet been granted.
	StateWaiting
	// StateDone means the train has completed (or aborted) its route.
	StateDone
)

func (s TrainState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateHolding:
		return "HOLDING"
	case StateWaiting:
		return "WAITING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// ConfigError reports a fatal configuration problem discovered while
// deriving the Intersection/Train index tables from raw input - an unknown
// intersection in a route, a duplicate name, a non-positive capacity, or an
// empty route. It is always fatal at startup.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("railsim: configuration error: %s", e.Reason)
}

// NewModel validates a raw (name, capacity) and (name, route) description
// and derives the stable index tables consumed by the rest of the package.
// It is the one place names are resolved to indices; everything downstream
// operates on indices only.
func NewModel(intersections []Intersection, trains []Train) (*Model, error) {
	if len(intersections) == 0 {
		return nil, &ConfigError{Reason: "no intersections declared"}
	}
	if len(trains) == 0 {
		return nil, &ConfigError{Reason: "no trains declared"}
	}

	byName := make(map[string]int, len(intersections))
	out := make([]Intersection, len(intersections))
	for i, in := range intersections {
		if in.Name == "" {
			return nil, &ConfigError{Reason: "intersection with empty name"}
		}
		if in.Capacity <= 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("intersection %q has non-positive capacity %d", in.Name, in.Capacity)}
		}
		if _, dup := byName[in.Name]; dup {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate intersection name %q", in.Name)}
		}
		in.Index = i
		byName[in.Name] = i
		out[i] = in
	}

	trainsByName := make(map[string]int, len(trains))
	outTrains := make([]Train, len(trains))
	routes := make([][]int, len(trains))
	for t, tr := range trains {
		if tr.Name == "" {
			return nil, &ConfigError{Reason: "train with empty name"}
		}
		if len(tr.Route) == 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("train %q has an empty route", tr.Name)}
		}
		if _, dup := trainsByName[tr.Name]; dup {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate train name %q", tr.Name)}
		}
		route := make([]int, len(tr.Route))
		for j, name := range tr.Route {
			idx, ok := byName[name]
			if !ok {
				return nil, &ConfigError{Reason: fmt.Sprintf("train %q references unknown intersection %q", tr.Name, name)}
			}
			route[j] = idx
		}
		tr.Index = t
		trainsByName[tr.Name] = t
		outTrains[t] = tr
		routes[t] = route
	}

	return &Model{
		Intersections: out,
		Trains:        outTrains,
		routes:        routes,
		intersByName:  byName,
		trainsByName:  trainsByName,
	}, nil
}

// Model is the immutable, validated description of a run: the full set of
// intersections and trains, with names resolved to stable indices.
type Model struct {
	Intersections []Intersection
	Trains        []Train

	routes       [][]int // routes[trainIndex] -> []intersectionIndex
	intersByName map[string]int
	trainsByName map[string]int
}

// Route returns the intersection-index route for the given train index.
func (m *Model) Route(trainIndex int) []int {
	return m.routes[trainIndex]
}

// IntersectionIndex resolves a name to its stable index, the way the
// scheduler must when a train's request references an intersection by
// name at the protocol boundary.
func (m *Model) IntersectionIndex(name string) (int, bool) {
	idx, ok := m.intersByName[name]
	return idx, ok
}

// TrainIndex resolves a train name to its stable index.
func (m *Model) TrainIndex(name string) (int, bool) {
	idx, ok := m.trainsByName[name]
	return idx, ok
}
