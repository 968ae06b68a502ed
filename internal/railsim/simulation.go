package railsim

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunConfig bundles the knobs Simulation.Run needs that do not belong to
// the Model itself: the detector's polling interval and the traversal
// function trains use to simulate track time. Zero values fall back to the
// same style of documented defaults the teacher's BatcherConfig uses.
type RunConfig struct {
	// DetectorInterval is how often C5 polls for deadlocks. Defaults to 2ms
	// if zero or negative.
	DetectorInterval time.Duration

	// Traversal simulates per-intersection traversal time. Defaults to a
	// function returning 1 tick, if nil.
	Traversal TraversalFunc

	// Sink receives every structured event. Defaults to NopSink if nil.
	Sink Sink
}

func (c RunConfig) withDefaults() RunConfig {
	if c.DetectorInterval <= 0 {
		c.DetectorInterval = 2 * time.Millisecond
	}
	if c.Traversal == nil {
		c.Traversal = func(int, int) uint64 { return 1 }
	}
	if c.Sink == nil {
		c.Sink = NopSink{}
	}
	return c
}

// Simulation is the C7 supervisor: it owns the wiring between the model,
// the shared state, the transport, and the three kinds of goroutines
// (scheduler, trains, detector), and reports final Stats. It holds no
// package-level state, matching the teacher's preference for constructible,
// testable types over singletons.
type Simulation struct {
	Model *Model
	State *AllocationState
	Stats *Stats
}

// NewSimulation allocates the shared state for model.
func NewSimulation(model *Model) *Simulation {
	return &Simulation{
		Model: model,
		State: NewAllocationState(model),
		Stats: &Stats{},
	}
}

// Report is the outcome of a completed Run.
type Report struct {
	Stats StatsSnapshot
}

// Run spawns the scheduler, one goroutine per train, and the detector,
// under a single errgroup -
// mirroring the teacher's microbatch.Batcher.run, which also funnels a
// fixed set of cooperating goroutines through one sync.WaitGroup and a
// single done channel. Run blocks until every train reports Done, then
// cancels the detector and returns.
func (sim *Simulation) Run(ctx context.Context, cfg RunConfig) (Report, error) {
	cfg = cfg.withDefaults()

	reqCh := make(chan Request)
	respChs := make([]chan Response, len(sim.Model.Trains))
	for i := range respChs {
		respChs[i] = make(chan Response)
	}
	preempts := make(chan preemption)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)

	scheduler := NewScheduler(sim.Model, sim.State, cfg.Sink, sim.Stats, reqCh, respChs, preempts)
	group.Go(func() error {
		scheduler.Run(groupCtx)
		return nil
	})

	for t := range sim.Model.Trains {
		t := t
		group.Go(func() error {
			RunTrain(groupCtx, sim.Model, t, reqCh, respChs[t], cfg.Sink, cfg.Traversal)
			return nil
		})
	}

	detectorCtx, stopDetector := context.WithCancel(groupCtx)
	defer stopDetector()
	detector := NewDetector(sim.Model, sim.State, cfg.Sink, preempts, cfg.DetectorInterval)
	group.Go(func() error {
		detector.Run(detectorCtx)
		return nil
	})

	// Stop the detector as soon as the scheduler has observed every train's
	// DONE; trains finish shortly after (their own goroutines still have to
	// return from RunTrain, which the errgroup.Wait below accounts for).
	go func() {
		select {
		case <-scheduler.Done():
			stopDetector()
			cancel()
		case <-groupCtx.Done():
		}
	}()

	_ = group.Wait() // train/scheduler/detector goroutines never return a non-nil error themselves

	var err error
	if ctxErr := ctx.Err(); ctxErr != nil {
		// only the caller's own context cancellation is a reportable error;
		// our internal cancel() (issued once every train has finished) must
		// not look like a failure.
		err = ctxErr
	}
	return Report{Stats: sim.Stats.Snapshot()}, err
}
